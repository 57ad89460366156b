// Package capture fetches a gallery's story manifest and drives a pool of
// remote WebDriver sessions to screenshot every story it lists.
package capture

import (
	"github.com/chris-o-r/SnapShotTesting/internal/store/models"
)

// Result is the outcome of capturing one descriptor: either a populated
// RawImage or an error, never both. Per-item failures never abort a whole
// Capture Pool chunk; they're carried through as a Result and logged by the
// caller.
type Result struct {
	Descriptor models.CaptureDescriptor
	Image      models.RawImage
	Err        error
}

// newRawImage builds a RawImage from captured PNG bytes and the element's
// WebDriver bounding rectangle (width/height come from get-element-rect, not
// from decoding raw — the two can diverge under device pixel ratio scaling).
func newRawImage(d models.CaptureDescriptor, raw []byte, width, height float64) models.RawImage {
	return models.RawImage{
		Bytes:  raw,
		Width:  width,
		Height: height,
		Kind:   d.Side,
		Name:   d.Name,
	}
}
