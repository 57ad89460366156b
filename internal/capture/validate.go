package capture

import "fmt"

// maxCaptureDimension guards against a runaway element-screenshot response
// (e.g. a story that renders an unbounded scroll container) being decoded
// and held in memory for the rest of the batch.
const maxCaptureDimension = 20000

// Validate sanity-checks a capture's bounding-rectangle dimensions (as
// reported by get-element-rect, before the screenshot is taken), the same
// shape of guard the teacher's image upload path applies to uploaded photos:
// reject zero-sized and implausibly large elements rather than let them
// propagate into diffing or disk writes.
func Validate(width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("captured image has invalid dimensions %gx%g", width, height)
	}
	if width > maxCaptureDimension || height > maxCaptureDimension {
		return fmt.Errorf("captured image dimensions %gx%g exceed the %dpx guard", width, height, maxCaptureDimension)
	}
	return nil
}
