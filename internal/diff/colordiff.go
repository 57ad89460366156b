package diff

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// markerColor paints every differing pixel. Fully transparent green per the
// fixed marker color, so overlaying the diff on top of the original keeps
// unaffected regions visually unchanged in tools that respect alpha.
var markerColor = color.RGBA{0, 255, 0, 0}

// ColorDiff builds a pixel-for-pixel comparison of a against b: a copy of a
// with every differing pixel painted markerColor.
func ColorDiff(a, b image.Image) image.Image {
	out := imaging.Clone(a)
	bounds := out.Bounds()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			ar, ag, ab, aa := a.At(x, y).RGBA()
			br, bg, bb, ba := b.At(x, y).RGBA()
			if ar != br || ag != bg || ab != bb || aa != ba {
				out.Set(x, y, markerColor)
			}
		}
	}

	return out
}
