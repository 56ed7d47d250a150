package card

import (
	"image"

	"github.com/disintegration/imaging"
)

// normalizeBanner scales src to cover a w×h canvas and crops the overflow
// evenly from both sides of one axis. The result is always exactly w×h.
func normalizeBanner(src image.Image, w, h int) *image.RGBA {
	b := src.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	var resized *image.NRGBA
	if float64(srcW)/float64(srcH) > float64(w)/float64(h) {
		scaledW := int(float64(srcW) * (float64(h) / float64(srcH)))
		resized = imaging.Resize(src, max(scaledW, w), h, imaging.Lanczos)
	} else {
		scaledH := int(float64(srcH) * (float64(w) / float64(srcW)))
		resized = imaging.Resize(src, w, max(scaledH, h), imaging.Lanczos)
	}
	return toRGBA(imaging.CropCenter(resized, w, h))
}
