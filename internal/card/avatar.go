package card

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

const (
	maskSupersample = 4
	shadowAlpha     = 150
)

// roundAvatar turns an avatar frame into a sprite: the frame stretched to a
// size×size square, clipped to a circle and laid over a soft drop shadow.
// The sprite is size+4*border pixels on each side.
func roundAvatar(src image.Image, size, border int) *image.RGBA {
	resized := imaging.Resize(src, size, size, imaging.Lanczos)
	rounded := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.DrawMask(rounded, rounded.Bounds(), resized, image.Point{}, circleMask(size), image.Point{}, draw.Over)

	spread := float64(border) * 2
	blur := float64(border) * 1.5
	offset := float64(border) * 0.75

	canvasSize := int(float64(size) + spread*2)
	sprite := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))

	shadowBase := int(float64(size) + spread)
	shadowCanvas := int(float64(shadowBase) + blur*2)
	inset := float32(shadowCanvas-shadowBase) / 2
	shadowMask := ellipseMask(shadowCanvas, shadowCanvas, inset, inset, inset+float32(shadowBase), inset+float32(shadowBase))

	shadow := image.NewNRGBA(shadowMask.Bounds())
	draw.DrawMask(shadow, shadow.Bounds(), image.NewUniform(color.NRGBA{A: shadowAlpha}), image.Point{}, shadowMask, image.Point{}, draw.Over)
	blurred := imaging.Blur(shadow, blur)

	shadowPos := int(float64(canvasSize-shadowCanvas)/2 + offset)
	draw.Draw(sprite, blurred.Bounds().Add(image.Pt(shadowPos, shadowPos)), blurred, image.Point{}, draw.Over)

	avatarPos := (canvasSize - size) / 2
	draw.Draw(sprite, rounded.Bounds().Add(image.Pt(avatarPos, avatarPos)), rounded, image.Point{}, draw.Over)
	return sprite
}

// circleMask is a size×size circle, rasterized at maskSupersample times the
// resolution and downsampled so the edge is smooth.
func circleMask(size int) *image.Alpha {
	big := size * maskSupersample
	hi := ellipseMask(big, big, 0, 0, float32(big), float32(big))
	small := imaging.Resize(hi, size, size, imaging.Lanczos)

	mask := image.NewAlpha(image.Rect(0, 0, size, size))
	for i := range mask.Pix {
		mask.Pix[i] = small.Pix[i*4+3]
	}
	return mask
}
