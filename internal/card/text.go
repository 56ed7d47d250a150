package card

import (
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// drawText draws text verbatim, rune by rune, choosing a face per rune so mixed-script
// strings render even when no single font covers them. top is the ascender
// line of the first rune.
func drawText(dst draw.Image, x, top int, text string, faces faceList, src image.Image) {
	dot := fixed.I(x)
	for _, r := range text {
		face := faces.For(r)
		d := font.Drawer{
			Dst:  dst,
			Src:  src,
			Face: face,
			Dot:  fixed.Point26_6{X: dot, Y: fixed.I(top) + face.Metrics().Ascent},
		}
		d.DrawString(string(r))
		dot += advance(face, r)
	}
}
