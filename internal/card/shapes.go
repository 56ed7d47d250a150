package card

import (
	"image"
	"image/draw"

	"golang.org/x/image/vector"
)

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

// ellipseMask rasterizes an anti-aliased ellipse inscribed in the box
// (x0,y0)-(x1,y1) into a w×h mask.
func ellipseMask(w, h int, x0, y0, x1, y1 float32) *image.Alpha {
	z := vector.NewRasterizer(w, h)
	cx, cy := (x0+x1)/2, (y0+y1)/2
	rx, ry := (x1-x0)/2, (y1-y0)/2
	kx, ky := rx*kappa, ry*kappa

	z.MoveTo(cx+rx, cy)
	z.CubeTo(cx+rx, cy+ky, cx+kx, cy+ry, cx, cy+ry)
	z.CubeTo(cx-kx, cy+ry, cx-rx, cy+ky, cx-rx, cy)
	z.CubeTo(cx-rx, cy-ky, cx-kx, cy-ry, cx, cy-ry)
	z.CubeTo(cx+kx, cy-ry, cx+rx, cy-ky, cx+rx, cy)
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// roundedRectMask rasterizes a rectangle with circular corners of radius rad.
func roundedRectMask(w, h int, x0, y0, x1, y1, rad float32) *image.Alpha {
	if limit := min(x1-x0, y1-y0) / 2; rad > limit {
		rad = limit
	}
	if rad < 0 {
		rad = 0
	}
	k := rad * kappa
	z := vector.NewRasterizer(w, h)

	z.MoveTo(x0+rad, y0)
	z.LineTo(x1-rad, y0)
	z.CubeTo(x1-rad+k, y0, x1, y0+rad-k, x1, y0+rad)
	z.LineTo(x1, y1-rad)
	z.CubeTo(x1, y1-rad+k, x1-rad+k, y1, x1-rad, y1)
	z.LineTo(x0+rad, y1)
	z.CubeTo(x0+rad-k, y1, x0, y1-rad+k, x0, y1-rad)
	z.LineTo(x0, y0+rad)
	z.CubeTo(x0, y0+rad-k, x0+rad-k, y0, x0+rad, y0)
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// invertMask returns 255-a for every pixel of m.
func invertMask(m *image.Alpha) *image.Alpha {
	out := image.NewAlpha(m.Bounds())
	for i, a := range m.Pix {
		out.Pix[i] = 255 - a
	}
	return out
}

// toRGBA copies src into a new premultiplied RGBA image anchored at the origin.
func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
