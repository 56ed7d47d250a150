package card

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestRoundAvatarIsCircularForAnyAspect(t *testing.T) {
	const size, border = 142, 3
	for _, src := range []image.Image{
		solid(300, 100, color.RGBA{R: 255, A: 255}),
		solid(100, 300, color.RGBA{R: 255, A: 255}),
		solid(64, 64, color.RGBA{R: 255, A: 255}),
	} {
		sprite := roundAvatar(src, size, border)
		want := size + 4*border
		if got := sprite.Bounds().Size(); got != image.Pt(want, want) {
			t.Fatalf("unexpected sprite size %v", got)
		}

		origin := (want - size) / 2
		center := float64(origin) + float64(size)/2
		for _, angle := range []float64{0, math.Pi / 4, math.Pi / 2, math.Pi, 3 * math.Pi / 2} {
			x := int(center + 0.9*float64(size)/2*math.Cos(angle))
			y := int(center + 0.9*float64(size)/2*math.Sin(angle))
			if c := sprite.RGBAAt(x, y); c.R < 240 || c.A < 250 {
				t.Fatalf("expected opaque avatar inside circle at (%d,%d), got %v", x, y, c)
			}
		}

		for _, p := range []image.Point{
			{origin + 1, origin + 1},
			{origin + size - 2, origin + 1},
			{origin + 1, origin + size - 2},
		} {
			if c := sprite.RGBAAt(p.X, p.Y); c.R > 16 {
				t.Fatalf("expected no avatar colour outside circle at %v, got %v", p, c)
			}
		}
	}
}

func TestRoundAvatarShadowFallsDownRight(t *testing.T) {
	sprite := roundAvatar(solid(64, 64, color.RGBA{R: 255, A: 255}), 142, 3)
	// Both points sit just outside the avatar, on opposite sides.
	right := sprite.RGBAAt(150, 78)
	left := sprite.RGBAAt(3, 78)
	if right.A <= left.A {
		t.Fatalf("expected shadow heavier on the right: %v vs %v", right, left)
	}
}

func TestCircleMaskIsSmooth(t *testing.T) {
	mask := circleMask(40)
	partial := 0
	for _, a := range mask.Pix {
		if a > 0 && a < 255 {
			partial++
		}
	}
	if partial == 0 {
		t.Fatalf("expected anti-aliased edge pixels")
	}
	if mask.AlphaAt(20, 20).A != 255 || mask.AlphaAt(0, 0).A != 0 {
		t.Fatalf("unexpected mask centre/corner values")
	}
}
