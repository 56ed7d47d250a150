package card

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	"guild-greeter/internal/config"
)

var textColor = image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255})

type faceSets struct {
	name   faceList
	handle faceList
	date   faceList
}

// composer holds the per-render layers shared by every output frame.
type composer struct {
	cfg     config.CardConfig
	faces   faceSets
	profile Profile
	misty   *image.Uniform
	frame   *image.Uniform
	band    *image.Alpha
}

func newComposer(cfg config.CardConfig, faces faceSets, profile Profile) *composer {
	w, h := cfg.BannerWidth, cfg.BannerHeight
	b := float32(cfg.FrameBorder)
	inner := roundedRectMask(w, h, b, b, float32(w)-b, float32(h)-b, float32(cfg.FrameRadius))
	return &composer{
		cfg:     cfg,
		faces:   faces,
		profile: profile,
		misty:   image.NewUniform(color.NRGBA{A: uint8(clamp(cfg.MistyAlpha, 0, 255))}),
		frame:   image.NewUniform(color.NRGBA{A: uint8(clamp(cfg.FrameAlpha, 0, 255))}),
		band:    invertMask(inner),
	}
}

// compose renders the output frames. Output is animated only when allowed
// and at least one source is animated; otherwise the first frame of each
// source is used. Animated output cycles both sequences to the longer length
// and shows each frame for the slower of its two source frames.
func (c *composer) compose(banner, avatar Sequence, allowAnimated bool) ([]*image.RGBA, []time.Duration, bool) {
	if !allowAnimated || (!banner.Animated && !avatar.Animated) {
		sprite := roundAvatar(avatar.Frames[0].Image, c.cfg.AvatarSize, c.cfg.AvatarBorder)
		return []*image.RGBA{c.render(banner.Frames[0].Image, sprite)}, []time.Duration{defaultFrameDuration}, false
	}

	sprites := make([]*image.RGBA, avatar.Len())
	for i, f := range avatar.Frames {
		sprites[i] = roundAvatar(f.Image, c.cfg.AvatarSize, c.cfg.AvatarBorder)
	}

	n := max(banner.Len(), avatar.Len())
	frames := make([]*image.RGBA, n)
	durations := make([]time.Duration, n)
	for i := 0; i < n; i++ {
		frames[i] = c.render(banner.At(i).Image, sprites[i%len(sprites)])
		durations[i] = max(banner.At(i).Duration, avatar.At(i).Duration)
	}
	return frames, durations, true
}

// render draws one frame: banner, misty layer, border band, avatar, text.
func (c *composer) render(banner image.Image, sprite *image.RGBA) *image.RGBA {
	canvas := normalizeBanner(banner, c.cfg.BannerWidth, c.cfg.BannerHeight)
	draw.Draw(canvas, canvas.Bounds(), c.misty, image.Point{}, draw.Over)
	draw.DrawMask(canvas, canvas.Bounds(), c.frame, image.Point{}, c.band, image.Point{}, draw.Over)

	spriteSize := sprite.Bounds().Dx()
	x := c.cfg.AvatarInset
	y := floorDiv(c.cfg.BannerHeight-spriteSize, 2)
	draw.Draw(canvas, sprite.Bounds().Add(image.Pt(x, y)), sprite, image.Point{}, draw.Over)

	c.drawProfile(canvas, x+spriteSize+c.cfg.TextGap, spriteSize)
	return canvas
}

// drawProfile centres the name and handle lines against the avatar and pins
// the date to the bottom-right corner.
func (c *composer) drawProfile(canvas *image.RGBA, textX, spriteSize int) {
	name, handle := c.profile.DisplayName, c.profile.Handle()
	_, nameH := c.faces.name.Measure(name)
	_, handleH := c.faces.handle.Measure(handle)

	total := nameH + handleH + c.cfg.LineSpacing
	nameY := floorDiv(c.cfg.BannerHeight-spriteSize, 2) + floorDiv(spriteSize-total, 2)
	handleY := nameY + nameH + c.cfg.LineSpacing

	drawText(canvas, textX, nameY, name, c.faces.name, textColor)
	drawText(canvas, textX, handleY, handle, c.faces.handle, textColor)

	dateW, dateH := c.faces.date.Measure(c.profile.Date)
	dateX := c.cfg.BannerWidth - dateW - c.cfg.DateMargin
	dateY := c.cfg.BannerHeight - dateH - c.cfg.DateMargin
	drawText(canvas, dateX, dateY, c.profile.Date, c.faces.date, textColor)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
