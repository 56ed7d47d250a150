package card

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Extract decodes data into a frame sequence. Animated GIFs yield every frame,
// composited according to each frame's disposal method; everything else yields
// a single frame.
func Extract(data []byte) (Sequence, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Sequence{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width*cfg.Height > maxSourcePixels {
		return Sequence{}, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	if format == "gif" {
		decoded, err := gif.DecodeAll(bytes.NewReader(data))
		if err != nil {
			return Sequence{}, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if len(decoded.Image) > 1 {
			if len(decoded.Image)*cfg.Width*cfg.Height > maxAnimatedPixels {
				return Sequence{}, fmt.Errorf("%w: %d frames of %dx%d", ErrImageTooLarge, len(decoded.Image), cfg.Width, cfg.Height)
			}
			return gifSequence(decoded), nil
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Sequence{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Sequence{Frames: []Frame{{Image: imaging.Clone(img), Duration: defaultFrameDuration}}}, nil
}

func gifSequence(g *gif.GIF) Sequence {
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		for _, frame := range g.Image {
			bounds = bounds.Union(frame.Bounds())
		}
	}

	canvas := image.NewRGBA(bounds)
	frames := make([]Frame, 0, len(g.Image))
	for i, frame := range g.Image {
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}

		var previous *image.RGBA
		if disposal == gif.DisposalPrevious {
			previous = image.NewRGBA(bounds)
			copy(previous.Pix, canvas.Pix)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		frames = append(frames, Frame{Image: imaging.Clone(canvas), Duration: gifDelay(g, i)})

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = previous
		}
	}
	return Sequence{Frames: frames, Animated: true}
}

// gifDelay converts the frame delay from hundredths of a second. Missing or
// non-positive delays become the default.
func gifDelay(g *gif.GIF, i int) time.Duration {
	if i >= len(g.Delay) || g.Delay[i] <= 0 {
		return defaultFrameDuration
	}
	return time.Duration(g.Delay[i]) * 10 * time.Millisecond
}
