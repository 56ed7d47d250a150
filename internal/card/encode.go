package card

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"time"

	"github.com/ericpauley/go-quantize/quantize"
)

func encodeStatic(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeAnimated writes a looping GIF. Each frame is flattened onto black and
// quantized to its own palette of at most paletteSize colours.
func encodeAnimated(frames []*image.RGBA, durations []time.Duration, paletteSize int) ([]byte, error) {
	quantizer := quantize.MedianCutQuantizer{}
	out := &gif.GIF{LoopCount: 0}
	for i, frame := range frames {
		opaque := image.NewRGBA(frame.Bounds())
		draw.Draw(opaque, opaque.Bounds(), image.Black, image.Point{}, draw.Src)
		draw.Draw(opaque, opaque.Bounds(), frame, frame.Bounds().Min, draw.Over)

		palette := quantizer.Quantize(make(color.Palette, 0, paletteSize), opaque)
		paletted := image.NewPaletted(opaque.Bounds(), palette)
		draw.FloydSteinberg.Draw(paletted, paletted.Bounds(), opaque, opaque.Bounds().Min)

		out.Image = append(out.Image, paletted)
		out.Delay = append(out.Delay, delayCentis(durations[i]))
		out.Disposal = append(out.Disposal, gif.DisposalNone)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}

// delayCentis rounds d to GIF delay units, never below one unit.
func delayCentis(d time.Duration) int {
	centis := int((d + 5*time.Millisecond) / (10 * time.Millisecond))
	return max(centis, 1)
}
