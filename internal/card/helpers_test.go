package card

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"guild-greeter/internal/config"

	"go.uber.org/zap"
	"golang.org/x/image/font/gofont/goregular"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// animatedGIF builds a GIF with one solid frame per delay, cycling colours.
func animatedGIF(t *testing.T, w, h int, delays []int) []byte {
	t.Helper()
	pal := color.Palette{
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255},
		color.RGBA{B: 255, A: 255},
		color.RGBA{R: 255, G: 255, A: 255},
	}
	out := &gif.GIF{LoopCount: 0}
	for i, delay := range delays {
		frame := image.NewPaletted(image.Rect(0, 0, w, h), pal)
		for j := range frame.Pix {
			frame.Pix[j] = uint8(i % len(pal))
		}
		out.Image = append(out.Image, frame)
		out.Delay = append(out.Delay, delay)
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	return buf.Bytes()
}

func writeGoFont(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goregular.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o600); err != nil {
		t.Fatalf("write font: %v", err)
	}
	return path
}

func newTestRenderer(t *testing.T, logger *zap.Logger) *Renderer {
	t.Helper()
	cfg := config.DefaultCardConfig()
	cfg.FontPaths = []string{writeGoFont(t)}
	return NewRenderer(cfg, LoadFonts(cfg.FontPaths, zap.NewNop()), logger)
}

func testProfile() Profile {
	return Profile{DisplayName: "Aiko 愛子", Username: "aiko", Discriminator: "0", Date: "2024/05/01 12:30"}
}
