package card

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// FontSet is an ordered fallback list of parsed fonts. Parsed fonts are
// read-only and shared; faces are created per render.
type FontSet struct {
	fonts []*opentype.Font
}

// LoadFonts parses every readable font in paths, in order. Unreadable or
// corrupt files are skipped with a warning.
func LoadFonts(paths []string, logger *zap.Logger) *FontSet {
	set := &FontSet{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("font skipped", zap.String("path", path), zap.Error(err))
			continue
		}
		parsed, err := opentype.Parse(data)
		if err != nil {
			logger.Warn("font skipped", zap.String("path", path), zap.Error(err))
			continue
		}
		set.fonts = append(set.fonts, parsed)
	}
	if len(set.fonts) == 0 {
		logger.Error("no fonts loaded, using built-in fallback face", zap.Strings("paths", paths))
	}
	return set
}

func (s *FontSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fonts)
}

// faces builds one face per font at size. The built-in face is returned when
// the set is empty.
func (s *FontSet) faces(size float64) (faceList, error) {
	if s.Len() == 0 {
		return faceList{{Face: basicfont.Face7x13}}, nil
	}
	faces := make(faceList, 0, len(s.fonts))
	for _, f := range s.fonts {
		face, err := opentype.NewFace(f, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			faces.Close()
			return nil, fmt.Errorf("create face: %w", err)
		}
		faces = append(faces, fallbackFace{Face: face, src: f})
	}
	return faces, nil
}

// fallbackFace pairs a face with the font it was built from. src is nil for
// the built-in face.
type fallbackFace struct {
	font.Face
	src *sfnt.Font
}

// covers reports whether the face has a glyph with visible ink for r.
func (f fallbackFace) covers(r rune) bool {
	if f.src != nil {
		if idx, err := f.src.GlyphIndex(nil, r); err != nil || idx == 0 {
			return false
		}
	}
	dr, mask, maskp, _, ok := f.Glyph(fixed.Point26_6{}, r)
	if !ok || dr.Empty() {
		return false
	}
	for y := 0; y < dr.Dy(); y++ {
		for x := 0; x < dr.Dx(); x++ {
			if _, _, _, a := mask.At(maskp.X+x, maskp.Y+y).RGBA(); a != 0 {
				return true
			}
		}
	}
	return false
}

type faceList []fallbackFace

// For returns the first face with a visible glyph for r, or the primary face.
func (l faceList) For(r rune) font.Face {
	for _, face := range l {
		if face.covers(r) {
			return face.Face
		}
	}
	return l[0].Face
}

// Measure returns the ink size of text in the primary face.
func (l faceList) Measure(text string) (width, height int) {
	if text == "" {
		return 0, 0
	}
	bounds, _ := font.BoundString(l[0].Face, text)
	return (bounds.Max.X - bounds.Min.X).Ceil(), (bounds.Max.Y - bounds.Min.Y).Ceil()
}

func (l faceList) Close() {
	for _, face := range l {
		if face.src != nil {
			_ = face.Close()
		}
	}
}

func advance(face font.Face, r rune) fixed.Int26_6 {
	adv, ok := face.GlyphAdvance(r)
	if !ok {
		return 0
	}
	return adv
}
