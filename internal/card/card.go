// Package card renders member profile cards: a banner with the member's
// avatar, name and date composited on top, as PNG or animated GIF.
package card

import (
	"bytes"
	"errors"
	"image"
	"time"
)

var (
	ErrDecode        = errors.New("image decode failed")
	ErrImageTooLarge = errors.New("image dimensions too large")
)

const (
	defaultFrameDuration = 100 * time.Millisecond
	maxSourcePixels      = 4096 * 4096
	// Every GIF frame expands to a full canvas, so the total is capped too.
	maxAnimatedPixels    = 64 << 20
)

// Kind tags the encoding of a rendered card.
type Kind int

const (
	Static Kind = iota
	Animated
)

func (k Kind) String() string {
	if k == Animated {
		return "animated"
	}
	return "static"
}

// Card is an encoded profile card.
type Card struct {
	Kind Kind
	Data []byte
}

// Extension returns the file extension matching the payload.
func (c *Card) Extension() string {
	if c.Kind == Animated {
		return "gif"
	}
	return "png"
}

func (c *Card) Filename(base string) string {
	return base + "." + c.Extension()
}

// IsGIF reports whether data starts with the GIF magic bytes.
func IsGIF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("GIF8"))
}

// Profile is the text drawn on a card. Values are rendered verbatim.
type Profile struct {
	DisplayName   string
	Username      string
	Discriminator string
	Date          string
}

// Handle is the second text line: "@name" for migrated accounts, "#1234" otherwise.
func (p Profile) Handle() string {
	if p.Discriminator == "" || p.Discriminator == "0" {
		return "@" + p.Username
	}
	return "#" + p.Discriminator
}

// Request carries everything one render needs. Animated allows GIF output;
// it only takes effect when one of the sources is animated.
type Request struct {
	Banner   []byte
	Avatar   []byte
	Profile  Profile
	Animated bool
}

// Frame is one decoded bitmap with its display duration.
type Frame struct {
	Image    *image.NRGBA
	Duration time.Duration
}

// Sequence is an ordered, non-empty list of frames.
type Sequence struct {
	Frames   []Frame
	Animated bool
}

func (s Sequence) Len() int { return len(s.Frames) }

// At returns frame i modulo the sequence length.
func (s Sequence) At(i int) Frame {
	return s.Frames[i%len(s.Frames)]
}
