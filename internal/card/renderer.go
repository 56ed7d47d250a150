package card

import (
	"context"
	"fmt"

	"guild-greeter/internal/config"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Renderer is the single profile card service shared by every caller.
// Renders run on the calling goroutine; at most cfg.MaxConcurrent run at once.
type Renderer struct {
	cfg    config.CardConfig
	fonts  *FontSet
	logger *zap.Logger
	slots  *semaphore.Weighted
}

func NewRenderer(cfg config.CardConfig, fonts *FontSet, logger *zap.Logger) *Renderer {
	return &Renderer{
		cfg:    cfg,
		fonts:  fonts,
		logger: logger,
		slots:  semaphore.NewWeighted(int64(max(cfg.MaxConcurrent, 1))),
	}
}

// Render produces a card, or nil when anything fails. Failures are logged and
// never returned; callers send their message without an image instead. ctx
// only bounds the wait for a render slot.
func (r *Renderer) Render(ctx context.Context, req Request) (card *Card) {
	if err := r.slots.Acquire(ctx, 1); err != nil {
		r.logger.Warn("card render skipped", zap.Error(err))
		return nil
	}
	defer r.slots.Release(1)

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("card render panicked", zap.Any("panic", p), zap.Stack("stack"))
			card = nil
		}
	}()

	card, err := r.render(req)
	if err != nil {
		r.logger.Error("card render failed", zap.Error(err), zap.Stack("stack"))
		return nil
	}
	return card
}

func (r *Renderer) render(req Request) (*Card, error) {
	banner, err := Extract(req.Banner)
	if err != nil {
		return nil, fmt.Errorf("banner: %w", err)
	}
	avatar, err := Extract(req.Avatar)
	if err != nil {
		return nil, fmt.Errorf("avatar: %w", err)
	}

	faces, closeFaces, err := r.faceSets()
	if err != nil {
		return nil, err
	}
	defer closeFaces()

	frames, durations, animated := newComposer(r.cfg, faces, req.Profile).compose(banner, avatar, req.Animated)
	if animated {
		data, err := encodeAnimated(frames, durations, r.cfg.PaletteSize)
		if err != nil {
			return nil, err
		}
		return &Card{Kind: Animated, Data: data}, nil
	}

	data, err := encodeStatic(frames[0])
	if err != nil {
		return nil, err
	}
	return &Card{Kind: Static, Data: data}, nil
}

func (r *Renderer) faceSets() (faceSets, func(), error) {
	var sets faceSets
	closeAll := func() {
		sets.name.Close()
		sets.handle.Close()
		sets.date.Close()
	}

	var err error
	if sets.name, err = r.fonts.faces(r.cfg.NameFontSize); err != nil {
		return faceSets{}, nil, err
	}
	if sets.handle, err = r.fonts.faces(r.cfg.HandleFontSize); err != nil {
		closeAll()
		return faceSets{}, nil, err
	}
	if sets.date, err = r.fonts.faces(r.cfg.DateFontSize); err != nil {
		closeAll()
		return faceSets{}, nil, err
	}
	return sets, closeAll, nil
}
