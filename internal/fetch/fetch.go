// Package fetch downloads avatar and banner images for card rendering.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"guild-greeter/internal/config"

	"golang.org/x/sync/errgroup"
)

var (
	ErrNoURL    = errors.New("no image url")
	ErrTooLarge = errors.New("image body too large")
)

type Client struct {
	http     *http.Client
	maxBytes int64
}

func New(cfg config.FetchConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 16 << 20
	}
	return &Client{http: &http.Client{Timeout: timeout}, maxBytes: maxBytes}
}

func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("fetch %s: %w", url, ErrTooLarge)
	}
	return body, nil
}

// Pair downloads the avatar and banner in parallel. The first failure
// cancels the other download.
func (c *Client) Pair(ctx context.Context, avatarURL, bannerURL string) (avatar, banner []byte, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		avatar, err = c.Get(ctx, avatarURL)
		if err != nil {
			return fmt.Errorf("avatar: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		banner, err = c.Get(ctx, bannerURL)
		if err != nil {
			return fmt.Errorf("banner: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return avatar, banner, nil
}
