package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hndesk/hndesk/internal/cache"
)

const (
	imageTimeout  = 30 * time.Second
	maxImageBytes = 10 << 20 // refuse anything over 10MB
)

// Images fetches story-card image bytes through the binary cache. Many
// cards can resolve the same image at once; the cache's single-flight
// de-dup keeps that to one download.
type Images struct {
	cache  *cache.Dual[[]byte]
	client *http.Client
	logger *slog.Logger
}

// NewImages creates an image fetcher over the binary cache.
func NewImages(c *cache.Dual[[]byte], logger *slog.Logger) *Images {
	if logger == nil {
		logger = slog.Default()
	}
	return &Images{
		cache:  c,
		client: &http.Client{Timeout: imageTimeout},
		logger: logger,
	}
}

// Get returns the image bytes for imageURL, fetching and caching them when
// absent. Failures are absorbed: the card simply renders without an image.
func (im *Images) Get(ctx context.Context, imageURL string) ([]byte, bool) {
	data, ok := im.cache.GetOrFetch(ctx, imageURL, func(ctx context.Context) ([]byte, error) {
		return im.fetch(ctx, imageURL)
	})
	if !ok || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (im *Images) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image too large: %d bytes", len(data))
	}
	return data, nil
}
