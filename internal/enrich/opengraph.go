// Package enrich resolves the story-card extras: an og:image URL scraped
// from an article page, and the image bytes themselves. Everything here is
// best-effort; a failure is an absent result, never an error the feed has
// to care about.
package enrich

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/hndesk/hndesk/internal/cache"
	"golang.org/x/time/rate"
)

const (
	// metadataTimeout caps the page fetch; this is enrichment and must not
	// stall the primary content flow.
	metadataTimeout = 8 * time.Second

	// maxHeadBytes is how much of the page gets read; og:image lives in
	// the <head>.
	maxHeadBytes = 50_000

	browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko)"
)

var ogImagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<meta[^>]+property\s*=\s*["']og:image["'][^>]+content\s*=\s*["']([^"']+)["']`),
	regexp.MustCompile(`(?i)<meta[^>]+content\s*=\s*["']([^"']+)["'][^>]+property\s*=\s*["']og:image["']`),
}

// OpenGraph looks up the og:image URL for article pages, backed by the
// metadata cache. An empty cached string records a page known to have no
// usable image, so it isn't re-fetched for 24h either.
type OpenGraph struct {
	cache   *cache.Dual[string]
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewOpenGraph creates a lookup service over the metadata cache.
func NewOpenGraph(c *cache.Dual[string], logger *slog.Logger) *OpenGraph {
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenGraph{
		cache:  c,
		client: &http.Client{Timeout: metadataTimeout},
		// Article hosts are third parties; stay polite.
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 4),
		logger:  logger,
	}
}

// ImageURL returns the og:image URL for pageURL, fetching and caching it
// when unknown. Concurrent lookups for the same page share one fetch.
func (o *OpenGraph) ImageURL(ctx context.Context, pageURL string) (string, bool) {
	result, ok := o.cache.GetOrFetch(ctx, pageURL, func(ctx context.Context) (string, error) {
		return o.fetch(ctx, pageURL)
	})
	if !ok || result == "" {
		return "", false
	}
	return result, true
}

func (o *OpenGraph) fetch(ctx context.Context, pageURL string) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUA)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, maxHeadBytes))
	if err != nil {
		return "", err
	}

	// An empty result is a valid answer: cache "no image" too.
	return ExtractOGImage(string(head)), nil
}

// ExtractOGImage pulls the og:image content URL out of page HTML, trying
// both attribute orderings. Returns "" when no valid image URL is present.
func ExtractOGImage(html string) string {
	for _, pattern := range ogImagePatterns {
		match := pattern.FindStringSubmatch(html)
		if match == nil {
			continue
		}
		imageURL := strings.ReplaceAll(match[1], "&amp;", "&")
		if _, err := url.ParseRequestURI(imageURL); err != nil {
			return ""
		}
		return imageURL
	}
	return ""
}
