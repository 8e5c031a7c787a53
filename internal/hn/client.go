// Package hn contains the clients for the two upstream content APIs and the
// narrow scrape helpers for the HTML endpoints that have no structured API.
package hn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hndesk/hndesk/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "hndesk/1.0"
)

// FirebaseClient talks to the simple id-indexed JSON API
// (hacker-news.firebaseio.com).
type FirebaseClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFirebaseClient creates an id-based API client.
func NewFirebaseClient(baseURL string, logger *slog.Logger) *FirebaseClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &FirebaseClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

func (c *FirebaseClient) doRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrTransport, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("firebase request error", "status", resp.StatusCode, "path", path)
		return nil, fmt.Errorf("%w: status %d", domain.ErrTransport, resp.StatusCode)
	}

	// The API answers "null" with status 200 for ids that don't exist.
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, domain.ErrNotFound
	}

	return body, nil
}

// FetchItem returns a single item by id.
func (c *FirebaseClient) FetchItem(ctx context.Context, id int) (domain.Item, error) {
	body, err := c.doRequest(ctx, fmt.Sprintf("/item/%d.json", id))
	if err != nil {
		return domain.Item{}, err
	}
	var raw firebaseItem
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.Item{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return mapFirebaseItem(raw), nil
}

// FetchUser returns a user profile by username.
func (c *FirebaseClient) FetchUser(ctx context.Context, username string) (domain.UserProfile, error) {
	body, err := c.doRequest(ctx, fmt.Sprintf("/user/%s.json", username))
	if err != nil {
		return domain.UserProfile{}, err
	}
	var raw firebaseUser
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.UserProfile{}, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return mapFirebaseUser(raw), nil
}

// FetchStoryIDs returns the ranked id list for a named feed
// (top, new, best, ask, show, job).
func (c *FirebaseClient) FetchStoryIDs(ctx context.Context, feed string) ([]int, error) {
	body, err := c.doRequest(ctx, fmt.Sprintf("/%sstories.json", feed))
	if err != nil {
		return nil, err
	}
	var ids []int
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return ids, nil
}

// FetchItemsByID fan-out fetches every id concurrently. Results come back
// in input-id order regardless of completion order; ids that no longer
// exist are skipped, any other failure fails the whole batch.
func (c *FirebaseClient) FetchItemsByID(ctx context.Context, ids []int) ([]domain.Item, error) {
	results := make([]*domain.Item, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			item, err := c.FetchItem(ctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return err
			}
			results[i] = &item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(ids))
	for _, it := range results {
		if it != nil {
			items = append(items, *it)
		}
	}
	return items, nil
}
