package hn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hndesk/hndesk/internal/domain"
)

const hitsPerPage = 30

// AlgoliaClient talks to the search-style API (hn.algolia.com). It holds no
// state beyond request construction.
type AlgoliaClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	now func() time.Time
}

// NewAlgoliaClient creates a search API client.
func NewAlgoliaClient(baseURL string, logger *slog.Logger) *AlgoliaClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlgoliaClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
		now:        time.Now,
	}
}

// FetchPage returns one page of feed results for the filter.
// HasMore follows the response envelope: page+1 < nbPages.
func (c *AlgoliaClient) FetchPage(ctx context.Context, filter domain.Filter, page int) (domain.ResultPage, error) {
	query := url.Values{}
	query.Set("tags", tagsFor(filter))
	query.Set("page", strconv.Itoa(page))
	query.Set("hitsPerPage", strconv.Itoa(hitsPerPage))
	if start := filter.Range.Start(c.now()); start > 0 {
		query.Set("numericFilters", fmt.Sprintf("created_at_i>%d", start))
	}

	resp, err := c.doSearch(ctx, filter.Sort, query)
	if err != nil {
		return domain.ResultPage{}, err
	}

	items := make([]domain.Item, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if item, ok := mapHit(hit, fallbackKind(filter.Type)); ok {
			items = append(items, item)
		}
	}

	return domain.ResultPage{
		Items:    items,
		NextPage: page + 1,
		HasMore:  page+1 < resp.NbPages,
	}, nil
}

// SearchPage returns a single page of keyword-search results, no cursor.
func (c *AlgoliaClient) SearchPage(ctx context.Context, filter domain.Filter, q string) ([]domain.Item, error) {
	query := url.Values{}
	query.Set("query", q)
	query.Set("tags", tagsFor(filter))
	query.Set("hitsPerPage", strconv.Itoa(hitsPerPage))

	resp, err := c.doSearch(ctx, filter.Sort, query)
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if item, ok := mapHit(hit, fallbackKind(filter.Type)); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (c *AlgoliaClient) doSearch(ctx context.Context, sort domain.SortMode, query url.Values) (*searchResponse, error) {
	path := "/search"
	if sort == domain.SortRecent {
		path = "/search_by_date"
	}
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Debug("search request", "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("search request error", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", domain.ErrTransport, resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	return &decoded, nil
}

// tagsFor maps the filter to the search API's tag expression. The author
// scope narrows "threads" to the logged-in user's own comments.
func tagsFor(filter domain.Filter) string {
	var base string
	switch filter.Type {
	case domain.TypeAsk:
		base = "ask_hn"
	case domain.TypeShow:
		base = "show_hn"
	case domain.TypeJobs:
		base = "job"
	case domain.TypeComments, domain.TypeThreads:
		base = "comment"
	default:
		base = "(story,job,poll)"
	}
	if filter.AuthorScope != "" {
		base += ",author_" + filter.AuthorScope
	}
	return base
}

// fallbackKind supplies the item kind implied by the content type for hits
// whose tags don't carry one.
func fallbackKind(t domain.ContentType) domain.ItemKind {
	switch t {
	case domain.TypeComments, domain.TypeThreads:
		return domain.KindComment
	case domain.TypeJobs:
		return domain.KindJob
	default:
		return domain.KindStory
	}
}
