// Package hidden tracks which items the logged-in user has hidden. Local
// state is optimistic: it reflects the user's intent immediately and is
// reconciled against the server only at explicit sync points. A failed
// server write never rolls the local state back; whether the resulting
// drift should eventually trigger an automatic re-sync is an open product
// question, deliberately left as-is.
package hidden

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hndesk/hndesk/internal/hn"
)

// ErrSyncInProgress is returned when a sync is already running; syncs are
// not coalesced.
var ErrSyncInProgress = errors.New("hidden-items sync already in progress")

const requestTimeout = 30 * time.Second

// Tracker owns the set of hidden item ids for the current session.
type Tracker struct {
	siteURL string
	client  *http.Client
	logger  *slog.Logger

	mu      sync.Mutex
	ids     map[int]struct{}
	syncing bool
}

// NewTracker creates a tracker. The jar must be the shared authenticated
// jar: hide/unhide and the hidden listing all require the session cookie.
func NewTracker(siteURL string, jar http.CookieJar, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		siteURL: siteURL,
		client:  &http.Client{Timeout: requestTimeout, Jar: jar},
		logger:  logger,
		ids:     make(map[int]struct{}),
	}
}

// MarkHidden records the item as hidden locally. Always succeeds.
func (t *Tracker) MarkHidden(id int) {
	t.mu.Lock()
	t.ids[id] = struct{}{}
	t.mu.Unlock()
}

// MarkUnhidden removes the item from the local hidden set. Always succeeds.
func (t *Tracker) MarkUnhidden(id int) {
	t.mu.Lock()
	delete(t.ids, id)
	t.mu.Unlock()
}

// IsHidden reports whether the item is hidden in the local projection.
func (t *Tracker) IsHidden(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ids[id]
	return ok
}

// Len returns the size of the local hidden set.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}

// HideOnServer applies the optimistic local hide, then scrapes the item
// page for the auth token and issues the hide request. On any scraping or
// network failure the local state is retained: the user's expressed intent
// wins over server-confirmed truth.
func (t *Tracker) HideOnServer(ctx context.Context, id int) {
	t.MarkHidden(id)

	auth, currentlyHidden, err := t.scrapeAuth(ctx, id)
	if err != nil {
		t.logger.Debug("hide: keeping local state", "id", id, "error", err)
		return
	}
	if currentlyHidden {
		// Server already agrees.
		return
	}

	hideURL := fmt.Sprintf("%s/hide?id=%d&auth=%s&goto=news", t.siteURL, id, url.QueryEscape(auth))
	if err := t.get(ctx, hideURL); err != nil {
		t.logger.Debug("hide: keeping local state", "id", id, "error", err)
	}
}

// UnhideOnServer is the inverse of HideOnServer, with the same
// optimistic-retention policy.
func (t *Tracker) UnhideOnServer(ctx context.Context, id int) {
	t.MarkUnhidden(id)

	auth, currentlyHidden, err := t.scrapeAuth(ctx, id)
	if err != nil {
		t.logger.Debug("unhide: keeping local state", "id", id, "error", err)
		return
	}
	if !currentlyHidden {
		return
	}

	unhideURL := fmt.Sprintf("%s/hide?id=%d&un=t&auth=%s&goto=news", t.siteURL, id, url.QueryEscape(auth))
	if err := t.get(ctx, unhideURL); err != nil {
		t.logger.Debug("unhide: keeping local state", "id", id, "error", err)
	}
}

// SyncFromServer paginates the user's hidden listing and replaces the whole
// local set with the server's. This is the one place optimistic drift gets
// corrected.
func (t *Tracker) SyncFromServer(ctx context.Context, username string) error {
	t.mu.Lock()
	if t.syncing {
		t.mu.Unlock()
		return ErrSyncInProgress
	}
	t.syncing = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.syncing = false
		t.mu.Unlock()
	}()

	all := make(map[int]struct{})
	next, err := url.Parse(fmt.Sprintf("%s/hidden?id=%s", t.siteURL, url.QueryEscape(username)))
	if err != nil {
		return err
	}

	for next != nil {
		html, err := t.fetchPage(ctx, next.String())
		if err != nil {
			// Partial sync is better than none.
			t.logger.Warn("hidden sync stopped early", "error", err)
			break
		}
		ids, more, err := hn.ParseHiddenPage(html, next)
		if err != nil {
			t.logger.Warn("hidden sync stopped early", "error", err)
			break
		}
		for _, id := range ids {
			all[id] = struct{}{}
		}
		next = more
	}

	t.mu.Lock()
	t.ids = all
	t.mu.Unlock()

	t.logger.Debug("hidden set synced", "count", len(all), "username", username)
	return nil
}

// Syncing reports whether a sync is currently running.
func (t *Tracker) Syncing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.syncing
}

// ClearOnLogout drops the local set.
func (t *Tracker) ClearOnLogout() {
	t.mu.Lock()
	t.ids = make(map[int]struct{})
	t.mu.Unlock()
}

func (t *Tracker) scrapeAuth(ctx context.Context, id int) (string, bool, error) {
	html, err := t.fetchPage(ctx, fmt.Sprintf("%s/item?id=%d", t.siteURL, id))
	if err != nil {
		return "", false, err
	}
	return hn.ExtractHideAuth(html, id)
}

func (t *Tracker) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return string(body), nil
}

func (t *Tracker) get(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}
