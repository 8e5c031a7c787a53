// Package feed implements the feed engine: the current filter, the
// paginated result list, search mode, bookmarks, and the loading state
// machine the UI observes.
package feed

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hndesk/hndesk/internal/domain"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Phase is the engine's loading state for the current filter generation.
type Phase int

const (
	Idle Phase = iota
	Loading
	Loaded
	Failed
)

const (
	// loadMoreWindow is how close to the end of the list an item must be
	// before scrolling past it triggers the next page.
	loadMoreWindow = 5

	// spinnerDelay keeps the loading indicator from flickering on fast
	// responses: it only shows if the request is still in flight after
	// this long.
	spinnerDelay = 150 * time.Millisecond
)

// SessionInfo is the slice of session state the engine needs for the
// authenticated-threads scope.
type SessionInfo interface {
	IsLoggedIn() bool
	Username() string
}

// Engine owns the feed query and result state. All mutation happens under
// one mutex; network calls run outside it and stale completions are
// discarded by generation counting (newest request wins).
type Engine struct {
	feeds   domain.FeedClient
	store   domain.BookmarkStore
	session SessionInfo
	logger  *slog.Logger
	now     func() time.Time

	mu           sync.Mutex
	filter       domain.Filter
	phase        Phase
	stories      []domain.Item
	nextPage     int
	hasMore      bool
	fetchingMore bool
	searchActive bool
	searchQuery  string
	errorMessage string
	showSpinner  bool
	spinnerTimer *time.Timer

	generation int
	cycleCtx   context.Context
	cancel     context.CancelFunc

	bookmarks []domain.Item

	// Current selection, owned here and driven by the navigation layer.
	selected     *domain.Item
	viewMode     domain.ViewMode
	profileURL   string
	settingsOpen bool

	subs []chan struct{}
}

// NewEngine creates a feed engine. The bookmark list is loaded from the
// store immediately; everything else starts idle on the default filter.
func NewEngine(feeds domain.FeedClient, store domain.BookmarkStore, session SessionInfo, defaultView domain.ViewMode, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		feeds:    feeds,
		store:    store,
		session:  session,
		logger:   logger,
		now:      time.Now,
		filter:   domain.DefaultFilter(),
		viewMode: defaultView,
	}
	if store != nil {
		if items, ok := store.Bookmarks(); ok {
			e.bookmarks = items
		}
	}
	return e
}

// Subscribe returns a channel that receives a (coalesced) signal after
// every observable state change. The UI pulls fresh snapshots on signal.
func (e *Engine) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()
	return ch
}

func (e *Engine) notify() {
	e.mu.Lock()
	subs := make([]chan struct{}, len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// === Observables ===

// Stories returns a copy of the current result list.
func (e *Engine) Stories() []domain.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Item, len(e.stories))
	copy(out, e.stories)
	return out
}

// IsLoading reports whether a load cycle is in flight.
func (e *Engine) IsLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase == Loading
}

// ShowLoadingIndicator is the delayed spinner signal: true only once a
// request has been in flight longer than spinnerDelay.
func (e *Engine) ShowLoadingIndicator() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.showSpinner
}

// ErrorMessage returns the user-facing message of the last failure, or "".
func (e *Engine) ErrorMessage() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.errorMessage
}

// Phase returns the loading state for the current generation.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Filter returns the active filter.
func (e *Engine) Filter() domain.Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

// HasMore reports whether another page exists for the current feed.
func (e *Engine) HasMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasMore
}

// SearchActive reports whether the list is showing search results.
func (e *Engine) SearchActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.searchActive
}

// === Filter mutation ===

// SetContentType switches the content type and reloads from page 0. Any
// active search is cleared: search and filter-browse are mutually
// exclusive display modes.
func (e *Engine) SetContentType(ctx context.Context, t domain.ContentType) error {
	e.mu.Lock()
	if e.filter.Type == t && !e.searchActive {
		e.mu.Unlock()
		return nil
	}
	e.filter.Type = t
	e.mu.Unlock()
	return e.LoadFeed(ctx)
}

// SetSortMode switches the sort mode and reloads from page 0.
func (e *Engine) SetSortMode(ctx context.Context, s domain.SortMode) error {
	e.mu.Lock()
	if e.filter.Sort == s && !e.searchActive {
		e.mu.Unlock()
		return nil
	}
	e.filter.Sort = s
	e.mu.Unlock()
	return e.LoadFeed(ctx)
}

// SetDateRange switches the date range and reloads from page 0.
func (e *Engine) SetDateRange(ctx context.Context, r domain.DateRange) error {
	e.mu.Lock()
	if e.filter.Range == r && !e.searchActive {
		e.mu.Unlock()
		return nil
	}
	e.filter.Range = r
	e.mu.Unlock()
	return e.LoadFeed(ctx)
}

// === Loading ===

// LoadFeed resets the result set and fetches page 0 for the current
// filter. Bookmarks mode resolves locally with no network. Starting a new
// cycle cancels the previous one; a superseded fetch's result is discarded
// at its resumption point.
func (e *Engine) LoadFeed(ctx context.Context) error {
	e.mu.Lock()
	e.beginCycleLocked()
	gen := e.generation

	e.searchActive = false
	e.searchQuery = ""
	e.stories = nil
	e.nextPage = 0
	e.hasMore = false
	e.fetchingMore = false
	e.errorMessage = ""

	filter := e.scopedFilterLocked()

	if filter.Type.IsBookmarks() {
		e.stories = e.visibleBookmarksLocked("")
		e.phase = Loaded
		e.mu.Unlock()
		e.notify()
		return nil
	}

	e.phase = Loading
	cctx := e.startCycleContextLocked(ctx)
	e.startSpinnerTimerLocked(gen)
	e.mu.Unlock()
	e.notify()

	page, err := e.feeds.FetchPage(cctx, filter, 0)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return nil // superseded; newest request wins
	}
	e.stopSpinnerLocked()
	if err != nil {
		e.phase = Failed
		e.errorMessage = err.Error()
		e.stories = nil
		e.mu.Unlock()
		e.notify()
		e.logger.Error("feed load failed", "type", filter.Type, "error", err)
		return err
	}
	e.stories = page.Items
	e.nextPage = page.NextPage
	e.hasMore = page.HasMore
	e.phase = Loaded
	e.mu.Unlock()
	e.notify()

	e.logger.Debug("feed loaded", "type", filter.Type, "count", len(page.Items), "hasMore", page.HasMore)
	return nil
}

// LoadMoreIfNeeded fetches the next page when the given visible item is
// within the last few entries of the list. No-ops in bookmarks or search
// mode, while a fetch is running, and when no further page exists. Appends
// only; never reorders or replaces existing entries.
func (e *Engine) LoadMoreIfNeeded(ctx context.Context, visible domain.Item) error {
	e.mu.Lock()
	if e.filter.Type.IsBookmarks() || e.searchActive || e.fetchingMore || !e.hasMore {
		e.mu.Unlock()
		return nil
	}
	idx := -1
	for i, it := range e.stories {
		if it.ID == visible.ID {
			idx = i
			break
		}
	}
	if idx < 0 || idx < len(e.stories)-loadMoreWindow {
		e.mu.Unlock()
		return nil
	}

	e.fetchingMore = true
	gen := e.generation
	page := e.nextPage
	filter := e.scopedFilterLocked()
	cctx := e.cycleCtx
	if cctx == nil {
		cctx = ctx
	}
	e.mu.Unlock()

	result, err := e.feeds.FetchPage(cctx, filter, page)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return nil
	}
	e.fetchingMore = false
	if err != nil {
		e.errorMessage = err.Error()
		e.mu.Unlock()
		e.notify()
		e.logger.Error("feed page load failed", "page", page, "error", err)
		return err
	}
	e.stories = append(e.stories, result.Items...)
	e.nextPage = result.NextPage
	e.hasMore = result.HasMore
	e.mu.Unlock()
	e.notify()

	e.logger.Debug("feed page appended", "page", page, "count", len(result.Items))
	return nil
}

// Search replaces the visible list with search results. In bookmarks mode
// this is a local case-insensitive substring match over title, author,
// domain and body; otherwise it cancels any in-flight load and issues a
// single-page query.
func (e *Engine) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return e.LoadFeed(ctx)
	}

	e.mu.Lock()
	if e.filter.Type.IsBookmarks() {
		e.searchActive = true
		e.searchQuery = query
		e.stories = e.visibleBookmarksLocked(query)
		e.phase = Loaded
		e.errorMessage = ""
		e.mu.Unlock()
		e.notify()
		return nil
	}

	e.beginCycleLocked()
	gen := e.generation
	e.searchActive = true
	e.searchQuery = query
	e.hasMore = false
	e.fetchingMore = false
	e.errorMessage = ""
	e.phase = Loading
	filter := e.scopedFilterLocked()
	cctx := e.startCycleContextLocked(ctx)
	e.startSpinnerTimerLocked(gen)
	e.mu.Unlock()
	e.notify()

	items, err := e.feeds.SearchPage(cctx, filter, query)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return nil
	}
	e.stopSpinnerLocked()
	if err != nil {
		e.phase = Failed
		e.errorMessage = err.Error()
		e.stories = nil
		e.mu.Unlock()
		e.notify()
		e.logger.Error("search failed", "query", query, "error", err)
		return err
	}
	e.stories = items
	e.phase = Loaded
	e.mu.Unlock()
	e.notify()

	e.logger.Debug("search complete", "query", query, "results", len(items))
	return nil
}

// === Bookmarks ===

// ToggleBookmark removes the item when bookmarked, otherwise prepends it.
// The full list is persisted after every mutation, and the visible list is
// recomputed immediately when bookmarks are on screen.
func (e *Engine) ToggleBookmark(item domain.Item) error {
	e.mu.Lock()
	found := -1
	for i, b := range e.bookmarks {
		if b.ID == item.ID {
			found = i
			break
		}
	}
	if found >= 0 {
		e.bookmarks = append(e.bookmarks[:found], e.bookmarks[found+1:]...)
	} else {
		e.bookmarks = append([]domain.Item{item}, e.bookmarks...)
	}

	var err error
	if e.store != nil {
		err = e.store.SaveBookmarks(e.bookmarks)
	}

	viewing := e.filter.Type.IsBookmarks()
	if viewing {
		query := ""
		if e.searchActive {
			query = e.searchQuery
		}
		e.stories = e.visibleBookmarksLocked(query)
	}
	e.mu.Unlock()
	if viewing {
		e.notify()
	}

	if err != nil {
		e.logger.Error("failed to persist bookmarks", "error", err)
	}
	return err
}

// IsBookmarked reports whether the item id is in the bookmark list.
func (e *Engine) IsBookmarked(id int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range e.bookmarks {
		if b.ID == id {
			return true
		}
	}
	return false
}

// Bookmarks returns a copy of the bookmark list, most recent first.
func (e *Engine) Bookmarks() []domain.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Item, len(e.bookmarks))
	copy(out, e.bookmarks)
	return out
}

// SuggestBookmarks returns bookmarks fuzzy-ranked against the query, best
// first. This feeds completion UI; the authoritative bookmark search stays
// the substring match in Search.
func (e *Engine) SuggestBookmarks(query string) []domain.Item {
	e.mu.Lock()
	items := make([]domain.Item, len(e.bookmarks))
	copy(items, e.bookmarks)
	e.mu.Unlock()

	if query == "" {
		return items
	}

	titles := make([]string, len(items))
	byTitle := make(map[string]domain.Item, len(items))
	for i, it := range items {
		titles[i] = it.Title
		byTitle[it.Title] = it
	}

	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	sort.Sort(ranks)

	out := make([]domain.Item, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, byTitle[r.Target])
	}
	return out
}

// visibleBookmarksLocked filters the bookmark list by the active date
// range and, when query is non-empty, by substring match.
func (e *Engine) visibleBookmarksLocked(query string) []domain.Item {
	start := e.filter.Range.Start(e.now())
	q := strings.ToLower(query)

	out := make([]domain.Item, 0, len(e.bookmarks))
	for _, b := range e.bookmarks {
		if start > 0 && b.CreatedAt < start {
			continue
		}
		if q != "" && !bookmarkMatches(b, q) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func bookmarkMatches(item domain.Item, loweredQuery string) bool {
	for _, field := range []string{item.Title, item.Author, item.Domain(), item.Text} {
		if field != "" && strings.Contains(strings.ToLower(field), loweredQuery) {
			return true
		}
	}
	return false
}

// === Selection (driven by the navigation layer) ===

// Current derives the navigation entry from the selection state, in
// priority order: viewed item, then profile, then settings, then home.
func (e *Engine) Current() domain.NavEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.selected != nil:
		return domain.NavEntry{Kind: domain.EntryViewing, Item: e.selected, Mode: e.viewMode}
	case e.profileURL != "":
		return domain.ProfileEntry(e.profileURL)
	case e.settingsOpen:
		return domain.SettingsEntry()
	default:
		return domain.HomeEntry()
	}
}

// Apply sets the selection state to match the given entry.
func (e *Engine) Apply(entry domain.NavEntry) {
	e.mu.Lock()
	e.selected = nil
	e.profileURL = ""
	e.settingsOpen = false
	switch entry.Kind {
	case domain.EntryViewing:
		e.selected = entry.Item
		if entry.Mode != "" {
			e.viewMode = entry.Mode
		}
	case domain.EntryProfile:
		e.profileURL = entry.ProfileURL
	case domain.EntrySettings:
		e.settingsOpen = true
	}
	e.mu.Unlock()
	e.notify()
}

// ViewMode returns the current item view mode.
func (e *Engine) ViewMode() domain.ViewMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewMode
}

// === Cycle plumbing ===

// beginCycleLocked supersedes any in-flight fetch: the generation bump
// makes its completion a no-op and its context is cancelled.
func (e *Engine) beginCycleLocked() {
	e.generation++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
		e.cycleCtx = nil
	}
	e.stopSpinnerLocked()
}

func (e *Engine) startCycleContextLocked(parent context.Context) context.Context {
	cctx, cancel := context.WithCancel(parent)
	e.cycleCtx = cctx
	e.cancel = cancel
	return cctx
}

// startSpinnerTimerLocked arms the delayed loading indicator for gen.
func (e *Engine) startSpinnerTimerLocked(gen int) {
	e.spinnerTimer = time.AfterFunc(spinnerDelay, func() {
		e.mu.Lock()
		show := gen == e.generation && e.phase == Loading
		if show {
			e.showSpinner = true
		}
		e.mu.Unlock()
		if show {
			e.notify()
		}
	})
}

func (e *Engine) stopSpinnerLocked() {
	if e.spinnerTimer != nil {
		e.spinnerTimer.Stop()
		e.spinnerTimer = nil
	}
	e.showSpinner = false
}

// scopedFilterLocked resolves the author scope: populated only for the
// authenticated-threads case.
func (e *Engine) scopedFilterLocked() domain.Filter {
	filter := e.filter
	filter.AuthorScope = ""
	if filter.Type == domain.TypeThreads && e.session != nil && e.session.IsLoggedIn() {
		filter.AuthorScope = e.session.Username()
	}
	return filter
}
