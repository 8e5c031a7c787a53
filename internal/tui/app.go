// Package tui is the terminal front end: a scrollable story list over the
// feed engine, with search, filter cycling, bookmarks, hiding, and
// browser-style history.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/hndesk/hndesk/internal/domain"
	"github.com/hndesk/hndesk/internal/enrich"
	"github.com/hndesk/hndesk/internal/feed"
	"github.com/hndesk/hndesk/internal/hidden"
	"github.com/hndesk/hndesk/internal/nav"
	"github.com/hndesk/hndesk/internal/session"
	"github.com/hndesk/hndesk/internal/tui/styles"
)

var contentTypeCycle = []domain.ContentType{
	domain.TypeAll,
	domain.TypeAsk,
	domain.TypeShow,
	domain.TypeJobs,
	domain.TypeComments,
	domain.TypeThreads,
	domain.TypeBookmarks,
}

var dateRangeCycle = []domain.DateRange{
	domain.RangeToday,
	domain.RangePastWeek,
	domain.RangePastMonth,
	domain.RangeAllTime,
}

var viewModeCycle = []domain.ViewMode{
	domain.ViewPost,
	domain.ViewComments,
	domain.ViewBoth,
}

// Model is the root Bubble Tea model.
type Model struct {
	engine  *feed.Engine
	navctl  *nav.Controller
	tracker *hidden.Tracker
	session *session.Manager
	og      *enrich.OpenGraph
	images  *enrich.Images

	engineCh <-chan struct{}

	// Resolved article images by story id; "" records a known absence.
	articleImages map[int]string

	width  int
	height int

	// List state
	stories []domain.Item
	cursor  int
	offset  int

	// Quick filter (local fuzzy narrowing of the loaded list)
	filterActive bool
	filterInput  textinput.Model
	filteredIdx  []int

	// Search (server-side, replaces the list)
	searchActive bool
	searchInput  textinput.Model

	spinner   spinner.Model
	status    string
	statusErr bool
	showHelp  bool
}

// NewModel wires the TUI over the app services.
func NewModel(engine *feed.Engine, navctl *nav.Controller, tracker *hidden.Tracker, sess *session.Manager, og *enrich.OpenGraph, images *enrich.Images) Model {
	filterInput := textinput.New()
	filterInput.Placeholder = "type to filter..."
	filterInput.Prompt = "f "
	filterInput.PromptStyle = styles.FilterPromptStyle

	searchInput := textinput.New()
	searchInput.Placeholder = "search stories..."
	searchInput.Prompt = "/ "
	searchInput.PromptStyle = styles.FilterPromptStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	return Model{
		engine:        engine,
		navctl:        navctl,
		tracker:       tracker,
		session:       sess,
		og:            og,
		images:        images,
		engineCh:      engine.Subscribe(),
		articleImages: make(map[int]string),
		filterInput:   filterInput,
		searchInput:   searchInput,
		spinner:       sp,
	}
}

// Init starts the engine watcher and the initial feed load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		WatchEngineCmd(m.engineCh),
		ReloadFeedCmd(m.engine),
		m.spinner.Tick,
	)
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EngineChangedMsg:
		m.refreshSnapshot()
		// Re-arm the watcher: notifications are edge-triggered.
		return m, WatchEngineCmd(m.engineCh)

	case FeedReloadedMsg, PageAppendedMsg:
		m.refreshSnapshot()
		return m, nil

	case BookmarkToggledMsg:
		m.refreshSnapshot()
		return m, nil

	case ItemHiddenMsg:
		if msg.Hidden {
			m.status = "hidden"
		} else {
			m.status = "unhidden"
		}
		m.statusErr = false
		return m, ClearStatusCmd()

	case ArticleImageMsg:
		m.articleImages[msg.ItemID] = msg.ImageURL
		return m, nil

	case HiddenSyncedMsg:
		m.status = fmt.Sprintf("synced %d hidden items", msg.Count)
		m.statusErr = false
		return m, ClearStatusCmd()

	case StatusMsg:
		m.status = msg.Message
		m.statusErr = msg.IsError
		return m, ClearStatusCmd()

	case ClearStatusMsg:
		m.status = ""
		m.statusErr = false
		return m, nil

	case ErrMsg:
		m.status = msg.Error()
		m.statusErr = true
		return m, ClearStatusCmd()
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searchActive {
		return m.handleSearchKey(msg)
	}
	if m.filterActive {
		return m.handleFilterKey(msg)
	}

	keys := Keys
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, keys.Escape):
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.engine.SearchActive() {
			return m, ReloadFeedCmd(m.engine)
		}
		return m, nil

	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
		return m, nil

	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
		return m, m.maybeLoadMore()

	case key.Matches(msg, keys.HalfUp):
		m.moveCursor(-m.visibleRows() / 2)
		return m, nil

	case key.Matches(msg, keys.HalfDown):
		m.moveCursor(m.visibleRows() / 2)
		return m, m.maybeLoadMore()

	case key.Matches(msg, keys.Home):
		m.cursor = 0
		m.offset = 0
		return m, nil

	case key.Matches(msg, keys.End):
		m.cursor = len(m.visibleStories()) - 1
		m.clampScroll()
		return m, m.maybeLoadMore()

	case key.Matches(msg, keys.Enter):
		if item, ok := m.selectedItem(); ok {
			m.navctl.Navigate(domain.ViewingEntry(item, m.engine.ViewMode()))
			if _, known := m.articleImages[item.ID]; !known {
				return m, FetchArticleImageCmd(m.og, m.images, item)
			}
		}
		return m, nil

	case key.Matches(msg, keys.Back):
		m.navctl.Back()
		return m, nil

	case key.Matches(msg, keys.Forward):
		m.navctl.Forward()
		return m, nil

	case key.Matches(msg, keys.ViewMode):
		m.navctl.ChangeViewMode(nextViewMode(m.engine.ViewMode()))
		return m, nil

	case key.Matches(msg, keys.Profile):
		if item, ok := m.selectedItem(); ok && item.Author != "" {
			m.navctl.Navigate(domain.ProfileEntry("https://news.ycombinator.com/user?id=" + item.Author))
		}
		return m, nil

	case key.Matches(msg, keys.CycleType):
		m.resetList()
		return m, SetContentTypeCmd(m.engine, nextContentType(m.engine.Filter().Type))

	case key.Matches(msg, keys.CycleSort):
		m.resetList()
		next := domain.SortHot
		if m.engine.Filter().Sort == domain.SortHot {
			next = domain.SortRecent
		}
		return m, SetSortModeCmd(m.engine, next)

	case key.Matches(msg, keys.CycleRange):
		m.resetList()
		return m, SetDateRangeCmd(m.engine, nextDateRange(m.engine.Filter().Range))

	case key.Matches(msg, keys.Refresh):
		m.resetList()
		return m, ReloadFeedCmd(m.engine)

	case key.Matches(msg, keys.Search):
		m.searchActive = true
		m.searchInput.SetValue("")
		return m, m.searchInput.Focus()

	case key.Matches(msg, keys.Filter):
		m.filterActive = true
		m.filterInput.SetValue("")
		m.filteredIdx = nil
		return m, m.filterInput.Focus()

	case key.Matches(msg, keys.Bookmark):
		if item, ok := m.selectedItem(); ok {
			return m, ToggleBookmarkCmd(m.engine, item)
		}
		return m, nil

	case key.Matches(msg, keys.Hide):
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		if !m.session.IsLoggedIn() {
			m.status = "log in to hide stories"
			m.statusErr = true
			return m, ClearStatusCmd()
		}
		if m.tracker.IsHidden(item.ID) {
			return m, UnhideItemCmd(m.tracker, item.ID)
		}
		return m, HideItemCmd(m.tracker, item.ID)
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		query := strings.TrimSpace(m.searchInput.Value())
		m.searchActive = false
		m.searchInput.Blur()
		m.resetList()
		if query == "" {
			return m, nil
		}
		return m, SearchCmd(m.engine, query)
	case "esc":
		m.searchActive = false
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filterActive = false
		m.filterInput.Blur()
		return m, nil
	case "esc":
		m.filterActive = false
		m.filterInput.Blur()
		m.filteredIdx = nil
		m.cursor = 0
		m.offset = 0
		return m, nil
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.applyQuickFilter()
	return m, cmd
}

// applyQuickFilter fuzzy-narrows the loaded list without touching the
// engine; it is a view-level convenience, not a feed query.
func (m *Model) applyQuickFilter() {
	query := strings.TrimSpace(m.filterInput.Value())
	if query == "" {
		m.filteredIdx = nil
		m.cursor = 0
		m.offset = 0
		return
	}

	titles := make([]string, len(m.stories))
	for i, s := range m.stories {
		titles[i] = s.Title
	}
	matches := fuzzy.Find(query, titles)

	m.filteredIdx = make([]int, len(matches))
	for i, match := range matches {
		m.filteredIdx[i] = match.Index
	}
	m.cursor = 0
	m.offset = 0
}

func (m *Model) refreshSnapshot() {
	m.stories = m.engine.Stories()
	if m.filteredIdx != nil {
		m.applyQuickFilter()
	}
	if max := len(m.visibleStories()); m.cursor >= max && max > 0 {
		m.cursor = max - 1
	}
	m.clampScroll()
}

func (m *Model) resetList() {
	m.cursor = 0
	m.offset = 0
	m.filteredIdx = nil
	m.filterInput.SetValue("")
}

func (m Model) visibleStories() []domain.Item {
	if m.filteredIdx == nil {
		return m.stories
	}
	out := make([]domain.Item, 0, len(m.filteredIdx))
	for _, idx := range m.filteredIdx {
		if idx < len(m.stories) {
			out = append(out, m.stories[idx])
		}
	}
	return out
}

func (m Model) selectedItem() (domain.Item, bool) {
	visible := m.visibleStories()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return domain.Item{}, false
	}
	return visible[m.cursor], true
}

func (m *Model) moveCursor(delta int) {
	visible := m.visibleStories()
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(visible) {
		m.cursor = len(visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampScroll()
}

func (m *Model) clampScroll() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) visibleRows() int {
	// Header, filter bar, status bar.
	rows := m.height - 4
	if rows < 1 {
		return 1
	}
	return rows
}

// maybeLoadMore fires a pagination check when the cursor is on an item the
// engine might consider near the end. Quick-filtered views never paginate.
func (m Model) maybeLoadMore() tea.Cmd {
	if m.filteredIdx != nil {
		return nil
	}
	item, ok := m.selectedItem()
	if !ok {
		return nil
	}
	return LoadMoreCmd(m.engine, item)
}

// View renders the full screen.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderList())
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m Model) renderHeader() string {
	filter := m.engine.Filter()
	parts := []string{
		styles.HeaderStyle.Render("hndesk"),
		styles.ActiveBadgeStyle.Render(string(filter.Type)),
		styles.FilterBadgeStyle.Render(string(filter.Sort)),
		styles.FilterBadgeStyle.Render(string(filter.Range)),
	}
	if m.session.IsLoggedIn() {
		parts = append(parts, styles.SubtitleStyle.Render(fmt.Sprintf("%s (%d)", m.session.Username(), m.session.Karma())))
	}
	if m.engine.SearchActive() {
		parts = append(parts, styles.AccentStyle.Render("[search]"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(parts, " "))
}

func (m Model) renderList() string {
	if m.searchActive {
		return m.searchInput.View() + "\n" + m.renderRows()
	}
	if m.filterActive || m.filteredIdx != nil {
		return m.filterInput.View() + "\n" + m.renderRows()
	}
	return m.renderRows()
}

func (m Model) renderRows() string {
	visible := m.visibleStories()

	if len(visible) == 0 {
		if m.engine.ShowLoadingIndicator() {
			return "\n " + m.spinner.View() + styles.DimStyle.Render(" loading...") + "\n"
		}
		if msg := m.engine.ErrorMessage(); msg != "" {
			return "\n " + styles.ErrorStyle.Render(msg) + "\n"
		}
		return "\n " + styles.DimStyle.Render("no stories") + "\n"
	}

	rows := m.visibleRows()
	end := m.offset + rows
	if end > len(visible) {
		end = len(visible)
	}

	var b strings.Builder
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(visible[i], i == m.cursor))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderRow(item domain.Item, selected bool) string {
	marker := " "
	if m.engine.IsBookmarked(item.ID) {
		marker = styles.BookmarkMark
	} else if m.tracker.IsHidden(item.ID) {
		marker = styles.HiddenMark
	}

	meta := fmt.Sprintf("%d pts · %d comments · %s", item.Score, item.CommentCount, item.Author)
	if d := item.Domain(); d != "" {
		meta += " · " + d
	}
	if m.articleImages[item.ID] != "" {
		meta += " · ⧉"
	}

	title := item.Title
	if item.Kind == domain.KindComment {
		title = styles.Truncate(item.Text, m.width-20)
		if item.ParentStoryTitle != "" {
			meta = "on: " + item.ParentStoryTitle
		}
	}

	line := fmt.Sprintf("%s %s  %s", marker, styles.Truncate(title, m.width-30), styles.DimStyle.Render(meta))
	if selected {
		return styles.SelectedItemStyle.Width(m.width).Render(line)
	}
	return styles.NormalItemStyle.Render(line)
}

func (m Model) renderStatus() string {
	if m.engine.ShowLoadingIndicator() {
		return styles.StatusStyle.Render(m.spinner.View() + " loading...")
	}
	if m.status != "" {
		if m.statusErr {
			return styles.ErrorStyle.Padding(0, 1).Render(m.status)
		}
		return styles.SuccessStyle.Padding(0, 1).Render(m.status)
	}
	if msg := m.engine.ErrorMessage(); msg != "" {
		return styles.ErrorStyle.Padding(0, 1).Render(msg)
	}
	return styles.StatusStyle.Render("? help · q quit")
}

func (m Model) renderHelp() string {
	keys := Keys
	bindings := []struct {
		binding string
		desc    string
	}{
		{"j/k", "move"},
		{"enter", "open story"},
		{"h / l", "back / forward"},
		{"v", "cycle view mode"},
		{"t", "cycle content type"},
		{"s", "toggle sort"},
		{"d", "cycle date range"},
		{"/", "search"},
		{"f", "quick filter"},
		{"b", "bookmark"},
		{"x", "hide / unhide"},
		{"u", "author profile"},
		{"r", "refresh"},
		{keys.Quit.Help().Key, "quit"},
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Keys"))
	b.WriteString("\n\n")
	for _, item := range bindings {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			styles.AccentStyle.Render(fmt.Sprintf("%-8s", item.binding)),
			styles.SubtitleStyle.Render(item.desc)))
	}
	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("press ? or esc to close"))
	return b.String()
}

func nextContentType(t domain.ContentType) domain.ContentType {
	for i, ct := range contentTypeCycle {
		if ct == t {
			return contentTypeCycle[(i+1)%len(contentTypeCycle)]
		}
	}
	return contentTypeCycle[0]
}

func nextDateRange(r domain.DateRange) domain.DateRange {
	for i, dr := range dateRangeCycle {
		if dr == r {
			return dateRangeCycle[(i+1)%len(dateRangeCycle)]
		}
	}
	return dateRangeCycle[0]
}

func nextViewMode(v domain.ViewMode) domain.ViewMode {
	for i, vm := range viewModeCycle {
		if vm == v {
			return viewModeCycle[(i+1)%len(viewModeCycle)]
		}
	}
	return viewModeCycle[0]
}
