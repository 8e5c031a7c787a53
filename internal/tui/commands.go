package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hndesk/hndesk/internal/domain"
	"github.com/hndesk/hndesk/internal/enrich"
	"github.com/hndesk/hndesk/internal/feed"
	"github.com/hndesk/hndesk/internal/hidden"
)

// Command factories for async operations

// WatchEngineCmd blocks on the engine's change channel and re-arms itself
// from Update, turning engine notifications into Bubble Tea messages.
func WatchEngineCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return EngineChangedMsg{}
	}
}

// ReloadFeedCmd resets the feed to page 0 for the current filter.
func ReloadFeedCmd(engine *feed.Engine) tea.Cmd {
	return func() tea.Msg {
		if err := engine.LoadFeed(context.Background()); err != nil {
			return ErrMsg{Err: err, Context: "loading feed"}
		}
		return FeedReloadedMsg{}
	}
}

// SetContentTypeCmd switches the content type and reloads.
func SetContentTypeCmd(engine *feed.Engine, t domain.ContentType) tea.Cmd {
	return func() tea.Msg {
		if err := engine.SetContentType(context.Background(), t); err != nil {
			return ErrMsg{Err: err, Context: "switching feed"}
		}
		return FeedReloadedMsg{}
	}
}

// SetSortModeCmd switches the sort mode and reloads.
func SetSortModeCmd(engine *feed.Engine, s domain.SortMode) tea.Cmd {
	return func() tea.Msg {
		if err := engine.SetSortMode(context.Background(), s); err != nil {
			return ErrMsg{Err: err, Context: "switching sort"}
		}
		return FeedReloadedMsg{}
	}
}

// SetDateRangeCmd switches the date range and reloads.
func SetDateRangeCmd(engine *feed.Engine, r domain.DateRange) tea.Cmd {
	return func() tea.Msg {
		if err := engine.SetDateRange(context.Background(), r); err != nil {
			return ErrMsg{Err: err, Context: "switching range"}
		}
		return FeedReloadedMsg{}
	}
}

// SearchCmd runs a feed search for the query.
func SearchCmd(engine *feed.Engine, query string) tea.Cmd {
	return func() tea.Msg {
		if err := engine.Search(context.Background(), query); err != nil {
			return ErrMsg{Err: err, Context: "searching"}
		}
		return FeedReloadedMsg{}
	}
}

// LoadMoreCmd asks the engine for the next page if the visible item is
// near the end of the list.
func LoadMoreCmd(engine *feed.Engine, visible domain.Item) tea.Cmd {
	return func() tea.Msg {
		if err := engine.LoadMoreIfNeeded(context.Background(), visible); err != nil {
			return ErrMsg{Err: err, Context: "loading more"}
		}
		return PageAppendedMsg{}
	}
}

// ToggleBookmarkCmd flips the bookmark state of an item.
func ToggleBookmarkCmd(engine *feed.Engine, item domain.Item) tea.Cmd {
	return func() tea.Msg {
		if err := engine.ToggleBookmark(item); err != nil {
			return ErrMsg{Err: err, Context: "saving bookmark"}
		}
		return BookmarkToggledMsg{ItemID: item.ID}
	}
}

// HideItemCmd applies the optimistic local hide and fires the server write.
func HideItemCmd(tracker *hidden.Tracker, id int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tracker.HideOnServer(ctx, id)
		return ItemHiddenMsg{ItemID: id, Hidden: true}
	}
}

// UnhideItemCmd is the inverse of HideItemCmd.
func UnhideItemCmd(tracker *hidden.Tracker, id int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tracker.UnhideOnServer(ctx, id)
		return ItemHiddenMsg{ItemID: id, Hidden: false}
	}
}

// SyncHiddenCmd pulls the authoritative hidden list from the server.
func SyncHiddenCmd(tracker *hidden.Tracker, username string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := tracker.SyncFromServer(ctx, username); err != nil {
			return ErrMsg{Err: err, Context: "syncing hidden items"}
		}
		return HiddenSyncedMsg{Count: tracker.Len()}
	}
}

// FetchArticleImageCmd resolves the og:image for a story's article page and
// warms the image cache so the preview renders instantly when the story is
// opened again.
func FetchArticleImageCmd(og *enrich.OpenGraph, images *enrich.Images, item domain.Item) tea.Cmd {
	return func() tea.Msg {
		if item.URL == "" {
			return ArticleImageMsg{ItemID: item.ID}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		imageURL, ok := og.ImageURL(ctx, item.URL)
		if !ok {
			return ArticleImageMsg{ItemID: item.ID}
		}
		images.Get(ctx, imageURL)
		return ArticleImageMsg{ItemID: item.ID, ImageURL: imageURL}
	}
}

// ClearStatusCmd clears the status bar after a delay.
func ClearStatusCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}
