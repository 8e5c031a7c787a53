package tui

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// EngineChangedMsg signals that the feed engine's observable state moved;
// the model pulls a fresh snapshot on receipt.
type EngineChangedMsg struct{}

// FeedReloadedMsg signals that a load or search cycle finished.
type FeedReloadedMsg struct{}

// PageAppendedMsg signals that a pagination fetch finished.
type PageAppendedMsg struct{}

// BookmarkToggledMsg signals a bookmark mutation completed.
type BookmarkToggledMsg struct {
	ItemID int
}

// ItemHiddenMsg signals a hide/unhide was applied locally.
type ItemHiddenMsg struct {
	ItemID int
	Hidden bool
}

// ArticleImageMsg carries the resolved og:image URL for an opened story;
// an empty URL means the article has no usable image.
type ArticleImageMsg struct {
	ItemID   int
	ImageURL string
}

// SessionChangedMsg signals login/logout state moved.
type SessionChangedMsg struct{}

// HiddenSyncedMsg signals the server hidden-list sync finished.
type HiddenSyncedMsg struct {
	Count int
}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}
