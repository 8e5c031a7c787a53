package domain

// ViewMode selects how a content item is displayed.
type ViewMode string

const (
	ViewPost     ViewMode = "post"
	ViewComments ViewMode = "comments"
	ViewBoth     ViewMode = "both"
)

// EntryKind tags a navigation entry variant.
type EntryKind int

const (
	EntryHome EntryKind = iota
	EntryViewing
	EntryProfile
	EntrySettings
)

// NavEntry is one step in the navigation history. Exactly one variant is
// meaningful per entry: Item/Mode for EntryViewing, ProfileURL for
// EntryProfile, nothing extra for Home and Settings.
type NavEntry struct {
	Kind       EntryKind
	Item       *Item
	Mode       ViewMode
	ProfileURL string
}

// HomeEntry returns the feed-root entry.
func HomeEntry() NavEntry { return NavEntry{Kind: EntryHome} }

// ViewingEntry returns an entry for a content item in the given mode.
func ViewingEntry(item Item, mode ViewMode) NavEntry {
	return NavEntry{Kind: EntryViewing, Item: &item, Mode: mode}
}

// ProfileEntry returns an entry for a user profile page.
func ProfileEntry(url string) NavEntry {
	return NavEntry{Kind: EntryProfile, ProfileURL: url}
}

// SettingsEntry returns the settings entry.
func SettingsEntry() NavEntry { return NavEntry{Kind: EntrySettings} }

// Equal reports whether two entries describe the same place, which for
// viewed items includes the view mode (toggling post/comments/both is a
// navigation in its own right).
func (e NavEntry) Equal(o NavEntry) bool {
	if e.Kind != o.Kind {
		return false
	}
	switch e.Kind {
	case EntryViewing:
		if e.Item == nil || o.Item == nil {
			return e.Item == o.Item && e.Mode == o.Mode
		}
		return e.Item.ID == o.Item.ID && e.Mode == o.Mode
	case EntryProfile:
		return e.ProfileURL == o.ProfileURL
	default:
		return true
	}
}
