package domain

import "context"

// FeedClient fetches paginated and searched feed pages from the search API.
type FeedClient interface {
	// FetchPage returns one page of results for the filter. Retry policy
	// belongs to the caller.
	FetchPage(ctx context.Context, filter Filter, page int) (ResultPage, error)

	// SearchPage returns a single page of keyword-search results.
	SearchPage(ctx context.Context, filter Filter, query string) ([]Item, error)
}

// ItemClient fetches individual items and users from the id-based API.
type ItemClient interface {
	// FetchItemsByID fan-out fetches every id concurrently and returns the
	// results in input-id order regardless of completion order.
	FetchItemsByID(ctx context.Context, ids []int) ([]Item, error)

	FetchItem(ctx context.Context, id int) (Item, error)
	FetchUser(ctx context.Context, username string) (UserProfile, error)
}

// CredentialStore is the opaque secure storage for the session secret.
// It is a separate trust boundary from the preference store.
type CredentialStore interface {
	Load() (Credentials, error) // ErrNoCredentials when empty
	Save(Credentials) error
	Delete() error
}

// BookmarkStore persists the user's bookmark list.
type BookmarkStore interface {
	Bookmarks() ([]Item, bool)
	SaveBookmarks([]Item) error
}
