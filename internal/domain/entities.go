package domain

import (
	"net/url"
	"strings"
)

// ItemKind identifies what a content item is.
type ItemKind string

const (
	KindStory   ItemKind = "story"
	KindComment ItemKind = "comment"
	KindJob     ItemKind = "job"
	KindPoll    ItemKind = "poll"
)

// Item is a single piece of Hacker News content: a story, job posting,
// comment, or poll. Items are immutable after decoding; a refetch replaces
// the value wholesale.
type Item struct {
	ID           int      `json:"id"`
	Kind         ItemKind `json:"kind"`
	Author       string   `json:"author,omitempty"`
	CreatedAt    int64    `json:"created_at,omitempty"` // unix seconds
	URL          string   `json:"url,omitempty"`
	Title        string   `json:"title,omitempty"`
	Score        int      `json:"score,omitempty"`
	CommentCount int      `json:"comment_count,omitempty"`
	Text         string   `json:"text,omitempty"`

	// Populated only for comments.
	ParentStoryID    int    `json:"parent_story_id,omitempty"`
	ParentStoryTitle string `json:"parent_story_title,omitempty"`
}

// Domain returns the item's link host with a leading "www." stripped,
// or "" when the item has no external URL.
func (it Item) Domain() string {
	if it.URL == "" {
		return ""
	}
	u, err := url.Parse(it.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}

// UserProfile is a Hacker News user as returned by the id-based API.
type UserProfile struct {
	ID        string `json:"id"`
	Karma     int    `json:"karma"`
	CreatedAt int64  `json:"created,omitempty"`
	About     string `json:"about,omitempty"`
}

// ResultPage is one page of feed results. Item order is server-defined and
// must be preserved; appending a later page never reorders earlier entries.
type ResultPage struct {
	Items    []Item
	NextPage int
	HasMore  bool
}

// Credentials is the persisted session secret: the value of the "user"
// cookie plus the username it belongs to.
type Credentials struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}
