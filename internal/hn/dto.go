package hn

import (
	"strconv"

	"github.com/hndesk/hndesk/internal/domain"
)

// firebaseItem is the raw shape of GET /item/{id}.json
type firebaseItem struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Text        string `json:"text"`
	Parent      int    `json:"parent"`
	Deleted     bool   `json:"deleted"`
	Dead        bool   `json:"dead"`
}

// firebaseUser is the raw shape of GET /user/{id}.json
type firebaseUser struct {
	ID      string `json:"id"`
	Karma   int    `json:"karma"`
	Created int64  `json:"created"`
	About   string `json:"about"`
}

// searchResponse is the envelope of the search API.
type searchResponse struct {
	Hits    []searchHit `json:"hits"`
	NbPages int         `json:"nbPages"`
	Page    int         `json:"page"`
}

// searchHit is one result row from the search API.
type searchHit struct {
	ObjectID    string   `json:"objectID"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Author      string   `json:"author"`
	Points      int      `json:"points"`
	NumComments int      `json:"num_comments"`
	CreatedAtI  int64    `json:"created_at_i"`
	StoryText   string   `json:"story_text"`
	CommentText string   `json:"comment_text"`
	StoryTitle  string   `json:"story_title"`
	StoryID     int      `json:"story_id"`
	Tags        []string `json:"_tags"`
}

// MapItem converts a firebase item to the domain shape.
func mapFirebaseItem(raw firebaseItem) domain.Item {
	kind := domain.ItemKind(raw.Type)
	if kind == "" {
		kind = domain.KindStory
	}
	return domain.Item{
		ID:            raw.ID,
		Kind:          kind,
		Author:        raw.By,
		CreatedAt:     raw.Time,
		URL:           raw.URL,
		Title:         raw.Title,
		Score:         raw.Score,
		CommentCount:  raw.Descendants,
		Text:          raw.Text,
		ParentStoryID: raw.Parent,
	}
}

func mapFirebaseUser(raw firebaseUser) domain.UserProfile {
	return domain.UserProfile{
		ID:        raw.ID,
		Karma:     raw.Karma,
		CreatedAt: raw.Created,
		About:     raw.About,
	}
}

// mapHit converts a search hit to the domain shape. fallback supplies the
// kind when the hit's tags don't identify one.
func mapHit(hit searchHit, fallback domain.ItemKind) (domain.Item, bool) {
	id, err := strconv.Atoi(hit.ObjectID)
	if err != nil {
		return domain.Item{}, false
	}

	kind := kindFromTags(hit.Tags)
	if kind == "" {
		kind = fallback
	}

	text := hit.StoryText
	if kind == domain.KindComment {
		text = hit.CommentText
	}

	return domain.Item{
		ID:               id,
		Kind:             kind,
		Author:           hit.Author,
		CreatedAt:        hit.CreatedAtI,
		URL:              hit.URL,
		Title:            hit.Title,
		Score:            hit.Points,
		CommentCount:     hit.NumComments,
		Text:             text,
		ParentStoryID:    hit.StoryID,
		ParentStoryTitle: hit.StoryTitle,
	}, true
}

// kindFromTags infers the item kind from the search API's _tags array.
func kindFromTags(tags []string) domain.ItemKind {
	for _, tag := range tags {
		switch tag {
		case "comment":
			return domain.KindComment
		case "job":
			return domain.KindJob
		case "poll":
			return domain.KindPoll
		case "story":
			return domain.KindStory
		}
	}
	return ""
}
