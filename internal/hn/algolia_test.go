package hn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hndesk/hndesk/internal/domain"
)

func newSearchServer(t *testing.T, handler func(r *http.Request) searchResponse) (*AlgoliaClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(handler(r))
	}))
	t.Cleanup(srv.Close)
	return NewAlgoliaClient(srv.URL, nil), srv
}

func storyHit(id string, title string) searchHit {
	return searchHit{ObjectID: id, Title: title, Author: "tester", Points: 10, Tags: []string{"story"}}
}

func TestFetchPagePagination(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string

	client, _ := newSearchServer(t, func(r *http.Request) searchResponse {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k, v := range r.URL.Query() {
			gotQuery[k] = v[0]
		}
		return searchResponse{
			Hits:    []searchHit{storyHit("1", "a"), storyHit("2", "b")},
			NbPages: 3,
			Page:    1,
		}
	})

	filter := domain.Filter{Type: domain.TypeAll, Sort: domain.SortHot, Range: domain.RangeAllTime}
	page, err := client.FetchPage(context.Background(), filter, 1)
	require.NoError(t, err)

	assert.Equal(t, "/search", gotPath)
	assert.Equal(t, "(story,job,poll)", gotQuery["tags"])
	assert.Equal(t, "1", gotQuery["page"])
	assert.Equal(t, "30", gotQuery["hitsPerPage"])
	assert.NotContains(t, gotQuery, "numericFilters")

	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.NextPage)
	assert.True(t, page.HasMore)
}

func TestFetchPageLastPage(t *testing.T) {
	client, _ := newSearchServer(t, func(r *http.Request) searchResponse {
		return searchResponse{Hits: []searchHit{storyHit("9", "tail")}, NbPages: 3, Page: 2}
	})

	filter := domain.Filter{Type: domain.TypeAll, Sort: domain.SortHot, Range: domain.RangeAllTime}
	page, err := client.FetchPage(context.Background(), filter, 2)
	require.NoError(t, err)
	assert.False(t, page.HasMore)
}

func TestFetchPageRecentUsesDateEndpoint(t *testing.T) {
	var gotPath string
	client, _ := newSearchServer(t, func(r *http.Request) searchResponse {
		gotPath = r.URL.Path
		return searchResponse{NbPages: 1}
	})

	filter := domain.Filter{Type: domain.TypeAll, Sort: domain.SortRecent, Range: domain.RangeAllTime}
	_, err := client.FetchPage(context.Background(), filter, 0)
	require.NoError(t, err)
	assert.Equal(t, "/search_by_date", gotPath)
}

func TestFetchPageDateRangeFilter(t *testing.T) {
	var gotFilters string
	client, _ := newSearchServer(t, func(r *http.Request) searchResponse {
		gotFilters = r.URL.Query().Get("numericFilters")
		return searchResponse{NbPages: 1}
	})

	// Pin the clock so the expected lower bound is deterministic.
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	client.now = func() time.Time { return now }

	filter := domain.Filter{Type: domain.TypeAll, Sort: domain.SortHot, Range: domain.RangeToday}
	_, err := client.FetchPage(context.Background(), filter, 0)
	require.NoError(t, err)

	startOfDay := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC).Unix()
	assert.Equal(t, "created_at_i>"+strconv.FormatInt(startOfDay, 10), gotFilters)
}

func TestTagsFor(t *testing.T) {
	cases := []struct {
		filter domain.Filter
		want   string
	}{
		{domain.Filter{Type: domain.TypeAll}, "(story,job,poll)"},
		{domain.Filter{Type: domain.TypeAsk}, "ask_hn"},
		{domain.Filter{Type: domain.TypeShow}, "show_hn"},
		{domain.Filter{Type: domain.TypeJobs}, "job"},
		{domain.Filter{Type: domain.TypeComments}, "comment"},
		{domain.Filter{Type: domain.TypeThreads, AuthorScope: "pg"}, "comment,author_pg"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tagsFor(tc.filter))
	}
}

func TestSearchPageSinglePage(t *testing.T) {
	var gotQuery string
	client, _ := newSearchServer(t, func(r *http.Request) searchResponse {
		gotQuery = r.URL.Query().Get("query")
		return searchResponse{Hits: []searchHit{storyHit("5", "rust"), storyHit("6", "zig")}, NbPages: 40}
	})

	filter := domain.Filter{Type: domain.TypeAll, Sort: domain.SortHot}
	items, err := client.SearchPage(context.Background(), filter, "languages")
	require.NoError(t, err)

	assert.Equal(t, "languages", gotQuery)
	assert.Len(t, items, 2)
}

func TestMapHitKindInference(t *testing.T) {
	comment := searchHit{ObjectID: "7", Author: "c", CommentText: "nice", StoryTitle: "parent", StoryID: 3, Tags: []string{"comment"}}
	item, ok := mapHit(comment, domain.KindStory)
	require.True(t, ok)
	assert.Equal(t, domain.KindComment, item.Kind)
	assert.Equal(t, "nice", item.Text)
	assert.Equal(t, "parent", item.ParentStoryTitle)

	untagged := searchHit{ObjectID: "8", Author: "j"}
	item, ok = mapHit(untagged, domain.KindJob)
	require.True(t, ok)
	assert.Equal(t, domain.KindJob, item.Kind)

	junk := searchHit{ObjectID: "not-a-number"}
	_, ok = mapHit(junk, domain.KindStory)
	assert.False(t, ok)
}

func TestDoSearchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	client := NewAlgoliaClient(srv.URL, nil)
	_, err := client.FetchPage(context.Background(), domain.Filter{Type: domain.TypeAll}, 0)
	assert.ErrorIs(t, err, domain.ErrTransport)

	badJSON := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	t.Cleanup(badJSON.Close)

	client = NewAlgoliaClient(badJSON.URL, nil)
	_, err = client.FetchPage(context.Background(), domain.Filter{Type: domain.TypeAll}, 0)
	assert.ErrorIs(t, err, domain.ErrDecode)
}
