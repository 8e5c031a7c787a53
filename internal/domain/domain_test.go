package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestItemDomainStripsWWW(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.example.com/post/1", "example.com"},
		{"https://blog.example.com/x", "blog.example.com"},
		{"", ""},
		{"not a url", ""},
	}
	for _, tc := range cases {
		item := Item{URL: tc.url}
		assert.Equal(t, tc.want, item.Domain(), tc.url)
	}
}

func TestDateRangeStart(t *testing.T) {
	now := time.Date(2026, 6, 10, 15, 45, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC).Unix(), RangeToday.Start(now))
	assert.Equal(t, now.AddDate(0, 0, -7).Unix(), RangePastWeek.Start(now))
	assert.Equal(t, now.AddDate(0, -1, 0).Unix(), RangePastMonth.Start(now))
	assert.Zero(t, RangeAllTime.Start(now))
}

func TestNavEntryEqual(t *testing.T) {
	item := Item{ID: 1}

	assert.True(t, HomeEntry().Equal(HomeEntry()))
	assert.False(t, HomeEntry().Equal(SettingsEntry()))

	a := ViewingEntry(item, ViewPost)
	b := ViewingEntry(item, ViewPost)
	assert.True(t, a.Equal(b))

	// Same item, different mode: a distinct place in history.
	c := ViewingEntry(item, ViewComments)
	assert.False(t, a.Equal(c))

	other := ViewingEntry(Item{ID: 2}, ViewPost)
	assert.False(t, a.Equal(other))

	p1 := ProfileEntry("https://example.com/u/1")
	p2 := ProfileEntry("https://example.com/u/2")
	assert.True(t, p1.Equal(ProfileEntry("https://example.com/u/1")))
	assert.False(t, p1.Equal(p2))
}

func TestContentTypeFlags(t *testing.T) {
	assert.True(t, TypeThreads.RequiresAuth())
	assert.False(t, TypeAll.RequiresAuth())
	assert.True(t, TypeBookmarks.IsBookmarks())
	assert.False(t, TypeAsk.IsBookmarks())
}
