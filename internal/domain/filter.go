package domain

import "time"

// ContentType narrows the feed to one class of content.
type ContentType string

const (
	TypeAll       ContentType = "all"
	TypeAsk       ContentType = "ask"
	TypeShow      ContentType = "show"
	TypeJobs      ContentType = "jobs"
	TypeComments  ContentType = "comments"
	TypeThreads   ContentType = "threads"
	TypeBookmarks ContentType = "bookmarks"
)

// RequiresAuth reports whether this content type only makes sense with an
// active session (threads = the logged-in user's own comments).
func (t ContentType) RequiresAuth() bool { return t == TypeThreads }

// IsBookmarks reports whether this content type is served from local
// storage instead of the network.
func (t ContentType) IsBookmarks() bool { return t == TypeBookmarks }

// SortMode selects which search endpoint ranks the results.
type SortMode string

const (
	SortHot    SortMode = "hot"
	SortRecent SortMode = "recent"
)

// DateRange bounds results to a creation-time window.
type DateRange string

const (
	RangeToday     DateRange = "today"
	RangePastWeek  DateRange = "week"
	RangePastMonth DateRange = "month"
	RangeAllTime   DateRange = "all"
)

// Start returns the unix-seconds lower bound for the range, or 0 when the
// range is unbounded.
func (r DateRange) Start(now time.Time) int64 {
	switch r {
	case RangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Unix()
	case RangePastWeek:
		return now.AddDate(0, 0, -7).Unix()
	case RangePastMonth:
		return now.AddDate(0, -1, 0).Unix()
	default:
		return 0
	}
}

// Filter is the active feed query. AuthorScope is populated only when
// Type == TypeThreads and a session is active.
type Filter struct {
	Type        ContentType
	Sort        SortMode
	Range       DateRange
	AuthorScope string
}

// DefaultFilter is the query shown on first launch.
func DefaultFilter() Filter {
	return Filter{Type: TypeAll, Sort: SortHot, Range: RangeToday}
}
