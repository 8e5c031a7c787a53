package hn

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hndesk/hndesk/internal/domain"
)

// The HTML endpoints have no structured API; every extraction lives in one
// of the narrow functions below so upstream markup drift has a single point
// of repair per interaction. Tests run against captured fixtures.

// ExtractFnid pulls the hidden anti-forgery token out of the password-reset
// form: locate the "fnid" marker, walk backward to the enclosing <input>
// tag, and read its value attribute.
func ExtractFnid(html string) (string, error) {
	markerAt := strings.Index(html, "fnid")
	if markerAt < 0 {
		return "", fmt.Errorf("%w: fnid", domain.ErrScrape)
	}

	inputAt := strings.LastIndex(strings.ToLower(html[:markerAt]), "<input")
	if inputAt < 0 {
		return "", fmt.Errorf("%w: fnid input tag", domain.ErrScrape)
	}

	tagEnd := strings.IndexByte(html[inputAt:], '>')
	if tagEnd < 0 {
		return "", fmt.Errorf("%w: fnid input tag", domain.ErrScrape)
	}
	tag := html[inputAt : inputAt+tagEnd+1]

	valueAt := strings.Index(tag, `value="`)
	if valueAt < 0 {
		return "", fmt.Errorf("%w: fnid value", domain.ErrScrape)
	}
	rest := tag[valueAt+len(`value="`):]
	end := strings.IndexByte(rest, '"')
	if end <= 0 {
		return "", fmt.Errorf("%w: fnid value", domain.ErrScrape)
	}
	return rest[:end], nil
}

// ExtractHideAuth pulls the per-item hide/unhide auth token from an item
// page. The un-hide pattern is checked first; which pattern matches tells
// us whether the item is currently hidden on the server.
func ExtractHideAuth(html string, itemID int) (token string, currentlyHidden bool, err error) {
	unhideMarker := fmt.Sprintf("hide?id=%d&amp;un=t&amp;auth=", itemID)
	if tok := tokenAfter(html, unhideMarker); tok != "" {
		return tok, true, nil
	}

	hideMarker := fmt.Sprintf("hide?id=%d&amp;auth=", itemID)
	if tok := tokenAfter(html, hideMarker); tok != "" {
		return tok, false, nil
	}

	return "", false, fmt.Errorf("%w: hide auth token", domain.ErrScrape)
}

// tokenAfter returns the run of characters following marker up to the next
// quote or ampersand, or "" when the marker is absent.
func tokenAfter(html, marker string) string {
	at := strings.Index(html, marker)
	if at < 0 {
		return ""
	}
	rest := html[at+len(marker):]
	end := strings.IndexAny(rest, `"&`)
	if end < 0 {
		end = len(rest)
	}
	return rest[:end]
}

// ParseHiddenPage extracts item ids from one page of a user's hidden-items
// listing, plus the "More" pagination link when a further page exists.
func ParseHiddenPage(html string, base *url.URL) (ids []int, next *url.URL, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrScrape, err)
	}

	doc.Find("tr.athing").Each(func(_ int, row *goquery.Selection) {
		raw, ok := row.Attr("id")
		if !ok {
			return
		}
		if id, err := strconv.Atoi(raw); err == nil {
			ids = append(ids, id)
		}
	})

	if href, ok := doc.Find("a.morelink").First().Attr("href"); ok {
		if rel, err := url.Parse(href); err == nil {
			next = base.ResolveReference(rel)
		}
	}

	return ids, next, nil
}
