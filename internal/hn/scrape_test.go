package hn

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hndesk/hndesk/internal/domain"
)

const forgotPageHTML = `<html><body>
<form method="post" action="x">
<input type="hidden" name="fnop" value="forgot-password">
<input type="hidden" name="fnid" value="Abc123XYZ">
<b>Reset your password</b>
<input type="text" name="s" size="20">
</form>
</body></html>`

func TestExtractFnid(t *testing.T) {
	fnid, err := ExtractFnid(forgotPageHTML)
	require.NoError(t, err)
	assert.Equal(t, "Abc123XYZ", fnid)
}

func TestExtractFnidMissingMarker(t *testing.T) {
	_, err := ExtractFnid(`<html><body>nothing here</body></html>`)
	assert.ErrorIs(t, err, domain.ErrScrape)
}

func TestExtractFnidMarkerWithoutInput(t *testing.T) {
	_, err := ExtractFnid(`<html><body>fnid appears in prose only</body></html>`)
	assert.ErrorIs(t, err, domain.ErrScrape)
}

func TestExtractHideAuthNotYetHidden(t *testing.T) {
	page := `<a href="hide?id=123&amp;auth=abc123token&amp;goto=news">hide</a>`

	token, hidden, err := ExtractHideAuth(page, 123)
	require.NoError(t, err)
	assert.Equal(t, "abc123token", token)
	assert.False(t, hidden)
}

func TestExtractHideAuthAlreadyHidden(t *testing.T) {
	page := `<a href="hide?id=123&amp;un=t&amp;auth=def456token&amp;goto=news">un-hide</a>`

	token, hidden, err := ExtractHideAuth(page, 123)
	require.NoError(t, err)
	assert.Equal(t, "def456token", token)
	assert.True(t, hidden)
}

func TestExtractHideAuthTokenEndsAtQuote(t *testing.T) {
	page := `<a href="hide?id=42&amp;auth=tok42">hide</a>`

	token, hidden, err := ExtractHideAuth(page, 42)
	require.NoError(t, err)
	assert.Equal(t, "tok42", token)
	assert.False(t, hidden)
}

func TestExtractHideAuthWrongItem(t *testing.T) {
	page := `<a href="hide?id=999&amp;auth=sometoken">hide</a>`

	_, _, err := ExtractHideAuth(page, 123)
	assert.True(t, errors.Is(err, domain.ErrScrape))
}

const hiddenPageHTML = `<html><body><table>
<tr class="athing" id="101"><td>first hidden story</td></tr>
<tr class="athing" id="102"><td>second hidden story</td></tr>
<tr class="athing" id="103"><td>third hidden story</td></tr>
<tr><td><a href="hidden?id=tester&p=2" class="morelink">More</a></td></tr>
</table></body></html>`

const hiddenLastPageHTML = `<html><body><table>
<tr class="athing" id="104"><td>last hidden story</td></tr>
</table></body></html>`

func TestParseHiddenPage(t *testing.T) {
	base, err := url.Parse("https://news.ycombinator.com/hidden?id=tester")
	require.NoError(t, err)

	ids, next, err := ParseHiddenPage(hiddenPageHTML, base)
	require.NoError(t, err)
	assert.Equal(t, []int{101, 102, 103}, ids)
	require.NotNil(t, next)
	assert.Equal(t, "https://news.ycombinator.com/hidden?id=tester&p=2", next.String())
}

func TestParseHiddenPageNoMoreLink(t *testing.T) {
	base, err := url.Parse("https://news.ycombinator.com/hidden?id=tester")
	require.NoError(t, err)

	ids, next, err := ParseHiddenPage(hiddenLastPageHTML, base)
	require.NoError(t, err)
	assert.Equal(t, []int{104}, ids)
	assert.Nil(t, next)
}

func TestParseHiddenPageEmpty(t *testing.T) {
	base, err := url.Parse("https://news.ycombinator.com/hidden?id=tester")
	require.NoError(t, err)

	ids, next, err := ParseHiddenPage(`<html><body>No submissions.</body></html>`, base)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Nil(t, next)
}
