package hidden

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTimeout = time.Second
	testTick    = 5 * time.Millisecond
)

func TestLocalMarks(t *testing.T) {
	tr := NewTracker("http://unused.invalid", nil, nil)

	tr.MarkHidden(1)
	tr.MarkHidden(2)
	assert.True(t, tr.IsHidden(1))
	assert.True(t, tr.IsHidden(2))
	assert.Equal(t, 2, tr.Len())

	tr.MarkUnhidden(1)
	assert.False(t, tr.IsHidden(1))
	assert.Equal(t, 1, tr.Len())

	tr.ClearOnLogout()
	assert.Zero(t, tr.Len())
}

func TestHideOnServer(t *testing.T) {
	var hideCalled atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/item":
			fmt.Fprintf(w, `<a href="hide?id=%s&amp;auth=secrettok&amp;goto=news">hide</a>`, r.URL.Query().Get("id"))
		case "/hide":
			hideCalled.Store(true)
			assert.Equal(t, "77", r.URL.Query().Get("id"))
			assert.Equal(t, "secrettok", r.URL.Query().Get("auth"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	tr := NewTracker(srv.URL, nil, nil)
	tr.HideOnServer(context.Background(), 77)

	assert.True(t, tr.IsHidden(77))
	assert.True(t, hideCalled.Load())
}

func TestHideOnServerSkipsWhenAlreadyHidden(t *testing.T) {
	var hideCalled atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/item":
			fmt.Fprintf(w, `<a href="hide?id=%s&amp;un=t&amp;auth=tok&amp;goto=news">un-hide</a>`, r.URL.Query().Get("id"))
		case "/hide":
			hideCalled.Store(true)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	tr := NewTracker(srv.URL, nil, nil)
	tr.HideOnServer(context.Background(), 5)

	assert.True(t, tr.IsHidden(5))
	assert.False(t, hideCalled.Load())
}

// A network failure must not roll back the user's expressed intent.
func TestHideOnServerKeepsLocalStateOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close() // every request fails at the transport

	tr := NewTracker(srv.URL, nil, nil)
	tr.HideOnServer(context.Background(), 9)
	assert.True(t, tr.IsHidden(9))

	tr.UnhideOnServer(context.Background(), 9)
	assert.False(t, tr.IsHidden(9))
}

func TestSyncFromServerPaginates(t *testing.T) {
	var mux http.ServeMux
	srv := httptest.NewServer(&mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/hidden", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tester", r.URL.Query().Get("id"))
		if r.URL.Query().Get("p") == "2" {
			w.Write([]byte(`<table><tr class="athing" id="30"><td>c</td></tr></table>`))
			return
		}
		fmt.Fprintf(w, `<table>
<tr class="athing" id="10"><td>a</td></tr>
<tr class="athing" id="20"><td>b</td></tr>
<tr><td><a href="hidden?id=tester&p=2" class="morelink">More</a></td></tr>
</table>`)
	})

	tr := NewTracker(srv.URL, nil, nil)
	tr.MarkHidden(999) // replaced wholesale by the sync

	require.NoError(t, tr.SyncFromServer(context.Background(), "tester"))

	assert.Equal(t, 3, tr.Len())
	assert.True(t, tr.IsHidden(10))
	assert.True(t, tr.IsHidden(20))
	assert.True(t, tr.IsHidden(30))
	assert.False(t, tr.IsHidden(999))
	assert.False(t, tr.Syncing())
}

func TestSyncFromServerKeepsPartialOnError(t *testing.T) {
	var pageOneServed atomic.Bool
	var mux http.ServeMux
	srv := httptest.NewServer(&mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/hidden", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("p") == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		pageOneServed.Store(true)
		fmt.Fprintf(w, `<table>
<tr class="athing" id="10"><td>a</td></tr>
<tr><td><a href="hidden?id=tester&p=2" class="morelink">More</a></td></tr>
</table>`)
	})

	tr := NewTracker(srv.URL, nil, nil)
	require.NoError(t, tr.SyncFromServer(context.Background(), "tester"))

	assert.True(t, pageOneServed.Load())
	assert.Equal(t, 1, tr.Len())
	assert.True(t, tr.IsHidden(10))
}

func TestSyncFromServerRejectsConcurrent(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
		w.Write([]byte(`<table></table>`))
	}))
	t.Cleanup(srv.Close)

	tr := NewTracker(srv.URL, nil, nil)

	done := make(chan error, 1)
	go func() {
		done <- tr.SyncFromServer(context.Background(), "tester")
	}()

	// Wait until the first sync is holding the busy flag.
	require.Eventually(t, tr.Syncing, testTimeout, testTick)

	err := tr.SyncFromServer(context.Background(), "tester")
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(block)
	require.NoError(t, <-done)
}
