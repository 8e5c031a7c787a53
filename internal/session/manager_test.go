package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hndesk/hndesk/internal/domain"
)

// fakeItemClient serves canned user profiles for session verification.
type fakeItemClient struct {
	users map[string]domain.UserProfile
}

func (f *fakeItemClient) FetchItemsByID(ctx context.Context, ids []int) ([]domain.Item, error) {
	return nil, nil
}

func (f *fakeItemClient) FetchItem(ctx context.Context, id int) (domain.Item, error) {
	return domain.Item{}, domain.ErrNotFound
}

func (f *fakeItemClient) FetchUser(ctx context.Context, username string) (domain.UserProfile, error) {
	u, ok := f.users[username]
	if !ok {
		return domain.UserProfile{}, domain.ErrNotFound
	}
	return u, nil
}

// memCredentialStore keeps credentials in memory for tests.
type memCredentialStore struct {
	creds *domain.Credentials
}

func (m *memCredentialStore) Load() (domain.Credentials, error) {
	if m.creds == nil {
		return domain.Credentials{}, domain.ErrNoCredentials
	}
	return *m.creds, nil
}

func (m *memCredentialStore) Save(c domain.Credentials) error {
	m.creds = &c
	return nil
}

func (m *memCredentialStore) Delete() error {
	m.creds = nil
	return nil
}

// newAuthServer mimics the site's form-based auth: a 302 with a session
// cookie on success, a plain 200 page on failure.
func newAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			require.NoError(t, r.ParseForm())
			if r.PostForm.Get("creating") == "t" {
				// Pretend every name is taken.
				w.Write([]byte("That username is taken."))
				return
			}
			if r.PostForm.Get("acct") == "tester" && r.PostForm.Get("pw") == "hunter2" {
				http.SetCookie(w, &http.Cookie{Name: "user", Value: "tester&sessiontoken", Path: "/"})
				w.Header().Set("Location", "/news")
				w.WriteHeader(http.StatusFound)
				return
			}
			w.Write([]byte("Bad login."))
		case "/forgot":
			w.Write([]byte(`<form><input type="hidden" name="fnid" value="resetFnid42"><input type="text" name="s"></form>`))
		case "/x":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "resetFnid42", r.PostForm.Get("fnid"))
			assert.Equal(t, "forgot-password", r.PostForm.Get("fnop"))
			if r.PostForm.Get("s") == "tester" {
				w.Write([]byte("Password recovery message sent."))
				return
			}
			w.Write([]byte("Unknown user."))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(t *testing.T, srv *httptest.Server) (*Manager, *memCredentialStore, http.CookieJar) {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	items := &fakeItemClient{users: map[string]domain.UserProfile{
		"tester": {ID: "tester", Karma: 1234},
	}}
	creds := &memCredentialStore{}
	return NewManager(srv.URL, items, creds, jar, nil), creds, jar
}

func TestLoginSuccess(t *testing.T) {
	srv := newAuthServer(t)
	m, creds, jar := newTestManager(t, srv)

	require.NoError(t, m.Login(context.Background(), "tester", "hunter2"))

	assert.Equal(t, LoggedIn, m.State())
	assert.Equal(t, "tester", m.Username())
	assert.Equal(t, 1234, m.Karma())
	assert.Empty(t, m.LoginError())

	require.NotNil(t, creds.creds)
	assert.Equal(t, "tester&sessiontoken", creds.creds.Token)

	site, _ := url.Parse(srv.URL)
	cookies := jar.Cookies(site)
	require.Len(t, cookies, 1)
	assert.Equal(t, "user", cookies[0].Name)
}

func TestLoginWrongPassword(t *testing.T) {
	srv := newAuthServer(t)
	m, creds, _ := newTestManager(t, srv)

	err := m.Login(context.Background(), "tester", "wrong")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidCredentials))

	assert.Equal(t, LoggedOut, m.State())
	assert.Empty(t, m.Username())
	assert.NotEmpty(t, m.LoginError())
	assert.Nil(t, creds.creds)
}

func TestCreateAccountTaken(t *testing.T) {
	srv := newAuthServer(t)
	m, _, _ := newTestManager(t, srv)

	err := m.CreateAccount(context.Background(), "tester", "hunter2")
	assert.ErrorIs(t, err, domain.ErrAccountExists)
	assert.Equal(t, LoggedOut, m.State())
}

func TestRestoreSessionValid(t *testing.T) {
	srv := newAuthServer(t)
	m, creds, _ := newTestManager(t, srv)
	creds.creds = &domain.Credentials{Token: "stored&token", Username: "tester"}

	require.NoError(t, m.RestoreSession(context.Background()))
	assert.Equal(t, LoggedIn, m.State())
	assert.Equal(t, "tester", m.Username())
	assert.Equal(t, 1234, m.Karma())
}

func TestRestoreSessionStaleTokenDiscarded(t *testing.T) {
	srv := newAuthServer(t)
	m, creds, _ := newTestManager(t, srv)
	creds.creds = &domain.Credentials{Token: "dead&token", Username: "ghost"}

	require.NoError(t, m.RestoreSession(context.Background()))
	assert.Equal(t, LoggedOut, m.State())
	assert.Nil(t, creds.creds)
}

func TestRestoreSessionNoCredentials(t *testing.T) {
	srv := newAuthServer(t)
	m, _, _ := newTestManager(t, srv)

	require.NoError(t, m.RestoreSession(context.Background()))
	assert.Equal(t, LoggedOut, m.State())
}

func TestLogout(t *testing.T) {
	srv := newAuthServer(t)
	m, creds, jar := newTestManager(t, srv)

	require.NoError(t, m.Login(context.Background(), "tester", "hunter2"))
	require.NoError(t, m.Logout())

	assert.Equal(t, LoggedOut, m.State())
	assert.Empty(t, m.Username())
	assert.Zero(t, m.Karma())
	assert.Nil(t, creds.creds)

	site, _ := url.Parse(srv.URL)
	assert.Empty(t, jar.Cookies(site))
}

func TestResetPasswordSuccess(t *testing.T) {
	srv := newAuthServer(t)
	m, _, _ := newTestManager(t, srv)

	require.NoError(t, m.ResetPassword(context.Background(), "tester"))
	assert.True(t, m.ResetSuccess())
	assert.Empty(t, m.ResetError())
	assert.Equal(t, LoggedOut, m.State())
}

func TestResetPasswordUnknownUser(t *testing.T) {
	srv := newAuthServer(t)
	m, _, _ := newTestManager(t, srv)

	err := m.ResetPassword(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrResetFailed)
	assert.False(t, m.ResetSuccess())
	assert.NotEmpty(t, m.ResetError())
}
