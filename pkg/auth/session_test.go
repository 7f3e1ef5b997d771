package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *SessionStore {
	return NewSessionStore("test-secret", "canvas-session", CookieSettings{Secure: false})
}

// issueCookie writes a session for user and returns a request carrying it.
func issueCookie(t *testing.T, store *SessionStore, user *Session) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, httptest.NewRequest(http.MethodGet, "/", nil), user))

	req := httptest.NewRequest(http.MethodGet, "/api/contexts", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionStore_RoundTrip(t *testing.T) {
	store := newTestStore()
	image := "https://img.example.com/a.png"

	req := issueCookie(t, store, &Session{UserID: "user-1", Name: "Ada", Email: "ada@example.com", Image: &image})

	got := store.Load(req)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "ada@example.com", got.Email)
	require.NotNil(t, got.Image)
	assert.Equal(t, image, *got.Image)
	assert.Equal(t, "cookie", got.Source)
}

func TestSessionStore_NoCookie(t *testing.T) {
	assert.Nil(t, newTestStore().Load(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestSessionStore_WrongSecret(t *testing.T) {
	req := issueCookie(t, newTestStore(), &Session{UserID: "user-1"})

	other := NewSessionStore("another-secret", "canvas-session", CookieSettings{})
	assert.Nil(t, other.Load(req))
}

func TestSessionStore_TamperedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "canvas-session", Value: "forged"})
	assert.Nil(t, newTestStore().Load(req))
}
