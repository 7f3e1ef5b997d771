package auth

import (
	"crypto/sha256"
	"net/http"

	"github.com/gorilla/sessions"
)

// Session cookie value keys. The web app writes these after sign-in.
const (
	SessionKeyUserID = "user_id"
	SessionKeyName   = "name"
	SessionKeyEmail  = "email"
	SessionKeyImage  = "image"
)

// SessionStore reads the signed session cookie shared with the web app.
type SessionStore struct {
	store *sessions.CookieStore
	name  string
}

// NewSessionStore builds a cookie store keyed by the SHA-256 of secret.
// The secret must match the one the web app signs cookies with.
func NewSessionStore(secret, cookieName string, settings CookieSettings) *SessionStore {
	key := sha256.Sum256([]byte(secret))

	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		Domain:   settings.Domain,
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   settings.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionStore{store: store, name: cookieName}
}

// Load returns the session user carried by the request cookie, or nil when
// the cookie is absent, tampered with, or carries no user id.
func (s *SessionStore) Load(r *http.Request) *Session {
	if _, err := r.Cookie(s.name); err != nil {
		return nil
	}

	sess, err := s.store.Get(r, s.name)
	if err != nil || sess.IsNew {
		return nil
	}

	userID, _ := sess.Values[SessionKeyUserID].(string)
	if userID == "" {
		return nil
	}

	out := &Session{UserID: userID, Source: "cookie"}
	out.Name, _ = sess.Values[SessionKeyName].(string)
	out.Email, _ = sess.Values[SessionKeyEmail].(string)
	if image, ok := sess.Values[SessionKeyImage].(string); ok && image != "" {
		out.Image = &image
	}
	return out
}

// Save writes a session cookie for user. The web app normally owns this; it
// is exposed for tooling and tests.
func (s *SessionStore) Save(w http.ResponseWriter, r *http.Request, user *Session) error {
	sess, err := s.store.New(r, s.name)
	if err != nil && sess == nil {
		return err
	}
	sess.Values[SessionKeyUserID] = user.UserID
	sess.Values[SessionKeyName] = user.Name
	sess.Values[SessionKeyEmail] = user.Email
	if user.Image != nil {
		sess.Values[SessionKeyImage] = *user.Image
	}
	return sess.Save(r, w)
}
