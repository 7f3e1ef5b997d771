// Package auth resolves the signed-in user for ekaya-canvas requests.
// Browser clients carry a signed session cookie written by the web app;
// API clients send a bearer JWT validated against JWKS endpoints.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// SessionKey is the context key for the resolved *Session.
const SessionKey contextKey = "session"

// Claims is the bearer token payload. Profile fields follow the OIDC
// standard claim names.
type Claims struct {
	jwt.RegisteredClaims
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Session is the authenticated principal of a request.
type Session struct {
	UserID string
	Name   string
	Email  string
	Image  *string
	// Source is "cookie" or "bearer".
	Source string
}

// SessionFromClaims maps token claims to a Session.
func SessionFromClaims(c *Claims) *Session {
	s := &Session{
		UserID: c.Subject,
		Name:   c.Name,
		Email:  c.Email,
		Source: "bearer",
	}
	if c.Picture != "" {
		picture := c.Picture
		s.Image = &picture
	}
	return s
}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// GetSession retrieves the session placed by the middleware.
// Returns nil and false if the request is unauthenticated.
func GetSession(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(SessionKey).(*Session)
	return s, ok && s != nil
}
