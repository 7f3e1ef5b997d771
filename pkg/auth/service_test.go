package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockJWKSClient struct {
	claims *Claims
	err    error
	calls  int
}

func (m *mockJWKSClient) ValidateToken(tokenString string) (*Claims, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.claims, nil
}

func (m *mockJWKSClient) Close() {}

func TestAuthService_CookieTakesPrecedence(t *testing.T) {
	store := newTestStore()
	jwks := &mockJWKSClient{claims: &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "bearer-user"}}}
	svc := NewAuthService(store, jwks, zap.NewNop())

	req := issueCookie(t, store, &Session{UserID: "cookie-user"})
	req.Header.Set("Authorization", "Bearer whatever")

	sess, err := svc.ValidateRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "cookie-user", sess.UserID)
	assert.Zero(t, jwks.calls)
}

func TestAuthService_Bearer(t *testing.T) {
	jwks := &mockJWKSClient{claims: &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "bearer-user"}, Email: "b@example.com"}}
	svc := NewAuthService(newTestStore(), jwks, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token-value")

	sess, err := svc.ValidateRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "bearer-user", sess.UserID)
	assert.Equal(t, "b@example.com", sess.Email)
}

func TestAuthService_Errors(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		jwksErr error
		wantErr error
	}{
		{"no credentials", "", nil, ErrMissingAuthorization},
		{"basic scheme", "Basic abc", nil, ErrInvalidAuthFormat},
		{"empty bearer", "Bearer ", nil, ErrInvalidAuthFormat},
		{"invalid token", "Bearer bad", errors.New("token validation failed"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAuthService(nil, &mockJWKSClient{err: tt.jwksErr}, zap.NewNop())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			_, err := svc.ValidateRequest(req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
