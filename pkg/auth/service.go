package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Common authentication errors.
var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthFormat    = errors.New("invalid authorization header format")
)

// AuthService resolves the session of an incoming request.
type AuthService interface {
	// ValidateRequest checks, in order:
	//   1. the signed session cookie (browser clients)
	//   2. an Authorization header with the "Bearer" scheme (API clients)
	ValidateRequest(r *http.Request) (*Session, error)
}

type authService struct {
	sessions   *SessionStore
	jwksClient JWKSClientInterface
	logger     *zap.Logger
}

// NewAuthService creates a new AuthService. sessions may be nil when no
// session secret is configured; only bearer tokens are accepted then.
func NewAuthService(sessions *SessionStore, jwksClient JWKSClientInterface, logger *zap.Logger) AuthService {
	return &authService{
		sessions:   sessions,
		jwksClient: jwksClient,
		logger:     logger,
	}
}

func (s *authService) ValidateRequest(r *http.Request) (*Session, error) {
	if s.sessions != nil {
		if sess := s.sessions.Load(r); sess != nil {
			return sess, nil
		}
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		s.logger.Debug("No session found in request",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method))
		return nil, ErrMissingAuthorization
	}

	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" || token == "" {
		s.logger.Debug("Invalid Authorization header format",
			zap.String("path", r.URL.Path))
		return nil, ErrInvalidAuthFormat
	}

	claims, err := s.jwksClient.ValidateToken(token)
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path))
		return nil, err
	}

	return SessionFromClaims(claims), nil
}

var _ AuthService = (*authService)(nil)
