package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// UserProvisioner mirrors the session user into local storage so foreign
// keys and the public explore join always resolve.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, s *Session) error
}

// Middleware provides HTTP authentication middleware.
// It is thin and delegates authentication logic to AuthService.
type Middleware struct {
	authService AuthService
	provisioner UserProvisioner
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware. provisioner may be nil.
func NewMiddleware(authService AuthService, provisioner UserProvisioner, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		provisioner: provisioner,
		logger:      logger,
	}
}

// RequireAuth rejects requests without a valid session with 401 before the
// handler runs, and places the session in the request context otherwise.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.authService.ValidateRequest(r)
		if err != nil {
			m.writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		if m.provisioner != nil {
			if err := m.provisioner.EnsureUser(r.Context(), sess); err != nil {
				m.logger.Error("Failed to provision session user",
					zap.String("user_id", sess.UserID),
					zap.Error(err))
				m.writeError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load user")
				return
			}
		}

		next(w, r.WithContext(WithSession(r.Context(), sess)))
	}
}

func (m *Middleware) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"code":    code,
		"message": message,
	})
}
