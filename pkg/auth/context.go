package auth

import (
	"context"

	"github.com/ekaya-inc/ekaya-canvas/pkg/apperrors"
)

// GetUserIDFromContext returns the session user id, or "" when unauthenticated.
func GetUserIDFromContext(ctx context.Context) string {
	s, ok := GetSession(ctx)
	if !ok {
		return ""
	}
	return s.UserID
}

// RequireUserIDFromContext returns apperrors.ErrUnauthorized when no user is present.
// Use this when user ID is required for the operation.
func RequireUserIDFromContext(ctx context.Context) (string, error) {
	userID := GetUserIDFromContext(ctx)
	if userID == "" {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}
