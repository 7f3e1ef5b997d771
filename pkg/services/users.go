package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-canvas/pkg/auth"
	"github.com/ekaya-inc/ekaya-canvas/pkg/models"
	"github.com/ekaya-inc/ekaya-canvas/pkg/repositories"
)

// userRefreshInterval is how long an unchanged profile is trusted before it
// is written again.
const userRefreshInterval = 10 * time.Minute

// UserService mirrors session users into the users table.
type UserService interface {
	auth.UserProvisioner
	Get(ctx context.Context, id string) (*models.User, error)
}

type userService struct {
	userRepo repositories.UserRepository
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	seen map[string]seenProfile
}

type seenProfile struct {
	profile models.PublicProfile
	email   string
	at      time.Time
}

var _ UserService = (*userService)(nil)

// NewUserService creates a new user service with dependencies.
func NewUserService(userRepo repositories.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		logger:   logger.Named("users"),
		now:      time.Now,
		seen:     make(map[string]seenProfile),
	}
}

// EnsureUser upserts the session's profile. Repeat calls with an unchanged
// profile inside userRefreshInterval skip the write.
func (s *userService) EnsureUser(ctx context.Context, sess *auth.Session) error {
	user := &models.User{
		ID:    sess.UserID,
		Name:  sess.Name,
		Email: sess.Email,
		Image: sess.Image,
	}
	entry := seenProfile{profile: user.PublicProfile(), email: user.Email, at: s.now()}

	s.mu.Lock()
	prev, ok := s.seen[user.ID]
	s.mu.Unlock()
	if ok && sameProfile(prev, entry) && entry.at.Sub(prev.at) < userRefreshInterval {
		return nil
	}

	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return err
	}

	s.mu.Lock()
	s.seen[user.ID] = entry
	s.mu.Unlock()

	if !ok {
		s.logger.Debug("User provisioned", zap.String("user_id", user.ID))
	}
	return nil
}

func (s *userService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func sameProfile(a, b seenProfile) bool {
	if a.profile.Name != b.profile.Name || a.email != b.email {
		return false
	}
	switch {
	case a.profile.Image == nil && b.profile.Image == nil:
		return true
	case a.profile.Image == nil || b.profile.Image == nil:
		return false
	default:
		return *a.profile.Image == *b.profile.Image
	}
}
