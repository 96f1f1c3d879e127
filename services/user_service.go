package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/storage"
	"creatorChallengeAPI/internal/user"
)

// UserService keeps the owner directory in step with the identity provider.
type UserService struct {
	store  storage.Store
	logger *zap.Logger
}

func NewUserService(store storage.Store, logger *zap.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

// SyncUser creates or refreshes the directory row for clerkID.
func (s *UserService) SyncUser(ctx context.Context, req *user.SyncRequest) (*user.User, error) {
	clerkID := strings.TrimSpace(req.ClerkID)
	if clerkID == "" {
		return nil, apperr.Validation("clerk id is required")
	}

	u := &user.User{
		ClerkID:     clerkID,
		Email:       strings.TrimSpace(req.Email),
		DisplayName: req.DisplayName(),
	}
	if err := s.store.UpsertUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user synced", zap.String("clerk_id", u.ClerkID), zap.String("user_id", u.ID.String()))
	return u, nil
}

// GetByClerkID resolves the caller of an authenticated request.
func (s *UserService) GetByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	return s.store.GetUserByClerkID(ctx, clerkID)
}
