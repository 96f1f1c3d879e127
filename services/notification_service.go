package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"creatorChallengeAPI/internal/apperr"
	"creatorChallengeAPI/internal/notification"
	"creatorChallengeAPI/internal/storage"
)

// NotificationService serves the owner's in-app inbox.
type NotificationService struct {
	store storage.Store
}

func NewNotificationService(store storage.Store) *NotificationService {
	return &NotificationService{store: store}
}

func (s *NotificationService) userID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	u, err := s.store.GetUserByClerkID(ctx, clerkID)
	if err != nil {
		return uuid.Nil, err
	}
	return u.ID, nil
}

// Get user's notifications with pagination
func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	items, total, err := s.store.ListInbox(ctx, notification.InboxFilter{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		return nil, err
	}
	unread, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	if items == nil {
		items = []*notification.InboxItem{}
	}
	return &notification.NotificationListResponse{
		Notifications: items,
		UnreadCount:   unread,
		TotalCount:    total,
		Page:          page,
		PageSize:      pageSize,
	}, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, clerkID string) (int, error) {
	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return 0, err
	}
	return s.store.UnreadCount(ctx, userID)
}

// Mark notification as read
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return err
	}
	n, err := s.store.MarkRead(ctx, userID, []uuid.UUID{notificationID})
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("notification %s not found or already read", notificationID)
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, clerkID string) error {
	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return err
	}
	return s.store.MarkAllRead(ctx, userID)
}

func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	if req.Token == "" {
		return apperr.Validation("device token is required")
	}
	switch req.Platform {
	case "ios", "android", "web":
	default:
		return apperr.Validation("unsupported platform %q", req.Platform)
	}

	userID, err := s.userID(ctx, clerkID)
	if err != nil {
		return err
	}
	now := time.Now()
	return s.store.RegisterDevice(ctx, userID, notification.DeviceToken{
		Token:    req.Token,
		Platform: req.Platform,
		AddedAt:  now,
		LastUsed: now,
	})
}
