package service

import (
	"context"
	"errors"

	"olh/internal/domain"
	"olh/internal/server/database"
)

// InboxLimit caps how many notifications List returns.
const InboxLimit = 50

// NotificationService serves the caller's in-app inbox.
type NotificationService struct {
	repo NotificationRepository
}

func NewNotificationService(repo NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// List returns the caller's most recent notifications.
func (s *NotificationService) List(ctx context.Context, p domain.Principal) ([]*domain.Notification, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return s.repo.ListNotifications(ctx, p.UserID, InboxLimit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, p domain.Principal) (int64, error) {
	if err := requireUser(p); err != nil {
		return 0, err
	}
	return s.repo.CountUnread(ctx, p.UserID)
}

// MarkRead marks one of the caller's notifications as read. Other users'
// notifications are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, p domain.Principal, id string) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if err := s.repo.MarkNotificationRead(ctx, id, p.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, p domain.Principal) error {
	if err := requireUser(p); err != nil {
		return err
	}
	return s.repo.MarkAllNotificationsRead(ctx, p.UserID)
}
