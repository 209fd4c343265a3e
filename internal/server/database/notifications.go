package database

import (
	"context"
	"errors"
	"fmt"

	"olh/internal/domain"

	"github.com/jackc/pgx/v5"
)

// CreateNotification inserts an inbox entry.
func (r *Repository) CreateNotification(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO notifications (id, recipient, type, material_id, material_title, action_by, reason, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		n.ID,
		n.Recipient,
		string(n.Type),
		n.MaterialID,
		n.MaterialTitle,
		n.ActionBy,
		n.Reason,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListNotifications returns the newest notifications for recipient.
func (r *Repository) ListNotifications(ctx context.Context, recipient string, limit int) ([]*domain.Notification, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT n.id, n.recipient, n.type, n.material_id, n.material_title, n.action_by,
			   COALESCE(u.username, ''), n.reason, n.read, n.created_at
		FROM notifications n
		LEFT JOIN users u ON u.id = n.action_by
		WHERE n.recipient = $1
		ORDER BY n.created_at DESC
		LIMIT $2
	`, recipient, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*domain.Notification{}
	for rows.Next() {
		n := &domain.Notification{}
		var typ string
		if err := rows.Scan(
			&n.ID,
			&n.Recipient,
			&typ,
			&n.MaterialID,
			&n.MaterialTitle,
			&n.ActionBy,
			&n.ActionByName,
			&n.Reason,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = domain.NotificationType(typ)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// CountUnread counts unread notifications for recipient.
func (r *Repository) CountUnread(ctx context.Context, recipient string) (int64, error) {
	var n int64
	err := r.db.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM notifications WHERE recipient = $1 AND NOT read", recipient,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread: %w", err)
	}
	return n, nil
}

// MarkNotificationRead marks one of recipient's notifications as read.
func (r *Repository) MarkNotificationRead(ctx context.Context, id, recipient string) error {
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient = $2", id, recipient)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks every notification of recipient as read.
func (r *Repository) MarkAllNotificationsRead(ctx context.Context, recipient string) error {
	if _, err := r.db.Pool.Exec(ctx,
		"UPDATE notifications SET read = TRUE WHERE recipient = $1 AND NOT read", recipient,
	); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

// --- Push subscriptions ---

// UpsertPushSubscription stores the device token for a user, replacing any
// previous token.
func (r *Repository) UpsertPushSubscription(ctx context.Context, sub *domain.PushSubscription) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO push_subscriptions (id, user_id, token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`, sub.ID, sub.UserID, sub.Token, sub.UpdatedAt).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert push subscription: %w", err)
	}
	return nil
}

// GetPushSubscription returns the subscription of userID, or nil if none.
func (r *Repository) GetPushSubscription(ctx context.Context, userID string) (*domain.PushSubscription, error) {
	sub := &domain.PushSubscription{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, token, created_at, updated_at
		FROM push_subscriptions WHERE user_id = $1
	`, userID).Scan(&sub.ID, &sub.UserID, &sub.Token, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get push subscription: %w", err)
	}
	return sub, nil
}

// DeletePushSubscription removes the subscription of userID, if any.
func (r *Repository) DeletePushSubscription(ctx context.Context, userID string) error {
	if _, err := r.db.Pool.Exec(ctx, "DELETE FROM push_subscriptions WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}
