package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"olh/internal/domain"
	"olh/internal/server/metrics"

	"github.com/google/uuid"
)

var (
	// ErrDelivery wraps every transport failure. It is logged, never returned
	// to workflow callers.
	ErrDelivery = errors.New("push delivery failed")

	// ErrTokenExpired means the transport no longer recognises the device
	// token and the subscription should be dropped.
	ErrTokenExpired = fmt.Errorf("%w: token no longer registered", ErrDelivery)
)

// Message is one push notification.
type Message struct {
	Title string
	Body  string
	URL   string
}

// Sender delivers a message to one device token.
type Sender interface {
	Send(ctx context.Context, token string, msg Message) error
}

// Subscriptions stores one device token per user.
type Subscriptions interface {
	GetPushSubscription(ctx context.Context, userID string) (*domain.PushSubscription, error)
	UpsertPushSubscription(ctx context.Context, sub *domain.PushSubscription) error
	DeletePushSubscription(ctx context.Context, userID string) error
}

// Dispatcher is the process-wide notification capability handed to the
// workflow services.
type Dispatcher struct {
	subs    Subscriptions
	sender  Sender
	timeout time.Duration
}

// NewDispatcher creates a Dispatcher. A zero timeout means no deadline
// beyond the caller's context.
func NewDispatcher(subs Subscriptions, sender Sender, timeout time.Duration) *Dispatcher {
	return &Dispatcher{subs: subs, sender: sender, timeout: timeout}
}

// Notify pushes msg to userID's device if they have subscribed. Failures are
// logged and swallowed; an unregistered token removes the subscription.
func (d *Dispatcher) Notify(ctx context.Context, userID string, msg Message) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	sub, err := d.subs.GetPushSubscription(ctx, userID)
	if err != nil {
		metrics.PushDeliveries.WithLabelValues("failed").Inc()
		slog.Error("failed to load push subscription", "user_id", userID, "error", err)
		return
	}
	if sub == nil {
		metrics.PushDeliveries.WithLabelValues("no_subscription").Inc()
		slog.Debug("no push subscription", "user_id", userID)
		return
	}

	err = d.sender.Send(ctx, sub.Token, msg)
	switch {
	case err == nil:
		metrics.PushDeliveries.WithLabelValues("sent").Inc()
		slog.Info("push sent", "user_id", userID, "title", msg.Title)
	case errors.Is(err, ErrTokenExpired):
		metrics.PushDeliveries.WithLabelValues("expired").Inc()
		slog.Warn("push token expired, removing subscription", "user_id", userID)
		if err := d.subs.DeletePushSubscription(ctx, userID); err != nil {
			slog.Error("failed to remove push subscription", "user_id", userID, "error", err)
		}
	default:
		metrics.PushDeliveries.WithLabelValues("failed").Inc()
		slog.Error("push failed", "user_id", userID, "error", err)
	}
}

// Subscribe stores token as userID's device, replacing any previous one.
func (d *Dispatcher) Subscribe(ctx context.Context, userID, token string) (*domain.PushSubscription, error) {
	sub := &domain.PushSubscription{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		UpdatedAt: time.Now().UTC(),
	}
	if err := d.subs.UpsertPushSubscription(ctx, sub); err != nil {
		return nil, err
	}
	slog.Info("push subscription saved", "user_id", userID)
	return sub, nil
}

// Unsubscribe removes userID's device token.
func (d *Dispatcher) Unsubscribe(ctx context.Context, userID string) error {
	return d.subs.DeletePushSubscription(ctx, userID)
}

// LogSender records messages in the log instead of delivering them. It is
// used when no push transport is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, token string, msg Message) error {
	slog.Info("push transport disabled, message dropped",
		"title", msg.Title,
		"body", msg.Body,
		"url", msg.URL,
		"token_len", len(token),
	)
	return nil
}
