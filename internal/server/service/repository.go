package service

import (
	"context"

	"olh/internal/domain"
	"olh/internal/server/database"
	"olh/internal/server/push"
)

// MaterialRepository persists materials and their votes, favorites and reports.
type MaterialRepository interface {
	CreateMaterial(ctx context.Context, m *domain.Material) error
	GetMaterial(ctx context.Context, id string) (*domain.Material, error)
	GetMaterialByHash(ctx context.Context, hash string) (*domain.Material, error)
	ListMaterials(ctx context.Context, filter database.MaterialFilter) ([]*domain.Material, error)
	CountMaterials(ctx context.Context, filter database.MaterialFilter) (int64, error)
	UpdateVerificationStatus(ctx context.Context, id string, from, to domain.VerificationStatus) error
	IncrementViews(ctx context.Context, id string) (int64, error)
	AddVote(ctx context.Context, materialID string, vote domain.Vote) (int, error)
	ToggleFavorite(ctx context.Context, materialID, userID string) (bool, error)
	AddReport(ctx context.Context, materialID string, report domain.Report) error
	ClearReports(ctx context.Context, materialID string) error
	DeleteMaterial(ctx context.Context, id string) error
}

// RequestRepository persists material requests.
type RequestRepository interface {
	CreateRequest(ctx context.Context, req *domain.Request) error
	GetRequest(ctx context.Context, id string) (*domain.Request, error)
	ListRequests(ctx context.Context, filter database.RequestFilter) ([]*domain.Request, error)
	TransitionRequest(ctx context.Context, id string, status domain.RequestStatus, fulfilledBy *string) error
	DeleteRequest(ctx context.Context, id string) error
}

// NotificationRepository persists inbox entries.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, recipient string, limit int) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, recipient string) (int64, error)
	MarkNotificationRead(ctx context.Context, id, recipient string) error
	MarkAllNotificationsRead(ctx context.Context, recipient string) error
}

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUserRole(ctx context.Context, id string, role domain.Role) error
	DeleteUser(ctx context.Context, id string) error
	GetStats(ctx context.Context) (*database.Stats, error)
}

// Repository is everything the workflow services persist.
type Repository interface {
	MaterialRepository
	RequestRepository
	NotificationRepository
	UserRepository
}

// Notifier is the best-effort push capability. Notify never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, userID string, msg push.Message)
}

func requireUser(p domain.Principal) error {
	if p.UserID == "" {
		return newError(ErrUnauthenticated, "authentication required")
	}
	return nil
}

func requireModerator(p domain.Principal) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if !p.CanModerate() {
		return ErrModeratorOnly
	}
	return nil
}
