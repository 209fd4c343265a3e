package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"olh/internal/domain"
	"olh/internal/server/database"
	"olh/internal/server/metrics"
	"olh/internal/server/push"

	"github.com/google/uuid"
)

const defaultRejectionReason = "No reason provided"

// ModerationService implements the moderator side of the material
// lifecycle: approve, reject, clear reports and the review queues.
type ModerationService struct {
	repo      Repository
	materials *MaterialService
	notifier  Notifier
}

// NewModerationService creates a new moderation service. Rejection reuses
// the material service's destroy path.
func NewModerationService(repo Repository, materials *MaterialService, notifier Notifier) *ModerationService {
	return &ModerationService{repo: repo, materials: materials, notifier: notifier}
}

// Approve moves a pending material to approved, records an inbox entry for
// the uploader and pushes to them. Approving an already approved material
// is a no-op and sends nothing.
func (s *ModerationService) Approve(ctx context.Context, p domain.Principal, id string) (*domain.Material, error) {
	if err := requireModerator(p); err != nil {
		return nil, err
	}

	err := s.repo.UpdateVerificationStatus(ctx, id, domain.StatusPending, domain.StatusApproved)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return nil, ErrMaterialNotFound
	case errors.Is(err, database.ErrStatusConflict):
		m, err := s.materials.getMaterial(ctx, id)
		if err != nil {
			return nil, err
		}
		if m.VerificationStatus == domain.StatusApproved {
			return m, nil
		}
		return nil, validationf("material is %s", m.VerificationStatus)
	case err != nil:
		return nil, err
	}

	m, err := s.materials.getMaterial(ctx, id)
	if err != nil {
		return nil, err
	}

	// The status flip is already committed, so a failed inbox write must not
	// fail the approval or suppress the push.
	if err := s.record(ctx, m, p, domain.NotificationApproved, ""); err != nil {
		slog.Error("failed to record approval notification", "material_id", id, "error", err)
	}
	s.notifier.Notify(ctx, m.UploadedBy, push.Message{
		Title: "Material Approved!",
		Body:  fmt.Sprintf("Your material %q has been approved", m.Title),
		URL:   "/",
	})

	metrics.ModerationActions.WithLabelValues("approve").Inc()
	slog.Info("material approved", "material_id", id, "moderator_id", p.UserID)
	return m, nil
}

// Reject notifies the uploader and then destroys the material and its file.
func (s *ModerationService) Reject(ctx context.Context, p domain.Principal, id, reason string) error {
	if err := requireModerator(p); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultRejectionReason
	}

	m, err := s.materials.getMaterial(ctx, id)
	if err != nil {
		return err
	}
	m.VerificationStatus = domain.StatusRejected
	m.RejectionReason = reason

	if err := s.record(ctx, m, p, domain.NotificationRejected, reason); err != nil {
		return err
	}
	s.notifier.Notify(ctx, m.UploadedBy, push.Message{
		Title: "Material Rejected",
		Body:  fmt.Sprintf("Your material %q has been rejected. Reason: %s", m.Title, reason),
		URL:   "/",
	})

	if err := s.materials.destroy(ctx, m); err != nil {
		return err
	}

	metrics.ModerationActions.WithLabelValues("reject").Inc()
	slog.Info("material rejected", "material_id", id, "moderator_id", p.UserID, "reason", reason)
	return nil
}

// IgnoreReports clears every report on a material and returns it.
func (s *ModerationService) IgnoreReports(ctx context.Context, p domain.Principal, id string) (*domain.Material, error) {
	if err := requireModerator(p); err != nil {
		return nil, err
	}
	if _, err := s.materials.getMaterial(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.ClearReports(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to clear reports: %w", err)
	}

	metrics.ModerationActions.WithLabelValues("ignore_reports").Inc()
	slog.Info("reports cleared", "material_id", id, "moderator_id", p.UserID)
	return s.materials.getMaterial(ctx, id)
}

// Pending lists materials awaiting review, newest first.
func (s *ModerationService) Pending(ctx context.Context, p domain.Principal) ([]*domain.Material, error) {
	if err := requireModerator(p); err != nil {
		return nil, err
	}
	return s.repo.ListMaterials(ctx, database.MaterialFilter{Status: domain.StatusPending})
}

// Reported lists materials with at least one report, most recently reported first.
func (s *ModerationService) Reported(ctx context.Context, p domain.Principal) ([]*domain.Material, error) {
	if err := requireModerator(p); err != nil {
		return nil, err
	}
	return s.repo.ListMaterials(ctx, database.MaterialFilter{Reported: true})
}

// Stats returns the dashboard counters.
func (s *ModerationService) Stats(ctx context.Context, p domain.Principal) (*database.Stats, error) {
	if err := requireModerator(p); err != nil {
		return nil, err
	}
	return s.repo.GetStats(ctx)
}

func (s *ModerationService) record(ctx context.Context, m *domain.Material, p domain.Principal, typ domain.NotificationType, reason string) error {
	n := &domain.Notification{
		ID:            uuid.New().String(),
		Recipient:     m.UploadedBy,
		Type:          typ,
		MaterialID:    m.ID,
		MaterialTitle: m.Title,
		ActionBy:      p.UserID,
		Reason:        reason,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}
