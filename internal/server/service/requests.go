package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"olh/internal/domain"
	"olh/internal/server/database"

	"github.com/google/uuid"
)

// RequestInput describes a material a member is asking for.
type RequestInput struct {
	Subject        string
	Description    string
	MaterialType   string
	RegulationYear string
}

// RequestService manages material requests: open -> fulfilled | closed.
type RequestService struct {
	repo Repository
}

// NewRequestService creates a new request service.
func NewRequestService(repo Repository) *RequestService {
	return &RequestService{repo: repo}
}

// Create opens a new request owned by the caller.
func (s *RequestService) Create(ctx context.Context, p domain.Principal, in RequestInput) (*domain.Request, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(in.Subject)
	if err := requireField("subject", subject); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, validationf("description is required")
	}
	regulation, err := domain.ParseRequestRegulationYear(strings.TrimSpace(in.RegulationYear))
	if err != nil {
		return nil, validationf("%v", err)
	}
	materialType, err := domain.ParseMaterialType(strings.TrimSpace(in.MaterialType))
	if err != nil {
		return nil, validationf("%v", err)
	}

	req := &domain.Request{
		ID:             uuid.New().String(),
		Subject:        subject,
		Description:    description,
		MaterialType:   materialType,
		RegulationYear: regulation,
		RequestedBy:    p.UserID,
		Status:         domain.RequestOpen,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	slog.Info("request created", "request_id", req.ID, "user_id", p.UserID)
	return s.get(ctx, req.ID)
}

// ListOpen returns open requests, newest first.
func (s *RequestService) ListOpen(ctx context.Context) ([]*domain.Request, error) {
	return s.repo.ListRequests(ctx, database.RequestFilter{Status: domain.RequestOpen})
}

// Mine returns the caller's requests in any state.
func (s *RequestService) Mine(ctx context.Context, p domain.Principal) ([]*domain.Request, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return s.repo.ListRequests(ctx, database.RequestFilter{RequestedBy: p.UserID})
}

// Fulfill links an existing material to an open request.
func (s *RequestService) Fulfill(ctx context.Context, p domain.Principal, id, materialID string) (*domain.Request, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequestedBy == p.UserID {
		return nil, ErrOwnRequest
	}
	if strings.TrimSpace(materialID) == "" {
		return nil, validationf("materialId is required")
	}
	if _, err := s.repo.GetMaterial(ctx, materialID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrMaterialNotFound
		}
		return nil, err
	}

	if err := s.transition(ctx, id, domain.RequestFulfilled, &materialID); err != nil {
		return nil, err
	}
	slog.Info("request fulfilled", "request_id", id, "material_id", materialID, "user_id", p.UserID)
	return s.get(ctx, id)
}

// Close lets the owner withdraw an open request.
func (s *RequestService) Close(ctx context.Context, p domain.Principal, id string) (*domain.Request, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	req, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.RequestedBy != p.UserID {
		return nil, ErrNotOwner
	}

	if err := s.transition(ctx, id, domain.RequestClosed, nil); err != nil {
		return nil, err
	}
	slog.Info("request closed", "request_id", id, "user_id", p.UserID)
	return s.get(ctx, id)
}

// Delete removes a request. Owner or moderator only.
func (s *RequestService) Delete(ctx context.Context, p domain.Principal, id string) error {
	if err := requireUser(p); err != nil {
		return err
	}
	req, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if req.RequestedBy != p.UserID && !p.CanModerate() {
		return ErrNotOwner
	}

	if err := s.repo.DeleteRequest(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	slog.Info("request deleted", "request_id", id, "user_id", p.UserID)
	return nil
}

func (s *RequestService) transition(ctx context.Context, id string, to domain.RequestStatus, fulfilledBy *string) error {
	err := s.repo.TransitionRequest(ctx, id, to, fulfilledBy)
	switch {
	case errors.Is(err, database.ErrRequestNotOpen):
		return ErrRequestNotOpen
	case errors.Is(err, database.ErrNotFound):
		return ErrRequestNotFound
	}
	return err
}

func (s *RequestService) get(ctx context.Context, id string) (*domain.Request, error) {
	req, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}
