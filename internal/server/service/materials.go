package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"olh/internal/domain"
	"olh/internal/server/config"
	"olh/internal/server/database"
	"olh/internal/server/metrics"
	"olh/internal/server/push"
	"olh/internal/server/storage"

	"github.com/google/uuid"
)

const defaultDescription = "No description provided"

// UploadInput is the metadata and content of one upload.
type UploadInput struct {
	Title          string
	Subject        string
	Description    string
	Source         string
	RegulationYear string
	MaterialType   string
	LinkedRequest  string

	Filename string
	Size     int64 // declared size, or -1 when unknown
	File     io.Reader
}

// BrowseFilter narrows the public material listing.
type BrowseFilter struct {
	Subject        string
	RegulationYear string
	MaterialType   string
	Query          string
}

// Download is an opened material blob ready to be streamed.
type Download struct {
	Content     io.ReadCloser
	Filename    string
	ContentType string
	Size        int64
}

// MaterialService owns the material lifecycle: upload with deduplication,
// browsing, voting, favorites, reports and deletion.
type MaterialService struct {
	repo        Repository
	store       storage.Store
	notifier    Notifier
	maxFileSize int64
	baseURL     string
}

// NewMaterialService creates a new material service.
func NewMaterialService(repo Repository, store storage.Store, notifier Notifier, cfg *config.Config) *MaterialService {
	return &MaterialService{
		repo:        repo,
		store:       store,
		notifier:    notifier,
		maxFileSize: cfg.MaxFileSize,
		baseURL:     cfg.BaseURL,
	}
}

// Upload validates and stores a new material. The content hash is computed
// while streaming to storage; a byte-identical file already in the corpus is
// rejected with ErrDuplicateFile and its blob removed.
func (s *MaterialService) Upload(ctx context.Context, p domain.Principal, in UploadInput) (*domain.Material, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}

	// 1. Validate the file envelope
	if in.File == nil {
		return nil, ErrNoFile
	}
	filename := sanitizeFilename(in.Filename)
	if !domain.IsAllowedFile(filename) {
		metrics.UploadsTotal.WithLabelValues("rejected_input").Inc()
		return nil, ErrUnsupportedFile
	}
	if in.Size > s.maxFileSize {
		metrics.UploadsTotal.WithLabelValues("rejected_input").Inc()
		return nil, ErrFileTooLarge
	}

	// 2. Validate metadata
	material, err := s.newMaterial(p, in)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected_input").Inc()
		return nil, err
	}

	// 3. Validate the linked request before writing anything
	var linked *domain.Request
	if id := strings.TrimSpace(in.LinkedRequest); id != "" {
		linked, err = s.repo.GetRequest(ctx, id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, ErrRequestNotFound
			}
			return nil, err
		}
		if linked.Status != domain.RequestOpen {
			return nil, ErrRequestNotOpen
		}
		if linked.RequestedBy == p.UserID {
			return nil, ErrOwnRequest
		}
		material.LinkedRequest = &linked.ID
	}

	// 4. Check the content matches the extension
	ext := domain.Extension(filename)
	contentType, content, err := sniff(in.File, ext)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			metrics.UploadsTotal.WithLabelValues("rejected_input").Inc()
			return nil, err
		}
		return nil, fmt.Errorf("failed to read upload data: %w", err)
	}

	// 5. Stream to storage while hashing
	key := material.ID + ext
	hasher := sha256.New()
	limited := io.LimitReader(content, s.maxFileSize+1)
	size, err := s.store.Save(ctx, key, io.TeeReader(limited, hasher))
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	if size > s.maxFileSize {
		s.deleteBlob(ctx, key)
		metrics.UploadsTotal.WithLabelValues("rejected_input").Inc()
		return nil, ErrFileTooLarge
	}
	fileHash := hex.EncodeToString(hasher.Sum(nil))

	// 6. Reject byte-identical duplicates
	existing, err := s.repo.GetMaterialByHash(ctx, fileHash)
	if err != nil {
		s.deleteBlob(ctx, key)
		return nil, err
	}
	if existing != nil {
		s.deleteBlob(ctx, key)
		metrics.UploadsTotal.WithLabelValues("duplicate").Inc()
		slog.Info("duplicate upload rejected",
			"existing_material", existing.ID,
			"user_id", p.UserID,
			"hash", fileHash,
		)
		return nil, ErrDuplicateFile
	}

	// 7. Persist
	material.FileHash = fileHash
	material.FileKey = key
	material.OriginalFilename = filename
	material.ContentType = contentType
	material.SizeBytes = size

	if err := s.repo.CreateMaterial(ctx, material); err != nil {
		s.deleteBlob(ctx, key)
		if errors.Is(err, database.ErrDuplicateHash) {
			// Lost a race with a concurrent upload of the same bytes
			metrics.UploadsTotal.WithLabelValues("duplicate").Inc()
			return nil, ErrDuplicateFile
		}
		return nil, fmt.Errorf("failed to create material record: %w", err)
	}

	metrics.UploadsTotal.WithLabelValues(string(material.VerificationStatus)).Inc()
	slog.Info("material uploaded",
		"material_id", material.ID,
		"user_id", p.UserID,
		"status", material.VerificationStatus,
		"size", size,
		"hash", fileHash,
	)

	// 8. Fulfill the linked request
	if linked != nil {
		s.fulfillLinked(ctx, linked, material.ID)
	}

	return material, nil
}

func (s *MaterialService) newMaterial(p domain.Principal, in UploadInput) (*domain.Material, error) {
	title := strings.TrimSpace(in.Title)
	if err := requireField("title", title); err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(in.Subject)
	if err := requireField("subject", subject); err != nil {
		return nil, err
	}
	regulation, err := domain.ParseRegulationYear(strings.TrimSpace(in.RegulationYear))
	if err != nil {
		return nil, validationf("%v", err)
	}
	source, err := domain.ParseSource(strings.TrimSpace(in.Source))
	if err != nil {
		return nil, validationf("%v", err)
	}
	materialType, err := domain.ParseMaterialType(strings.TrimSpace(in.MaterialType))
	if err != nil {
		return nil, validationf("%v", err)
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = defaultDescription
	}

	// Moderators' uploads skip the queue
	status := domain.StatusPending
	if p.CanModerate() {
		status = domain.StatusApproved
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	return &domain.Material{
		ID:                 id,
		Title:              title,
		Subject:            subject,
		Description:        description,
		Source:             source,
		RegulationYear:     regulation,
		MaterialType:       materialType,
		FileURL:            fmt.Sprintf("%s/api/materials/%s/download", s.baseURL, id),
		UploadedBy:         p.UserID,
		VerificationStatus: status,
		Votes:              []domain.Vote{},
		Favorites:          []string{},
		Reports:            []domain.Report{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// fulfillLinked marks the request fulfilled and pushes to its owner. The
// material is already stored, so failures here are logged only.
func (s *MaterialService) fulfillLinked(ctx context.Context, req *domain.Request, materialID string) {
	if err := s.repo.TransitionRequest(ctx, req.ID, domain.RequestFulfilled, &materialID); err != nil {
		slog.Warn("failed to fulfill linked request",
			"request_id", req.ID,
			"material_id", materialID,
			"error", err,
		)
		return
	}
	slog.Info("request fulfilled", "request_id", req.ID, "material_id", materialID)

	s.notifier.Notify(ctx, req.RequestedBy, push.Message{
		Title: "Request Fulfilled!",
		Body:  fmt.Sprintf("Your request %q has been fulfilled", req.Subject),
		URL:   "/",
	})
}

// List returns approved materials, newest first.
func (s *MaterialService) List(ctx context.Context, f BrowseFilter) ([]*domain.Material, error) {
	filter := database.MaterialFilter{
		Status:         domain.StatusApproved,
		Subject:        strings.TrimSpace(f.Subject),
		RegulationYear: domain.RegulationYear(strings.TrimSpace(f.RegulationYear)),
		MaterialType:   domain.MaterialType(strings.TrimSpace(f.MaterialType)),
		Query:          f.Query,
	}
	return s.repo.ListMaterials(ctx, filter)
}

// Get returns a material. Materials awaiting moderation are visible only to
// their uploader and to moderators.
func (s *MaterialService) Get(ctx context.Context, viewer domain.Principal, id string) (*domain.Material, error) {
	m, err := s.getMaterial(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.VerificationStatus != domain.StatusApproved && !m.OwnedBy(viewer.UserID) && !viewer.CanModerate() {
		return nil, ErrMaterialNotFound
	}
	return m, nil
}

// Mine returns every material the caller uploaded, in any state.
func (s *MaterialService) Mine(ctx context.Context, p domain.Principal) ([]*domain.Material, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return s.repo.ListMaterials(ctx, database.MaterialFilter{UploadedBy: p.UserID})
}

// Favorites returns the materials the caller has favorited.
func (s *MaterialService) Favorites(ctx context.Context, p domain.Principal) ([]*domain.Material, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return s.repo.ListMaterials(ctx, database.MaterialFilter{FavoritedBy: p.UserID})
}

// RecordView increments the view counter and returns the new count.
func (s *MaterialService) RecordView(ctx context.Context, id string) (int64, error) {
	views, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return 0, ErrMaterialNotFound
		}
		return 0, err
	}
	return views, nil
}

// Download opens the stored file of a material.
func (s *MaterialService) Download(ctx context.Context, id string) (*Download, error) {
	m, err := s.getMaterial(ctx, id)
	if err != nil {
		return nil, err
	}

	rc, err := s.store.Open(ctx, m.FileKey)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			slog.Error("material blob missing", "material_id", id, "key", m.FileKey)
			return nil, ErrMaterialNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return &Download{
		Content:     rc,
		Filename:    DownloadFilename(m),
		ContentType: m.ContentType,
		Size:        m.SizeBytes,
	}, nil
}

var whitespace = regexp.MustCompile(`\s+`)

// DownloadFilename is the attachment name offered to browsers.
func DownloadFilename(m *domain.Material) string {
	ext := domain.Extension(m.OriginalFilename)
	if ext == "" {
		ext = domain.Extension(m.FileKey)
	}
	return "from_OLH_2_0_" + whitespace.ReplaceAllString(m.Title, "_") + ext
}

// Vote records the caller's one vote on a material and returns the updated
// material. Uploaders cannot vote on their own material.
func (s *MaterialService) Vote(ctx context.Context, p domain.Principal, id, voteType string) (*domain.Material, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	vt, err := domain.ParseVoteType(voteType)
	if err != nil {
		return nil, validationf("%v", err)
	}

	m, err := s.getMaterial(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OwnedBy(p.UserID) {
		return nil, ErrOwnVote
	}

	score, err := s.repo.AddVote(ctx, id, domain.Vote{UserID: p.UserID, VoteType: vt})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrAlreadyVoted):
			return nil, ErrAlreadyVoted
		case errors.Is(err, database.ErrNotFound):
			return nil, ErrMaterialNotFound
		}
		return nil, err
	}
	slog.Info("vote recorded", "material_id", id, "user_id", p.UserID, "vote", vt, "trust_score", score)

	return s.getMaterial(ctx, id)
}

// ToggleFavorite adds or removes the material from the caller's favorites.
func (s *MaterialService) ToggleFavorite(ctx context.Context, p domain.Principal, id string) (*domain.Material, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if _, err := s.repo.ToggleFavorite(ctx, id, p.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrMaterialNotFound
		}
		return nil, err
	}
	return s.getMaterial(ctx, id)
}

// Report files the caller's one report against a material.
func (s *MaterialService) Report(ctx context.Context, p domain.Principal, id, reason string) error {
	if err := requireUser(p); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validationf("reason is required")
	}

	err := s.repo.AddReport(ctx, id, domain.Report{
		ReportedBy: p.UserID,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, database.ErrAlreadyReported):
			return ErrAlreadyReported
		case errors.Is(err, database.ErrNotFound):
			return ErrMaterialNotFound
		}
		return err
	}
	slog.Info("material reported", "material_id", id, "user_id", p.UserID)
	return nil
}

// Delete removes a material and its file. Only the uploader or a moderator
// may delete. No notification is sent.
func (s *MaterialService) Delete(ctx context.Context, p domain.Principal, id string) error {
	if err := requireUser(p); err != nil {
		return err
	}
	m, err := s.getMaterial(ctx, id)
	if err != nil {
		return err
	}
	if !m.OwnedBy(p.UserID) && !p.CanModerate() {
		return ErrNotOwner
	}

	if err := s.destroy(ctx, m); err != nil {
		return err
	}
	slog.Info("material deleted", "material_id", id, "user_id", p.UserID)
	return nil
}

// destroy removes the blob (best effort) and then the record.
func (s *MaterialService) destroy(ctx context.Context, m *domain.Material) error {
	s.deleteBlob(ctx, m.FileKey)
	if err := s.repo.DeleteMaterial(ctx, m.ID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrMaterialNotFound
		}
		return fmt.Errorf("failed to delete material record: %w", err)
	}
	return nil
}

func (s *MaterialService) getMaterial(ctx context.Context, id string) (*domain.Material, error) {
	m, err := s.repo.GetMaterial(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrMaterialNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *MaterialService) deleteBlob(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		slog.Error("failed to delete file from storage", "key", key, "error", err)
	}
}

// sanitizeFilename strips directory components and limits length.
func sanitizeFilename(name string) string {
	// Normalize Windows-style backslashes to forward slashes before
	// calling filepath.Base, which is platform-specific.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	if len(name) > 255 {
		ext := filepath.Ext(name)
		name = name[:255-len(ext)] + ext
	}

	if name == "" || name == "." || name == "/" {
		return ""
	}
	return name
}
