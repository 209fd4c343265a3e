package database

import (
	"errors"

	"olh/internal/domain"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrEmailTaken      = errors.New("email already exists")
	ErrDuplicateHash   = errors.New("file hash already exists")
	ErrAlreadyVoted    = errors.New("vote already recorded")
	ErrAlreadyReported = errors.New("report already recorded")
	ErrRequestNotOpen  = errors.New("request is not open")
	ErrStatusConflict  = errors.New("material status changed concurrently")
)

// MaterialFilter narrows material listings. Zero fields are ignored.
type MaterialFilter struct {
	Status         domain.VerificationStatus
	UploadedBy     string
	FavoritedBy    string
	Reported       bool
	Subject        string
	RegulationYear domain.RegulationYear
	MaterialType   domain.MaterialType
	Query          string // case-insensitive title substring
	Limit          int
}

// RequestFilter narrows request listings. Zero fields are ignored.
type RequestFilter struct {
	Status      domain.RequestStatus
	RequestedBy string
}

// Stats holds the moderation dashboard counters.
type Stats struct {
	TotalUsers        int64 `json:"totalUsers"`
	TotalMaterials    int64 `json:"totalMaterials"`
	PendingMaterials  int64 `json:"pendingMaterials"`
	ReportedMaterials int64 `json:"reportedMaterials"`
}
