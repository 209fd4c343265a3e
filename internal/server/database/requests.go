package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"olh/internal/domain"

	"github.com/jackc/pgx/v5"
)

const requestSelect = `
	SELECT q.id, q.subject, q.description, q.material_type, q.regulation_year,
		   q.requested_by, COALESCE(u.username, ''), q.status, q.fulfilled_by, q.created_at
	FROM requests q
	LEFT JOIN users u ON u.id = q.requested_by`

func scanRequest(row scanner) (*domain.Request, error) {
	req := &domain.Request{}
	var materialType, regulation, status string
	if err := row.Scan(
		&req.ID,
		&req.Subject,
		&req.Description,
		&materialType,
		&regulation,
		&req.RequestedBy,
		&req.RequesterName,
		&status,
		&req.FulfilledBy,
		&req.CreatedAt,
	); err != nil {
		return nil, err
	}
	req.MaterialType = domain.MaterialType(materialType)
	req.RegulationYear = domain.RegulationYear(regulation)
	req.Status = domain.RequestStatus(status)
	return req, nil
}

// CreateRequest inserts a new material request.
func (r *Repository) CreateRequest(ctx context.Context, req *domain.Request) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO requests (id, subject, description, material_type, regulation_year, requested_by, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		req.ID,
		req.Subject,
		req.Description,
		string(req.MaterialType),
		string(req.RegulationYear),
		req.RequestedBy,
		string(req.Status),
		req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// GetRequest retrieves a request by its ID.
func (r *Repository) GetRequest(ctx context.Context, id string) (*domain.Request, error) {
	req, err := scanRequest(r.db.Pool.QueryRow(ctx, requestSelect+` WHERE q.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// ListRequests returns requests matching the filter, newest first.
func (r *Repository) ListRequests(ctx context.Context, filter RequestFilter) ([]*domain.Request, error) {
	var clauses []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("q.status = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		clauses = append(clauses, fmt.Sprintf("q.requested_by = $%d", len(args)))
	}

	query := requestSelect
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY q.created_at DESC"

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	requests := []*domain.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// TransitionRequest moves an open request to status. fulfilledBy is stored
// when non-nil. Returns ErrRequestNotOpen if the request already left open.
func (r *Repository) TransitionRequest(ctx context.Context, id string, status domain.RequestStatus, fulfilledBy *string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE requests SET status = $2, fulfilled_by = COALESCE($3, fulfilled_by)
		WHERE id = $1 AND status = 'open'
	`, id, string(status), fulfilledBy)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM requests WHERE id = $1)", id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check request: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrRequestNotOpen
}

// DeleteRequest removes a request record.
func (r *Repository) DeleteRequest(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM requests WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
