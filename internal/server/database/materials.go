package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"olh/internal/domain"

	"github.com/jackc/pgx/v5"
)

const materialSelect = `
	SELECT m.id, m.title, m.subject, m.description, m.source, m.regulation_year,
		   m.material_type, m.file_hash, m.file_key, m.file_url, m.original_filename,
		   m.content_type, m.size_bytes, m.uploaded_by, COALESCE(u.username, ''),
		   m.verification_status, m.rejection_reason, m.views, m.trust_score,
		   m.linked_request, m.created_at, m.updated_at
	FROM materials m
	LEFT JOIN users u ON u.id = m.uploaded_by`

func scanMaterial(row scanner) (*domain.Material, error) {
	m := &domain.Material{}
	var source, regulation, materialType, status string
	if err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Subject,
		&m.Description,
		&source,
		&regulation,
		&materialType,
		&m.FileHash,
		&m.FileKey,
		&m.FileURL,
		&m.OriginalFilename,
		&m.ContentType,
		&m.SizeBytes,
		&m.UploadedBy,
		&m.UploaderName,
		&status,
		&m.RejectionReason,
		&m.Views,
		&m.TrustScore,
		&m.LinkedRequest,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.Source = domain.Source(source)
	m.RegulationYear = domain.RegulationYear(regulation)
	m.MaterialType = domain.MaterialType(materialType)
	m.VerificationStatus = domain.VerificationStatus(status)
	m.Votes = []domain.Vote{}
	m.Favorites = []string{}
	m.Reports = []domain.Report{}
	return m, nil
}

// CreateMaterial inserts a new material. Returns ErrDuplicateHash when the
// file hash is already present.
func (r *Repository) CreateMaterial(ctx context.Context, m *domain.Material) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO materials (
			id, title, subject, description, source, regulation_year, material_type,
			file_hash, file_key, file_url, original_filename, content_type, size_bytes,
			uploaded_by, verification_status, linked_request, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		m.ID,
		m.Title,
		m.Subject,
		m.Description,
		string(m.Source),
		string(m.RegulationYear),
		string(m.MaterialType),
		m.FileHash,
		m.FileKey,
		m.FileURL,
		m.OriginalFilename,
		m.ContentType,
		m.SizeBytes,
		m.UploadedBy,
		string(m.VerificationStatus),
		m.LinkedRequest,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrDuplicateHash
		}
		return fmt.Errorf("failed to create material: %w", err)
	}
	return nil
}

// GetMaterial retrieves a material with its votes, favorites and reports.
func (r *Repository) GetMaterial(ctx context.Context, id string) (*domain.Material, error) {
	m, err := scanMaterial(r.db.Pool.QueryRow(ctx, materialSelect+` WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get material: %w", err)
	}
	if err := r.loadChildren(ctx, []*domain.Material{m}); err != nil {
		return nil, err
	}
	return m, nil
}

// GetMaterialByHash finds the material holding a file hash (for deduplication checks).
func (r *Repository) GetMaterialByHash(ctx context.Context, hash string) (*domain.Material, error) {
	m, err := scanMaterial(r.db.Pool.QueryRow(ctx, materialSelect+` WHERE m.file_hash = $1`, hash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // No duplicate found (not an error)
		}
		return nil, fmt.Errorf("failed to query by hash: %w", err)
	}
	return m, nil
}

// FileKeyExists reports whether any material references the blob key.
func (r *Repository) FileKeyExists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM materials WHERE file_key = $1)", key,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check file key: %w", err)
	}
	return exists, nil
}

func (f MaterialFilter) where() (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Status != "" {
		add("m.verification_status = $%d", string(f.Status))
	}
	if f.UploadedBy != "" {
		add("m.uploaded_by = $%d", f.UploadedBy)
	}
	if f.FavoritedBy != "" {
		add("EXISTS (SELECT 1 FROM material_favorites f WHERE f.material_id = m.id AND f.user_id = $%d)", f.FavoritedBy)
	}
	if f.Reported {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM material_reports r WHERE r.material_id = m.id)")
	}
	if f.Subject != "" {
		add("m.subject = $%d", f.Subject)
	}
	if f.RegulationYear != "" {
		add("m.regulation_year = $%d", string(f.RegulationYear))
	}
	if f.MaterialType != "" {
		add("m.material_type = $%d", string(f.MaterialType))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("m.title ILIKE $%d", "%"+escapeLike(q)+"%")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListMaterials returns materials matching the filter with their children
// loaded. Reported listings are ordered by most recent report.
func (r *Repository) ListMaterials(ctx context.Context, filter MaterialFilter) ([]*domain.Material, error) {
	where, args := filter.where()
	query := materialSelect + where
	if filter.Reported {
		query += ` ORDER BY (SELECT MAX(r.created_at) FROM material_reports r WHERE r.material_id = m.id) DESC`
	} else {
		query += ` ORDER BY m.created_at DESC`
	}
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query materials: %w", err)
	}
	defer rows.Close()

	materials := []*domain.Material{}
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, materials); err != nil {
		return nil, err
	}
	return materials, nil
}

// CountMaterials counts materials matching the filter.
func (r *Repository) CountMaterials(ctx context.Context, filter MaterialFilter) (int64, error) {
	where, args := filter.where()
	var n int64
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM materials m`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count materials: %w", err)
	}
	return n, nil
}

// loadChildren fills votes, favorites and reports for a batch of materials.
func (r *Repository) loadChildren(ctx context.Context, materials []*domain.Material) error {
	if len(materials) == 0 {
		return nil
	}
	byID := make(map[string]*domain.Material, len(materials))
	ids := make([]string, 0, len(materials))
	for _, m := range materials {
		byID[m.ID] = m
		ids = append(ids, m.ID)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT material_id, user_id, vote_type FROM material_votes
		WHERE material_id = ANY($1) ORDER BY created_at
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query votes: %w", err)
	}
	for rows.Next() {
		var materialID, userID, voteType string
		if err := rows.Scan(&materialID, &userID, &voteType); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan vote: %w", err)
		}
		m := byID[materialID]
		m.Votes = append(m.Votes, domain.Vote{UserID: userID, VoteType: domain.VoteType(voteType)})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.Pool.Query(ctx, `
		SELECT material_id, user_id FROM material_favorites
		WHERE material_id = ANY($1) ORDER BY created_at
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query favorites: %w", err)
	}
	for rows.Next() {
		var materialID, userID string
		if err := rows.Scan(&materialID, &userID); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan favorite: %w", err)
		}
		byID[materialID].Favorites = append(byID[materialID].Favorites, userID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = r.db.Pool.Query(ctx, `
		SELECT material_id, reported_by, reason, created_at FROM material_reports
		WHERE material_id = ANY($1) ORDER BY created_at
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var materialID string
		var rep domain.Report
		if err := rows.Scan(&materialID, &rep.ReportedBy, &rep.Reason, &rep.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan report: %w", err)
		}
		byID[materialID].Reports = append(byID[materialID].Reports, rep)
	}
	return rows.Err()
}

// UpdateVerificationStatus moves a material from one status to another.
// Returns ErrStatusConflict when the current status is not from.
func (r *Repository) UpdateVerificationStatus(ctx context.Context, id string, from, to domain.VerificationStatus) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE materials SET verification_status = $3, updated_at = NOW()
		WHERE id = $1 AND verification_status = $2
	`, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

func (r *Repository) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM materials WHERE id = $1)", id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check material: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStatusConflict
}

// IncrementViews atomically increments the view counter.
func (r *Repository) IncrementViews(ctx context.Context, id string) (int64, error) {
	var views int64
	err := r.db.Pool.QueryRow(ctx,
		"UPDATE materials SET views = views + 1 WHERE id = $1 RETURNING views", id,
	).Scan(&views)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment views: %w", err)
	}
	return views, nil
}

// AddVote records a vote and recomputes the trust score over all votes in
// one transaction. Returns ErrAlreadyVoted if the user has voted before.
func (r *Repository) AddVote(ctx context.Context, materialID string, vote domain.Vote) (int, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin vote transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO material_votes (material_id, user_id, vote_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (material_id, user_id) DO NOTHING
	`, materialID, vote.UserID, string(vote.VoteType))
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to insert vote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrAlreadyVoted
	}

	var score int
	err = tx.QueryRow(ctx, `
		UPDATE materials SET trust_score = (
			SELECT COALESCE(SUM(CASE WHEN vote_type = 'upvote' THEN 1 ELSE -1 END), 0)
			FROM material_votes WHERE material_id = $1
		), updated_at = NOW()
		WHERE id = $1
		RETURNING trust_score
	`, materialID).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("failed to update trust score: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit vote: %w", err)
	}
	return score, nil
}

// ToggleFavorite adds or removes userID from the material's favorites and
// reports whether the material is now favorited.
func (r *Repository) ToggleFavorite(ctx context.Context, materialID, userID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		"DELETE FROM material_favorites WHERE material_id = $1 AND user_id = $2", materialID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO material_favorites (material_id, user_id) VALUES ($1, $2)
		ON CONFLICT (material_id, user_id) DO NOTHING
	`, materialID, userID)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}
	return true, nil
}

// AddReport appends a report. Returns ErrAlreadyReported if the user has
// already reported this material.
func (r *Repository) AddReport(ctx context.Context, materialID string, report domain.Report) error {
	tag, err := r.db.Pool.Exec(ctx, `
		INSERT INTO material_reports (material_id, reported_by, reason, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (material_id, reported_by) DO NOTHING
	`, materialID, report.ReportedBy, report.Reason, report.CreatedAt)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to insert report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyReported
	}
	return nil
}

// ClearReports removes every report on a material.
func (r *Repository) ClearReports(ctx context.Context, materialID string) error {
	if _, err := r.db.Pool.Exec(ctx, "DELETE FROM material_reports WHERE material_id = $1", materialID); err != nil {
		return fmt.Errorf("failed to clear reports: %w", err)
	}
	return nil
}

// DeleteMaterial removes a material record and, by cascade, its votes,
// favorites and reports.
func (r *Repository) DeleteMaterial(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM materials WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
