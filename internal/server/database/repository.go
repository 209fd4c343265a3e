package database

import (
	"context"
	"errors"
	"fmt"

	"olh/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Repository provides persistence for every record type on top of Postgres.
type Repository struct {
	db *DB
}

// NewRepository creates a new Repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// --- Users ---

const userColumns = `id, username, email, password_hash, role, created_at`

func scanUser(row scanner) (*domain.User, error) {
	u := &domain.User{}
	var role string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return u, nil
}

// CreateUser inserts a new user. Returns ErrEmailTaken on a duplicate email.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role), user.CreatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by its ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListUsers returns all users, newest first.
func (r *Repository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserRole changes a user's role.
func (r *Repository) UpdateUserRole(ctx context.Context, id string, role domain.Role) error {
	tag, err := r.db.Pool.Exec(ctx, "UPDATE users SET role = $2 WHERE id = $1", id, string(role))
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user record. Content the user created is left in place.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetStats returns the moderation dashboard counters.
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			COUNT(*) FILTER (WHERE verification_status = 'approved'),
			COUNT(*) FILTER (WHERE verification_status = 'pending'),
			COUNT(*) FILTER (WHERE EXISTS (
				SELECT 1 FROM material_reports r WHERE r.material_id = materials.id
			))
		FROM materials
	`).Scan(
		&stats.TotalUsers,
		&stats.TotalMaterials,
		&stats.PendingMaterials,
		&stats.ReportedMaterials,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}
