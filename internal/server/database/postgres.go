package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations contains all database migrations in order.
// Votes, favorites and reports cascade with their material. Everything else
// references other records by id only.
var migrations = []struct {
	Version string
	SQL     string
}{
	{
		Version: "000001_create_users",
		SQL: `
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT         PRIMARY KEY,
				username      VARCHAR(255) NOT NULL,
				email         VARCHAR(255) NOT NULL UNIQUE,
				password_hash VARCHAR(255) NOT NULL,
				role          VARCHAR(16)  NOT NULL DEFAULT 'user',
				created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
		`,
	},
	{
		Version: "000002_create_materials",
		SQL: `
			CREATE TABLE IF NOT EXISTS materials (
				id                  TEXT         PRIMARY KEY,
				title               VARCHAR(255) NOT NULL,
				subject             VARCHAR(255) NOT NULL,
				description         TEXT         NOT NULL DEFAULT '',
				source              VARCHAR(16)  NOT NULL DEFAULT 'others',
				regulation_year     VARCHAR(8)   NOT NULL,
				material_type       VARCHAR(32)  NOT NULL DEFAULT 'other',
				file_hash           VARCHAR(64)  NOT NULL UNIQUE,
				file_key            VARCHAR(255) NOT NULL,
				file_url            TEXT         NOT NULL,
				original_filename   VARCHAR(255) NOT NULL DEFAULT '',
				content_type        VARCHAR(128) NOT NULL DEFAULT '',
				size_bytes          BIGINT       NOT NULL DEFAULT 0,
				uploaded_by         TEXT         NOT NULL,
				verification_status VARCHAR(16)  NOT NULL DEFAULT 'pending',
				rejection_reason    TEXT         NOT NULL DEFAULT '',
				views               BIGINT       NOT NULL DEFAULT 0,
				trust_score         INTEGER      NOT NULL DEFAULT 0,
				linked_request      TEXT,
				created_at          TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
				updated_at          TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_materials_status ON materials(verification_status, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_materials_uploaded_by ON materials(uploaded_by);
			CREATE INDEX IF NOT EXISTS idx_materials_file_key ON materials(file_key);

			CREATE TABLE IF NOT EXISTS material_votes (
				material_id TEXT        NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
				user_id     TEXT        NOT NULL,
				vote_type   VARCHAR(16) NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (material_id, user_id)
			);

			CREATE TABLE IF NOT EXISTS material_favorites (
				material_id TEXT        NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
				user_id     TEXT        NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (material_id, user_id)
			);
			CREATE INDEX IF NOT EXISTS idx_material_favorites_user ON material_favorites(user_id);

			CREATE TABLE IF NOT EXISTS material_reports (
				material_id TEXT        NOT NULL REFERENCES materials(id) ON DELETE CASCADE,
				reported_by TEXT        NOT NULL,
				reason      TEXT        NOT NULL,
				created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (material_id, reported_by)
			);
		`,
	},
	{
		Version: "000003_create_requests",
		SQL: `
			CREATE TABLE IF NOT EXISTS requests (
				id              TEXT         PRIMARY KEY,
				subject         VARCHAR(255) NOT NULL,
				description     TEXT         NOT NULL,
				material_type   VARCHAR(32)  NOT NULL DEFAULT 'other',
				regulation_year VARCHAR(8)   NOT NULL,
				requested_by    TEXT         NOT NULL,
				status          VARCHAR(16)  NOT NULL DEFAULT 'open',
				fulfilled_by    TEXT,
				created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(status, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_requests_requested_by ON requests(requested_by);
		`,
	},
	{
		Version: "000004_create_notifications",
		SQL: `
			CREATE TABLE IF NOT EXISTS notifications (
				id             TEXT         PRIMARY KEY,
				recipient      TEXT         NOT NULL,
				type           VARCHAR(16)  NOT NULL,
				material_id    TEXT         NOT NULL,
				material_title VARCHAR(255) NOT NULL,
				action_by      TEXT         NOT NULL,
				reason         TEXT         NOT NULL DEFAULT '',
				read           BOOLEAN      NOT NULL DEFAULT FALSE,
				created_at     TIMESTAMPTZ  NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient, created_at DESC);

			CREATE TABLE IF NOT EXISTS push_subscriptions (
				id         TEXT        PRIMARY KEY,
				user_id    TEXT        NOT NULL UNIQUE,
				token      TEXT        NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_push_subscriptions_token ON push_subscriptions(token);
		`,
	},
}

// DB wraps a pgxpool connection pool and provides health checks and migrations.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("connected to database")
	return &DB{Pool: pool}, nil
}

// RunMigrations applies all pending database migrations in order.
func (db *DB) RunMigrations(ctx context.Context) error {
	// Create migrations tracking table
	_, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, m := range migrations {
		// Check if already applied
		var exists bool
		err := db.Pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status for %s: %w", m.Version, err)
		}
		if exists {
			continue
		}

		// Execute migration in a transaction
		tx, err := db.Pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %s: %w", m.Version, err)
		}

		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to execute migration %s: %w", m.Version, err)
		}

		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("failed to record migration %s: %w", m.Version, err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.Version, err)
		}

		slog.Info("applied migration", "version", m.Version)
	}

	return nil
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
