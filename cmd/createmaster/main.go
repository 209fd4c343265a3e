// Command createmaster bootstraps the first master account. Credentials
// come from MASTER_USERNAME, MASTER_EMAIL and MASTER_PASSWORD; the database
// is the one configured for the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"olh/internal/domain"
	"olh/internal/server/config"
	"olh/internal/server/database"
	"olh/internal/server/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to create master account", "error", err)
		os.Exit(1)
	}
}

func run() error {
	username := os.Getenv("MASTER_USERNAME")
	email := os.Getenv("MASTER_EMAIL")
	password := os.Getenv("MASTER_PASSWORD")
	if username == "" || email == "" || password == "" {
		return errors.New("MASTER_USERNAME, MASTER_EMAIL and MASTER_PASSWORD must be set")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == config.MemoryDatabase {
		return errors.New("DATABASE_URL must point at Postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	users := service.NewUserService(database.NewRepository(db), nil)
	user, err := users.CreateAccount(ctx, username, email, password, domain.RoleMaster)
	if err != nil {
		return err
	}

	slog.Info("master account created", "user_id", user.ID, "email", user.Email)
	return nil
}
