package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("requires jwt secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		t.Setenv("CONFIG_FILE", "")
		if _, err := Load(); err == nil {
			t.Fatal("expected error without JWT_SECRET")
		}
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "")
		t.Setenv("JWT_SECRET", "s3cret")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxFileSize != 50*1024*1024 {
			t.Errorf("expected 50MB max file size, got %d", cfg.MaxFileSize)
		}
		if cfg.StorageBackend != StorageFilesystem {
			t.Errorf("expected filesystem backend, got %q", cfg.StorageBackend)
		}
		if cfg.TokenTTL != 30*24*time.Hour {
			t.Errorf("expected 30 day token ttl, got %v", cfg.TokenTTL)
		}
		if cfg.PushEnabled() {
			t.Error("push should be disabled without FCM credentials")
		}
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "")
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("PORT", "9090")
		t.Setenv("MAX_FILE_SIZE", "1024")
		t.Setenv("CLEANUP_INTERVAL_HOURS", "0.5")
		t.Setenv("BASE_URL", "https://olh.example.com/")
		t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Port != "9090" {
			t.Errorf("expected port 9090, got %s", cfg.Port)
		}
		if cfg.MaxFileSize != 1024 {
			t.Errorf("expected max file size 1024, got %d", cfg.MaxFileSize)
		}
		if cfg.CleanupInterval != 30*time.Minute {
			t.Errorf("expected 30m cleanup interval, got %v", cfg.CleanupInterval)
		}
		if cfg.BaseURL != "https://olh.example.com" {
			t.Errorf("expected trailing slash trimmed, got %s", cfg.BaseURL)
		}
		if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example.com" {
			t.Errorf("unexpected cors origins %v", cfg.CORSOrigins)
		}
	})

	t.Run("yaml file with env precedence", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "port: \"7000\"\njwtSecret: from-file\nstorageBackend: minio\nminio:\n  endpoint: localhost:9000\n  bucket: files\npushTimeout: 3s\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		t.Setenv("CONFIG_FILE", path)
		t.Setenv("JWT_SECRET", "")
		t.Setenv("PORT", "7100")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Port != "7100" {
			t.Errorf("expected env port to win, got %s", cfg.Port)
		}
		if cfg.JWTSecret != "from-file" {
			t.Errorf("expected secret from file, got %q", cfg.JWTSecret)
		}
		if cfg.StorageBackend != StorageMinio || cfg.Minio.Endpoint != "localhost:9000" {
			t.Errorf("unexpected storage config %+v", cfg.Minio)
		}
		if cfg.PushTimeout != 3*time.Second {
			t.Errorf("expected 3s push timeout, got %v", cfg.PushTimeout)
		}
	})

	t.Run("rejects unknown storage backend", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", "")
		t.Setenv("JWT_SECRET", "s3cret")
		t.Setenv("STORAGE_BACKEND", "tape")
		if _, err := Load(); err == nil {
			t.Fatal("expected error for unknown storage backend")
		}
	})
}
