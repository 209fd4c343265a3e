package service

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"olh/internal/domain"
	"olh/internal/server/auth"
	"olh/internal/server/config"
	"olh/internal/server/database"
	"olh/internal/server/push"
	"olh/internal/server/storage"
)

var (
	_ Repository = (*database.Repository)(nil)
	_ Repository = (*database.MemoryStore)(nil)
	_ Notifier   = (*push.Dispatcher)(nil)
)

type sentPush struct {
	UserID string
	Msg    push.Message
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentPush
}

func (f *fakeNotifier) Notify(_ context.Context, userID string, msg push.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentPush{UserID: userID, Msg: msg})
}

func (f *fakeNotifier) to(userID string) []push.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []push.Message
	for _, s := range f.sent {
		if s.UserID == userID {
			out = append(out, s.Msg)
		}
	}
	return out
}

type testEnv struct {
	repo       *database.MemoryStore
	dir        string
	notifier   *fakeNotifier
	materials  *MaterialService
	moderation *ModerationService
	requests   *RequestService
	inbox      *NotificationService
	users      *UserService

	member domain.Principal
	other  domain.Principal
	admin  domain.Principal
	master domain.Principal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{MaxFileSize: 1024 * 1024, BaseURL: "http://olh.test"}
	repo := database.NewMemoryStore()
	dir := t.TempDir()
	store := storage.NewFileSystemStore(dir)
	notifier := &fakeNotifier{}
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}

	materials := NewMaterialService(repo, store, notifier, cfg)
	env := &testEnv{
		repo:       repo,
		dir:        dir,
		notifier:   notifier,
		materials:  materials,
		moderation: NewModerationService(repo, materials, notifier),
		requests:   NewRequestService(repo),
		inbox:      NewNotificationService(repo),
		users:      NewUserService(repo, tokens),
	}

	seed := func(username string, role domain.Role) domain.Principal {
		u := &domain.User{
			ID:        username + "-id",
			Username:  username,
			Email:     username + "@olh.test",
			Role:      role,
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("seed user %s: %v", username, err)
		}
		return domain.Principal{UserID: u.ID, Role: role}
	}
	env.member = seed("alice", domain.RoleUser)
	env.other = seed("bob", domain.RoleUser)
	env.admin = seed("carol", domain.RoleAdmin)
	env.master = seed("dave", domain.RoleMaster)
	return env
}

// pdf returns a minimal PDF whose bytes differ per seed.
func pdf(seed string) []byte {
	return []byte("%PDF-1.4\n% " + seed + "\n1 0 obj << >> endobj\n%%EOF\n")
}

func uploadInput(title string, content []byte) UploadInput {
	return UploadInput{
		Title:          title,
		Subject:        "Digital Signal Processing",
		RegulationYear: "2019",
		Filename:       "notes.pdf",
		Size:           int64(len(content)),
		File:           bytes.NewReader(content),
	}
}

func (e *testEnv) upload(t *testing.T, p domain.Principal, title string) *domain.Material {
	t.Helper()
	m, err := e.materials.Upload(context.Background(), p, uploadInput(title, pdf(title)))
	if err != nil {
		t.Fatalf("upload %q: %v", title, err)
	}
	return m
}

func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		t.Fatalf("read storage dir: %v", err)
	}
	return len(entries)
}
