package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"olh/internal/domain"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	res, err := env.users.Register(ctx, "erin", " Erin@OLH.test ", "notes4exam")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Token == "" || res.User.Role != domain.RoleUser || res.User.Email != "erin@olh.test" {
		t.Errorf("unexpected result %+v", res.User)
	}
	if res.User.PasswordHash == "notes4exam" {
		t.Error("password must be hashed")
	}

	if _, err := env.users.Register(ctx, "erin2", "erin@olh.test", "notes4exam"); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if _, err := env.users.Register(ctx, "frank", "frank@olh.test", "short"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for weak password, got %v", err)
	}
	if _, err := env.users.Register(ctx, "frank", "frank@olh.test", strings.Repeat("zx9", 27)); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for password over 72 bytes, got %v", err)
	}
	if _, err := env.users.Register(ctx, "", "x@olh.test", "notes4exam"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for missing username, got %v", err)
	}

	login, err := env.users.Login(ctx, "erin@olh.test", "notes4exam")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != res.User.ID {
		t.Error("login returned a different user")
	}

	for _, tc := range []struct{ email, password string }{
		{"erin@olh.test", "wrong4exam"},
		{"nobody@olh.test", "notes4exam"},
	} {
		if _, err := env.users.Login(ctx, tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("login(%s): expected ErrInvalidCredentials, got %v", tc.email, err)
		}
	}
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.upload(t, env.member, "One")
	env.upload(t, env.member, "Two")
	env.materials.ToggleFavorite(ctx, env.member, a.ID)

	profile, err := env.users.Profile(ctx, env.member)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Stats.UploadedCount != 2 || profile.Stats.FavoritesCount != 1 {
		t.Errorf("unexpected stats %+v", profile.Stats)
	}
}

func TestUserAdministration(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	if _, err := env.users.List(ctx, env.member); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	users, err := env.users.List(ctx, env.admin)
	if err != nil || len(users) != 4 {
		t.Fatalf("expected 4 users, got %d (%v)", len(users), err)
	}

	if _, err := env.users.UpdateRole(ctx, env.admin, env.member.UserID, "owner"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown role, got %v", err)
	}
	u, err := env.users.UpdateRole(ctx, env.admin, env.member.UserID, "admin")
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if u.Role != domain.RoleAdmin {
		t.Errorf("expected admin, got %s", u.Role)
	}
	if _, err := env.users.UpdateRole(ctx, env.admin, "missing", "user"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := env.users.Delete(ctx, env.master, env.other.UserID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.users.Me(ctx, env.other); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected deleted user to be gone, got %v", err)
	}
}

func TestInbox(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.upload(t, env.member, "A")
	b := env.upload(t, env.member, "B")
	env.moderation.Approve(ctx, env.admin, a.ID)
	env.moderation.Approve(ctx, env.admin, b.ID)

	inbox, _ := env.inbox.List(ctx, env.member)
	if len(inbox) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(inbox))
	}
	if inbox[0].MaterialID != b.ID {
		t.Error("expected newest notification first")
	}

	if err := env.inbox.MarkRead(ctx, env.other, inbox[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for someone else's notification, got %v", err)
	}
	if err := env.inbox.MarkRead(ctx, env.member, inbox[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if n, _ := env.inbox.UnreadCount(ctx, env.member); n != 1 {
		t.Errorf("expected 1 unread, got %d", n)
	}

	env.inbox.MarkAllRead(ctx, env.member)
	if n, _ := env.inbox.UnreadCount(ctx, env.member); n != 0 {
		t.Errorf("expected 0 unread, got %d", n)
	}
}
