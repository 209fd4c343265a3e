package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"olh/internal/domain"
	"olh/internal/server/database"
)

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("upload then approve", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.upload(t, env.member, "DSP Notes")

		got, err := env.moderation.Approve(ctx, env.admin, m.ID)
		if err != nil {
			t.Fatalf("approve: %v", err)
		}
		if got.VerificationStatus != domain.StatusApproved {
			t.Errorf("expected approved, got %s", got.VerificationStatus)
		}

		inbox, _ := env.inbox.List(ctx, env.member)
		if len(inbox) != 1 {
			t.Fatalf("expected 1 notification, got %d", len(inbox))
		}
		n := inbox[0]
		if n.Type != domain.NotificationApproved || n.MaterialID != m.ID || n.ActionBy != env.admin.UserID {
			t.Errorf("unexpected notification %+v", n)
		}
		if n.ActionByName != "carol" {
			t.Errorf("expected moderator name, got %q", n.ActionByName)
		}
		if len(env.notifier.to(env.member.UserID)) != 1 {
			t.Error("expected one push to uploader")
		}
	})

	t.Run("repeat approval is a no-op", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.upload(t, env.member, "Twice")

		env.moderation.Approve(ctx, env.admin, m.ID)
		if _, err := env.moderation.Approve(ctx, env.master, m.ID); err != nil {
			t.Fatalf("second approve: %v", err)
		}

		count, _ := env.inbox.UnreadCount(ctx, env.member)
		if count != 1 {
			t.Errorf("expected a single notification, got %d", count)
		}
		if len(env.notifier.to(env.member.UserID)) != 1 {
			t.Error("expected a single push")
		}
	})

	t.Run("inbox failure does not undo approval", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.upload(t, env.member, "Inbox down")
		repo := &failingInbox{Repository: env.repo, err: errors.New("notifications table unavailable")}
		moderation := NewModerationService(repo, env.materials, env.notifier)

		got, err := moderation.Approve(ctx, env.admin, m.ID)
		if err != nil {
			t.Fatalf("approve: %v", err)
		}
		if got.VerificationStatus != domain.StatusApproved {
			t.Errorf("expected approved, got %s", got.VerificationStatus)
		}
		if len(env.notifier.to(env.member.UserID)) != 1 {
			t.Error("uploader should still receive a push")
		}
		if repo.calls != 1 {
			t.Errorf("expected one inbox write attempt, got %d", repo.calls)
		}
	})

	t.Run("members cannot moderate", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.upload(t, env.member, "Self approve")

		if _, err := env.moderation.Approve(ctx, env.member, m.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
		if err := env.moderation.Reject(ctx, env.other, m.ID, ""); !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
		if _, err := env.moderation.IgnoreReports(ctx, env.other, m.ID); !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("unknown material", func(t *testing.T) {
		env := newTestEnv(t)
		if _, err := env.moderation.Approve(ctx, env.admin, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()

	t.Run("destroys material and records one notification", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.upload(t, env.member, "Blurry scan")

		if err := env.moderation.Reject(ctx, env.admin, m.ID, "unreadable"); err != nil {
			t.Fatalf("reject: %v", err)
		}

		if _, err := env.repo.GetMaterial(ctx, m.ID); !errors.Is(err, database.ErrNotFound) {
			t.Error("expected material removed")
		}
		if env.blobCount(t) != 0 {
			t.Error("expected blob removed")
		}

		inbox, _ := env.inbox.List(ctx, env.member)
		if len(inbox) != 1 {
			t.Fatalf("expected exactly one notification, got %d", len(inbox))
		}
		if inbox[0].Type != domain.NotificationRejected || inbox[0].Reason != "unreadable" {
			t.Errorf("unexpected notification %+v", inbox[0])
		}
		if inbox[0].MaterialTitle != "Blurry scan" {
			t.Errorf("expected title snapshot, got %q", inbox[0].MaterialTitle)
		}

		pushes := env.notifier.to(env.member.UserID)
		if len(pushes) != 1 || !strings.Contains(pushes[0].Body, "unreadable") {
			t.Errorf("expected rejection push with reason, got %+v", pushes)
		}
	})

	t.Run("default reason", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.upload(t, env.member, "No reason")

		if err := env.moderation.Reject(ctx, env.admin, m.ID, "  "); err != nil {
			t.Fatalf("reject: %v", err)
		}
		inbox, _ := env.inbox.List(ctx, env.member)
		if inbox[0].Reason != defaultRejectionReason {
			t.Errorf("expected default reason, got %q", inbox[0].Reason)
		}
	})

	t.Run("same file can be uploaded again after rejection", func(t *testing.T) {
		env := newTestEnv(t)
		m := env.upload(t, env.member, "Retry")
		env.moderation.Reject(ctx, env.admin, m.ID, "")

		if _, err := env.materials.Upload(ctx, env.member, uploadInput("Retry", pdf("Retry"))); err != nil {
			t.Errorf("expected re-upload to succeed, got %v", err)
		}
	})
}

func TestReportQueue(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	first := env.upload(t, env.admin, "First")
	second := env.upload(t, env.admin, "Second")
	env.upload(t, env.admin, "Clean")

	env.materials.Report(ctx, env.member, second.ID, "spam")
	env.materials.Report(ctx, env.member, first.ID, "wrong subject")

	reported, err := env.moderation.Reported(ctx, env.admin)
	if err != nil {
		t.Fatalf("reported: %v", err)
	}
	if len(reported) != 2 {
		t.Fatalf("expected 2 reported materials, got %d", len(reported))
	}

	stats, _ := env.moderation.Stats(ctx, env.master)
	if stats.ReportedMaterials != 2 || stats.TotalMaterials != 3 || stats.TotalUsers != 4 {
		t.Errorf("unexpected stats %+v", stats)
	}

	got, err := env.moderation.IgnoreReports(ctx, env.admin, first.ID)
	if err != nil {
		t.Fatalf("ignore reports: %v", err)
	}
	if len(got.Reports) != 0 {
		t.Errorf("expected reports cleared, got %d", len(got.Reports))
	}

	reported, _ = env.moderation.Reported(ctx, env.admin)
	if len(reported) != 1 || reported[0].ID != second.ID {
		t.Errorf("expected only the second material queued, got %d", len(reported))
	}
}

func TestPendingQueue(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	pending := env.upload(t, env.member, "Waiting")
	env.upload(t, env.admin, "Auto approved")

	queue, err := env.moderation.Pending(ctx, env.admin)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != pending.ID {
		t.Errorf("expected only the member upload, got %d", len(queue))
	}

	if _, err := env.moderation.Pending(ctx, env.member); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

// failingInbox wraps a repository and fails every notification insert.
type failingInbox struct {
	Repository
	err   error
	calls int
}

func (f *failingInbox) CreateNotification(context.Context, *domain.Notification) error {
	f.calls++
	return f.err
}
