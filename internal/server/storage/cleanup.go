package storage

import (
	"context"
	"log/slog"
	"time"

	"olh/internal/server/metrics"
)

// BlobReferences reports whether a stored blob still belongs to a material.
type BlobReferences interface {
	FileKeyExists(ctx context.Context, key string) (bool, error)
}

// CleanupService periodically removes blobs that no material references.
// Such orphans are left behind when a process dies between writing a blob
// and inserting its record, or when a best-effort delete fails.
type CleanupService struct {
	refs     BlobReferences
	store    Store
	interval time.Duration
	grace    time.Duration
	done     chan struct{}
}

// NewCleanupService creates a new cleanup service. Blobs younger than grace
// are never removed so in-flight uploads are not swept.
func NewCleanupService(refs BlobReferences, store Store, interval, grace time.Duration) *CleanupService {
	return &CleanupService{
		refs:     refs,
		store:    store,
		interval: interval,
		grace:    grace,
		done:     make(chan struct{}),
	}
}

// Start begins the cleanup loop in a background goroutine.
// A zero interval disables the loop.
func (cs *CleanupService) Start(ctx context.Context) {
	if cs.interval <= 0 {
		slog.Info("cleanup service disabled")
		close(cs.done)
		return
	}

	slog.Info("cleanup service started", "interval", cs.interval, "grace", cs.grace)

	go func() {
		ticker := time.NewTicker(cs.interval)
		defer ticker.Stop()

		// Run once immediately on start
		cs.runCleanup(ctx)

		for {
			select {
			case <-ticker.C:
				cs.runCleanup(ctx)
			case <-ctx.Done():
				slog.Info("cleanup service stopping")
				close(cs.done)
				return
			}
		}
	}()
}

// Wait blocks until the cleanup service has fully stopped.
func (cs *CleanupService) Wait() {
	<-cs.done
}

func (cs *CleanupService) runCleanup(ctx context.Context) {
	slog.Info("running cleanup cycle")
	if _, err := cs.Sweep(ctx, time.Now()); err != nil {
		slog.Error("cleanup cycle failed", "error", err)
	}
}

// Sweep removes unreferenced blobs last modified before now minus the grace
// period and returns how many were removed.
func (cs *CleanupService) Sweep(ctx context.Context, now time.Time) (int, error) {
	blobs, err := cs.store.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-cs.grace)
	var cleaned, failed int
	for _, blob := range blobs {
		if blob.ModTime.After(cutoff) {
			continue
		}

		referenced, err := cs.refs.FileKeyExists(ctx, blob.Key)
		if err != nil {
			slog.Error("failed to check blob reference", "key", blob.Key, "error", err)
			failed++
			continue
		}
		if referenced {
			continue
		}

		if err := cs.store.Delete(ctx, blob.Key); err != nil {
			slog.Error("failed to delete orphan blob", "key", blob.Key, "error", err)
			failed++
			continue
		}

		cleaned++
		metrics.OrphanBlobsRemoved.Inc()
		slog.Info("removed orphan blob", "key", blob.Key, "modified_at", blob.ModTime)
	}

	slog.Info("cleanup cycle complete",
		"cleaned", cleaned,
		"failed", failed,
		"total_blobs", len(blobs),
	)
	return cleaned, nil
}
