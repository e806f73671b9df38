package testsupport

import (
	"context"
	"testing"
	"time"

	"ballooncd/internal/catalog"
	"ballooncd/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordRun stores a completed run with the supplied artifacts for tests.
func RecordRun(t testing.TB, store *catalog.Store, run catalog.Run, artifacts []catalog.Artifact) {
	t.Helper()

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC().Add(-time.Minute)
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = catalog.StatusCompleted
	}
	if err := store.RecordRun(context.Background(), run, artifacts); err != nil {
		t.Fatalf("store.RecordRun: %v", err)
	}
}
