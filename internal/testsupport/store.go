package testsupport

import (
	"context"
	"testing"
	"time"

	"photodesk/internal/config"
	"photodesk/internal/journal"
)

// MustOpenJournal opens the run journal at cfg.HistoryPath and registers cleanup.
func MustOpenJournal(t testing.TB, cfg *config.Config) *journal.Store {
	t.Helper()

	store, err := journal.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordRun stores a finished run with the given status for tests.
func RecordRun(t testing.TB, store *journal.Store, run journal.Run) {
	t.Helper()

	ctx := context.Background()
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt.Add(time.Second)
	}
	if err := store.StartRun(ctx, run.ID, run.Command, run.StartedAt); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
}
