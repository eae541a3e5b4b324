package journal_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"photodesk/internal/journal"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycleAndSummary(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 4, 1, 0, 0, 0, time.UTC)

	if err := store.StartRun(ctx, "run-1", "run", start); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	jobs := []journal.Job{
		{ID: "job-1", RunID: "run-1", Customer: "김민지", ShootDate: "2026-03-03", Tier: "basic", Type: "original", Row: 2, Status: journal.JobDelivered, DownloadURL: "https://d/1"},
		{ID: "job-2", RunID: "run-1", Customer: "이서준", ShootDate: "2026-03-03", Tier: "basic", Type: "original", Row: 3, Status: "folder_not_found", ErrorKind: "not_found", ErrorMessage: "no folder"},
	}
	for _, job := range jobs {
		if err := store.RecordJob(ctx, job); err != nil {
			t.Fatalf("RecordJob: %v", err)
		}
	}
	err := store.FinishRun(ctx, journal.Run{
		ID:         "run-1",
		Status:     journal.RunSucceeded,
		FinishedAt: start.Add(90 * time.Second),
		FilesMoved: 12,
	})
	if err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.Status != journal.RunSucceeded || got.FilesMoved != 12 {
		t.Fatalf("unexpected run %+v", got)
	}
	if got.JobsTotal != 2 || got.JobsDelivered != 1 {
		t.Fatalf("unexpected tallies total=%d delivered=%d", got.JobsTotal, got.JobsDelivered)
	}
	if got.Duration() != 90*time.Second {
		t.Fatalf("unexpected duration %s", got.Duration())
	}

	recorded, err := store.Jobs(ctx, "run-1")
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(recorded) != 2 || recorded[0].ID != "job-1" || recorded[1].ErrorKind != "not_found" {
		t.Fatalf("unexpected jobs %+v", recorded)
	}
	if recorded[0].DownloadURL != "https://d/1" || recorded[1].DownloadURL != "" {
		t.Fatalf("unexpected download urls %+v", recorded)
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 4, 1, 0, 0, 0, time.UTC)
	// Sub-second offsets exercise the fixed-width layout ordering.
	offsets := []time.Duration{0, 500 * time.Millisecond, time.Second}
	for i, off := range offsets {
		id := []string{"a", "b", "c"}[i]
		if err := store.StartRun(ctx, id, "run", base.Add(off)); err != nil {
			t.Fatalf("StartRun: %v", err)
		}
	}
	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected order %+v", runs)
	}
	if runs[0].Status != journal.RunRunning || !runs[0].FinishedAt.IsZero() {
		t.Fatalf("expected unfinished run, got %+v", runs[0])
	}
}

func TestRecordJobRequiresRun(t *testing.T) {
	store := openStore(t)
	err := store.RecordJob(context.Background(), journal.Job{ID: "j", RunID: "missing", Customer: "x", Status: "failed"})
	if err == nil {
		t.Fatal("expected foreign key failure")
	}
}

func TestFinishUnknownRun(t *testing.T) {
	store := openStore(t)
	if err := store.FinishRun(context.Background(), journal.Run{ID: "nope", Status: journal.RunFailed}); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestPruneCascadesJobs(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.StartRun(ctx, "old", "run", old); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := store.RecordJob(ctx, journal.Job{ID: "j1", RunID: "old", Customer: "x", Status: "failed"}); err != nil {
		t.Fatalf("RecordJob: %v", err)
	}
	if err := store.StartRun(ctx, "new", "run", old.AddDate(1, 0, 0)); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	n, err := store.Prune(ctx, old.AddDate(0, 6, 0))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned run, got %d", n)
	}
	jobs, err := store.Jobs(ctx, "old")
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected cascaded delete, got %d jobs", len(jobs))
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := journal.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.StartRun(context.Background(), "r", "run", time.Now()); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	_ = store.Close()

	reopened, err := journal.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.RecentRuns(context.Background(), 5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %v %v", runs, err)
	}
}
