package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
	RunSkipped   = "skipped"
)

// Job statuses counted as delivered: the URL is in the ledger whether or not
// the operator notification went out.
const (
	JobRecorded  = "recorded"
	JobDelivered = "notified"
)

// timeLayout is RFC3339 with fixed-width nanoseconds so stored values sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one workflow invocation.
type Run struct {
	ID             string
	Command        string
	Status         string
	StartedAt      time.Time
	FinishedAt     time.Time
	FilesMoved     int
	RowsRegistered int
	ObjectsDeleted int
	ErrorKind      string
	ErrorMessage   string
}

// Duration returns the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunSummary is a run with its job tallies.
type RunSummary struct {
	Run
	JobsTotal     int
	JobsDelivered int
}

// Job is the outcome of one delivery job.
type Job struct {
	ID           string
	RunID        string
	Customer     string
	ShootDate    string
	Tier         string
	Type         string
	Row          int
	Status       string
	SourceFolder string
	Fallback     string
	DownloadURL  string
	ErrorKind    string
	ErrorMessage string
	RecordedAt   time.Time
}

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// StartRun inserts a run in the running state.
func (s *Store) StartRun(ctx context.Context, id, command string, startedAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("run id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, status, started_at) VALUES (?, ?, ?, ?)`,
		id, command, RunRunning, formatTime(startedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final state and counters of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, files_moved = ?, rows_registered = ?,
            objects_deleted = ?, error_kind = ?, error_message = ?
        WHERE id = ?`,
		run.Status,
		formatTime(run.FinishedAt),
		run.FilesMoved,
		run.RowsRegistered,
		run.ObjectsDeleted,
		nullable(run.ErrorKind),
		nullable(run.ErrorMessage),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update run %s: not found", run.ID)
	}
	return nil
}

// RecordJob stores a delivery job outcome.
func (s *Store) RecordJob(ctx context.Context, job Job) error {
	if job.RecordedAt.IsZero() {
		job.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (
            id, run_id, customer, shoot_date, tier, job_type, sheet_row, status,
            source_folder, fallback, download_url, error_kind, error_message, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.RunID,
		job.Customer,
		job.ShootDate,
		job.Tier,
		job.Type,
		job.Row,
		job.Status,
		nullable(job.SourceFolder),
		nullable(job.Fallback),
		nullable(job.DownloadURL),
		nullable(job.ErrorKind),
		nullable(job.ErrorMessage),
		formatTime(job.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first, with job tallies.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.command, r.status, r.started_at, r.finished_at, r.files_moved,
            r.rows_registered, r.objects_deleted, r.error_kind, r.error_message,
            COUNT(j.id), COALESCE(SUM(CASE WHEN j.status IN (?, ?) THEN 1 ELSE 0 END), 0)
        FROM runs r LEFT JOIN jobs j ON j.run_id = r.id
        GROUP BY r.id
        ORDER BY r.started_at DESC
        LIMIT ?`,
		JobRecorded, JobDelivered, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			summary             RunSummary
			started             string
			finished, kind, msg sql.NullString
		)
		if err := rows.Scan(
			&summary.ID, &summary.Command, &summary.Status, &started, &finished,
			&summary.FilesMoved, &summary.RowsRegistered, &summary.ObjectsDeleted,
			&kind, &msg, &summary.JobsTotal, &summary.JobsDelivered,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		summary.StartedAt = parseTime(started)
		summary.FinishedAt = parseTime(finished.String)
		summary.ErrorKind = kind.String
		summary.ErrorMessage = msg.String
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Jobs returns the jobs recorded for a run in insertion order.
func (s *Store) Jobs(ctx context.Context, runID string) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, customer, shoot_date, tier, job_type, sheet_row, status,
            source_folder, fallback, download_url, error_kind, error_message, recorded_at
        FROM jobs WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var (
			job                              Job
			folder, fallback, url, kind, msg sql.NullString
			recorded                         string
		)
		if err := rows.Scan(
			&job.ID, &job.RunID, &job.Customer, &job.ShootDate, &job.Tier, &job.Type,
			&job.Row, &job.Status, &folder, &fallback, &url, &kind, &msg, &recorded,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.SourceFolder = folder.String
		job.Fallback = fallback.String
		job.DownloadURL = url.String
		job.ErrorKind = kind.String
		job.ErrorMessage = msg.String
		job.RecordedAt = parseTime(recorded)
		out = append(out, job)
	}
	return out, rows.Err()
}

// Prune deletes runs that started before cutoff along with their jobs.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
