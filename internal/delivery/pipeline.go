package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"photodesk/internal/archive"
	"photodesk/internal/calendar"
	"photodesk/internal/config"
	"photodesk/internal/exifcheck"
	"photodesk/internal/folder"
	"photodesk/internal/journal"
	"photodesk/internal/ledger"
	"photodesk/internal/logging"
	"photodesk/internal/notifications"
	"photodesk/internal/publish"
	"photodesk/internal/services"
	"photodesk/internal/shootdate"
	"photodesk/internal/storage"
)

const stageName = "delivery"

// FolderResolver finds the source folder of a delivery.
type FolderResolver interface {
	Resolve(ctx context.Context, name, shootDate string, kind folder.Type) (folder.Match, error)
}

// PhotoCounter counts deliverable photos below a folder.
type PhotoCounter interface {
	Count(dir string) (int, error)
}

// CounterFunc adapts a function to PhotoCounter.
type CounterFunc func(dir string) (int, error)

func (f CounterFunc) Count(dir string) (int, error) { return f(dir) }

// Validator checks capture dates against the shoot date.
type Validator interface {
	Validate(ctx context.Context, folder, expectedDate, label string) (exifcheck.Result, error)
}

// Packager writes the delivery archive.
type Packager interface {
	Package(ctx context.Context, srcDir, destPath string) (archive.Info, error)
}

// PackagerFunc adapts a function to Packager.
type PackagerFunc func(ctx context.Context, srcDir, destPath string) (archive.Info, error)

func (f PackagerFunc) Package(ctx context.Context, srcDir, destPath string) (archive.Info, error) {
	return f(ctx, srcDir, destPath)
}

// Uploader stores archives and signs retrieval URLs.
type Uploader interface {
	Upload(ctx context.Context, key, path, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Publisher creates download pages.
type Publisher interface {
	Create(ctx context.Context, req publish.Request) (publish.Response, error)
}

// LedgerWriter reads pending rows and records delivered URLs.
type LedgerWriter interface {
	Read(ctx context.Context, rng string) ([][]string, error)
	Write(ctx context.Context, cell, value string) error
}

// Notifier tells the operator about a finished delivery.
type Notifier interface {
	NotifyDelivery(ctx context.Context, d notifications.Delivery) error
}

// Recorder stores job outcomes.
type Recorder interface {
	RecordJob(ctx context.Context, job journal.Job) error
}

// Metrics counts job outcomes.
type Metrics interface {
	Delivery(tier, phase, status string)
}

// Dependencies are the pipeline's collaborators. Recorder and Metrics may be nil.
type Dependencies struct {
	Resolver  FolderResolver
	Counter   PhotoCounter
	Validator Validator
	Packager  Packager
	Uploader  Uploader
	Publisher Publisher
	Ledger    LedgerWriter
	Notifier  Notifier
	Recorder  Recorder
	Metrics   Metrics
}

// Pipeline runs delivery jobs for the basic and premium sheets.
type Pipeline struct {
	deps          Dependencies
	basicSheet    string
	premiumSheet  string
	lastRow       int
	archivePrefix string
	keyPrefix     string
	workDir       string
	signedTTL     time.Duration
	uploadTimeout time.Duration
	logger        *slog.Logger
	now           func() time.Time
	newID         func() string
}

// New constructs a pipeline from configuration.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		deps:          deps,
		basicSheet:    cfg.Ledger.BasicSheet,
		premiumSheet:  cfg.Ledger.PremiumSheet,
		lastRow:       cfg.Ledger.LastRow,
		archivePrefix: cfg.Delivery.ArchivePrefix,
		keyPrefix:     cfg.Storage.KeyPrefix,
		workDir:       cfg.Paths.WorkDir,
		signedTTL:     time.Duration(cfg.Storage.SignedURLDays) * 24 * time.Hour,
		uploadTimeout: time.Duration(cfg.Storage.UploadTimeout) * time.Second,
		logger:        logging.NewComponentLogger(logger, stageName),
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// SetClock overrides the time source (used in tests).
func (p *Pipeline) SetClock(now func() time.Time) {
	if now != nil {
		p.now = now
	}
}

// RunBasic delivers originals for every pending basic row.
func (p *Pipeline) RunBasic(ctx context.Context) (Summary, error) {
	ctx = services.WithPhase(ctx, "basic")
	values, err := p.readSheet(ctx, p.basicSheet, "F")
	if err != nil {
		return Summary{}, err
	}
	pending := ledger.PendingBasic(values, p.basicSheet, logging.WithContext(ctx, p.logger))
	return p.runRows(ctx, pending), nil
}

// RunPremium delivers first-phase originals, then second-phase retouched
// sets, for every pending premium row.
func (p *Pipeline) RunPremium(ctx context.Context) (Summary, error) {
	ctx = services.WithPhase(ctx, "premium")
	values, err := p.readSheet(ctx, p.premiumSheet, "J")
	if err != nil {
		return Summary{}, err
	}
	first, second := ledger.PendingPremium(values, p.premiumSheet, logging.WithContext(ctx, p.logger))
	return p.runRows(ctx, append(first, second...)), nil
}

func (p *Pipeline) readSheet(ctx context.Context, sheet, lastCol string) ([][]string, error) {
	rng := ledger.Span(sheet, "A", ledger.FirstDataRow, lastCol, p.lastRow)
	values, err := p.deps.Ledger.Read(ctx, rng)
	if err != nil {
		if services.ScopeWidening(err) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrConfiguration, stageName, "read ledger", sheet, err)
	}
	return values, nil
}

func (p *Pipeline) runRows(ctx context.Context, rows []ledger.Row) Summary {
	logger := logging.WithContext(ctx, p.logger)
	summary := Summary{Pending: len(rows)}
	if len(rows) == 0 {
		logger.Info("no deliveries pending")
		return summary
	}
	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		summary.add(p.Process(ctx, row))
	}
	logger.Info("delivery phase complete",
		logging.Int("pending", summary.Pending),
		logging.Int("delivered", summary.Delivered),
		logging.Int("skipped", summary.Skipped),
	)
	return summary
}

// Process runs one row through the state machine. The returned job carries
// the last status reached and, on failure, the error that stopped it.
func (p *Pipeline) Process(ctx context.Context, row ledger.Row) Job {
	job := newJob(row)
	job.ID = p.newID()
	ctx = services.WithJobID(services.WithCustomer(ctx, row.CustomerName), job.ID)
	logger := logging.WithContext(ctx, p.logger).With(logging.String("label", job.Label()))
	logger.Info("delivery started", logging.Int("row", row.RowIndex), logging.String("shoot_date", row.ShootDate))

	workDir := filepath.Join(p.workDir, job.ID)
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warn("temporary archive not removed", logging.String("path", workDir), logging.Error(err))
		}
	}()

	job.Err = p.advanceRecovering(ctx, logger, &job, workDir)
	p.finish(ctx, logger, job)
	return job
}

// advanceRecovering turns a panic inside one row into a failed job so the
// phase moves on to the next row. A row whose URL already reached the ledger
// keeps its status.
func (p *Pipeline) advanceRecovering(ctx context.Context, logger *slog.Logger, job *Job, workDir string) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = services.Wrap(services.ErrCatastrophic, stageName, "deliver", fmt.Sprintf("panic: %v", r), nil)
		logger.Error("delivery panicked",
			logging.String("status", string(job.Status)),
			logging.Error(err),
			logging.String("stack", string(debug.Stack())),
			logging.Alert("delivery_panic"),
		)
		if job.Delivered() {
			err = nil
			return
		}
		job.Status = StatusFailed
	}()
	return p.advance(ctx, logger, job, workDir)
}

func (p *Pipeline) advance(ctx context.Context, logger *slog.Logger, job *Job, workDir string) error {
	row := job.Row

	match, err := p.deps.Resolver.Resolve(ctx, row.CustomerName, row.ShootDate, job.Type)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			job.Status = StatusFolderNotFound
		} else {
			job.Status = StatusFailed
		}
		return err
	}
	job.SourceFolder, job.Fallback = match.Path, match.Fallback
	job.Status = StatusFolderResolved

	count, err := p.deps.Counter.Count(match.Path)
	if err != nil {
		job.Status = StatusFailed
		return services.Wrap(services.ErrTransient, stageName, "count photos", match.Path, err)
	}
	job.Photos = count
	if count == 0 {
		job.Status = StatusValidationFailed
		return services.Wrap(services.ErrValidation, stageName, "count photos", "no photos in "+match.Path, nil)
	}

	result, err := p.deps.Validator.Validate(ctx, match.Path, row.ShootDate, row.CustomerName)
	if err != nil {
		job.Status = StatusFailed
		return services.Wrap(services.ErrTransient, stageName, "validate capture dates", "", err)
	}
	if !result.Passed {
		job.Status = StatusValidationFailed
		return services.Wrap(services.ErrValidation, stageName, "validate capture dates",
			fmt.Sprintf("%d of %d photos match %s", result.Matched, result.Total, row.ShootDate), nil)
	}
	job.Status = StatusValidated

	now := p.now()
	name := archive.Name(p.archivePrefix, row.CustomerName, now)
	info, err := p.deps.Packager.Package(ctx, match.Path, filepath.Join(workDir, name))
	if err != nil {
		job.Status = StatusFailed
		return services.Wrap(services.ErrTransient, stageName, "package", name, err)
	}
	job.Archive = name
	job.Status = StatusPackaged
	logger.Info("archive written", logging.Int("files", info.Files), logging.Int64("bytes", info.Bytes))

	job.ObjectKey = storage.ObjectKey(p.keyPrefix, row.CustomerName, name)
	uploadCtx, cancel := p.uploadContext(ctx)
	err = p.deps.Uploader.Upload(uploadCtx, job.ObjectKey, info.Path, storage.ContentTypeZip)
	cancel()
	if err != nil {
		job.Status = StatusFailed
		return markTimeout(err, "upload", job.ObjectKey)
	}
	signed, err := p.deps.Uploader.SignedURL(ctx, job.ObjectKey, p.signedTTL)
	if err != nil {
		job.Status = StatusFailed
		return services.Wrap(services.ErrExternalService, stageName, "sign url", job.ObjectKey, err)
	}
	job.Status = StatusUploaded

	resp, err := p.deps.Publisher.Create(ctx, publish.Request{
		CustomerName: row.CustomerName,
		ShootDate:    shootdate.PublishDate(row.ShootDate, now),
		Type:         string(job.Type),
		URL:          signed,
	})
	if err != nil {
		job.Status = StatusFailed
		return err
	}
	job.DownloadURL = resp.DownloadURL
	job.Status = StatusPublished

	if err := p.deps.Ledger.Write(ctx, row.TargetCell(), resp.DownloadURL); err != nil {
		return err
	}
	job.Status = StatusRecorded

	err = p.deps.Notifier.NotifyDelivery(ctx, notifications.Delivery{
		Customer:  row.CustomerName,
		Premium:   job.Tier == calendar.Premium,
		Retouched: job.Type == folder.Retouched,
		URL:       resp.DownloadURL,
	})
	if err != nil {
		logging.WarnWithContext(logger, "delivery notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "ledger already updated; send the link manually"),
		)
		return nil
	}
	job.Status = StatusNotified
	return nil
}

func (p *Pipeline) uploadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.uploadTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.uploadTimeout)
}

func markTimeout(err error, op, target string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageName, op, target, err)
	}
	return services.Wrap(services.ErrExternalService, stageName, op, target, err)
}

func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, job Job) {
	kind := services.Classify(job.Err)
	switch {
	case job.Delivered():
		logger.Info("delivery complete",
			logging.String("status", string(job.Status)),
			logging.String("download_url", job.DownloadURL),
			logging.String("fallback", string(job.Fallback)),
		)
	case job.Status == StatusFolderNotFound || job.Status == StatusValidationFailed:
		logger.Info("delivery skipped",
			logging.String("status", string(job.Status)),
			logging.String(logging.FieldErrorKind, string(kind)),
			logging.Error(job.Err),
		)
	default:
		logging.WarnWithContext(logger, "delivery failed", "delivery_failed",
			logging.String("status", string(job.Status)),
			logging.String(logging.FieldErrorKind, string(kind)),
			logging.Error(job.Err),
			logging.String(logging.FieldImpact, "row left unmarked; retried next run"),
		)
	}

	if p.deps.Metrics != nil {
		p.deps.Metrics.Delivery(string(job.Tier), string(job.Type), string(job.Status))
	}
	if p.deps.Recorder == nil {
		return
	}
	runID, _ := services.RunIDFromContext(ctx)
	entry := journal.Job{
		ID:           job.ID,
		RunID:        runID,
		Customer:     job.Row.CustomerName,
		ShootDate:    job.Row.ShootDate,
		Tier:         string(job.Tier),
		Type:         string(job.Type),
		Row:          job.Row.RowIndex,
		Status:       string(job.Status),
		SourceFolder: job.SourceFolder,
		Fallback:     string(job.Fallback),
		DownloadURL:  job.DownloadURL,
		RecordedAt:   p.now(),
	}
	if job.Err != nil {
		entry.ErrorKind = string(kind)
		entry.ErrorMessage = job.Err.Error()
	}
	if err := p.deps.Recorder.RecordJob(ctx, entry); err != nil {
		logger.Warn("job not recorded in history", logging.Error(err))
	}
}
