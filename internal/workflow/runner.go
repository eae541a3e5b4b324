package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"photodesk/internal/calsync"
	"photodesk/internal/config"
	"photodesk/internal/delivery"
	"photodesk/internal/journal"
	"photodesk/internal/logging"
	"photodesk/internal/metrics"
	"photodesk/internal/notifications"
	"photodesk/internal/organizer"
	"photodesk/internal/runlock"
	"photodesk/internal/services"
	"photodesk/internal/shootdate"
	"photodesk/internal/storage"
)

// Phase names one step of a run.
type Phase string

const (
	PhaseOrganize       Phase = "organize"
	PhaseCalendarSync   Phase = "sync-calendar"
	PhaseDeliverBasic   Phase = "deliver-basic"
	PhaseDeliverPremium Phase = "deliver-premium"
	PhaseStorageCleanup Phase = "storage-cleanup"
)

// AllPhases returns every phase in execution order.
func AllPhases() []Phase {
	return []Phase{PhaseOrganize, PhaseCalendarSync, PhaseDeliverBasic, PhaseDeliverPremium, PhaseStorageCleanup}
}

// Location is the operator-facing label used in alerts.
func (p Phase) Location() string {
	switch p {
	case PhaseOrganize:
		return "사진 정리"
	case PhaseCalendarSync:
		return "캘린더 등록"
	case PhaseDeliverBasic:
		return "베이직 발송"
	case PhaseDeliverPremium:
		return "프리미엄 발송"
	case PhaseStorageCleanup:
		return "스토리지 정리"
	default:
		return string(p)
	}
}

const (
	componentName   = "workflow"
	panicLocation   = "메인 시스템"
	logFilePattern  = "photodesk-*.log"
	releaseDeadline = 10 * time.Second
)

// Organizer moves intake photos into customer folders.
type Organizer interface {
	Run(ctx context.Context) (organizer.Result, error)
}

// CalendarSyncer registers calendar bookings in the ledger.
type CalendarSyncer interface {
	Run(ctx context.Context) (calsync.Result, error)
}

// Deliverer runs the delivery phases.
type Deliverer interface {
	RunBasic(ctx context.Context) (delivery.Summary, error)
	RunPremium(ctx context.Context) (delivery.Summary, error)
}

// Cleaner removes expired archives from object storage.
type Cleaner interface {
	Run(ctx context.Context) (storage.CleanupResult, error)
}

// Journal records run outcomes.
type Journal interface {
	StartRun(ctx context.Context, id, command string, startedAt time.Time) error
	FinishRun(ctx context.Context, run journal.Run) error
}

// Components are the runner's collaborators. Any of them may be nil; a phase
// whose collaborator is nil fails with the matching Unavailable error.
type Components struct {
	Lock      runlock.Lock
	Journal   Journal
	Notifier  notifications.Service
	Metrics   *metrics.Recorder
	Organizer Organizer
	Syncer    CalendarSyncer
	Deliverer Deliverer
	Cleaner   Cleaner
	// Unavailable holds the reason each phase could not be wired.
	Unavailable map[Phase]error
}

// Options selects what a run executes.
type Options struct {
	// Command is stored in the journal, e.g. "run" or "deliver basic".
	Command string
	// Phases defaults to AllPhases.
	Phases []Phase
	// Force runs phases even when their enable flag is off in configuration.
	Force bool
}

// PhaseFailure is a phase that aborted.
type PhaseFailure struct {
	Phase Phase
	Err   error
}

// Report summarises one run.
type Report struct {
	RunID      string
	Command    string
	Status     string
	Skipped    bool
	StartedAt  time.Time
	FinishedAt time.Time
	LogsPruned int
	Organize   organizer.Result
	Sync       calsync.Result
	Basic      delivery.Summary
	Premium    delivery.Summary
	Cleanup    storage.CleanupResult
	// Ran lists the phases that were attempted, in order.
	Ran []Phase
	// CleanupErr is alerted but does not fail the run.
	CleanupErr error
	Failures   []PhaseFailure
}

// Failure returns the error that aborted phase, if any.
func (r Report) Failure(phase Phase) error {
	if phase == PhaseStorageCleanup {
		return r.CleanupErr
	}
	for _, f := range r.Failures {
		if f.Phase == phase {
			return f.Err
		}
	}
	return nil
}

// Err joins the phase failures.
func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Phase, f.Err))
	}
	return errors.Join(errs...)
}

// Delivered counts rows delivered in both delivery phases.
func (r Report) Delivered() int { return r.Basic.Delivered + r.Premium.Delivered }

// Runner executes runs against a fixed set of components.
type Runner struct {
	cfg    *config.Config
	c      *Components
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewRunner constructs a runner.
func NewRunner(cfg *config.Config, c *Components, logger *slog.Logger) *Runner {
	if c == nil {
		c = &Components{}
	}
	if c.Notifier == nil {
		c.Notifier = notifications.NewService(nil)
	}
	return &Runner{
		cfg:    cfg,
		c:      c,
		logger: logging.NewComponentLogger(logger, componentName),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// SetClock overrides the time source (used in tests).
func (r *Runner) SetClock(now func() time.Time) {
	if now != nil {
		r.now = now
	}
}

// Run executes one run. A held lock is not an error: the report is marked
// skipped and nothing else happens. The returned error joins phase failures
// other than storage cleanup.
func (r *Runner) Run(ctx context.Context, opts Options) (report Report, err error) {
	report.Command = opts.Command
	if report.Command == "" {
		report.Command = "run"
	}

	if r.c.Lock != nil {
		acquired, lockErr := r.c.Lock.Acquire(ctx)
		if lockErr != nil {
			return report, services.Wrap(services.ErrConfiguration, componentName, "acquire lock", "run lock unavailable", lockErr)
		}
		if !acquired {
			r.logger.Info("another run holds the lock; exiting",
				logging.String("command", report.Command),
				logging.String(logging.FieldEventType, "run_lock_held"),
			)
			report.Status = journal.RunSkipped
			report.Skipped = true
			return report, nil
		}
		defer r.releaseLock(ctx)
	}

	report.RunID = r.newID()
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, r.logger)
	report.StartedAt = r.now()
	report.Status = journal.RunRunning
	r.startJournal(ctx, logger, report)
	logger.Info("run started",
		logging.String("command", report.Command),
		logging.String(logging.FieldEventType, "run_started"),
	)

	defer func() {
		if p := recover(); p != nil {
			err = services.Wrap(services.ErrCatastrophic, componentName, "run", fmt.Sprintf("panic: %v", p), nil)
			logger.Error("run panicked",
				logging.Error(err),
				logging.String("stack", string(debug.Stack())),
				logging.Alert("run_panic"),
				logging.String(logging.FieldErrorKind, string(services.KindCatastrophic)),
				logging.String(logging.FieldEventType, "run_panic"),
			)
			r.alert(ctx, logger, panicLocation, err)
			report.Failures = append(report.Failures, PhaseFailure{Phase: "run", Err: err})
		}
		report.FinishedAt = r.now()
		r.finish(ctx, logger, &report)
	}()

	report.LogsPruned = r.pruneLogs(logger, report.StartedAt)

	for _, phase := range r.phases(opts) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			report.Failures = append(report.Failures, PhaseFailure{Phase: phase, Err: ctxErr})
			break
		}
		report.Ran = append(report.Ran, phase)
		phaseErr := r.runPhase(services.WithPhase(ctx, string(phase)), phase, &report)
		if phaseErr == nil {
			continue
		}
		if phase == PhaseStorageCleanup {
			report.CleanupErr = phaseErr
			r.phaseFailed(ctx, logger, phase, phaseErr)
			continue
		}
		report.Failures = append(report.Failures, PhaseFailure{Phase: phase, Err: phaseErr})
		r.phaseFailed(ctx, logger, phase, phaseErr)
		if errors.Is(phaseErr, services.ErrCatastrophic) {
			break
		}
	}
	return report, report.Err()
}

func (r *Runner) phases(opts Options) []Phase {
	requested := opts.Phases
	if len(requested) == 0 {
		requested = AllPhases()
	}
	if opts.Force || r.cfg == nil {
		return requested
	}
	out := make([]Phase, 0, len(requested))
	for _, phase := range requested {
		if r.enabled(phase) {
			out = append(out, phase)
			continue
		}
		r.logger.Debug("phase disabled in configuration", logging.String("phase", string(phase)))
	}
	return out
}

func (r *Runner) enabled(phase Phase) bool {
	switch phase {
	case PhaseOrganize:
		return r.cfg.Organizer.Enabled
	case PhaseCalendarSync:
		return r.cfg.Ledger.SyncCalendar
	case PhaseDeliverBasic, PhaseDeliverPremium:
		return r.cfg.Delivery.Enabled
	case PhaseStorageCleanup:
		return r.cfg.Storage.RetentionDays > 0
	default:
		return true
	}
}

func (r *Runner) runPhase(ctx context.Context, phase Phase, report *Report) error {
	if err := r.unavailable(phase); err != nil {
		return err
	}
	var err error
	switch phase {
	case PhaseOrganize:
		report.Organize, err = r.c.Organizer.Run(ctx)
	case PhaseCalendarSync:
		report.Sync, err = r.c.Syncer.Run(ctx)
	case PhaseDeliverBasic:
		report.Basic, err = r.c.Deliverer.RunBasic(ctx)
	case PhaseDeliverPremium:
		report.Premium, err = r.c.Deliverer.RunPremium(ctx)
	case PhaseStorageCleanup:
		report.Cleanup, err = r.c.Cleaner.Run(ctx)
		if err == nil {
			r.notifyCleanup(ctx, report.Cleanup)
		}
	default:
		err = services.Wrap(services.ErrValidation, componentName, "run phase", fmt.Sprintf("unknown phase %q", phase), nil)
	}
	return err
}

// unavailable reports why a phase cannot run, or nil when it is wired.
func (r *Runner) unavailable(phase Phase) error {
	if reason := r.c.Unavailable[phase]; reason != nil {
		return services.Wrap(services.ErrConfiguration, string(phase), "prepare", "phase not configured", reason)
	}
	wired := true
	switch phase {
	case PhaseOrganize:
		wired = r.c.Organizer != nil
	case PhaseCalendarSync:
		wired = r.c.Syncer != nil
	case PhaseDeliverBasic, PhaseDeliverPremium:
		wired = r.c.Deliverer != nil
	case PhaseStorageCleanup:
		wired = r.c.Cleaner != nil
	}
	if !wired {
		return services.Wrap(services.ErrConfiguration, string(phase), "prepare", "phase not configured", nil)
	}
	return nil
}

func (r *Runner) phaseFailed(ctx context.Context, logger *slog.Logger, phase Phase, err error) {
	kind := services.Classify(err)
	logger.Error("phase failed",
		logging.String("phase", string(phase)),
		logging.Error(err),
		logging.Alert("phase_failure"),
		logging.String(logging.FieldErrorKind, string(kind)),
		logging.String(logging.FieldEventType, "phase_failed"),
		logging.String(logging.FieldErrorHint, phaseHint(kind)),
		logging.String(logging.FieldImpact, "remaining phases continue; affected rows retry next run"),
	)
	r.alert(ctx, logger, phase.Location(), err)
}

func phaseHint(kind services.Kind) string {
	switch kind {
	case services.KindConfiguration:
		return "run photodesk config validate and fix the reported section"
	case services.KindTimeout, services.KindExternalService, services.KindTransient:
		return "check network access to the external service"
	default:
		return "inspect the log for the failing operation"
	}
}

func (r *Runner) alert(ctx context.Context, logger *slog.Logger, location string, cause error) {
	if err := r.c.Notifier.NotifyAlert(context.WithoutCancel(ctx), location, cause.Error()); err != nil {
		logger.Warn("operator alert failed",
			logging.String("location", location),
			logging.Error(err),
			logging.String(logging.FieldEventType, "alert_failed"),
			logging.String(logging.FieldErrorHint, "check notifications configuration"),
			logging.String(logging.FieldImpact, "operator was not alerted"),
		)
	}
}

func (r *Runner) notifyCleanup(ctx context.Context, res storage.CleanupResult) {
	if err := r.c.Notifier.NotifyCleanup(ctx, res.Deleted, res.Failed); err != nil {
		r.logger.Debug("cleanup notification failed", logging.Error(err))
	}
}

func (r *Runner) pruneLogs(logger *slog.Logger, now time.Time) int {
	if r.cfg == nil || r.cfg.Paths.LogDir == "" {
		return 0
	}
	current := r.cfg.LogPath(now.In(shootdate.Location))
	removed := logging.CleanupOldLogs(logger, r.cfg.Logging.RetentionDays, now, logging.RetentionTarget{
		Dir:     r.cfg.Paths.LogDir,
		Pattern: logFilePattern,
		Exclude: []string{filepath.Clean(current)},
	})
	if removed > 0 {
		logger.Info("old log files removed", logging.Int("removed", removed))
	}
	return removed
}

func (r *Runner) startJournal(ctx context.Context, logger *slog.Logger, report Report) {
	if r.c.Journal == nil {
		return
	}
	if err := r.c.Journal.StartRun(ctx, report.RunID, report.Command, report.StartedAt); err != nil {
		logging.WarnWithContext(logger, "run journal unavailable", "journal_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
			logging.String(logging.FieldImpact, "this run will be missing from history"),
		)
	}
}

func (r *Runner) finish(ctx context.Context, logger *slog.Logger, report *Report) {
	ctx = context.WithoutCancel(ctx)
	report.Status = journal.RunSucceeded
	runErr := report.Err()
	if runErr != nil {
		report.Status = journal.RunFailed
	}

	m := r.c.Metrics
	m.FilesMoved("original", report.Organize.OriginalMoved, report.Organize.OriginalFailed)
	m.FilesMoved("export", report.Organize.ExportMoved, report.Organize.ExportFailed)
	for sheet, n := range report.Sync.Registered {
		m.RowsRegistered(sheet, n)
	}
	m.ObjectsDeleted(report.Cleanup.Deleted)
	m.RunFinished(report.Status, report.FinishedAt.Sub(report.StartedAt), report.FinishedAt)
	if r.cfg != nil {
		if err := m.WriteTextfile(r.cfg.Metrics.TextfilePath); err != nil {
			logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check metrics.textfile_path permissions"),
				logging.String(logging.FieldImpact, "node exporter serves stale values"),
			)
		}
	}

	if r.c.Journal != nil {
		run := journal.Run{
			ID:             report.RunID,
			Command:        report.Command,
			Status:         report.Status,
			StartedAt:      report.StartedAt,
			FinishedAt:     report.FinishedAt,
			FilesMoved:     report.Organize.FilesMoved(),
			RowsRegistered: report.Sync.Total(),
			ObjectsDeleted: report.Cleanup.Deleted,
		}
		if runErr != nil {
			run.ErrorKind = string(services.Classify(runErr))
			run.ErrorMessage = runErr.Error()
		}
		if err := r.c.Journal.FinishRun(ctx, run); err != nil {
			logging.WarnWithContext(logger, "run journal not updated", "journal_finish_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
				logging.String(logging.FieldImpact, "history shows this run as running"),
			)
		}
	}

	logger.Info("run finished",
		logging.String("status", report.Status),
		logging.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
		logging.Int("files_moved", report.Organize.FilesMoved()),
		logging.Int("rows_registered", report.Sync.Total()),
		logging.Int("delivered", report.Delivered()),
		logging.Int("objects_deleted", report.Cleanup.Deleted),
		logging.Int("phase_failures", len(report.Failures)),
		logging.String(logging.FieldEventType, "run_finished"),
	)
}

func (r *Runner) releaseLock(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseDeadline)
	defer cancel()
	if err := r.c.Lock.Release(ctx); err != nil {
		logging.WarnWithContext(r.logger, "run lock release failed", "run_lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the stale lock if no run is active"),
			logging.String(logging.FieldImpact, "the next run may be skipped until the lock expires"),
		)
	}
}
