package organizer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"photodesk/internal/calendar"
	"photodesk/internal/config"
	"photodesk/internal/logging"
	"photodesk/internal/services"
	"photodesk/internal/shootdate"
	"photodesk/internal/textutil"
	"photodesk/internal/timewindow"
)

const stageName = "organizer"

// Result summarises one organizer run.
type Result struct {
	Events         int
	Skipped        int
	Folders        []string
	OriginalMoved  int
	OriginalFailed int
	ExportMoved    int
	ExportFailed   int
	Failed         int
}

// FilesMoved returns the total number of files moved.
func (r Result) FilesMoved() int { return r.OriginalMoved + r.ExportMoved }

// Organizer moves intake photos into customer folders.
type Organizer struct {
	source       calendar.Source
	originalDir  string
	exportDir    string
	clientsDir   string
	exportSubdir string
	window       time.Duration
	matcher      timewindow.Matcher
	logger       *slog.Logger
	now          func() time.Time
}

// New constructs an organizer from configuration.
func New(cfg *config.Config, source calendar.Source, logger *slog.Logger) *Organizer {
	return &Organizer{
		source:       source,
		originalDir:  cfg.Paths.OriginalDir,
		exportDir:    cfg.Paths.ExportDir,
		clientsDir:   cfg.Paths.ClientsDir,
		exportSubdir: cfg.Delivery.ExportSubdir,
		window:       time.Duration(cfg.Calendar.WindowHours) * time.Hour,
		matcher:      timewindow.NewMatcher(time.Duration(cfg.Organizer.BufferMinutes) * time.Minute),
		logger:       logging.NewComponentLogger(logger, stageName),
		now:          time.Now,
	}
}

// SetClock overrides the time source (used in tests).
func (o *Organizer) SetClock(now func() time.Time) {
	if now != nil {
		o.now = now
	}
}

type booking struct {
	folder    string
	exportDir string
	customer  string
	start     time.Time
	end       time.Time
}

// Run reads the calendar and moves every intake file that falls inside a
// booking window. A calendar failure aborts the run; everything after that
// is contained per booking or per file.
func (o *Organizer) Run(ctx context.Context) (Result, error) {
	logger := logging.WithContext(ctx, o.logger)
	now := o.now().In(shootdate.Location)
	from, to := now.Add(-o.window), now.Add(o.window)

	events, err := o.source.Events(ctx, from, to)
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalService, stageName, "read calendar", "", err)
	}
	var result Result
	result.Events = len(events)
	if len(events) == 0 {
		logger.Info("no bookings in window",
			logging.Time("from", from),
			logging.Time("to", to),
		)
		return result, nil
	}

	bookings := make([]booking, 0, len(events))
	for _, ev := range events {
		if ev.Start.IsZero() || ev.End.IsZero() {
			result.Skipped++
			logging.WarnWithContext(logger, "booking has no usable start or end; skipped", "booking_time_invalid",
				logging.String("summary", ev.Summary),
				logging.String(logging.FieldImpact, "photos for this booking stay in intake"),
			)
			continue
		}
		b, err := o.prepareFolder(ev)
		if err != nil {
			result.Skipped++
			logging.WarnWithContext(logger, "customer folder could not be created", "customer_folder_failed",
				logging.String("summary", ev.Summary),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check clients_dir permissions"),
			)
			continue
		}
		bookings = append(bookings, b)
		result.Folders = append(result.Folders, b.folder)
	}

	appts := make([]timewindow.Appointment, 0, len(bookings))
	byKey := make(map[string]booking, len(bookings))
	for _, b := range bookings {
		appts = append(appts, timewindow.Appointment{Key: b.folder, Customer: b.customer, Start: b.start, End: b.end})
		byKey[b.folder] = b
	}

	mover := timewindow.Mover{Logger: logger}
	moved, failed := o.moveIntake(ctx, logger, mover, "original", o.originalDir, appts, func(b booking) string { return b.folder }, byKey)
	result.OriginalMoved, result.OriginalFailed = moved, failed
	moved, failed = o.moveIntake(ctx, logger, mover, "export", o.exportDir, appts, func(b booking) string { return b.exportDir }, byKey)
	result.ExportMoved, result.ExportFailed = moved, failed
	result.Failed = result.OriginalFailed + result.ExportFailed

	logger.Info("intake organised",
		logging.Int("bookings", len(bookings)),
		logging.Int("originals_moved", result.OriginalMoved),
		logging.Int("exports_moved", result.ExportMoved),
		logging.Int("failed", result.Failed),
	)
	return result, ctx.Err()
}

func (o *Organizer) prepareFolder(ev calendar.Event) (booking, error) {
	start := ev.Start.In(shootdate.Location)
	customer := textutil.SanitizeCustomerName(ev.Summary)
	tier := calendar.TierFromTitle(ev.Summary)
	name := fmt.Sprintf("%s_%s_%s", shootdate.Compact(start), customer, tier.Label())
	folder := filepath.Join(o.clientsDir, name)
	exportDir := filepath.Join(folder, o.exportSubdir)
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return booking{}, fmt.Errorf("create %s: %w", exportDir, err)
	}
	return booking{
		folder:    folder,
		exportDir: exportDir,
		customer:  customer,
		start:     start,
		end:       ev.End.In(shootdate.Location),
	}, nil
}

func (o *Organizer) moveIntake(
	ctx context.Context,
	logger *slog.Logger,
	mover timewindow.Mover,
	label, dir string,
	appts []timewindow.Appointment,
	dest func(booking) string,
	byKey map[string]booking,
) (int, int) {
	if strings.TrimSpace(dir) == "" {
		return 0, 0
	}
	files, err := timewindow.Scan(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("intake folder missing", logging.String("source", label), logging.String("path", dir))
		} else {
			logging.WarnWithContext(logger, "intake folder unreadable", "intake_scan_failed",
				logging.String("source", label),
				logging.String("path", dir),
				logging.Error(err),
			)
		}
		return 0, 0
	}
	logger.Debug("intake scanned", logging.String("source", label), logging.Int("files", len(files)))

	var moved, failed int
	for _, assignment := range o.matcher.Assign(appts, files) {
		if len(assignment.Files) == 0 {
			continue
		}
		b := byKey[assignment.Appointment.Key]
		res := mover.Move(ctx, assignment.Files, dest(b))
		moved += res.Moved
		failed += res.Failed
		if res.Moved > 0 {
			logger.Info("photos moved",
				logging.String("source", label),
				logging.String(logging.FieldCustomer, b.customer),
				logging.String("folder", filepath.Base(b.folder)),
				logging.Int("count", res.Moved),
			)
		}
	}
	return moved, failed
}
