package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"photodesk/internal/calsync"
	"photodesk/internal/delivery"
	"photodesk/internal/journal"
	"photodesk/internal/logging"
	"photodesk/internal/metrics"
	"photodesk/internal/notifications"
	"photodesk/internal/organizer"
	"photodesk/internal/runlock"
	"photodesk/internal/services"
	"photodesk/internal/storage"
	"photodesk/internal/testsupport"
	"photodesk/internal/workflow"
)

type trace struct{ calls []string }

func (t *trace) add(s string) { t.calls = append(t.calls, s) }

type fakeLock struct {
	held     bool
	acquired bool
	released bool
}

func (l *fakeLock) Acquire(context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.acquired = true
	return true, nil
}

func (l *fakeLock) Release(context.Context) error {
	l.released = true
	return nil
}

func (l *fakeLock) Status(context.Context) (runlock.Status, error) {
	return runlock.Status{Backend: "fake", Held: l.held || l.acquired}, nil
}

type fakeJournal struct {
	started  []string
	finished []journal.Run
}

func (j *fakeJournal) StartRun(_ context.Context, id, command string, _ time.Time) error {
	j.started = append(j.started, id+" "+command)
	return nil
}

func (j *fakeJournal) FinishRun(_ context.Context, run journal.Run) error {
	j.finished = append(j.finished, run)
	return nil
}

type alert struct{ location, detail string }

type fakeNotifier struct {
	alerts  []alert
	cleanup [][2]int
}

func (n *fakeNotifier) NotifyDelivery(context.Context, notifications.Delivery) error { return nil }

func (n *fakeNotifier) NotifyAlert(_ context.Context, location, detail string) error {
	n.alerts = append(n.alerts, alert{location, detail})
	return nil
}

func (n *fakeNotifier) NotifyCleanup(_ context.Context, deleted, failed int) error {
	n.cleanup = append(n.cleanup, [2]int{deleted, failed})
	return nil
}

func (n *fakeNotifier) TestNotification(context.Context) error { return nil }

type fakeOrganizer struct {
	tr     *trace
	result organizer.Result
	err    error
	panic  bool
}

func (o *fakeOrganizer) Run(context.Context) (organizer.Result, error) {
	o.tr.add("organize")
	if o.panic {
		panic("intake exploded")
	}
	return o.result, o.err
}

type fakeSyncer struct {
	tr     *trace
	result calsync.Result
	err    error
}

func (s *fakeSyncer) Run(context.Context) (calsync.Result, error) {
	s.tr.add("sync")
	return s.result, s.err
}

type fakeDeliverer struct {
	tr         *trace
	basic      delivery.Summary
	basicErr   error
	premium    delivery.Summary
	premiumErr error
	runIDs     []string
}

func (d *fakeDeliverer) RunBasic(ctx context.Context) (delivery.Summary, error) {
	d.tr.add("basic")
	id, _ := services.RunIDFromContext(ctx)
	d.runIDs = append(d.runIDs, id)
	return d.basic, d.basicErr
}

func (d *fakeDeliverer) RunPremium(context.Context) (delivery.Summary, error) {
	d.tr.add("premium")
	return d.premium, d.premiumErr
}

type fakeCleaner struct {
	tr     *trace
	result storage.CleanupResult
	err    error
}

func (c *fakeCleaner) Run(context.Context) (storage.CleanupResult, error) {
	c.tr.add("cleanup")
	return c.result, c.err
}

type harness struct {
	tr        *trace
	lock      *fakeLock
	journal   *fakeJournal
	notifier  *fakeNotifier
	organizer *fakeOrganizer
	syncer    *fakeSyncer
	deliverer *fakeDeliverer
	cleaner   *fakeCleaner
	comps     *workflow.Components
}

func newHarness() *harness {
	tr := &trace{}
	h := &harness{
		tr:        tr,
		lock:      &fakeLock{},
		journal:   &fakeJournal{},
		notifier:  &fakeNotifier{},
		organizer: &fakeOrganizer{tr: tr},
		syncer:    &fakeSyncer{tr: tr},
		deliverer: &fakeDeliverer{tr: tr},
		cleaner:   &fakeCleaner{tr: tr},
	}
	h.comps = &workflow.Components{
		Lock:      h.lock,
		Journal:   h.journal,
		Notifier:  h.notifier,
		Metrics:   metrics.New(),
		Organizer: h.organizer,
		Syncer:    h.syncer,
		Deliverer: h.deliverer,
		Cleaner:   h.cleaner,
	}
	return h
}

func (h *harness) runner(t *testing.T) *workflow.Runner {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Metrics.TextfilePath = filepath.Join(testsupport.BaseDir(cfg), "textfile", "photodesk.prom")
	r := workflow.NewRunner(cfg, h.comps, logging.NewNop())
	return r
}

func TestRunExecutesPhasesInOrder(t *testing.T) {
	h := newHarness()
	h.organizer.result = organizer.Result{OriginalMoved: 3, ExportMoved: 2}
	h.syncer.result = calsync.Result{Registered: map[string]int{"베이직": 1, "프리미엄": 2}}
	h.deliverer.basic = delivery.Summary{Pending: 1, Delivered: 1}
	h.cleaner.result = storage.CleanupResult{Scanned: 4, Deleted: 2}
	cfg := testsupport.NewConfig(t)
	cfg.Metrics.TextfilePath = filepath.Join(testsupport.BaseDir(cfg), "textfile", "photodesk.prom")
	r := workflow.NewRunner(cfg, h.comps, logging.NewNop())

	report, err := r.Run(context.Background(), workflow.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "organize,sync,basic,premium,cleanup"
	if got := strings.Join(h.tr.calls, ","); got != want {
		t.Fatalf("phase order = %s, want %s", got, want)
	}
	if report.Status != journal.RunSucceeded || report.Skipped {
		t.Fatalf("unexpected report status %q skipped=%v", report.Status, report.Skipped)
	}
	if !h.lock.acquired || !h.lock.released {
		t.Fatalf("lock acquired=%v released=%v", h.lock.acquired, h.lock.released)
	}
	if len(h.journal.started) != 1 || len(h.journal.finished) != 1 {
		t.Fatalf("journal calls start=%d finish=%d", len(h.journal.started), len(h.journal.finished))
	}
	run := h.journal.finished[0]
	if run.ID != report.RunID || run.Command != "run" || run.Status != journal.RunSucceeded {
		t.Fatalf("unexpected journal run %+v", run)
	}
	if run.FilesMoved != 5 || run.RowsRegistered != 3 || run.ObjectsDeleted != 2 {
		t.Fatalf("unexpected journal tallies %+v", run)
	}
	if len(h.deliverer.runIDs) != 1 || h.deliverer.runIDs[0] != report.RunID {
		t.Fatalf("phase context missing run id: %v", h.deliverer.runIDs)
	}
	if len(h.notifier.cleanup) != 1 || h.notifier.cleanup[0] != [2]int{2, 0} {
		t.Fatalf("cleanup notification = %v", h.notifier.cleanup)
	}
	if len(h.notifier.alerts) != 0 {
		t.Fatalf("unexpected alerts %v", h.notifier.alerts)
	}
	data, err := os.ReadFile(cfg.Metrics.TextfilePath)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	for _, metric := range []string{
		`photodesk_files_moved_total{source="original"} 3`,
		`photodesk_files_moved_total{source="export"} 2`,
		`photodesk_storage_objects_deleted_total 2`,
		`photodesk_last_run_timestamp_seconds{status="succeeded"}`,
	} {
		if !strings.Contains(string(data), metric) {
			t.Errorf("textfile missing %s:\n%s", metric, data)
		}
	}
}

func TestHeldLockSkipsRun(t *testing.T) {
	h := newHarness()
	h.lock.held = true

	report, err := h.runner(t).Run(context.Background(), workflow.Options{})
	if err != nil {
		t.Fatalf("held lock should not be an error: %v", err)
	}
	if !report.Skipped || report.Status != journal.RunSkipped {
		t.Fatalf("expected skipped report, got %+v", report)
	}
	if len(h.tr.calls) != 0 || len(h.journal.started) != 0 {
		t.Fatalf("skipped run did work: calls=%v journal=%v", h.tr.calls, h.journal.started)
	}
	if h.lock.released {
		t.Fatal("lock held by another run must not be released")
	}
}

func TestPhaseFailureAlertsAndContinues(t *testing.T) {
	h := newHarness()
	h.organizer.err = services.Wrap(services.ErrExternalService, "organizer", "read calendar", "feed unavailable", errors.New("502"))

	report, err := h.runner(t).Run(context.Background(), workflow.Options{})
	if err == nil || !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if got := strings.Join(h.tr.calls, ","); got != "organize,sync,basic,premium,cleanup" {
		t.Fatalf("later phases should still run, got %s", got)
	}
	if report.Status != journal.RunFailed || len(report.Failures) != 1 || report.Failures[0].Phase != workflow.PhaseOrganize {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(h.notifier.alerts) != 1 || h.notifier.alerts[0].location != "사진 정리" {
		t.Fatalf("unexpected alerts %v", h.notifier.alerts)
	}
	if !strings.Contains(h.notifier.alerts[0].detail, "feed unavailable") {
		t.Fatalf("alert detail missing cause: %q", h.notifier.alerts[0].detail)
	}
	run := h.journal.finished[0]
	if run.Status != journal.RunFailed || run.ErrorKind != string(services.KindExternalService) {
		t.Fatalf("unexpected journal run %+v", run)
	}
}

func TestUnavailablePhaseFailsWithConfigurationError(t *testing.T) {
	h := newHarness()
	h.comps.Deliverer = nil
	h.comps.Unavailable = map[workflow.Phase]error{
		workflow.PhaseDeliverBasic:   errors.New("publish.api_url not set"),
		workflow.PhaseDeliverPremium: errors.New("publish.api_url not set"),
	}

	report, err := h.runner(t).Run(context.Background(), workflow.Options{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(report.Failures) != 2 {
		t.Fatalf("expected both delivery phases to fail, got %+v", report.Failures)
	}
	if len(h.notifier.alerts) != 2 || h.notifier.alerts[0].location != "베이직 발송" || h.notifier.alerts[1].location != "프리미엄 발송" {
		t.Fatalf("unexpected alerts %v", h.notifier.alerts)
	}
	if got := strings.Join(h.tr.calls, ","); got != "organize,sync,cleanup" {
		t.Fatalf("unexpected calls %s", got)
	}
}

func TestCleanupFailureDoesNotFailRun(t *testing.T) {
	h := newHarness()
	h.cleaner.err = errors.New("list objects: access denied")

	report, err := h.runner(t).Run(context.Background(), workflow.Options{})
	if err != nil {
		t.Fatalf("cleanup failure must not fail the run: %v", err)
	}
	if report.Status != journal.RunSucceeded || report.CleanupErr == nil {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(h.notifier.alerts) != 1 || h.notifier.alerts[0].location != "스토리지 정리" {
		t.Fatalf("unexpected alerts %v", h.notifier.alerts)
	}
	if len(h.notifier.cleanup) != 0 {
		t.Fatalf("failed cleanup should not send a summary: %v", h.notifier.cleanup)
	}
}

func TestPanicIsCatastrophicAndReleasesLock(t *testing.T) {
	h := newHarness()
	h.organizer.panic = true

	report, err := h.runner(t).Run(context.Background(), workflow.Options{})
	if !errors.Is(err, services.ErrCatastrophic) {
		t.Fatalf("expected catastrophic error, got %v", err)
	}
	if !h.lock.released {
		t.Fatal("lock must be released after a panic")
	}
	if got := strings.Join(h.tr.calls, ","); got != "organize" {
		t.Fatalf("run should stop at the panic, got %s", got)
	}
	if report.Status != journal.RunFailed {
		t.Fatalf("status = %q", report.Status)
	}
	if len(h.notifier.alerts) != 1 || h.notifier.alerts[0].location != "메인 시스템" {
		t.Fatalf("unexpected alerts %v", h.notifier.alerts)
	}
	if len(h.journal.finished) != 1 || h.journal.finished[0].ErrorKind != string(services.KindCatastrophic) {
		t.Fatalf("unexpected journal %+v", h.journal.finished)
	}
}

func TestCatastrophicPhaseErrorStopsRun(t *testing.T) {
	h := newHarness()
	h.syncer.err = services.Wrap(services.ErrCatastrophic, "calsync", "append", "ledger corrupted", nil)

	_, err := h.runner(t).Run(context.Background(), workflow.Options{})
	if !errors.Is(err, services.ErrCatastrophic) {
		t.Fatalf("expected catastrophic error, got %v", err)
	}
	if got := strings.Join(h.tr.calls, ","); got != "organize,sync" {
		t.Fatalf("unexpected calls %s", got)
	}
}

func TestDisabledPhasesRunOnlyWhenForced(t *testing.T) {
	h := newHarness()
	cfg := testsupport.NewConfig(t)
	cfg.Organizer.Enabled = false
	cfg.Ledger.SyncCalendar = false
	cfg.Delivery.Enabled = false
	r := workflow.NewRunner(cfg, h.comps, logging.NewNop())

	if _, err := r.Run(context.Background(), workflow.Options{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.Join(h.tr.calls, ","); got != "cleanup" {
		t.Fatalf("disabled phases ran: %s", got)
	}

	h.tr.calls = nil
	_, err := r.Run(context.Background(), workflow.Options{
		Command: "organize",
		Phases:  []workflow.Phase{workflow.PhaseOrganize},
		Force:   true,
	})
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if got := strings.Join(h.tr.calls, ","); got != "organize" {
		t.Fatalf("forced phase did not run: %s", got)
	}
	if last := h.journal.finished[len(h.journal.finished)-1]; last.Command != "organize" {
		t.Fatalf("journal command = %q", last.Command)
	}
}

func TestRunPrunesOldLogs(t *testing.T) {
	h := newHarness()
	cfg := testsupport.NewConfig(t)
	cfg.Logging.RetentionDays = 7
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	old := filepath.Join(cfg.Paths.LogDir, "photodesk-20260101.log")
	other := filepath.Join(cfg.Paths.LogDir, "notes.txt")
	for _, path := range []string{old, other} {
		testsupport.Touch(t, path)
		stale := now.AddDate(0, 0, -30)
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
	r := workflow.NewRunner(cfg, h.comps, logging.NewNop())
	r.SetClock(func() time.Time { return now })

	report, err := r.Run(context.Background(), workflow.Options{Phases: []workflow.Phase{workflow.PhaseStorageCleanup}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.LogsPruned != 1 {
		t.Fatalf("pruned = %d, want 1", report.LogsPruned)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("old log should be removed, stat err=%v", err)
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatalf("unrelated file removed: %v", err)
	}
}

func TestBuildRecordsUnavailablePhases(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	comps, closeFn, err := workflow.Build(context.Background(), cfg, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = closeFn() })

	if comps.Lock == nil || comps.Journal == nil || comps.Notifier == nil || comps.Metrics == nil {
		t.Fatalf("core components missing: %+v", comps)
	}
	for _, phase := range []workflow.Phase{
		workflow.PhaseOrganize,
		workflow.PhaseCalendarSync,
		workflow.PhaseDeliverBasic,
		workflow.PhaseDeliverPremium,
		workflow.PhaseStorageCleanup,
	} {
		if comps.Unavailable[phase] == nil {
			t.Errorf("phase %s should be unavailable without calendar, publish and storage settings", phase)
		}
	}

	report, err := workflow.NewRunner(cfg, comps, logging.NewNop()).Run(context.Background(), workflow.Options{
		Phases: []workflow.Phase{workflow.PhaseOrganize},
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if report.Status != journal.RunFailed {
		t.Fatalf("status = %q", report.Status)
	}
	if _, err := os.Stat(cfg.HistoryPath()); err != nil {
		t.Fatalf("journal not created: %v", err)
	}
}

func TestBuildWiresOrganizerWithCalendar(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCalendar(filepath.Join(t.TempDir(), "feed.ics")))

	comps, closeFn, err := workflow.Build(context.Background(), cfg, logging.NewNop(), []workflow.Phase{workflow.PhaseOrganize, workflow.PhaseCalendarSync})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = closeFn() })
	if comps.Organizer == nil || comps.Syncer == nil {
		t.Fatalf("calendar phases not wired: %+v", comps.Unavailable)
	}
	if len(comps.Unavailable) != 0 {
		t.Fatalf("unexpected unavailable phases %v", comps.Unavailable)
	}
}
