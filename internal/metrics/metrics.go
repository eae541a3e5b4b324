// Package metrics collects per-run counters and exports them in the
// node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "photodesk"

// Recorder holds the metrics of one process. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	filesMoved     *prometheus.CounterVec
	moveFailures   *prometheus.CounterVec
	deliveries     *prometheus.CounterVec
	rowsRegistered *prometheus.CounterVec
	objectsDeleted prometheus.Counter
	runDuration    prometheus.Gauge
	lastRun        *prometheus.GaugeVec
}

// New registers the photodesk collectors on a private registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		filesMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_moved_total",
			Help:      "Intake photos moved into customer folders.",
		}, []string{"source"}),
		moveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_move_failures_total",
			Help:      "Intake photos that could not be moved.",
		}, []string{"source"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivery jobs by tier, phase and final status.",
		}, []string{"tier", "phase", "status"}),
		rowsRegistered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_rows_registered_total",
			Help:      "Calendar bookings appended to the ledger.",
		}, []string{"sheet"}),
		objectsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_objects_deleted_total",
			Help:      "Expired delivery archives removed from object storage.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished, by outcome.",
		}, []string{"status"}),
	}
	r.registry.MustRegister(
		r.filesMoved,
		r.moveFailures,
		r.deliveries,
		r.rowsRegistered,
		r.objectsDeleted,
		r.runDuration,
		r.lastRun,
	)
	return r
}

// Registry exposes the underlying gatherer.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) FilesMoved(source string, moved, failed int) {
	if r == nil {
		return
	}
	r.filesMoved.WithLabelValues(source).Add(float64(moved))
	r.moveFailures.WithLabelValues(source).Add(float64(failed))
}

func (r *Recorder) Delivery(tier, phase, status string) {
	if r == nil {
		return
	}
	r.deliveries.WithLabelValues(tier, phase, status).Inc()
}

func (r *Recorder) RowsRegistered(sheet string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rowsRegistered.WithLabelValues(sheet).Add(float64(n))
}

func (r *Recorder) ObjectsDeleted(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.objectsDeleted.Add(float64(n))
}

// RunFinished records the run duration and completion time.
func (r *Recorder) RunFinished(status string, duration time.Duration, at time.Time) {
	if r == nil {
		return
	}
	r.runDuration.Set(duration.Seconds())
	r.lastRun.WithLabelValues(status).Set(float64(at.Unix()))
}

// WriteTextfile writes every collected metric to path atomically. An empty
// path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
