// Package logging assembles structured slog loggers and formatting helpers used
// across photodesk.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so phase code automatically tags log lines
// with run IDs, phases, customer names and delivery job IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail, plus
// retention pruning for the daily log files.
package logging
