// Package journal persists run and delivery job history in SQLite.
//
// Each workflow run gets one row in runs; every delivery job processed during
// the run is recorded in jobs with its final status and, when it stopped
// early, the classified error kind. Timestamps are stored as RFC3339Nano UTC
// text. The schema is applied from embedded, ordered migrations.
package journal
