// Package organizer moves the studio's intake photos into per-customer
// folders using the booking calendar.
//
// Each run reads the calendar for a window around now and, for every timed
// event, creates `{clients}/{yymmdd}_{name}_{tier}` with an export subfolder.
// Camera originals are then claimed from the original intake folder and
// edited exports from the export intake folder by the timewindow matcher,
// most recent booking first. Failures are contained per file: a file that
// cannot be moved stays in intake and is retried on the next run.
package organizer
