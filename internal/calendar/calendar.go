// Package calendar reads booking events from the studio's calendar feed and
// parses the booking platform's event titles.
package calendar

import (
	"context"
	"time"
)

// Event is a timed calendar entry.
type Event struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Source lists events overlapping [from, to], ordered by start.
type Source interface {
	Events(ctx context.Context, from, to time.Time) ([]Event, error)
}

// Overlaps reports whether ev intersects [from, to].
func (ev Event) Overlaps(from, to time.Time) bool {
	return ev.End.After(from) && ev.Start.Before(to)
}
