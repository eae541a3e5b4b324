package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"photodesk/internal/logging"
	"photodesk/internal/services"
	"photodesk/internal/shootdate"
)

// ICSSource reads an iCalendar feed over HTTP(S) or from a local file.
// Recurring events are not expanded; bookings are single events.
type ICSSource struct {
	location string
	client   *http.Client
	logger   *slog.Logger
}

// NewICSSource returns a source for location, which is an http(s) URL, a
// file:// URL or a plain path.
func NewICSSource(location string, timeout time.Duration, logger *slog.Logger) *ICSSource {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ICSSource{
		location: strings.TrimSpace(location),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.NewComponentLogger(logger, "calendar"),
	}
}

// Events implements Source. Events without a parseable start or end are
// skipped with a warning.
func (s *ICSSource) Events(ctx context.Context, from, to time.Time) ([]Event, error) {
	body, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	cal, err := ics.ParseCalendar(body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "calendar", "parse feed", "", err)
	}

	logger := logging.WithContext(ctx, s.logger)
	var out []Event
	for _, ve := range cal.Events() {
		ev := Event{
			UID:         ve.Id(),
			Summary:     propertyValue(ve, ics.ComponentPropertySummary),
			Description: unescape(propertyValue(ve, ics.ComponentPropertyDescription)),
		}
		start, startErr := ve.GetStartAt()
		end, endErr := ve.GetEndAt()
		if err := errors.Join(startErr, endErr); err != nil {
			logging.WarnWithContext(logger, "event time unparseable; skipped", "calendar_event_skipped",
				logging.String("summary", ev.Summary),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "all-day events are not bookings; give the event a start and end time"),
				logging.String(logging.FieldImpact, "event ignored by organizer and ledger sync"),
			)
			continue
		}
		ev.Start = studioTime(ve, ics.ComponentPropertyDtStart, start)
		ev.End = studioTime(ve, ics.ComponentPropertyDtEnd, end)
		if ev.Overlaps(from, to) {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (s *ICSSource) open(ctx context.Context) (io.ReadCloser, error) {
	loc := s.location
	if loc == "" {
		return nil, services.Wrap(services.ErrConfiguration, "calendar", "open feed", "calendar.ics_url is empty", nil)
	}
	if !strings.HasPrefix(loc, "http://") && !strings.HasPrefix(loc, "https://") {
		path := strings.TrimPrefix(loc, "file://")
		f, err := os.Open(path)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "calendar", "open feed", path, err)
		}
		return f, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "calendar", "build request", "", err)
	}
	req.Header.Set("Accept", "text/calendar")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "calendar", "fetch feed", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		marker := services.ErrExternalService
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
			marker = services.ErrConfiguration
		}
		return nil, services.Wrap(marker, "calendar", "fetch feed",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}
	return resp.Body, nil
}

// studioTime converts a parsed DTSTART/DTEND to studio time. Floating values
// (no TZID, no trailing Z) are parsed in time.Local by golang-ical; their wall
// clock is studio time regardless of the host zone.
func studioTime(ve *ics.VEvent, prop ics.ComponentProperty, parsed time.Time) time.Time {
	p := ve.GetProperty(prop)
	if p == nil {
		return parsed.In(shootdate.Location)
	}
	_, hasZone := p.ICalParameters[string(ics.ParameterTzid)]
	if hasZone || strings.HasSuffix(strings.ToUpper(strings.TrimSpace(p.Value)), "Z") {
		return parsed.In(shootdate.Location)
	}
	return time.Date(parsed.Year(), parsed.Month(), parsed.Day(),
		parsed.Hour(), parsed.Minute(), parsed.Second(), 0, shootdate.Location)
}

func propertyValue(ve *ics.VEvent, prop ics.ComponentProperty) string {
	p := ve.GetProperty(prop)
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Value)
}

var textUnescaper = strings.NewReplacer(`\n`, "\n", `\N`, "\n", `\,`, ",", `\;`, ";", `\\`, `\`)

func unescape(value string) string {
	return textUnescaper.Replace(value)
}
