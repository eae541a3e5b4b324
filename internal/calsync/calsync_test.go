package calsync_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"photodesk/internal/calendar"
	"photodesk/internal/calsync"
	"photodesk/internal/services"
	"photodesk/internal/shootdate"
	"photodesk/internal/testsupport"
)

type fakeSource struct {
	events []calendar.Event
	err    error
}

func (f fakeSource) Events(context.Context, time.Time, time.Time) ([]calendar.Event, error) {
	return f.events, f.err
}

type appendCall struct {
	rng string
	row []string
}

type fakeLedger struct {
	sheets    map[string][][]string
	readErr   error
	appendErr error
	appends   []appendCall
}

func (f *fakeLedger) Read(_ context.Context, rng string) ([][]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	sheet := rng[:strings.Index(rng, "!")]
	return f.sheets[sheet], nil
}

func (f *fakeLedger) Write(context.Context, string, string) error { return nil }

func (f *fakeLedger) Append(_ context.Context, rng string, row []string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends = append(f.appends, appendCall{rng: rng, row: row})
	return nil
}

func at(day, hour int) time.Time {
	return time.Date(2026, 2, day, hour, 0, 0, 0, shootdate.Location)
}

func TestRunAppendsNewBookings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := fakeSource{events: []calendar.Event{
		{Summary: "김민지 (2명)", Start: at(13, 14), End: at(13, 15)},
		{Summary: "사공*지 (3명) (프리미엄)", Start: at(13, 16), End: at(13, 17)},
	}}
	l := &fakeLedger{sheets: map[string][][]string{}}
	s := calsync.New(cfg, source, l, nil)
	s.SetClock(func() time.Time { return at(13, 18) })

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Total() != 2 || result.Registered["베이직"] != 1 || result.Registered["프리미엄"] != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(l.appends) != 2 {
		t.Fatalf("expected 2 appends, got %d", len(l.appends))
	}
	basic := l.appends[0]
	if basic.rng != "베이직!A:F" || len(basic.row) != 6 {
		t.Fatalf("unexpected basic append %+v", basic)
	}
	if basic.row[0] != "2026. 2. 13" || basic.row[1] != "김민지" || basic.row[5] != "2명" {
		t.Fatalf("unexpected basic row %q", basic.row)
	}
	premium := l.appends[1]
	if premium.rng != "프리미엄!A:J" || len(premium.row) != 10 || premium.row[9] != "3명" || premium.row[1] != "사공*지" {
		t.Fatalf("unexpected premium append %+v", premium)
	}
}

func TestRunSkipsExistingRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := fakeSource{events: []calendar.Event{
		{Summary: "사공*지 (2명)", Start: at(13, 14), End: at(13, 15)},
	}}
	l := &fakeLedger{sheets: map[string][][]string{
		"베이직": {{"2026-02-13", "사공민지", "010-1234-5678"}},
	}}
	s := calsync.New(cfg, source, l, nil)
	s.SetClock(func() time.Time { return at(13, 18) })

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Duplicates != 1 || len(l.appends) != 0 {
		t.Fatalf("expected duplicate skip, got %+v appends=%d", result, len(l.appends))
	}
}

func TestRunDedupesWithinRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ev := calendar.Event{Summary: "김민지", Start: at(13, 14), End: at(13, 15)}
	source := fakeSource{events: []calendar.Event{ev, ev}}
	l := &fakeLedger{sheets: map[string][][]string{}}
	s := calsync.New(cfg, source, l, nil)
	s.SetClock(func() time.Time { return at(13, 18) })

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(l.appends) != 1 || result.Duplicates != 1 {
		t.Fatalf("expected single append, got %d (%+v)", len(l.appends), result)
	}
}

func TestRunSameNameDifferentDayIsNew(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := fakeSource{events: []calendar.Event{{Summary: "김민지", Start: at(13, 14), End: at(13, 15)}}}
	l := &fakeLedger{sheets: map[string][][]string{"베이직": {{"2026. 2. 12", "김민지"}}}}
	s := calsync.New(cfg, source, l, nil)
	s.SetClock(func() time.Time { return at(13, 18) })

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(l.appends) != 1 {
		t.Fatalf("expected append for new date, got %d", len(l.appends))
	}
}

func TestRunReadFailureAborts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := fakeSource{events: []calendar.Event{{Summary: "김민지", Start: at(13, 14), End: at(13, 15)}}}
	readErr := services.Wrap(services.ErrConfiguration, "ledger", "read", "베이직", errors.New("403"))
	l := &fakeLedger{readErr: readErr}
	s := calsync.New(cfg, source, l, nil)

	if _, err := s.Run(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunAppendFailureContinues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := fakeSource{events: []calendar.Event{{Summary: "김민지", Start: at(13, 14), End: at(13, 15)}}}
	l := &fakeLedger{sheets: map[string][][]string{}, appendErr: services.Wrap(services.ErrTransient, "ledger", "append", "", errors.New("503"))}
	s := calsync.New(cfg, source, l, nil)
	s.SetClock(func() time.Time { return at(13, 18) })

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Failed != 1 || result.Total() != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}
