// Package calsync registers calendar bookings as new ledger rows.
//
// A booking is appended to the basic or premium sheet unless a row with the
// same normalised shoot date and a matching customer name already exists.
// Rows appended earlier in the same run count for that check, so a booking
// listed twice in the feed is registered once.
package calsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"photodesk/internal/calendar"
	"photodesk/internal/config"
	"photodesk/internal/ledger"
	"photodesk/internal/logging"
	"photodesk/internal/namematch"
	"photodesk/internal/services"
	"photodesk/internal/shootdate"
)

const stageName = "calsync"

// Result summarises one sync.
type Result struct {
	Events     int
	Registered map[string]int
	Duplicates int
	Failed     int
}

// Total returns the number of rows appended across sheets.
func (r Result) Total() int {
	n := 0
	for _, v := range r.Registered {
		n += v
	}
	return n
}

// Syncer appends calendar bookings to the ledger.
type Syncer struct {
	source       calendar.Source
	ledger       ledger.Ledger
	basicSheet   string
	premiumSheet string
	lastRow      int
	window       time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// New constructs a Syncer from configuration.
func New(cfg *config.Config, source calendar.Source, l ledger.Ledger, logger *slog.Logger) *Syncer {
	return &Syncer{
		source:       source,
		ledger:       l,
		basicSheet:   cfg.Ledger.BasicSheet,
		premiumSheet: cfg.Ledger.PremiumSheet,
		lastRow:      cfg.Ledger.LastRow,
		window:       time.Duration(cfg.Calendar.WindowHours) * time.Hour,
		logger:       logging.NewComponentLogger(logger, stageName),
		now:          time.Now,
	}
}

// SetClock overrides the time source (used in tests).
func (s *Syncer) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type sheetState struct {
	name    string
	lastCol string
	width   int
	rows    [][]string
}

// Run registers bookings in the calendar window around now. Calendar and
// ledger read failures abort; a failed append only skips that booking.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	logger := logging.WithContext(ctx, s.logger)
	now := s.now().In(shootdate.Location)
	result := Result{Registered: map[string]int{}}

	events, err := s.source.Events(ctx, now.Add(-s.window), now.Add(s.window))
	if err != nil {
		return result, services.Wrap(services.ErrExternalService, stageName, "read calendar", "", err)
	}
	result.Events = len(events)
	if len(events) == 0 {
		logger.Info("no bookings to register")
		return result, nil
	}

	basic := &sheetState{name: s.basicSheet, lastCol: "F", width: 6}
	premium := &sheetState{name: s.premiumSheet, lastCol: "J", width: 10}
	for _, sheet := range []*sheetState{basic, premium} {
		rows, err := s.ledger.Read(ctx, ledger.Span(sheet.name, "A", ledger.FirstDataRow, sheet.lastCol, s.lastRow))
		if err != nil {
			return result, err
		}
		sheet.rows = rows
	}

	for _, ev := range events {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		booking := calendar.ParseBooking(ev)
		if booking.CustomerName == "" || booking.ShootDate == "" {
			continue
		}
		sheet := basic
		if booking.Tier == calendar.Premium {
			sheet = premium
		}
		if sheet.contains(booking, now) {
			result.Duplicates++
			logger.Debug("booking already in ledger",
				logging.String(logging.FieldCustomer, booking.CustomerName),
				logging.String("sheet", sheet.name),
			)
			continue
		}

		row := make([]string, sheet.width)
		row[0] = booking.ShootDate
		row[1] = booking.CustomerName
		row[sheet.width-1] = fmt.Sprintf("%d명", booking.People)
		if err := s.ledger.Append(ctx, ledger.Columns(sheet.name, "A", sheet.lastCol), row); err != nil {
			if services.ScopeWidening(err) {
				return result, err
			}
			result.Failed++
			logging.WarnWithContext(logger, "ledger append failed", "ledger_append_failed",
				logging.String(logging.FieldCustomer, booking.CustomerName),
				logging.String("sheet", sheet.name),
				logging.Error(err),
				logging.String(logging.FieldImpact, "booking is retried on the next run"),
			)
			continue
		}
		sheet.rows = append(sheet.rows, row)
		result.Registered[sheet.name]++
		logger.Info("booking registered",
			logging.String(logging.FieldCustomer, booking.CustomerName),
			logging.String("sheet", sheet.name),
			logging.Int("people", booking.People),
			logging.String("shoot_date", booking.ShootDate),
		)
	}

	logger.Info("calendar sync complete",
		logging.Int("registered", result.Total()),
		logging.Int("duplicates", result.Duplicates),
		logging.Int("failed", result.Failed),
	)
	return result, nil
}

func (st *sheetState) contains(b calendar.Booking, now time.Time) bool {
	want := shootdate.Normalize(b.ShootDate, now)
	for _, row := range st.rows {
		if shootdate.Normalize(ledger.Value(row, 0), now) != want {
			continue
		}
		if namematch.Match(b.CustomerName, ledger.Value(row, 1)) {
			return true
		}
	}
	return false
}
