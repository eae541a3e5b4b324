package ledger

import (
	"log/slog"
	"strings"

	"photodesk/internal/logging"
)

// Stage identifies which delivery a pending row is waiting for.
type Stage string

const (
	AwaitingOriginal Stage = "basic_original"
	AwaitingFirst    Stage = "premium_first"
	AwaitingSecond   Stage = "premium_second"
)

// FirstDataRow is the sheet row of the first value returned for an "A2:" range.
const FirstDataRow = 2

// Column letters of the delivery URL cells.
const (
	BasicSentColumn         = "E"
	PremiumFirstSentColumn  = "E"
	PremiumSecondSentColumn = "H"
)

// Row is a ledger row awaiting delivery.
type Row struct {
	Sheet        string
	RowIndex     int
	ShootDate    string
	CustomerName string
	Phone        string
	Stage        Stage
}

// TargetCell returns the cell that receives the download URL.
func (r Row) TargetCell() string {
	column := BasicSentColumn
	switch r.Stage {
	case AwaitingFirst:
		column = PremiumFirstSentColumn
	case AwaitingSecond:
		column = PremiumSecondSentColumn
	}
	return Cell(r.Sheet, column, r.RowIndex)
}

// Retouched reports whether the row waits for the retouched delivery.
func (r Row) Retouched() bool {
	return r.Stage == AwaitingSecond
}

// Value returns the trimmed cell at index i, or "" for short rows.
func Value(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// PendingBasic selects basic rows with a name, a review check and no
// original URL yet. Rows without a phone number wait and are only logged.
func PendingBasic(values [][]string, sheet string, logger *slog.Logger) []Row {
	var pending []Row
	for i, row := range values {
		name := Value(row, 1)
		if name == "" || Value(row, 3) == "" || Value(row, 4) != "" {
			continue
		}
		phone := Value(row, 2)
		if phone == "" {
			logPhoneMissing(logger, sheet, name, i+FirstDataRow)
			continue
		}
		pending = append(pending, Row{
			Sheet:        sheet,
			RowIndex:     i + FirstDataRow,
			ShootDate:    Value(row, 0),
			CustomerName: name,
			Phone:        phone,
			Stage:        AwaitingOriginal,
		})
	}
	return pending
}

// PendingPremium selects premium rows for the first delivery (phone present,
// E empty) and the second delivery (G set, H empty). A row can appear in both.
func PendingPremium(values [][]string, sheet string, logger *slog.Logger) (first, second []Row) {
	for i, row := range values {
		name := Value(row, 1)
		if name == "" {
			continue
		}
		base := Row{
			Sheet:        sheet,
			RowIndex:     i + FirstDataRow,
			ShootDate:    Value(row, 0),
			CustomerName: name,
			Phone:        Value(row, 2),
		}
		firstSent := Value(row, 4) != ""
		switch {
		case !firstSent && base.Phone == "":
			logPhoneMissing(logger, sheet, name, base.RowIndex)
		case !firstSent:
			r := base
			r.Stage = AwaitingFirst
			first = append(first, r)
		}
		if Value(row, 6) != "" && Value(row, 7) == "" {
			r := base
			r.Stage = AwaitingSecond
			second = append(second, r)
		}
	}
	return first, second
}

func logPhoneMissing(logger *slog.Logger, sheet, name string, row int) {
	if logger == nil {
		return
	}
	logger.Info("phone number missing; delivery waits",
		logging.String("sheet", sheet),
		logging.String(logging.FieldCustomer, name),
		logging.Int("row", row),
		logging.String(logging.FieldEventType, "ledger_phone_missing"),
	)
}
