package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Range is a parsed A1 range. Zero rows mean "unbounded".
type Range struct {
	Sheet    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// ParseRange parses "Sheet!A2:F1000", "Sheet!A:F" or "Sheet!E5".
func ParseRange(value string) (Range, error) {
	sheet, ref, ok := strings.Cut(value, "!")
	if !ok || strings.TrimSpace(sheet) == "" || ref == "" {
		return Range{}, fmt.Errorf("range %q: expected Sheet!A1 form", value)
	}
	sheet = strings.Trim(sheet, "'")
	startRef, endRef, hasEnd := strings.Cut(ref, ":")
	if !hasEnd {
		endRef = startRef
	}
	startCol, startRow, err := parseRef(startRef)
	if err != nil {
		return Range{}, fmt.Errorf("range %q: %w", value, err)
	}
	endCol, endRow, err := parseRef(endRef)
	if err != nil {
		return Range{}, fmt.Errorf("range %q: %w", value, err)
	}
	if endCol < startCol || (endRow != 0 && endRow < startRow) {
		return Range{}, fmt.Errorf("range %q: end before start", value)
	}
	return Range{Sheet: sheet, StartCol: startCol, StartRow: startRow, EndCol: endCol, EndRow: endRow}, nil
}

// String renders the range in A1 form.
func (r Range) String() string {
	return fmt.Sprintf("%s!%s:%s", r.Sheet, refName(r.StartCol, r.StartRow), refName(r.EndCol, r.EndRow))
}

// Cell returns "Sheet!{col}{row}".
func Cell(sheet, column string, row int) string {
	return fmt.Sprintf("%s!%s%d", sheet, column, row)
}

// Span returns "Sheet!{startCol}{from}:{endCol}{to}".
func Span(sheet, startCol string, from int, endCol string, to int) string {
	return fmt.Sprintf("%s!%s%d:%s%d", sheet, startCol, from, endCol, to)
}

// Columns returns "Sheet!{startCol}:{endCol}".
func Columns(sheet, startCol, endCol string) string {
	return fmt.Sprintf("%s!%s:%s", sheet, startCol, endCol)
}

func parseRef(ref string) (int, int, error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	if i == 0 {
		return 0, 0, fmt.Errorf("missing column in %q", ref)
	}
	col, err := excelize.ColumnNameToNumber(ref[:i])
	if err != nil {
		return 0, 0, err
	}
	if i == len(ref) {
		return col, 0, nil
	}
	row, err := strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("invalid row in %q", ref)
	}
	return col, row, nil
}

func refName(col, row int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return ""
	}
	if row == 0 {
		return name
	}
	return name + strconv.Itoa(row)
}
