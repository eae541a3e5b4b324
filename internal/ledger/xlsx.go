package ledger

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"

	"photodesk/internal/logging"
	"photodesk/internal/services"
)

// XLSX implements Ledger over a local workbook. The file is opened per call
// so edits made by hand between runs are seen.
type XLSX struct {
	path   string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewXLSX returns a workbook-backed ledger.
func NewXLSX(path string, logger *slog.Logger) *XLSX {
	return &XLSX{path: path, logger: logging.NewComponentLogger(logger, "ledger")}
}

// Read returns the values of rng, trimming trailing empty rows and cells the
// way the Sheets API does.
func (x *XLSX) Read(_ context.Context, rng string) ([][]string, error) {
	r, err := ParseRange(rng)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "ledger", "read", rng, err)
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := excelize.OpenFile(x.path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "open workbook", x.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.Sheet)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "read sheet", r.Sheet, err)
	}
	start := r.StartRow
	if start == 0 {
		start = 1
	}
	end := len(rows)
	if r.EndRow != 0 && r.EndRow < end {
		end = r.EndRow
	}
	var out [][]string
	for i := start - 1; i < end; i++ {
		out = append(out, trimTrailing(slice(rows[i], r.StartCol-1, r.EndCol)))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// Write sets a single cell and saves the workbook.
func (x *XLSX) Write(_ context.Context, cell, value string) error {
	r, err := ParseRange(cell)
	if err != nil || r.StartRow == 0 {
		return services.Wrap(services.ErrValidation, "ledger", "write", cell, err)
	}
	return x.update(func(f *excelize.File) error {
		name, err := excelize.CoordinatesToCellName(r.StartCol, r.StartRow)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(r.Sheet, name, value); err != nil {
			return err
		}
		x.logger.Info("ledger cell updated", logging.String("cell", cell))
		return nil
	}, "write", cell)
}

// Append writes row below the last non-empty row of the sheet.
func (x *XLSX) Append(_ context.Context, rng string, row []string) error {
	r, err := ParseRange(rng)
	if err != nil {
		return services.Wrap(services.ErrValidation, "ledger", "append", rng, err)
	}
	return x.update(func(f *excelize.File) error {
		if idx, err := f.GetSheetIndex(r.Sheet); err != nil || idx < 0 {
			if _, err := f.NewSheet(r.Sheet); err != nil {
				return err
			}
		}
		rows, err := f.GetRows(r.Sheet)
		if err != nil {
			return err
		}
		next := len(rows) + 1
		if next < 2 {
			next = 2
		}
		start, err := excelize.CoordinatesToCellName(r.StartCol, next)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}
		return f.SetSheetRow(r.Sheet, start, &values)
	}, "append", rng)
}

func (x *XLSX) update(fn func(*excelize.File) error, op, target string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	f, err := excelize.OpenFile(x.path)
	if errors.Is(err, fs.ErrNotExist) {
		f = excelize.NewFile()
	} else if err != nil {
		return services.Wrap(services.ErrConfiguration, "ledger", "open workbook", x.path, err)
	}
	defer f.Close()

	if err := fn(f); err != nil {
		return services.Wrap(services.ErrExternalService, "ledger", op, target, err)
	}
	if err := f.SaveAs(x.path); err != nil {
		return services.Wrap(services.ErrExternalService, "ledger", "save workbook", x.path, err)
	}
	return nil
}

func slice(row []string, from, to int) []string {
	if from >= len(row) {
		return nil
	}
	if to > len(row) {
		to = len(row)
	}
	out := make([]string, to-from)
	copy(out, row[from:to])
	return out
}

func trimTrailing(row []string) []string {
	for len(row) > 0 && row[len(row)-1] == "" {
		row = row[:len(row)-1]
	}
	return row
}

// Sheet names a worksheet and its header row.
type Sheet struct {
	Name   string
	Header []string
}

// BasicHeader and PremiumHeader are the header rows of a fresh ledger.
var (
	BasicHeader   = []string{"촬영일", "고객이름", "전화번호", "리뷰확인", "원본발송", "비고"}
	PremiumHeader = []string{"촬영일", "고객이름", "전화번호", "주소", "1차발송", "보정요청일", "보정완료", "2차발송", "최종컨펌일", "비고"}
)

// CreateWorkbook writes a new workbook holding sheets in order. An existing
// file is never overwritten.
func CreateWorkbook(path string, sheets []Sheet) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	f := excelize.NewFile()
	defer f.Close()
	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return err
		}
		values := make([]any, len(sheet.Header))
		for j, h := range sheet.Header {
			values[j] = h
		}
		if err := f.SetSheetRow(sheet.Name, "A1", &values); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}
