package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"photodesk/internal/config"
)

// Ledger is the spreadsheet contract. Ranges and cells use A1 notation with
// a sheet prefix, e.g. "베이직!A2:F1000" or "프리미엄!H7".
type Ledger interface {
	Read(ctx context.Context, rng string) ([][]string, error)
	Write(ctx context.Context, cell, value string) error
	Append(ctx context.Context, rng string, row []string) error
}

// New builds the configured backend.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Ledger, error) {
	if err := cfg.LedgerReady(); err != nil {
		return nil, err
	}
	l := cfg.Ledger
	switch strings.ToLower(l.Backend) {
	case "", "sheets":
		return NewSheets(ctx, SheetsOptions{
			BaseURL:       l.BaseURL,
			SpreadsheetID: l.SpreadsheetID,
			AccessToken:   l.AccessToken,
			Timeout:       time.Duration(l.RequestTimeout) * time.Second,
			Logger:        logger,
		})
	case "xlsx":
		return NewXLSX(l.XLSXPath, logger), nil
	default:
		return nil, fmt.Errorf("ledger backend: unsupported value %q", l.Backend)
	}
}
