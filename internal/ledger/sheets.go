package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"photodesk/internal/logging"
	"photodesk/internal/services"
)

const valueInputOption = "USER_ENTERED"

// SheetsOptions configures the Google Sheets backend.
type SheetsOptions struct {
	// BaseURL is the API root, e.g. "https://sheets.googleapis.com".
	BaseURL       string
	SpreadsheetID string
	// AccessToken is an OAuth bearer token; its lifecycle is managed outside photodesk.
	AccessToken string
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Sheets implements Ledger over the Sheets v4 values API.
type Sheets struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	logger        *slog.Logger
}

// NewSheets returns a Sheets client authenticated with a static token.
func NewSheets(ctx context.Context, opts SheetsOptions) (*Sheets, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	client := &http.Client{
		Timeout: timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken}),
			Base:   http.DefaultTransport,
		},
	}
	clientOpts := []option.ClientOption{option.WithHTTPClient(client)}
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(base+"/"))
	}
	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "sheets client", "", err)
	}
	return &Sheets{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: opts.SpreadsheetID,
		logger:        logging.NewComponentLogger(opts.Logger, "ledger"),
	}, nil
}

// Read returns the values of rng. Trailing empty cells and rows are omitted
// by the API; callers index with Value.
func (s *Sheets) Read(ctx context.Context, rng string) ([][]string, error) {
	resp, err := s.values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, services.Wrap(markerFor(err), "ledger", "read", rng, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cellString(cell)
		}
		out[i] = cells
	}
	return out, nil
}

// Write sets a single cell.
func (s *Sheets) Write(ctx context.Context, cell, value string) error {
	body := &sheets.ValueRange{Range: cell, Values: [][]any{{value}}}
	_, err := s.values.Update(s.spreadsheetID, cell, body).
		ValueInputOption(valueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return services.Wrap(markerFor(err), "ledger", "write", cell, err)
	}
	s.logger.Info("ledger cell updated", logging.String("cell", cell))
	return nil
}

// Append inserts row after the last row of rng's table.
func (s *Sheets) Append(ctx context.Context, rng string, row []string) error {
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
	}
	_, err := s.values.Append(s.spreadsheetID, rng, &sheets.ValueRange{Values: [][]any{cells}}).
		ValueInputOption(valueInputOption).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return services.Wrap(markerFor(err), "ledger", "append", rng, err)
	}
	return nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func markerFor(err error) error {
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		switch {
		case ge.Code == http.StatusUnauthorized || ge.Code == http.StatusForbidden || ge.Code == http.StatusNotFound:
			return services.ErrConfiguration
		case ge.Code >= 500 || ge.Code == http.StatusTooManyRequests:
			return services.ErrTransient
		default:
			return services.ErrExternalService
		}
	}
	var te interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &te) && te.Timeout()) {
		return services.ErrTimeout
	}
	return services.ErrTransient
}
