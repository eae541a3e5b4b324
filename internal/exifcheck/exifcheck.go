// Package exifcheck verifies that a delivery folder really holds photos from
// the booked shoot date before anything is packaged for a customer.
package exifcheck

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"photodesk/internal/logging"
	"photodesk/internal/photos"
	"photodesk/internal/shootdate"
)

// DefaultThreshold is the minimum share of photos whose capture date must match.
const DefaultThreshold = 0.90

// DateReader returns a photo's original capture date as YYYY-MM-DD.
type DateReader interface {
	CaptureDate(path string) (string, error)
}

// Result reports one validation.
type Result struct {
	Passed  bool
	Total   int
	Matched int
	// Skipped is set when the expected date could not be parsed and the
	// date comparison did not run.
	Skipped bool
}

// Ratio returns Matched/Total, or 0 for an empty folder.
func (r Result) Ratio() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Matched) / float64(r.Total)
}

// Validator compares capture dates against the shoot date.
type Validator struct {
	Reader    DateReader
	Threshold float64
	Logger    *slog.Logger
	Now       func() time.Time
}

// New returns a Validator backed by the EXIF reader.
func New(threshold float64, logger *slog.Logger) *Validator {
	return &Validator{Reader: ExifReader{}, Threshold: threshold, Logger: logger}
}

// Validate scans folder recursively and checks the capture dates against
// expectedDate (any ledger date spelling). An empty folder passes with
// Total 0. An unparseable expectedDate passes without comparing.
func (v *Validator) Validate(ctx context.Context, folder, expectedDate, label string) (Result, error) {
	logger := logging.WithContext(ctx, v.logger())
	files, err := photos.Walk(folder)
	if err != nil {
		return Result{}, fmt.Errorf("scan %s: %w", folder, err)
	}
	if len(files) == 0 {
		return Result{Passed: true}, nil
	}

	normalized := shootdate.Normalize(expectedDate, v.now())
	target := shootdate.ISO(normalized)
	if target == "" {
		logging.WarnWithContext(logger, "shoot date unparseable; exif validation skipped", "exif_validation_skipped",
			logging.String("label", label),
			logging.String("shoot_date", expectedDate),
			logging.Int("photos", len(files)),
			logging.String(logging.FieldErrorHint, "fix the ledger date column"),
			logging.String(logging.FieldImpact, "folder delivered without date check"),
		)
		return Result{Passed: true, Total: len(files), Skipped: true}, nil
	}

	reader := v.Reader
	if reader == nil {
		reader = ExifReader{}
	}
	result := Result{Total: len(files)}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		date, err := reader.CaptureDate(path)
		if err != nil {
			logger.Debug("capture date unavailable", logging.String("path", path), logging.Error(err))
			continue
		}
		if date == target {
			result.Matched++
		}
	}

	threshold := v.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	result.Passed = result.Ratio() >= threshold

	attrs := []logging.Attr{
		logging.String("label", label),
		logging.String("shoot_date", normalized),
		logging.String("folder", folder),
		logging.Int("matched", result.Matched),
		logging.Int("total", result.Total),
		logging.Int("percent", int(result.Ratio()*100)),
	}
	if result.Passed {
		logger.Info("exif validation passed", logging.Args(attrs...)...)
	} else {
		logging.WarnWithContext(logger, "exif validation failed", "exif_validation_failed",
			append(attrs,
				logging.String(logging.FieldErrorHint, "check the folder holds photos from the shoot date"),
				logging.String(logging.FieldImpact, "delivery skipped; retried next run"),
			)...,
		)
	}
	return result, nil
}

func (v *Validator) logger() *slog.Logger {
	if v.Logger == nil {
		return logging.NewNop()
	}
	return v.Logger
}

func (v *Validator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

// ExifReader reads DateTimeOriginal with goexif.
type ExifReader struct{}

// CaptureDate implements DateReader.
func (ExifReader) CaptureDate(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode exif: %w", err)
	}
	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return "", fmt.Errorf("DateTimeOriginal: %w", err)
	}
	raw, err := tag.StringVal()
	if err != nil {
		return "", fmt.Errorf("DateTimeOriginal value: %w", err)
	}
	return DateOnly(raw), nil
}

// DateOnly converts an EXIF "2006:01:02 15:04:05" value to "2006-01-02".
func DateOnly(raw string) string {
	raw = strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if len(raw) > 10 {
		raw = raw[:10]
	}
	return strings.ReplaceAll(raw, ":", "-")
}
