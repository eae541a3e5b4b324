package exifcheck_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"photodesk/internal/exifcheck"
	"photodesk/internal/logging"
	"photodesk/internal/shootdate"
	"photodesk/internal/testsupport"
)

type fakeReader map[string]string

func (f fakeReader) CaptureDate(path string) (string, error) {
	date, ok := f[filepath.Base(path)]
	if !ok {
		return "", errors.New("no exif")
	}
	return date, nil
}

func folderWith(t *testing.T, total, matching int) (string, fakeReader) {
	t.Helper()
	dir := t.TempDir()
	reader := fakeReader{}
	for i := 0; i < total; i++ {
		name := fmt.Sprintf("IMG_%04d.jpg", i)
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if i < matching {
			reader[name] = "2026-02-13"
		} else {
			reader[name] = "2025-11-02"
		}
	}
	return dir, reader
}

func newValidator(reader exifcheck.DateReader) *exifcheck.Validator {
	return &exifcheck.Validator{
		Reader:    reader,
		Threshold: exifcheck.DefaultThreshold,
		Logger:    logging.NewNop(),
		Now:       func() time.Time { return time.Date(2026, 2, 14, 9, 0, 0, 0, shootdate.Location) },
	}
}

func TestValidateRatioThreshold(t *testing.T) {
	cases := []struct {
		matching int
		passed   bool
	}{
		{9, true},
		{8, false},
		{10, true},
	}
	for _, tc := range cases {
		dir, reader := folderWith(t, 10, tc.matching)
		got, err := newValidator(reader).Validate(context.Background(), dir, "2026. 2. 13", "kim")
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if got.Passed != tc.passed || got.Matched != tc.matching || got.Total != 10 || got.Skipped {
			t.Fatalf("matching=%d: unexpected result %+v", tc.matching, got)
		}
	}
}

func TestValidateEmptyFolderPasses(t *testing.T) {
	got, err := newValidator(fakeReader{}).Validate(context.Background(), t.TempDir(), "2026. 2. 13", "kim")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Passed || got.Total != 0 || got.Matched != 0 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestValidateUnparseableDateFailsOpen(t *testing.T) {
	dir, reader := folderWith(t, 3, 0)
	got, err := newValidator(reader).Validate(context.Background(), dir, "미정", "kim")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Passed || !got.Skipped || got.Total != 3 || got.Matched != 0 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestValidateCountsUnreadablePhotosAsMismatch(t *testing.T) {
	dir, reader := folderWith(t, 10, 10)
	delete(reader, "IMG_0000.jpg")
	got, err := newValidator(reader).Validate(context.Background(), dir, "26.2.13", "kim")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Passed || got.Matched != 9 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestValidateMissingFolder(t *testing.T) {
	_, err := newValidator(fakeReader{}).Validate(context.Background(), filepath.Join(t.TempDir(), "missing"), "2026. 2. 13", "kim")
	if err == nil {
		t.Fatal("expected scan error")
	}
}

func TestExifReaderRejectsNonJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("not a jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := (exifcheck.ExifReader{}).CaptureDate(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestExifReaderReadsDateTimeOriginal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "IMG_0001.jpg")
	testsupport.WriteJPEG(t, path, time.Date(2026, 2, 13, 14, 5, 0, 0, shootdate.Location))
	got, err := (exifcheck.ExifReader{}).CaptureDate(path)
	if err != nil {
		t.Fatalf("CaptureDate: %v", err)
	}
	if got != "2026-02-13" {
		t.Fatalf("CaptureDate = %q", got)
	}

	bare := filepath.Join(t.TempDir(), "IMG_0002.jpg")
	testsupport.WriteJPEG(t, bare, time.Time{})
	if _, err := (exifcheck.ExifReader{}).CaptureDate(bare); err == nil {
		t.Fatal("expected an error for a JPEG without EXIF")
	}
}

func TestNewValidatesRealPhotos(t *testing.T) {
	shoot := time.Date(2026, 2, 13, 14, 5, 0, 0, shootdate.Location)
	other := time.Date(2025, 11, 2, 10, 0, 0, 0, shootdate.Location)
	for _, tc := range []struct {
		matching int
		passed   bool
	}{
		{9, true},
		{8, false},
	} {
		dir := t.TempDir()
		for i := 0; i < 10; i++ {
			captured := other
			if i < tc.matching {
				captured = shoot.Add(time.Duration(i) * time.Minute)
			}
			testsupport.WriteJPEG(t, filepath.Join(dir, fmt.Sprintf("IMG_%04d.jpg", i)), captured)
		}

		v := exifcheck.New(exifcheck.DefaultThreshold, logging.NewNop())
		got, err := v.Validate(context.Background(), dir, "2026. 2. 13", "kim")
		if err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if got.Passed != tc.passed || got.Matched != tc.matching || got.Total != 10 {
			t.Fatalf("matching=%d: unexpected result %+v", tc.matching, got)
		}
	}
}

func TestDateOnly(t *testing.T) {
	if got := exifcheck.DateOnly("2026:02:13 14:05:00\x00"); got != "2026-02-13" {
		t.Fatalf("DateOnly = %q", got)
	}
}
