package folder_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"photodesk/internal/folder"
	"photodesk/internal/logging"
	"photodesk/internal/services"
	"photodesk/internal/shootdate"
)

func photo(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newResolver(roots ...string) *folder.Resolver {
	return &folder.Resolver{
		Roots:           roots,
		RetouchedSubdir: "보정본",
		ExportSubdir:    "내보내기",
		SkipPrefixes:    []string{"@", "0"},
		Logger:          logging.NewNop(),
		Now:             func() time.Time { return time.Date(2026, 2, 20, 9, 0, 0, 0, shootdate.Location) },
	}
}

func TestResolvePrefersExportContentAcrossCandidates(t *testing.T) {
	root := t.TempDir()
	// Sorted first, but only retouched content.
	photo(t, filepath.Join(root, "260213_김민수_베이직", "보정본", "a.jpg"))
	if err := os.MkdirAll(filepath.Join(root, "260213_김민수_베이직", "내보내기"), 0o755); err != nil {
		t.Fatal(err)
	}
	photo(t, filepath.Join(root, "260213_김민수_프리미엄", "내보내기", "b.jpg"))

	got, err := newResolver(root).Resolve(context.Background(), "김*수", "2026. 2. 13", folder.Original)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := filepath.Join(root, "260213_김민수_프리미엄", "내보내기")
	if got.Path != want || got.Fallback != folder.FallbackNone {
		t.Fatalf("expected %s without fallback, got %+v", want, got)
	}
}

func TestResolveRetouchedFallsBackToExport(t *testing.T) {
	root := t.TempDir()
	photo(t, filepath.Join(root, "260213_김민수_프리미엄", "내보내기", "b.jpg"))

	got, err := newResolver(root).Resolve(context.Background(), "김민수", "2026. 2. 13", folder.Retouched)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Fallback != folder.FallbackOtherType || filepath.Base(got.Path) != "내보내기" {
		t.Fatalf("unexpected match %+v", got)
	}
}

func TestResolveWholeFolderFallback(t *testing.T) {
	root := t.TempDir()
	photo(t, filepath.Join(root, "260213_김민수", "selects", "c.JPG"))

	got, err := newResolver(root).Resolve(context.Background(), "김민수", "2026-02-13", folder.Original)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Fallback != folder.FallbackWholeFolder || got.Path != filepath.Join(root, "260213_김민수") {
		t.Fatalf("unexpected match %+v", got)
	}
}

func TestResolveRootOrderAndSkips(t *testing.T) {
	clients := t.TempDir()
	premium := t.TempDir()
	photo(t, filepath.Join(clients, "@eaDir_260213_김민수", "내보내기", "a.jpg"))
	photo(t, filepath.Join(clients, "0_260213_김민수", "내보내기", "a.jpg"))
	photo(t, filepath.Join(premium, "260213_김민수", "내보내기", "a.jpg"))
	missing := filepath.Join(t.TempDir(), "gone")

	got, err := newResolver(missing, clients, premium).Resolve(context.Background(), "김민수", "2026. 2. 13", folder.Original)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Path != filepath.Join(premium, "260213_김민수", "내보내기") {
		t.Fatalf("unexpected match %+v", got)
	}
}

func TestResolveDateMismatchIsNotFound(t *testing.T) {
	root := t.TempDir()
	photo(t, filepath.Join(root, "260214_김민수", "내보내기", "a.jpg"))

	_, err := newResolver(root).Resolve(context.Background(), "김민수", "2026. 2. 13", folder.Original)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Blank shoot date ignores the date prefix.
	got, err := newResolver(root).Resolve(context.Background(), "김민수", "", folder.Original)
	if err != nil || filepath.Base(filepath.Dir(got.Path)) != "260214_김민수" {
		t.Fatalf("expected any-date match, got %+v err=%v", got, err)
	}
}

func TestResolveIgnoresHiddenOnlySubfolder(t *testing.T) {
	root := t.TempDir()
	photo(t, filepath.Join(root, "260213_김민수", "내보내기", ".hidden.jpg"))

	_, err := newResolver(root).Resolve(context.Background(), "김민수", "2026. 2. 13", folder.Original)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
