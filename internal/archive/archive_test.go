package archive_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"photodesk/internal/archive"
	"photodesk/internal/shootdate"
)

func TestName(t *testing.T) {
	now := time.Date(2026, 2, 13, 23, 30, 0, 0, time.UTC) // 2026-02-14 in KST
	if got := archive.Name("스튜디오생일", "김민수", now); got != "스튜디오생일_김민수_260214.zip" {
		t.Fatalf("Name = %q", got)
	}
	if got := archive.Name("", "a/b", time.Date(2026, 2, 13, 12, 0, 0, 0, shootdate.Location)); got != "a-b_260213.zip" {
		t.Fatalf("Name = %q", got)
	}
}

func TestCreatePreservesRelativePaths(t *testing.T) {
	src := t.TempDir()
	files := map[string]string{
		"b.jpg":          "bbb",
		"a.jpg":          "aaa",
		"sub/c.JPG":      "ccc",
		".DS_Store":      "junk",
		"@eaDir/x/t.jpg": "thumb",
	}
	for rel, content := range files {
		path := filepath.Join(src, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	dest := filepath.Join(t.TempDir(), "work", "out.zip")
	info, err := archive.Create(context.Background(), src, dest)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if info.Files != 3 || info.Bytes == 0 || info.Path != dest {
		t.Fatalf("unexpected info %+v", info)
	}

	zr, err := zip.OpenReader(dest)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Method != zip.Deflate {
			t.Fatalf("expected deflate for %s", f.Name)
		}
	}
	want := []string{"a.jpg", "b.jpg", "sub/c.JPG"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}
}

func TestCreateCancelledRemovesPartialArchive(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "a.jpg"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dest := filepath.Join(t.TempDir(), "out.zip")
	if _, err := archive.Create(ctx, src, dest); err == nil {
		t.Fatal("expected cancellation error")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("expected partial archive removed, stat err=%v", err)
	}
}
