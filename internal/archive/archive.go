// Package archive packages a delivery folder into a single zip file.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"photodesk/internal/photos"
	"photodesk/internal/shootdate"
	"photodesk/internal/textutil"
)

// Info describes a written archive.
type Info struct {
	Path  string
	Files int
	Bytes int64
}

// Name returns "{prefix}_{customer}_{yymmdd}.zip" for the KST date of now.
func Name(prefix, customer string, now time.Time) string {
	name := textutil.SanitizeFileName(customer)
	if prefix == "" {
		return fmt.Sprintf("%s_%s.zip", name, shootdate.Compact(now))
	}
	return fmt.Sprintf("%s_%s_%s.zip", prefix, name, shootdate.Compact(now))
}

// Create writes every non-hidden file below srcDir into a deflated zip at
// destPath, preserving relative paths in sorted order. A partially written
// archive is removed on error.
func Create(ctx context.Context, srcDir, destPath string) (info Info, err error) {
	files, err := collect(srcDir)
	if err != nil {
		return Info{}, fmt.Errorf("scan %s: %w", srcDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return Info{}, fmt.Errorf("create archive dir: %w", err)
	}
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Info{}, fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(destPath)
		}
	}()

	zw := zip.NewWriter(out)
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return Info{}, err
		}
		if err := addFile(zw, srcDir, rel); err != nil {
			return Info{}, fmt.Errorf("add %s: %w", rel, err)
		}
	}
	if err := zw.Close(); err != nil {
		return Info{}, fmt.Errorf("finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return Info{}, fmt.Errorf("close archive: %w", err)
	}
	stat, err := os.Stat(destPath)
	if err != nil {
		return Info{}, err
	}
	return Info{Path: destPath, Files: len(files), Bytes: stat.Size()}, nil
}

func collect(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if photos.Hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files, err
}

func addFile(zw *zip.Writer, root, rel string) error {
	in, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(stat)
	if err != nil {
		return err
	}
	header.Name = rel
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
