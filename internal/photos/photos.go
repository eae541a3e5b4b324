// Package photos discovers deliverable image files on the studio NAS.
//
// Synology shares carry "@eaDir" thumbnail folders and macOS clients leave
// dot files behind; both are ignored everywhere.
package photos

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const thumbnailDir = "@eaDir"

// IsPhoto reports whether name is a .jpg or .jpeg file, case-insensitively.
func IsPhoto(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return true
	default:
		return false
	}
}

// Hidden reports whether a directory entry should be ignored.
func Hidden(name string) bool {
	return strings.HasPrefix(name, ".") || name == thumbnailDir
}

// Walk returns every photo below root, sorted by path.
func Walk(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if Hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsPhoto(d.Name()) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// Count returns the number of photos below root.
func Count(root string) (int, error) {
	files, err := Walk(root)
	return len(files), err
}

// HasDirect reports whether dir itself (not its subfolders) holds a photo.
// A missing dir reports false.
func HasDirect(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	for _, entry := range entries {
		if entry.IsDir() || Hidden(entry.Name()) {
			continue
		}
		if IsPhoto(entry.Name()) {
			return true, nil
		}
	}
	return false, nil
}

// ListDir returns the regular files directly in dir, skipping hidden and
// "@"-prefixed entries. Only photo files are returned when photosOnly is set.
func ListDir(dir string, photosOnly bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "@") {
			continue
		}
		if photosOnly && !IsPhoto(name) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}
