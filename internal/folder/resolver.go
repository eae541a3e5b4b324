// Package folder locates the customer folder to deliver for a ledger row.
package folder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"photodesk/internal/logging"
	"photodesk/internal/namematch"
	"photodesk/internal/photos"
	"photodesk/internal/services"
	"photodesk/internal/shootdate"
)

// Type selects which export of a shoot is delivered.
type Type string

const (
	// Original is the first delivery (camera exports).
	Original Type = "original"
	// Retouched is the premium second delivery.
	Retouched Type = "retouched"
)

// Fallback records how far the resolver had to fall back.
type Fallback string

const (
	FallbackNone        Fallback = ""
	FallbackOtherType   Fallback = "other_type"
	FallbackWholeFolder Fallback = "whole_folder"
)

// Match is a resolved delivery source.
type Match struct {
	// Path is the directory to package.
	Path string
	// Customer is the customer folder that matched.
	Customer string
	Fallback Fallback
}

// Resolver searches the configured roots in order.
type Resolver struct {
	Roots           []string
	RetouchedSubdir string
	ExportSubdir    string
	SkipPrefixes    []string
	Logger          *slog.Logger
	Now             func() time.Time
}

// Resolve finds the folder to deliver for name. Candidate customer folders
// are those under Roots (in order) whose date prefix and customer token
// match; a blank or unparseable shootDate matches folders of any date. The
// preferred subfolder of any candidate beats the other type's subfolder,
// which beats a whole-folder scan. The returned error wraps
// services.ErrNotFound when nothing matched.
func (r *Resolver) Resolve(ctx context.Context, name, shootDate string, kind Type) (Match, error) {
	logger := logging.WithContext(ctx, r.logger())
	normalized := ""
	if strings.TrimSpace(shootDate) != "" {
		normalized = shootdate.Normalize(shootDate, r.now())
	}

	candidates, err := r.candidates(ctx, logger, name, normalized)
	if err != nil {
		return Match{}, err
	}

	preferred, other := r.ExportSubdir, r.RetouchedSubdir
	if kind == Retouched {
		preferred, other = r.RetouchedSubdir, r.ExportSubdir
	}

	match, ok, err := r.pick(candidates, preferred, other)
	if err != nil {
		return Match{}, err
	}
	if !ok {
		return Match{}, services.Wrap(services.ErrNotFound, "folder", "resolve",
			fmt.Sprintf("no folder for %s (%s, %s)", name, shootDate, kind), nil)
	}

	attrs := []logging.Attr{
		logging.String("customer", name),
		logging.String("type", string(kind)),
		logging.String("path", match.Path),
	}
	switch match.Fallback {
	case FallbackWholeFolder:
		logging.WarnWithContext(logger, "delivery folder resolved by whole-folder scan", "folder_fallback_whole",
			append(attrs,
				logging.String(logging.FieldErrorHint, fmt.Sprintf("move the deliverable photos into %q", preferred)),
				logging.String(logging.FieldImpact, "every photo in the customer folder is delivered"),
			)...)
	case FallbackOtherType:
		logger.Info("delivery folder resolved from other subfolder", logging.Args(attrs...)...)
	default:
		logger.Info("delivery folder resolved", logging.Args(attrs...)...)
	}
	return match, nil
}

func (r *Resolver) candidates(ctx context.Context, logger *slog.Logger, name, normalized string) ([]string, error) {
	var out []string
	for _, root := range r.Roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("delivery root missing", logging.String("root", root))
				continue
			}
			return nil, services.Wrap(services.ErrExternalService, "folder", "read root", root, err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			folderName := entry.Name()
			if !entry.IsDir() || r.skipped(folderName) {
				continue
			}
			if normalized != "" && !strings.HasPrefix(folderName, normalized) {
				continue
			}
			if namematch.Match(name, namematch.FolderCustomer(folderName)) {
				out = append(out, filepath.Join(root, folderName))
			}
		}
	}
	return out, nil
}

func (r *Resolver) pick(candidates []string, preferred, other string) (Match, bool, error) {
	for _, tier := range []struct {
		sub      string
		fallback Fallback
	}{
		{preferred, FallbackNone},
		{other, FallbackOtherType},
	} {
		if tier.sub == "" {
			continue
		}
		for _, dir := range candidates {
			sub := filepath.Join(dir, tier.sub)
			ok, err := photos.HasDirect(sub)
			if err != nil {
				return Match{}, false, services.Wrap(services.ErrExternalService, "folder", "scan", sub, err)
			}
			if ok {
				return Match{Path: sub, Customer: filepath.Base(dir), Fallback: tier.fallback}, true, nil
			}
		}
	}
	for _, dir := range candidates {
		n, err := photos.Count(dir)
		if err != nil {
			return Match{}, false, services.Wrap(services.ErrExternalService, "folder", "scan", dir, err)
		}
		if n > 0 {
			return Match{Path: dir, Customer: filepath.Base(dir), Fallback: FallbackWholeFolder}, true, nil
		}
	}
	return Match{}, false, nil
}

func (r *Resolver) skipped(name string) bool {
	for _, prefix := range r.SkipPrefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger == nil {
		return logging.NewNop()
	}
	return r.Logger
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
