package timewindow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"photodesk/internal/fileutil"
	"photodesk/internal/logging"
)

// MoveResult summarises one Move call.
type MoveResult struct {
	Moved  int
	Failed int
}

// Mover moves assigned files into destination folders.
type Mover struct {
	Logger *slog.Logger
}

// Move moves files into destDir, renaming on collision. Per-file failures are
// logged and counted; Move stops early only when ctx is cancelled.
func (mv Mover) Move(ctx context.Context, files []File, destDir string) MoveResult {
	logger := mv.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	var result MoveResult
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		dest, err := UniquePath(destDir, filepath.Base(f.Path))
		if err == nil {
			var copied bool
			copied, err = fileutil.MoveFile(f.Path, dest)
			if err == nil && copied {
				logger.Debug("cross-device move used copy fallback", logging.String("source", f.Path))
			}
		}
		if err != nil {
			result.Failed++
			logging.WarnWithContext(logger, "file move failed", "file_move_failed",
				logging.String("source", f.Path),
				logging.String("destination", destDir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check share permissions and free space"),
				logging.String(logging.FieldImpact, "file stays in intake folder; retried next run"),
			)
			continue
		}
		result.Moved++
	}
	return result
}

// UniquePath returns destDir/name, or destDir/{stem}_{N}{ext} with the
// smallest N >= 1 that does not exist yet.
func UniquePath(destDir, name string) (string, error) {
	candidate := filepath.Join(destDir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		_, err := os.Lstat(candidate)
		if os.IsNotExist(err) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		candidate = filepath.Join(destDir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}
}
