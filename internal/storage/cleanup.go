package storage

import (
	"context"
	"log/slog"
	"time"

	"photodesk/internal/logging"
)

// CleanupResult summarises one retention pass.
type CleanupResult struct {
	Scanned int
	Deleted int
	Failed  int
	Bytes   int64
}

// Cleaner deletes delivery archives past their retention window.
type Cleaner struct {
	Store         Store
	Prefix        string
	RetentionDays int
	Logger        *slog.Logger
	Now           func() time.Time
}

// Run deletes every object under Prefix whose age in whole days is at least
// RetentionDays. A listing failure is returned; individual delete failures
// are logged and counted.
func (c *Cleaner) Run(ctx context.Context) (CleanupResult, error) {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(c.Logger, "storage"))
	var result CleanupResult
	if c.RetentionDays <= 0 {
		return result, nil
	}
	prefix := c.Prefix
	if prefix != "" && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	objects, err := c.Store.List(ctx, prefix)
	if err != nil {
		return result, err
	}
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	for _, obj := range objects {
		result.Scanned++
		if AgeDays(now, obj.LastModified) < c.RetentionDays {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := c.Store.Delete(ctx, obj.Key); err != nil {
			result.Failed++
			logging.WarnWithContext(logger, "expired archive delete failed", "storage_delete_failed",
				logging.String("key", obj.Key),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check bucket permissions"),
				logging.String(logging.FieldImpact, "archive kept until the next cleanup"),
			)
			continue
		}
		result.Deleted++
		result.Bytes += obj.Size
		logger.Info("expired archive deleted",
			logging.String("key", obj.Key),
			logging.Int("age_days", AgeDays(now, obj.LastModified)),
			logging.String(logging.FieldEventType, "storage_object_deleted"),
		)
	}
	return result, nil
}

// AgeDays returns the number of whole days between created and now.
func AgeDays(now, created time.Time) int {
	if created.IsZero() || now.Before(created) {
		return 0
	}
	return int(now.Sub(created) / (24 * time.Hour))
}
