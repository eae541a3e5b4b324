// Package storage uploads delivery archives to S3-compatible object storage,
// signs download URLs, and prunes expired archives.
//
// Two backends are provided: minio-go for self-hosted MinIO or any
// S3-compatible endpoint, and the AWS SDK for Amazon S3 proper. Both sign URLs
// with SigV4, which caps presigned lifetimes at seven days; longer requests
// are clamped and logged.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"photodesk/internal/config"
	"photodesk/internal/logging"
)

// MaxPresignTTL is the longest lifetime SigV4 accepts for a presigned URL.
const MaxPresignTTL = 7 * 24 * time.Hour

// ContentTypeZip is the content type stored with delivery archives.
const ContentTypeZip = "application/zip"

// Object is a stored object listing entry.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the object storage contract used by delivery and cleanup.
type Store interface {
	Upload(ctx context.Context, key, path, contentType string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, key string) error
}

// New builds the configured backend.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	if err := cfg.StorageReady(); err != nil {
		return nil, err
	}
	logger = logging.NewComponentLogger(logger, "storage")
	s := cfg.Storage
	switch strings.ToLower(s.Backend) {
	case "s3":
		return NewS3Store(ctx, S3Options{
			Endpoint:  s.Endpoint,
			Region:    s.Region,
			Bucket:    s.Bucket,
			AccessKey: s.AccessKey,
			SecretKey: s.SecretKey,
			UseSSL:    s.UseSSL,
			PathStyle: s.PathStyle,
			Logger:    logger,
		})
	case "", "minio":
		return NewMinioStore(MinioOptions{
			Endpoint:  s.Endpoint,
			Region:    s.Region,
			Bucket:    s.Bucket,
			AccessKey: s.AccessKey,
			SecretKey: s.SecretKey,
			UseSSL:    s.UseSSL,
			Logger:    logger,
		})
	default:
		return nil, fmt.Errorf("storage backend: unsupported value %q", s.Backend)
	}
}

// ObjectKey returns "{prefix}/{customer}/{archive}".
func ObjectKey(prefix, customer, archive string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return customer + "/" + archive
	}
	return prefix + "/" + customer + "/" + archive
}

func clampTTL(logger *slog.Logger, key string, ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > MaxPresignTTL {
		if logger != nil {
			logger.Info("signed url lifetime clamped",
				logging.String("key", key),
				logging.Duration("requested", ttl),
				logging.Duration("granted", MaxPresignTTL),
			)
		}
		return MaxPresignTTL
	}
	return ttl
}

// hostOnly strips a scheme and trailing slash from an endpoint.
func hostOnly(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	return strings.TrimRight(endpoint, "/")
}
