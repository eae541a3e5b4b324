package storage

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"photodesk/internal/services"
)

// MinioOptions configures NewMinioStore.
type MinioOptions struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Logger    *slog.Logger
}

// MinioStore implements Store with minio-go.
type MinioStore struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinioStore creates a client. No request is made until first use.
func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(hostOnly(opts.Endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "init minio", opts.Endpoint, err)
	}
	return &MinioStore{client: client, bucket: opts.Bucket, logger: opts.Logger}, nil
}

// Upload streams the file at path to key.
func (m *MinioStore) Upload(ctx context.Context, key, path, contentType string) error {
	if _, err := m.client.FPutObject(ctx, m.bucket, key, path, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return services.Wrap(services.ErrExternalService, "storage", "upload", key, err)
	}
	return nil
}

// SignedURL returns a presigned GET URL.
func (m *MinioStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, clampTTL(m.logger, key, ttl), url.Values{})
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "storage", "presign", key, err)
	}
	return u.String(), nil
}

// List returns every object below prefix.
func (m *MinioStore) List(ctx context.Context, prefix string) ([]Object, error) {
	var out []Object
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, services.Wrap(services.ErrExternalService, "storage", "list", prefix, obj.Err)
		}
		out = append(out, Object{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return out, nil
}

// Delete removes key.
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return services.Wrap(services.ErrExternalService, "storage", "delete", key, err)
	}
	return nil
}
