package storage_test

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"photodesk/internal/logging"
	"photodesk/internal/storage"
)

type memoryStore struct {
	objects  map[string]storage.Object
	failKeys map[string]bool
	listErr  error
	listed   []string
	deleted  []string
	uploaded map[string]string
}

func newMemoryStore(objs ...storage.Object) *memoryStore {
	m := &memoryStore{objects: map[string]storage.Object{}, failKeys: map[string]bool{}, uploaded: map[string]string{}}
	for _, o := range objs {
		m.objects[o.Key] = o
	}
	return m
}

func (m *memoryStore) Upload(_ context.Context, key, path, contentType string) error {
	m.uploaded[key] = contentType
	return nil
}

func (m *memoryStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + key, nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]storage.Object, error) {
	m.listed = append(m.listed, prefix)
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []storage.Object
	for k, o := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	if m.failKeys[key] {
		return errors.New("access denied")
	}
	m.deleted = append(m.deleted, key)
	delete(m.objects, key)
	return nil
}

func TestCleanerDeletesByWholeDays(t *testing.T) {
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	store := newMemoryStore(
		storage.Object{Key: "auto/kim/a.zip", Size: 10, LastModified: now.Add(-7 * 24 * time.Hour)},
		storage.Object{Key: "auto/lee/b.zip", Size: 10, LastModified: now.Add(-7*24*time.Hour + time.Minute)},
		storage.Object{Key: "auto/park/c.zip", Size: 10, LastModified: now.Add(-30 * 24 * time.Hour)},
		storage.Object{Key: "manual/d.zip", Size: 10, LastModified: now.Add(-90 * 24 * time.Hour)},
	)
	store.failKeys["auto/park/c.zip"] = true

	cleaner := &storage.Cleaner{Store: store, Prefix: "auto", RetentionDays: 7, Logger: logging.NewNop(), Now: func() time.Time { return now }}
	result, err := cleaner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Scanned != 3 || result.Deleted != 1 || result.Failed != 1 || result.Bytes != 10 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "auto/kim/a.zip" {
		t.Fatalf("unexpected deletes %v", store.deleted)
	}
	if store.listed[0] != "auto/" {
		t.Fatalf("expected prefix auto/, got %q", store.listed[0])
	}
}

func TestCleanerReturnsListError(t *testing.T) {
	store := newMemoryStore()
	store.listErr = errors.New("network down")
	cleaner := &storage.Cleaner{Store: store, Prefix: "auto/", RetentionDays: 7}
	if _, err := cleaner.Run(context.Background()); err == nil {
		t.Fatal("expected list error")
	}
}

func TestAgeDays(t *testing.T) {
	now := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	if got := storage.AgeDays(now, now.Add(-47*time.Hour)); got != 1 {
		t.Fatalf("AgeDays = %d", got)
	}
	if got := storage.AgeDays(now, now.Add(time.Hour)); got != 0 {
		t.Fatalf("future AgeDays = %d", got)
	}
}

func TestObjectKey(t *testing.T) {
	if got := storage.ObjectKey("auto/", "김민수", "x.zip"); got != "auto/김민수/x.zip" {
		t.Fatalf("ObjectKey = %q", got)
	}
	if got := storage.ObjectKey("", "kim", "x.zip"); got != "kim/x.zip" {
		t.Fatalf("ObjectKey = %q", got)
	}
}

func expiresParam(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u.Query().Get("X-Amz-Expires")
}

func TestMinioSignedURLClampsLifetime(t *testing.T) {
	store, err := storage.NewMinioStore(storage.MinioOptions{
		Endpoint:  "http://127.0.0.1:9000",
		Region:    "us-east-1",
		Bucket:    "deliveries",
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Logger:    logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewMinioStore: %v", err)
	}
	signed, err := store.SignedURL(context.Background(), "auto/kim/a.zip", 15*24*time.Hour)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if got := expiresParam(t, signed); got != "604800" {
		t.Fatalf("expected 7 day clamp, got %q in %s", got, signed)
	}
	if !strings.Contains(signed, "/deliveries/auto/kim/a.zip") {
		t.Fatalf("unexpected url %s", signed)
	}
}

func TestS3SignedURL(t *testing.T) {
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(t.TempDir(), "none"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(t.TempDir(), "none"))
	store, err := storage.NewS3Store(context.Background(), storage.S3Options{
		Endpoint:  "127.0.0.1:9000",
		Region:    "us-east-1",
		Bucket:    "deliveries",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
		PathStyle: true,
		Logger:    logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewS3Store: %v", err)
	}
	signed, err := store.SignedURL(context.Background(), "auto/kim/a.zip", 24*time.Hour)
	if err != nil {
		t.Fatalf("SignedURL: %v", err)
	}
	if got := expiresParam(t, signed); got != "86400" {
		t.Fatalf("expected 86400, got %q in %s", got, signed)
	}
	if !strings.HasPrefix(signed, "http://127.0.0.1:9000/deliveries/auto/kim/a.zip") {
		t.Fatalf("unexpected url %s", signed)
	}
}

func TestS3UploadMissingFile(t *testing.T) {
	store, err := storage.NewS3Store(context.Background(), storage.S3Options{
		Endpoint: "127.0.0.1:1", Region: "us-east-1", Bucket: "b", AccessKey: "a", SecretKey: "s",
	})
	if err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(t.TempDir(), "missing.zip")
	if _, statErr := os.Stat(missing); !os.IsNotExist(statErr) {
		t.Fatal("expected missing fixture")
	}
	if err := store.Upload(context.Background(), "k", missing, storage.ContentTypeZip); err == nil {
		t.Fatal("expected open error")
	}
}
