package runlock_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"photodesk/internal/runlock"
	"photodesk/internal/testsupport"
)

func TestFileLockExcludesSecondHolder(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "photodesk.lock")
	first := runlock.NewFileLock(path, nil)
	second := runlock.NewFileLock(path, nil)

	ok, err := first.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire ok=%v err=%v", ok, err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("second acquire should fail while first holds the lock")
	}

	st, err := second.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Held || st.Holder.PID != os.Getpid() || !st.Alive {
		t.Fatalf("unexpected status %+v", st)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path + ".holder"); !os.IsNotExist(err) {
		t.Fatalf("holder record should be removed, stat err=%v", err)
	}
	ok, err = second.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("acquire after release ok=%v err=%v", ok, err)
	}
	_ = second.Release(ctx)
}

func TestFileLockStatusWhenFree(t *testing.T) {
	lock := runlock.NewFileLock(filepath.Join(t.TempDir(), "never.lock"), nil)
	st, err := lock.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Held {
		t.Fatalf("expected free lock, got %+v", st)
	}
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release of unheld lock: %v", err)
	}
}

func TestHolderAlive(t *testing.T) {
	if !runlock.HolderAlive(os.Getpid()) {
		t.Fatal("current process should be alive")
	}
	if runlock.HolderAlive(0) || runlock.HolderAlive(-1) {
		t.Fatal("non-positive pids are never alive")
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLockAcquireRelease(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)

	first, err := runlock.NewRedisLock(runlock.RedisOptions{Client: client, Key: "photodesk:run-lock", TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, _ := runlock.NewRedisLock(runlock.RedisOptions{Client: client, Key: "photodesk:run-lock", TTL: time.Minute})

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire ok=%v err=%v", ok, err)
	}
	if ok, err := second.Acquire(ctx); err != nil || ok {
		t.Fatalf("second acquire ok=%v err=%v", ok, err)
	}

	st, err := second.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Held || st.Holder.PID != os.Getpid() || st.TTL <= 0 {
		t.Fatalf("unexpected status %+v", st)
	}

	// Releasing from a non-holder leaves the key alone.
	if err := second.Release(ctx); err != nil {
		t.Fatalf("non-holder release: %v", err)
	}
	if !mr.Exists("photodesk:run-lock") {
		t.Fatal("key should survive non-holder release")
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if mr.Exists("photodesk:run-lock") {
		t.Fatal("key should be deleted after release")
	}
}

func TestRedisLockExpires(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)

	first, _ := runlock.NewRedisLock(runlock.RedisOptions{Client: client, Key: "k", TTL: time.Minute})
	second, _ := runlock.NewRedisLock(runlock.RedisOptions{Client: client, Key: "k", TTL: time.Minute})
	if ok, _ := first.Acquire(ctx); !ok {
		t.Fatal("first acquire failed")
	}
	mr.FastForward(2 * time.Minute)

	if ok, err := second.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire after expiry ok=%v err=%v", ok, err)
	}
	// The expired holder must not delete the new holder's key.
	if err := first.Release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if !mr.Exists("k") {
		t.Fatal("new holder's key was removed by stale release")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	mr, _ := newRedis(t)
	cfg := testsupport.NewConfig(t)

	lock, err := runlock.New(cfg, nil)
	if err != nil {
		t.Fatalf("New file: %v", err)
	}
	if _, ok := lock.(*runlock.FileLock); !ok {
		t.Fatalf("expected file lock, got %T", lock)
	}

	cfg.Lock.Backend = "redis"
	cfg.Lock.RedisAddr = mr.Addr()
	lock, err = runlock.New(cfg, nil)
	if err != nil {
		t.Fatalf("New redis: %v", err)
	}
	if _, ok := lock.(*runlock.RedisLock); !ok {
		t.Fatalf("expected redis lock, got %T", lock)
	}

	cfg.Lock.Backend = "etcd"
	if _, err := runlock.New(cfg, nil); err == nil {
		t.Fatal("expected unsupported backend error")
	}
}
