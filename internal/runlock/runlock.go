package runlock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"photodesk/internal/config"
)

// Lock is a non-blocking run lock.
type Lock interface {
	// Acquire reports whether the lock was taken.
	Acquire(ctx context.Context) (bool, error)
	// Release drops a lock taken by Acquire. Releasing an unheld lock is a no-op.
	Release(ctx context.Context) error
	// Status reports the current holder without taking the lock.
	Status(ctx context.Context) (Status, error)
}

// Status describes the current lock holder.
type Status struct {
	Backend string
	Held    bool
	Holder  Holder
	// Alive is only meaningful for the file backend on the local host.
	Alive bool
	// TTL is the remaining lifetime for the redis backend.
	TTL time.Duration
}

// Holder identifies the process owning the lock.
type Holder struct {
	Token    string
	Hostname string
	PID      int
	Since    time.Time
}

// New builds the configured lock backend.
func New(cfg *config.Config, logger *slog.Logger) (Lock, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Lock.Backend {
	case "", "file":
		return NewFileLock(cfg.Lock.Path, logger), nil
	case "redis":
		return NewRedisLock(RedisOptions{
			Addr:     cfg.Lock.RedisAddr,
			Password: cfg.Lock.RedisPassword,
			DB:       cfg.Lock.RedisDB,
			Key:      cfg.Lock.RedisKey,
			TTL:      time.Duration(cfg.Lock.TTLSeconds) * time.Second,
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("unsupported lock backend %q", cfg.Lock.Backend)
	}
}

func newHolder(now time.Time) Holder {
	host, _ := os.Hostname()
	return Holder{
		Token:    uuid.NewString(),
		Hostname: host,
		PID:      os.Getpid(),
		Since:    now.UTC(),
	}
}

// encode renders the holder as "token hostname pid since".
func (h Holder) encode() string {
	return strings.Join([]string{
		h.Token,
		hostField(h.Hostname),
		strconv.Itoa(h.PID),
		h.Since.Format(time.RFC3339),
	}, " ")
}

func decodeHolder(raw string) Holder {
	fields := strings.Fields(strings.TrimSpace(raw))
	var h Holder
	if len(fields) > 0 {
		h.Token = fields[0]
	}
	if len(fields) > 1 && fields[1] != "-" {
		h.Hostname = fields[1]
	}
	if len(fields) > 2 {
		h.PID, _ = strconv.Atoi(fields[2])
	}
	if len(fields) > 3 {
		h.Since, _ = time.Parse(time.RFC3339, fields[3])
	}
	return h
}

func hostField(host string) string {
	host = strings.Join(strings.Fields(host), "")
	if host == "" {
		return "-"
	}
	return host
}
