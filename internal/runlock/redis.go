package runlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"photodesk/internal/logging"
)

const defaultRedisTTL = time.Hour

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

// RedisOptions configures the shared lock.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
	Logger   *slog.Logger
	// Client overrides the connection built from Addr.
	Client *redis.Client
}

// RedisLock is a SET NX lock with a TTL so a crashed holder cannot wedge
// future runs.
type RedisLock struct {
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	token string
}

// NewRedisLock builds a redis lock.
func NewRedisLock(opts RedisOptions) (*RedisLock, error) {
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		return nil, errors.New("redis lock key is required")
	}
	rdb := opts.Client
	if rdb == nil {
		if strings.TrimSpace(opts.Addr) == "" {
			return nil, errors.New("redis lock address is required")
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		})
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RedisLock{rdb: rdb, key: key, ttl: ttl, logger: logger, now: time.Now}, nil
}

// Acquire sets the key if absent.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token != "" {
		return true, nil
	}
	holder := newHolder(l.now())
	ok, err := l.rdb.SetNX(ctx, l.key, holder.encode(), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire redis lock: %w", err)
	}
	if ok {
		l.token = holder.Token
	}
	return ok, nil
}

// Release deletes the key only while it still carries this holder's value.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""

	current, err := l.rdb.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		l.logger.Warn("redis lock expired before release", logging.String("key", l.key))
		return nil
	}
	if err != nil {
		return fmt.Errorf("read redis lock: %w", err)
	}
	if decodeHolder(current).Token != token {
		l.logger.Warn("redis lock taken over before release", logging.String("key", l.key))
		return nil
	}
	if _, err := releaseScript.Run(ctx, l.rdb, []string{l.key}, current).Int64(); err != nil {
		return fmt.Errorf("release redis lock: %w", err)
	}
	return nil
}

// Status reads the key and its remaining TTL.
func (l *RedisLock) Status(ctx context.Context) (Status, error) {
	st := Status{Backend: "redis"}
	raw, err := l.rdb.Get(ctx, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("read redis lock: %w", err)
	}
	st.Held = true
	st.Holder = decodeHolder(raw)
	if ttl, err := l.rdb.TTL(ctx, l.key).Result(); err == nil && ttl > 0 {
		st.TTL = ttl
	}
	return st, nil
}

// Close closes the redis connection.
func (l *RedisLock) Close() error {
	return l.rdb.Close()
}
