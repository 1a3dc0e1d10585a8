package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vsinha/fieldflow/pkg/infrastructure/logger"
)

// releaseScript deletes the key only if it still holds our token
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX so several API instances
// share one lock space. A lock expires after ttl if its holder dies.
type RedisLocker struct {
	rdb    *goredis.Client
	log    *logger.Logger
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker connects to addr and verifies the connection
func NewRedisLocker(ctx context.Context, addr string, ttl time.Duration, log *logger.Logger) (*RedisLocker, error) {
	if addr == "" {
		return nil, errors.New("redis locker: missing address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisLockerWithClient(rdb, ttl, log), nil
}

// NewRedisLockerWithClient wraps an existing client
func NewRedisLockerWithClient(rdb *goredis.Client, ttl time.Duration, log *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		rdb:    rdb,
		log:    log.With("service", "RedisLocker"),
		prefix: "fieldflow:lock:",
		ttl:    ttl,
		retry:  50 * time.Millisecond,
	}
}

// Verify interface compliance
var _ Locker = (*RedisLocker)(nil)

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	return func() {
		// Release must not depend on the caller's possibly expired context
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.rdb, []string{redisKey}, token).Err(); err != nil {
			l.log.Warn("lock release failed", "key", key, "error", err)
		}
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.rdb.Close()
}
