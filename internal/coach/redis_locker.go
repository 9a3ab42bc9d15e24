package coach

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/abhisek/stepwise/internal/logger"
)

// RedisLocker serializes turns across processes with a SET NX PX lease.
// The lease expires on its own if a holder dies mid-turn.
type RedisLocker struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	poll   time.Duration
	log    *logger.Logger
}

// RedisLockerConfig configures a RedisLocker.
type RedisLockerConfig struct {
	// Prefix namespaces lock keys. Default "stepwise:lock:".
	Prefix string

	// TTL bounds how long a crashed holder blocks the learner. It must
	// exceed the longest turn. Default 60s.
	TTL time.Duration

	// Poll is the base retry interval while waiting. Default 50ms.
	Poll time.Duration
}

// releaseScript deletes the key only if we still own the lease.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisLocker connects to addr and verifies the connection.
func NewRedisLocker(ctx context.Context, addr string, cfg RedisLockerConfig, log *logger.Logger) (*RedisLocker, error) {
	if addr == "" {
		return nil, errors.New("missing redis address")
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
	return NewRedisLockerWithClient(rdb, cfg, log), nil
}

// NewRedisLockerWithClient wraps an existing client.
func NewRedisLockerWithClient(rdb goredis.UniversalClient, cfg RedisLockerConfig, log *logger.Logger) *RedisLocker {
	if cfg.Prefix == "" {
		cfg.Prefix = "stepwise:lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 60 * time.Second
	}
	if cfg.Poll <= 0 {
		cfg.Poll = 50 * time.Millisecond
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisLocker{
		rdb:    rdb,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		poll:   cfg.Poll,
		log:    log.With("service", "RedisLocker"),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	owner := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, owner, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lease: %w", err)
		}
		if ok {
			break
		}
		wait := l.poll + time.Duration(rand.Int64N(int64(l.poll)))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// Release even if the turn's context was cancelled.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{redisKey}, owner).Err(); err != nil {
			l.log.Warn("lease release failed", "key", redisKey, "error", err)
		}
	}, nil
}

// Close closes the underlying client.
func (l *RedisLocker) Close() error {
	return l.rdb.Close()
}
