package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token, so an
// expired lock taken over by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisOptions tune the Redis locker.
type RedisOptions struct {
	// TTL bounds how long a crashed holder can keep a key.
	TTL time.Duration
	// RetryInterval is the pause between SET NX attempts.
	RetryInterval time.Duration
	// Logger receives failed releases. Defaults to slog.Default().
	Logger *slog.Logger
}

// Redis is a Locker shared by every instance connected to the same Redis.
type Redis struct {
	client redis.UniversalClient
	opts   RedisOptions
}

// NewRedis creates a Redis-backed locker.
func NewRedis(client redis.UniversalClient, opts RedisOptions) *Redis {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 25 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Redis{client: client, opts: opts}
}

// Acquire takes every key with SET NX PX, retrying until ctx is done. Redis
// errors are reported as ErrNotAcquired so callers can retry later.
func (r *Redis) Acquire(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := uuid.NewString()
	acquired := make([]string, 0, len(keys))

	for _, key := range keys {
		if err := r.acquireOne(ctx, key, token); err != nil {
			r.release(acquired, token)
			return nil, err
		}
		acquired = append(acquired, key)
	}

	var once sync.Once
	return func() { once.Do(func() { r.release(acquired, token) }) }, nil
}

func (r *Redis) acquireOne(ctx context.Context, key, token string) error {
	for {
		ok, err := r.client.SetNX(ctx, key, token, r.opts.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
			}
			return fmt.Errorf("%w: set %s: %w", ErrNotAcquired, key, err)
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(r.opts.RetryInterval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		}
	}
}

func (r *Redis) release(keys []string, token string) {
	if len(keys) == 0 {
		return
	}
	// The caller's context may already be cancelled; release regardless.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, key := range keys {
		if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil {
			r.opts.Logger.Warn("lock release failed; key expires after its TTL", "key", key, "ttl", r.opts.TTL, "error", err)
		}
	}
}
