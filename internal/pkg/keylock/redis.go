package keylock

import (
	"context"
	"errors"
	"time"

	"hotelrides/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// only the holder that set the token may delete the key
const luaCompareAndDelete = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`

const redisPollInterval = 25 * time.Millisecond

// Redis is a Locker shared across instances. The lease TTL bounds how long a
// crashed holder can block the key.
type Redis struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	wait    time.Duration
	release *redis.Script
	log     *zap.Logger
}

func NewRedis(client redis.UniversalClient, prefix string, ttl, wait time.Duration, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		wait:    wait,
		release: redis.NewScript(luaCompareAndDelete),
		log:     log,
	}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + key
	token := uuid.NewString()

	if r.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.wait)
		defer cancel()
	}

	ticker := time.NewTicker(redisPollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return nil, domain.ErrLockTimeout
			}
			return nil, err
		}
		if ok {
			return func() {
				// the caller's context may already be done
				relCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := r.release.Run(relCtx, r.client, []string{fullKey}, token).Err(); err != nil {
					r.log.Warn("keylock release failed", zap.String("key", fullKey), zap.Error(err))
				}
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, domain.ErrLockTimeout
		case <-ticker.C:
		}
	}
}
