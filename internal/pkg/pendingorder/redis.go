package pendingorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hotelrides/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Redis stores pending orders as JSON with a TTL so any API instance can
// reconcile the gateway callback.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(tempRef string) string { return r.prefix + tempRef }

func (r *Redis) Put(ctx context.Context, o *domain.PendingOrder) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal pending order: %w", err)
	}
	return r.client.Set(ctx, r.key(o.TempReference), data, r.ttl).Err()
}

func (r *Redis) Get(ctx context.Context, tempRef string) (*domain.PendingOrder, error) {
	data, err := r.client.Get(ctx, r.key(tempRef)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var o domain.PendingOrder
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decode pending order %s: %w", tempRef, err)
	}
	return &o, nil
}

func (r *Redis) MarkFailed(ctx context.Context, tempRef, reason string) error {
	o, err := r.Get(ctx, tempRef)
	if err != nil {
		return err
	}
	o.Status = domain.PendingOrderFailed
	o.FailureReason = reason
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(tempRef), data, redis.KeepTTL).Err()
}

func (r *Redis) Delete(ctx context.Context, tempRef string) error {
	return r.client.Del(ctx, r.key(tempRef)).Err()
}
