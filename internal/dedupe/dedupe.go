package dedupe

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper records which webhook events have been seen.
type Deduper interface {
	// Claim marks eventID as seen and reports whether this call was first.
	Claim(ctx context.Context, eventID string) (bool, error)
	// Release forgets eventID so a redelivery is processed again.
	Release(ctx context.Context, eventID string) error
}

// RedisDeduper keeps claims as expiring Redis keys.
type RedisDeduper struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

func NewRedisDeduper(rdb *redis.Client, keyPrefix string, ttl time.Duration) *RedisDeduper {
	if keyPrefix == "" {
		keyPrefix = "billing:stripe:event:"
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisDeduper{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (d *RedisDeduper) key(eventID string) string { return d.keyNS + eventID }

func (d *RedisDeduper) Claim(ctx context.Context, eventID string) (bool, error) {
	return d.rdb.SetNX(ctx, d.key(eventID), time.Now().Unix(), d.ttl).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, eventID string) error {
	return d.rdb.Del(ctx, d.key(eventID)).Err()
}

// Noop accepts every event.
type Noop struct{}

func (Noop) Claim(context.Context, string) (bool, error) { return true, nil }
func (Noop) Release(context.Context, string) error { return nil }
