package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tifo/internal/domain/post"
	"tifo/pkg/errors"
)

// defaultDedupTTL bounds how long an identity key stays hot. Postgres
// remains the authoritative boundary after expiry.
const defaultDedupTTL = 24 * time.Hour

// Deduplicator is the shared fast path for duplicate detection. SETNX
// per identity key; the first caller wins, every later caller sees the
// key as taken.
type Deduplicator struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeduplicator creates a Redis-backed deduplicator. ttl <= 0 uses the
// default.
func NewDeduplicator(client *redis.Client, ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = defaultDedupTTL
	}
	return &Deduplicator{client: client, ttl: ttl}
}

// MarkSeen records the key and reports whether this call was the first
// to see it.
func (d *Deduplicator) MarkSeen(ctx context.Context, key post.Key) (bool, error) {
	first, err := d.client.SetNX(ctx, d.redisKey(key), 1, d.ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "dedup mark %s", key)
	}
	return first, nil
}

// Forget drops the key so it can be admitted again. Used by tests and
// backfills.
func (d *Deduplicator) Forget(ctx context.Context, key post.Key) error {
	if err := d.client.Del(ctx, d.redisKey(key)).Err(); err != nil {
		return errors.Wrapf(err, "dedup forget %s", key)
	}
	return nil
}

func (d *Deduplicator) redisKey(key post.Key) string {
	return fmt.Sprintf("dedup:%s:%s", key.Platform, key.ExternalID)
}
