package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tifo/internal/domain/aggregate"
	"tifo/pkg/errors"
)

// AggregateCache stores the freshest rollup per (scope, scope id). Reads
// served from here survive a ClickHouse outage until the TTL runs out.
type AggregateCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAggregateCache creates the rollup cache. ttl <= 0 defaults to 10
// minutes.
func NewAggregateCache(client *redis.Client, ttl time.Duration) *AggregateCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AggregateCache{client: client, ttl: ttl}
}

// Save stores the rollup, replacing any previous one for the same scope.
func (c *AggregateCache) Save(ctx context.Context, stats aggregate.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return errors.Wrap(err, "marshal aggregate")
	}

	key := c.key(stats.Scope, stats.ScopeID)
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "cache aggregate %s", key)
	}
	return nil
}

// Get returns the cached rollup for the scope, or ErrNotFound.
func (c *AggregateCache) Get(ctx context.Context, scope aggregate.Scope, scopeID string) (aggregate.Stats, error) {
	key := c.key(scope, scopeID)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return aggregate.Stats{}, errors.Wrapf(errors.ErrNotFound, "aggregate %s", key)
	}
	if err != nil {
		return aggregate.Stats{}, errors.Wrapf(err, "get aggregate %s", key)
	}

	var stats aggregate.Stats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return aggregate.Stats{}, errors.Wrapf(err, "unmarshal aggregate %s", key)
	}
	return stats, nil
}

func (c *AggregateCache) key(scope aggregate.Scope, scopeID string) string {
	return fmt.Sprintf("aggregate:%s:%s", scope, scopeID)
}
