package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	r "github.com/fareflow/fareflow/pkg/redis"
)

// snapshotKey is namespaced through the configured redis key prefix
const snapshotKey = "monitor:snapshot"

// SnapshotCache keeps the latest health snapshot in Redis so the API can
// answer without re-running the full check suite
type SnapshotCache struct {
	redisClient *redis.Client
	key         string
	ttl         time.Duration
}

// NewSnapshotCache creates a snapshot cache with the given TTL. The cache
// key is prefixed with the configured redis namespace.
func NewSnapshotCache(redisClient *redis.Client, redisCfg *r.Config, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		redisClient: redisClient,
		key:         redisCfg.PrefixKey(snapshotKey),
		ttl:         ttl,
	}
}

// Get retrieves the cached snapshot; a cache miss returns nil, nil
func (c *SnapshotCache) Get(ctx context.Context) (*Snapshot, error) {
	data, err := c.redisClient.Get(ctx, c.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}

		return nil, err
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		return nil, err
	}

	return &snapshot, nil
}

// Set stores the snapshot under the configured TTL
func (c *SnapshotCache) Set(ctx context.Context, snapshot *Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return c.redisClient.Set(ctx, c.key, data, c.ttl).Err()
}

// Invalidate drops the cached snapshot
func (c *SnapshotCache) Invalidate(ctx context.Context) error {
	return c.redisClient.Del(ctx, c.key).Err()
}
