package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "realtime-leaderboard/internal/domain/leaderboard"
)

const snapshotKey = "leaderboard:snapshot"

// SnapshotCache defines the interface for leaderboard snapshot caching.
type SnapshotCache interface {
	// Get retrieves the cached snapshot.
	// Returns nil if no snapshot is cached.
	Get(ctx context.Context) (*domain.Snapshot, error)

	// Set stores a snapshot with the configured TTL. Mutations refresh the
	// cached snapshot rather than dropping it, so there is no delete.
	Set(ctx context.Context, snap *domain.Snapshot) error
}

// RedisSnapshotCache implements SnapshotCache using Redis as the backing store.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisSnapshotCache creates a new Redis-backed snapshot cache.
func NewRedisSnapshotCache(client *redis.Client, ttl time.Duration, log *zap.Logger) SnapshotCache {
	return &RedisSnapshotCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// Get retrieves the snapshot from Redis cache.
func (c *RedisSnapshotCache) Get(ctx context.Context) (*domain.Snapshot, error) {
	data, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		// Cache miss - not an error
		c.log.Debug("snapshot cache miss")
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get snapshot from cache", zap.Error(err))
		return nil, err
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		c.log.Error("failed to unmarshal cached snapshot", zap.Error(err))
		return nil, err
	}

	c.log.Debug("snapshot cache hit", zap.Int("users", len(snap.Users)))
	return &snap, nil
}

// Set stores the snapshot in Redis cache with TTL.
func (c *RedisSnapshotCache) Set(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("cannot cache nil snapshot")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		c.log.Error("failed to marshal snapshot for cache", zap.Error(err))
		return err
	}

	if err := c.client.Set(ctx, snapshotKey, data, c.ttl).Err(); err != nil {
		c.log.Error("failed to set snapshot cache", zap.Error(err))
		return err
	}

	c.log.Debug("cached snapshot",
		zap.Int("users", len(snap.Users)),
		zap.Int("history", len(snap.History)),
		zap.Duration("ttl", c.ttl),
	)
	return nil
}
