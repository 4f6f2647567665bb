package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "realtime-leaderboard/internal/domain/leaderboard"
)

// Broadcaster pushes a snapshot towards every connected viewer.
type Broadcaster interface {
	Publish(ctx context.Context, snap *domain.Snapshot) error
}

// RedisBroadcaster implements Broadcaster by publishing the snapshot to a
// Redis pub/sub channel. The Hub on the other end fans it out to viewers,
// so several instances can share one channel.
type RedisBroadcaster struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

// NewRedisBroadcaster creates a broadcaster publishing on the given channel.
func NewRedisBroadcaster(client *redis.Client, channel string, log *zap.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		client:  client,
		channel: channel,
		log:     log,
	}
}

// Publish marshals the snapshot to its wire shape and publishes it.
func (b *RedisBroadcaster) Publish(ctx context.Context, snap *domain.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("cannot publish nil snapshot")
	}

	data, err := json.Marshal(NewSnapshotPayload(snap))
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}

	b.log.Debug("snapshot published",
		zap.String("channel", b.channel),
		zap.Int("users", len(snap.Users)),
		zap.Int("history", len(snap.History)),
	)
	return nil
}
