package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/restock-service/internal/domain"
	"github.com/fjod/go_cart/restock-service/internal/publisher"
	"github.com/redis/go-redis/v9"
)

const (
	LatestKey     = "restock:latest"
	EventsChannel = "restock:events"

	// ttlIntervals is how many restock intervals the latest key outlives
	ttlIntervals = 2
)

func NewRedisSnapshotCache(client *redis.Client) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client}
}

// RedisSnapshotCache stores the latest restock under a single key and
// announces every restock on a pub/sub channel. The key expires after two
// restock intervals, so a stopped service does not leave stale stock behind.
type RedisSnapshotCache struct {
	client *redis.Client
}

// ttl returns 0 (no expiry) for an unknown interval
func ttl(intervalSeconds int) time.Duration {
	if intervalSeconds <= 0 {
		return 0
	}
	return ttlIntervals * time.Duration(intervalSeconds) * time.Second
}

func (r *RedisSnapshotCache) Name() string { return "redis" }

// Publish implements publisher.Sink
func (r *RedisSnapshotCache) Publish(ctx context.Context, evt domain.RestockEvent) error {
	payload, err := publisher.EncodeEvent(evt)
	if err != nil {
		return fmt.Errorf("marshal restock event failed: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, LatestKey, payload, ttl(evt.RestockIntervalSeconds))
	pipe.Publish(ctx, EventsChannel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// ExtendTTL re-arms the latest key's expiry after the restock interval
// changes. A missing key is not an error.
func (r *RedisSnapshotCache) ExtendTTL(ctx context.Context, intervalSeconds int) error {
	d := ttl(intervalSeconds)
	if d == 0 {
		return nil
	}
	if err := r.client.Expire(ctx, LatestKey, d).Err(); err != nil {
		return fmt.Errorf("redis expire failed: %w", err)
	}
	return nil
}

// Latest implements SnapshotCache
func (r *RedisSnapshotCache) Latest(ctx context.Context) (*publisher.EventPayload, error) {
	data, err := r.client.Get(ctx, LatestKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var payload publisher.EventPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal restock event failed: %w", err)
	}
	return &payload, nil
}
