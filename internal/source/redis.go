package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"proxy-metrics-panel/internal/panel"
)

// SnapshotKeyPrefix prefixes every snapshot key written to Redis.
const SnapshotKeyPrefix = "proxy-metrics:snapshot:"

// RedisCache shares snapshots between source replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client, ttl: ttl, logger: logger}, nil
}

func redisKey(proxyID string, tf panel.Timeframe) string {
	return SnapshotKeyPrefix + proxyID + ":" + string(tf)
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, proxyID string, tf panel.Timeframe) ([]byte, bool) {
	b, err := r.client.Get(ctx, redisKey(proxyID, tf)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("redis snapshot lookup failed", "proxy_id", proxyID, "timeframe", tf, "err", err)
		}
		return nil, false
	}
	return b, true
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, proxyID string, tf panel.Timeframe, body []byte) {
	if err := r.client.Set(ctx, redisKey(proxyID, tf), body, r.ttl).Err(); err != nil {
		r.logger.Warn("redis snapshot store failed", "proxy_id", proxyID, "timeframe", tf, "err", err)
	}
}

// Invalidate implements Cache.
func (r *RedisCache) Invalidate(ctx context.Context, proxyID string) {
	opts := panel.TimeframeOptions()
	keys := make([]string, 0, len(opts))
	for _, o := range opts {
		keys = append(keys, redisKey(proxyID, o.Value))
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("redis snapshot invalidation failed", "proxy_id", proxyID, "err", err)
	}
}

// Ping checks the connection.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close implements Cache.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
