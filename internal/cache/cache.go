package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lookup results reported to the LookupObserver.
const (
	Hit  = "hit"
	Miss = "miss"
)

// Cache stores serialized list responses.
type Cache interface {
	// Get decodes the cached value of key into dst and reports whether it was found.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context, keys ...string) error
}

// LookupObserver receives the result of every lookup.
type LookupObserver interface {
	ObserveCacheLookup(result string)
}

// Client is the part of *redis.Client used by Redis.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Redis is a Cache backed by redis with a fixed TTL.
type Redis struct {
	client   Client
	ttl      time.Duration
	log      *slog.Logger
	observer LookupObserver
}

// NewRedisClient opens a client and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewRedis(client Client, ttl time.Duration, log *slog.Logger, observer LookupObserver) *Redis {
	return &Redis{client: client, ttl: ttl, log: log, observer: observer}
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.observe(Miss)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}
	if err = json.Unmarshal(data, dst); err != nil {
		r.log.WarnContext(ctx, "Dropping undecodable cache entry", "key", key, "error", err)
		r.observe(Miss)
		return false, r.Invalidate(ctx, key)
	}
	r.observe(Hit)
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err = r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

func (r *Redis) observe(result string) {
	if r.observer != nil {
		r.observer.ObserveCacheLookup(result)
	}
}

// Nop never stores anything. It is used when no redis address is configured.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any) error         { return nil }
func (Nop) Invalidate(context.Context, ...string) error    { return nil }
