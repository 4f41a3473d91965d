package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ivlev/coursevideo/internal/config"
	"github.com/ivlev/coursevideo/internal/timing"
)

// Redis provides duration caching using Redis
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a new cache instance and checks the connection
func NewRedis(cfg config.Redis) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{client: client, ttl: cfg.TTL}, nil
}

// Get retrieves a duration map from cache
func (c *Redis) Get(ctx context.Context, key Key) (timing.DurationMap, bool, error) {
	data, err := c.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get durations from cache: %w", err)
	}

	var d timing.DurationMap
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal durations: %w", err)
	}

	return d, true, nil
}

// Set caches a duration map
func (c *Redis) Set(ctx context.Context, key Key, durations timing.DurationMap) error {
	data, err := json.Marshal(durations)
	if err != nil {
		return fmt.Errorf("failed to marshal durations: %w", err)
	}

	return c.client.Set(ctx, key.String(), data, c.ttl).Err()
}

// Ping checks the Redis connection
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Redis) Close() error {
	return c.client.Close()
}
