package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"example.com/backstage/services/procurement/config"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// Backend is a shared second-level store behind the in-process cache.
// Get reports found=false on a miss.
type Backend interface {
	Get(ctx context.Context, key string, value interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// RedisBackend shares fetched values between console processes using Redis
type RedisBackend struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	enabled bool
}

// NewRedisBackend connects to Redis. A disabled config yields a backend whose
// operations are no-ops.
func NewRedisBackend(cfg config.RedisConfig) (*RedisBackend, error) {
	if !cfg.Enabled {
		return &RedisBackend{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return newRedisBackend(client, cfg.Prefix, cfg.TTL), nil
}

func newRedisBackend(client *redis.Client, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		enabled: true,
	}
}

// Enabled reports whether values are shared through Redis
func (b *RedisBackend) Enabled() bool {
	return b.enabled
}

func (b *RedisBackend) key(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + ":" + key
}

// Get retrieves a JSON-encoded value
func (b *RedisBackend) Get(ctx context.Context, key string, value interface{}) (bool, error) {
	if !b.enabled {
		return false, nil
	}

	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to get value from Redis")
	}

	if err := json.Unmarshal(data, value); err != nil {
		return false, errors.Wrap(err, "failed to unmarshal cached value")
	}

	return true, nil
}

// Set stores a value with the configured expiration
func (b *RedisBackend) Set(ctx context.Context, key string, value interface{}) error {
	if !b.enabled {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal value for caching")
	}

	if err := b.client.Set(ctx, b.key(key), data, b.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to set value in Redis")
	}

	return nil
}

// Delete removes keys
func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if !b.enabled || len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = b.key(key)
	}

	if err := b.client.Del(ctx, prefixed...).Err(); err != nil {
		return errors.Wrap(err, "failed to delete keys from Redis")
	}
	return nil
}

// Keys lists the keys matching a glob pattern, without the key prefix
func (b *RedisBackend) Keys(ctx context.Context, pattern string) ([]string, error) {
	if !b.enabled {
		return nil, nil
	}

	var keys []string
	iter := b.client.Scan(ctx, 0, b.key(pattern), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), b.key("")))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan Redis keys")
	}
	return keys, nil
}

// Close closes the Redis connection
func (b *RedisBackend) Close() error {
	if !b.enabled || b.client == nil {
		return nil
	}

	return b.client.Close()
}
