package local

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

var _ KV = (*RedisKV)(nil)

// RedisKV keeps device values in Redis under a per-device key prefix, the way
// a kiosk or shared terminal keeps guest carts off its local disk.
type RedisKV struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// RedisConfig configures RedisKV.
type RedisConfig struct {
	// Prefix is prepended to every key, e.g. "storefront:device-1:".
	Prefix string
	// TTL expires stored values; zero keeps them forever.
	TTL time.Duration
	// Timeout bounds every call. Zero means 3s.
	Timeout time.Duration
}

// NewRedisKV returns a RedisKV using client.
func NewRedisKV(client redis.UniversalClient, cfg RedisConfig) *RedisKV {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &RedisKV{
		client:  client,
		prefix:  cfg.Prefix,
		ttl:     cfg.TTL,
		timeout: cfg.Timeout,
	}
}

// Get returns the value under key.
func (s *RedisKV) Get(key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "redis get %s", key)
	}
	return data, true, nil
}

// Set stores value under key.
func (s *RedisKV) Set(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "redis set %s", key)
	}
	return nil
}

// Delete removes key.
func (s *RedisKV) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return errors.Wrapf(err, "redis del %s", key)
	}
	return nil
}
