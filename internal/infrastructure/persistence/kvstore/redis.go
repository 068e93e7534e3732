package kvstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aula-hub/aula-classroom-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// REDIS BACKEND
// ══════════════════════════════════════════════════════════════════════════════

// ErrRedisConnection is returned when the Redis connection fails.
var ErrRedisConnection = errors.New("kvstore: redis connection failed")

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Host is the Redis server hostname.
	Host string

	// Port is the Redis server port.
	Port int

	// Password is the Redis authentication password (empty if no auth).
	Password string

	// DB is the Redis database number (0-15).
	DB int

	// PoolSize is the maximum number of socket connections.
	PoolSize int

	// DialTimeout is the timeout for establishing new connections.
	DialTimeout time.Duration

	// ReadTimeout is the timeout for socket reads.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for socket writes.
	WriteTimeout time.Duration

	// MaxRetries is the maximum number of application-level retries per
	// operation (on top of go-redis connection retries).
	MaxRetries int
}

// DefaultRedisConfig returns a sensible default configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisBackend stores the journal entries in Redis. Useful when several
// devices of the same teacher should see one journal.
type RedisBackend struct {
	client  *redis.Client
	retrier *retry.Retrier
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisConnection, err)
	}

	return &RedisBackend{
		client:  client,
		retrier: retry.New(retry.WithMaxAttempts(cfg.MaxRetries)),
	}, nil
}

// GetRaw implements Backend.
func (b *RedisBackend) GetRaw(ctx context.Context, key string) (string, bool, error) {
	var value string
	found := false

	err := b.retrier.Do(ctx, func(ctx context.Context) error {
		v, err := b.client.Get(ctx, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}
		value, found = v, true
		return nil
	})
	return value, found, err
}

// SetRaw implements Backend. Entries do not expire; the journal owns deletion.
func (b *RedisBackend) SetRaw(ctx context.Context, key, value string) error {
	return b.retrier.Do(ctx, func(ctx context.Context) error {
		return b.client.Set(ctx, key, value, 0).Err()
	})
}

// DeleteRaw implements Backend.
func (b *RedisBackend) DeleteRaw(ctx context.Context, key string) error {
	return b.retrier.Do(ctx, func(ctx context.Context) error {
		return b.client.Del(ctx, key).Err()
	})
}

// Keys implements Backend using SCAN, which is safe on shared instances.
func (b *RedisBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	err := b.retrier.Do(ctx, func(ctx context.Context) error {
		keys = keys[:0]
		iter := b.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		return iter.Err()
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
