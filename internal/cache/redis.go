package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/movie-recommender/config"
	"github.com/dustin/movie-recommender/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	defaultTTL              = 10 * time.Minute
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
)

type options struct {
	addr             string
	password         string
	db               int
	ttl              time.Duration
	failureThreshold uint32
	openTimeout      time.Duration
}

func parseOptions(cfg *config.CacheConfig) (options, error) {
	opts := options{
		addr:             cfg.Addr,
		password:         cfg.Password,
		ttl:              defaultTTL,
		failureThreshold: defaultFailureThreshold,
		openTimeout:      defaultOpenTimeout,
	}
	if opts.addr == "" {
		return opts, fmt.Errorf("cache address is required")
	}

	if cfg.DB != "" {
		db, err := strconv.Atoi(cfg.DB)
		if err != nil || db < 0 {
			return opts, fmt.Errorf("invalid redis db '%s'", cfg.DB)
		}
		opts.db = db
	}
	if cfg.TTL != "" {
		ttl, err := time.ParseDuration(cfg.TTL)
		if err != nil || ttl <= 0 {
			return opts, fmt.Errorf("invalid cache ttl '%s'", cfg.TTL)
		}
		opts.ttl = ttl
	}
	if cfg.FailureThreshold != "" {
		n, err := strconv.ParseUint(cfg.FailureThreshold, 10, 32)
		if err != nil || n == 0 {
			return opts, fmt.Errorf("invalid cache failure threshold '%s'", cfg.FailureThreshold)
		}
		opts.failureThreshold = uint32(n)
	}
	if cfg.OpenTimeout != "" {
		d, err := time.ParseDuration(cfg.OpenTimeout)
		if err != nil || d <= 0 {
			return opts, fmt.Errorf("invalid cache open timeout '%s'", cfg.OpenTimeout)
		}
		opts.openTimeout = d
	}
	return opts, nil
}

// RedisCache stores JSON values in Redis behind a circuit breaker, so an
// unreachable Redis costs one fast failure per call instead of a dial timeout
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *logger.Logger
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, cfg *config.CacheConfig, log *logger.Logger) (*RedisCache, error) {
	opts, err := parseOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.addr,
		Password: opts.password,
		DB:       opts.db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.addr, err)
	}

	return newRedisCache(client, opts, log), nil
}

func newRedisCache(client *redis.Client, opts options, log *logger.Logger) *RedisCache {
	c := &RedisCache{
		client: client,
		ttl:    opts.ttl,
		logger: log.WithComponent("redis-cache"),
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "redis-cache",
		Timeout: opts.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.failureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("Circuit breaker " + name + " changed from " + from.String() + " to " + to.String())
		},
	})
	return c
}

// Get decodes the value at key into dst. A missing key is (false, nil).
func (c *RedisCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := c.breaker.Execute(func() ([]byte, error) {
		b, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return b, err
	})
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if data == nil {
		return false, nil
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode cached value %s: %w", key, err)
	}
	return true, nil
}

// Set stores value as JSON with the configured TTL
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value %s: %w", key, err)
	}

	_, err = c.breaker.Execute(func() ([]byte, error) {
		return nil, c.client.Set(ctx, key, data, c.ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// State reports the breaker state for health output
func (c *RedisCache) State() string {
	return c.breaker.State().String()
}

// Ping checks the Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
