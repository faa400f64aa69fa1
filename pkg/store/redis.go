package store

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RedisOptions configures a [RedisStore].
type RedisOptions struct {
	Addr     string
	Password string
	DB       int

	// Timeout bounds each command.
	Timeout time.Duration

	// Breaker settings. Zero values take the defaults below.
	MinRequests      uint32
	FailureThreshold float64
	OpenTimeout      time.Duration

	Logger *log.Logger
}

func (o *RedisOptions) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Second
	}
	if o.MinRequests == 0 {
		o.MinRequests = 3
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 0.6
	}
	if o.OpenTimeout <= 0 {
		o.OpenTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
}

// RedisStore stores blobs in Redis. Commands run through a circuit breaker
// so an unreachable server fails fast instead of stalling every persist.
type RedisStore struct {
	client  redis.UniversalClient
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// NewRedisStore connects to Redis. The connection is lazy; an unreachable
// server surfaces on the first command.
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewRedisStoreWithClient(client, opts)
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, opts RedisOptions) *RedisStore {
	opts.setDefaults()
	logger := opts.Logger

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-store",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// a miss is a healthy answer
			return err == nil || errors.Is(err, redis.Nil)
		},
	})

	return &RedisStore{client: client, breaker: breaker, timeout: opts.Timeout}
}

// Get reads key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.client.Get(ctx, key).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("redis", "get", err)
	}
	return res.([]byte), true, nil
}

// Set writes key without expiry.
func (s *RedisStore) Set(ctx context.Context, key string, data []byte) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return nil, s.client.Set(ctx, key, data, 0).Err()
	})
	if err != nil {
		return unavailable("redis", "set", err)
	}
	return nil
}

// Delete removes key.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return nil, s.client.Del(ctx, key).Err()
	})
	if err != nil {
		return unavailable("redis", "delete", err)
	}
	return nil
}

// State reports the breaker state ("closed", "half-open", "open").
func (s *RedisStore) State() string { return s.breaker.State().String() }

// Close closes the client.
func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
