package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv8 "github.com/go-redis/redis/v8"

	"mediadl/internal/logger"
)

// ErrNotFound is returned by CacheGet when the key does not exist.
var ErrNotFound = errors.New("redis: key not found")

// ErrConflict is returned when an optimistic transaction keeps losing races.
var ErrConflict = errors.New("redis: too many concurrent writers")

const maxTxRetries = 64

type Options struct {
	Addr     string
	Password string
}

type Service struct {
	client *redisv8.Client
	log    *logger.Logger
}

func New(opts Options) (*Service, error) {
	c := redisv8.NewClient(&redisv8.Options{Addr: opts.Addr, Password: opts.Password})
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &Service{client: c, log: logger.New("Redis")}, nil
}

func (s *Service) Close() error { return s.client.Close() }

func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.log.LogErrorf("Redis health check failed: %v", err)
		return fmt.Errorf("redis ping failed: %v", err)
	}

	testKey := "health:test:" + time.Now().Format("20060102150405")
	testValue := "ok"

	if err := s.client.Set(ctx, testKey, testValue, 10*time.Second).Err(); err != nil {
		return fmt.Errorf("redis write test failed: %v", err)
	}
	val, err := s.client.Get(ctx, testKey).Result()
	if err != nil {
		return fmt.Errorf("redis read test failed: %v", err)
	}
	if val != testValue {
		return fmt.Errorf("redis value mismatch: got %s, want %s", val, testValue)
	}
	_ = s.client.Del(ctx, testKey).Err()
	return nil
}

// Cache helpers
func (s *Service) CacheGet(ctx context.Context, key string, dest interface{}) error {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redisv8.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

// CacheSetNX stores val only if key is absent and reports whether it did. A
// zero ttl stores the key without expiry.
func (s *Service) CacheSetNX(ctx context.Context, key string, val interface{}, ttl time.Duration) (bool, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, key, b, ttl).Result()
}

// MutateFunc receives the current raw value (nil when the key is absent) and
// returns the value to store with its ttl. A zero ttl clears any expiry.
type MutateFunc func(raw []byte) (val interface{}, ttl time.Duration, err error)

// CacheMutate runs a read-modify-write on key inside WATCH/MULTI, retrying when
// another writer touched the key in between.
func (s *Service) CacheMutate(ctx context.Context, key string, fn MutateFunc) error {
	txf := func(tx *redisv8.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redisv8.Nil) {
			raw = nil
		} else if err != nil {
			return err
		}
		val, ttl, err := fn(raw)
		if err != nil {
			return err
		}
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redisv8.Pipeliner) error {
			p.Set(ctx, key, b, ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redisv8.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: %s", ErrConflict, key)
}
