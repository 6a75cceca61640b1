package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mediadl/internal/logger"
	rds "mediadl/internal/platform/redis"
)

// RedisStore keeps records as JSON documents in Redis. Live records never
// expire; the retention ttl starts with the write that makes a record terminal.
// Artifacts of expired records are left to the download directory sweep.
type RedisStore struct {
	redis *rds.Service
	ttl   time.Duration
	now   func() time.Time
	log   *logger.Logger
}

func NewRedisStore(redis *rds.Service, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: redis, ttl: ttl, now: time.Now, log: logger.New("RedisStore")}
}

func (s *RedisStore) Create(ctx context.Context, id string, meta Meta) error {
	ok, err := s.redis.CacheSetNX(ctx, key(id), newStatus(id, meta, s.now()), 0)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobExists, id)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, id string, p Patch) error {
	return s.redis.CacheMutate(ctx, key(id), func(raw []byte) (interface{}, time.Duration, error) {
		now := s.now()
		rec := Status{ID: id, CreatedAt: now}
		if raw != nil {
			if err := json.Unmarshal(raw, &rec); err != nil {
				return nil, 0, err
			}
		}
		apply(&rec, p, now)
		if rec.State == "" {
			rec.State = StateQueued
		}
		return rec, s.ttlFor(rec.State.Terminal()), nil
	})
}

func (s *RedisStore) Get(ctx context.Context, id string) Status {
	var rec Status
	if err := s.redis.CacheGet(ctx, key(id), &rec); err != nil {
		if !errors.Is(err, rds.ErrNotFound) {
			s.log.LogErrorf("read job %s: %v", id, err)
		}
		return unknownStatus(id)
	}
	return rec
}

func (s *RedisStore) CreateBatch(ctx context.Context, id string, total int, formatID string) error {
	b := BatchStatus{
		ID:        id,
		Total:     total,
		State:     BatchProcessing,
		Items:     map[string]Outcome{},
		FormatID:  formatID,
		CreatedAt: s.now(),
	}
	ok, err := s.redis.CacheSetNX(ctx, batchKey(id), b, 0)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrBatchExists, id)
	}
	return nil
}

func (s *RedisStore) RecordBatchItem(ctx context.Context, batchID, itemID string, o Outcome) error {
	err := s.redis.CacheMutate(ctx, batchKey(batchID), func(raw []byte) (interface{}, time.Duration, error) {
		if raw == nil {
			return nil, 0, ErrBatchNotFound
		}
		var b BatchStatus
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, 0, err
		}
		if err := recordItem(&b, itemID, o, s.now()); err != nil {
			return nil, 0, err
		}
		return b, s.ttlFor(b.State == BatchFinished), nil
	})
	if err != nil {
		return fmt.Errorf("batch %s item %s: %w", batchID, itemID, err)
	}
	return nil
}

func (s *RedisStore) GetBatch(ctx context.Context, id string) BatchStatus {
	var b BatchStatus
	if err := s.redis.CacheGet(ctx, batchKey(id), &b); err != nil {
		if !errors.Is(err, rds.ErrNotFound) {
			s.log.LogErrorf("read batch %s: %v", id, err)
		}
		return unknownBatch(id)
	}
	if b.Items == nil {
		b.Items = map[string]Outcome{}
	}
	return b
}

func (s *RedisStore) Ping(ctx context.Context) error { return s.redis.HealthCheck(ctx) }

// ttlFor returns the key expiry for a record; zero means no expiry.
func (s *RedisStore) ttlFor(terminal bool) time.Duration {
	if terminal {
		return s.ttl
	}
	return 0
}

func key(id string) string      { return "job:" + id }
func batchKey(id string) string { return "batch:" + id }
