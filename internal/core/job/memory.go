package job

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mediadl/internal/logger"
)

// EvictFunc is called for every job record dropped by retention.
type EvictFunc func(Status)

// MemoryStore keeps all records in one mutex-guarded structure. Terminal
// records are dropped ttl after they finished.
type MemoryStore struct {
	mu      sync.RWMutex
	jobs    map[string]*Status
	batches map[string]*BatchStatus

	ttl     time.Duration
	onEvict EvictFunc
	now     func() time.Time
	log     *logger.Logger
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[string]*Status),
		batches: make(map[string]*BatchStatus),
		ttl:     ttl,
		now:     time.Now,
		log:     logger.New("MemoryStore"),
	}
}

// OnEvict registers a callback for evicted job records.
func (s *MemoryStore) OnEvict(fn EvictFunc) {
	s.mu.Lock()
	s.onEvict = fn
	s.mu.Unlock()
}

func (s *MemoryStore) Create(_ context.Context, id string, meta Meta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, id)
	}
	rec := newStatus(id, meta, s.now())
	s.jobs[id] = &rec
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rec, ok := s.jobs[id]
	if !ok {
		rec = &Status{ID: id, CreatedAt: now}
		s.jobs[id] = rec
	}
	apply(rec, p, now)
	if rec.State == "" {
		rec.State = StateQueued
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.jobs[id]
	if !ok {
		return unknownStatus(id)
	}
	return cloneStatus(*rec)
}

func (s *MemoryStore) CreateBatch(_ context.Context, id string, total int, formatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[id]; ok {
		return fmt.Errorf("%w: %s", ErrBatchExists, id)
	}
	s.batches[id] = &BatchStatus{
		ID:        id,
		Total:     total,
		State:     BatchProcessing,
		Items:     make(map[string]Outcome, total),
		FormatID:  formatID,
		CreatedAt: s.now(),
	}
	return nil
}

func (s *MemoryStore) RecordBatchItem(_ context.Context, batchID, itemID string, o Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	if err := recordItem(b, itemID, o, s.now()); err != nil {
		return fmt.Errorf("batch %s item %s: %w", batchID, itemID, err)
	}
	return nil
}

func (s *MemoryStore) GetBatch(_ context.Context, id string) BatchStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	if !ok {
		return unknownBatch(id)
	}
	return cloneBatch(*b)
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

// Sweep drops terminal records older than the retention window and returns
// how many job records were removed.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	cutoff := s.now().Add(-s.ttl)
	var evicted []Status
	for id, rec := range s.jobs {
		if rec.State.Terminal() && rec.FinishedAt != nil && rec.FinishedAt.Before(cutoff) {
			evicted = append(evicted, *rec)
			delete(s.jobs, id)
		}
	}
	for id, b := range s.batches {
		if b.State == BatchFinished && b.FinishedAt != nil && b.FinishedAt.Before(cutoff) {
			delete(s.batches, id)
		}
	}
	hook := s.onEvict
	s.mu.Unlock()

	if hook != nil {
		for _, rec := range evicted {
			hook(rec)
		}
	}
	return len(evicted)
}

// Run sweeps every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.LogInfof("evicted %d expired job records", n)
			}
		}
	}
}
