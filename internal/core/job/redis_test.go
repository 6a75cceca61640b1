package job

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	rds "mediadl/internal/platform/redis"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	svc, err := rds.New(rds.Options{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("connect to miniredis: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return NewRedisStore(svc, ttl), mr
}

func TestRedisStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, _ := newRedisStore(t, time.Minute)
		return s
	})
}

func TestRedisStoreKeepsLiveRecords(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	if err := s.CreateBatch(ctx, "b1", 4, "mp3"); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"item1", "item4"} {
		if err := s.Create(ctx, id, Meta{BatchID: "b1"}); err != nil {
			t.Fatal(err)
		}
	}
	_ = s.Update(ctx, "item1", Downloading(Progress{Percent: 10}))

	// A queued item waiting for a pool slot and a batch with no finished
	// items yet get no writes for as long as the downloads ahead of them run.
	mr.FastForward(6 * time.Hour)

	if got := s.Get(ctx, "item4"); got.State != StateQueued {
		t.Errorf("Expected queued item to survive, got %s", got.State)
	}
	if got := s.Get(ctx, "item1"); got.State != StateDownloading {
		t.Errorf("Expected downloading item to survive, got %s", got.State)
	}
	if got := s.GetBatch(ctx, "b1"); got.State != BatchProcessing {
		t.Errorf("Expected processing batch to survive, got %s", got.State)
	}
	if err := s.RecordBatchItem(ctx, "b1", "item1", Outcome{State: StateFinished, ResultPath: "/a"}); err != nil {
		t.Errorf("Expected item to be recorded, got %v", err)
	}
	if ttl := mr.TTL(batchKey("b1")); ttl != 0 {
		t.Errorf("Expected processing batch without expiry, got %v", ttl)
	}
}

func TestRedisStoreExpiresTerminalRecords(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	_ = s.Create(ctx, "done", Meta{})
	_ = s.Update(ctx, "done", Finished("/tmp/done.mp4"))
	if ttl := mr.TTL(key("done")); ttl != time.Hour {
		t.Errorf("Expected terminal record ttl 1h, got %v", ttl)
	}

	_ = s.CreateBatch(ctx, "b1", 1, "best")
	_ = s.RecordBatchItem(ctx, "b1", "done", Outcome{State: StateFinished})
	if ttl := mr.TTL(batchKey("b1")); ttl != time.Hour {
		t.Errorf("Expected finished batch ttl 1h, got %v", ttl)
	}

	mr.FastForward(61 * time.Minute)
	if got := s.Get(ctx, "done"); got.State != StateUnknown {
		t.Errorf("Expected expired record to read unknown, got %s", got.State)
	}
	if got := s.GetBatch(ctx, "b1"); got.State != BatchUnknown {
		t.Errorf("Expected expired batch to read unknown, got %s", got.State)
	}
}
