package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
)

// runStoreContract exercises the behaviour every Store backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("missing job reads as unknown", func(t *testing.T) {
		s := newStore(t)
		got := s.Get(context.Background(), uuid.NewString())
		if got.State != StateUnknown {
			t.Errorf("Expected state unknown, got %s", got.State)
		}
	})

	t.Run("create is queued and rejects duplicates", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := uuid.NewString()
		if err := s.Create(ctx, id, Meta{Title: "t", FormatID: "best"}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		got := s.Get(ctx, id)
		if got.State != StateQueued || got.Title != "t" || got.FormatID != "best" {
			t.Errorf("Unexpected record after create: %+v", got)
		}
		if err := s.Create(ctx, id, Meta{}); !errors.Is(err, ErrJobExists) {
			t.Errorf("Expected ErrJobExists, got %v", err)
		}
	})

	t.Run("update creates implicitly", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := uuid.NewString()
		if err := s.Update(ctx, id, Downloading(Progress{Percent: 10})); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		got := s.Get(ctx, id)
		if got.State != StateDownloading || got.Progress == nil || got.Progress.Percent != 10 {
			t.Errorf("Unexpected record after implicit create: %+v", got)
		}
	})

	t.Run("lifecycle never regresses", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := uuid.NewString()
		_ = s.Create(ctx, id, Meta{})
		_ = s.Update(ctx, id, Downloading(Progress{Percent: 40, BytesDone: 40, BytesTotal: 100}))
		_ = s.Update(ctx, id, Patch{State: StateQueued})
		if got := s.Get(ctx, id); got.State != StateDownloading {
			t.Errorf("Expected queued patch to be ignored, got %s", got.State)
		}

		_ = s.Update(ctx, id, Downloading(Progress{Percent: 20}))
		if got := s.Get(ctx, id); got.Progress.Percent != 40 {
			t.Errorf("Expected percent to stay at 40, got %v", got.Progress.Percent)
		}

		_ = s.Update(ctx, id, Finished("/tmp/a.mp4"))
		got := s.Get(ctx, id)
		if got.State != StateFinished || got.ResultPath != "/tmp/a.mp4" || got.Progress != nil || got.FinishedAt == nil {
			t.Errorf("Unexpected finished record: %+v", got)
		}

		_ = s.Update(ctx, id, Failed(errors.New("late")))
		_ = s.Update(ctx, id, Downloading(Progress{Percent: 99}))
		if got := s.Get(ctx, id); got.State != StateFinished || got.ErrorDetail != "" {
			t.Errorf("Expected terminal record to be frozen, got %+v", got)
		}
	})

	t.Run("error records detail only", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := uuid.NewString()
		_ = s.Create(ctx, id, Meta{})
		_ = s.Update(ctx, id, Downloading(Progress{Percent: 5}))
		_ = s.Update(ctx, id, Failed(errors.New("unsupported url")))
		got := s.Get(ctx, id)
		if got.State != StateError || got.ErrorDetail != "unsupported url" || got.ResultPath != "" || got.Progress != nil {
			t.Errorf("Unexpected error record: %+v", got)
		}
	})

	t.Run("batch aggregates items", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := uuid.NewString()
		if err := s.CreateBatch(ctx, id, 2, "mp3"); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if err := s.CreateBatch(ctx, id, 2, "mp3"); !errors.Is(err, ErrBatchExists) {
			t.Errorf("Expected ErrBatchExists, got %v", err)
		}

		b := s.GetBatch(ctx, id)
		if b.State != BatchProcessing || b.Total != 2 || b.Completed != 0 {
			t.Errorf("Unexpected new batch: %+v", b)
		}

		if err := s.RecordBatchItem(ctx, id, "a", Outcome{State: StateFinished, ResultPath: "/a"}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if err := s.RecordBatchItem(ctx, id, "a", Outcome{State: StateError}); !errors.Is(err, ErrItemRecorded) {
			t.Errorf("Expected ErrItemRecorded, got %v", err)
		}
		if b := s.GetBatch(ctx, id); b.State != BatchProcessing || b.Completed != 1 || b.Items["a"].State != StateFinished {
			t.Errorf("Unexpected batch after one item: %+v", b)
		}

		if err := s.RecordBatchItem(ctx, id, "b", Outcome{State: StateError, ErrorDetail: "boom"}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		b = s.GetBatch(ctx, id)
		if b.State != BatchFinished || b.Completed != 2 || len(b.Items) != 2 || b.FinishedAt == nil {
			t.Errorf("Unexpected finished batch: %+v", b)
		}
		if err := s.RecordBatchItem(ctx, id, "c", Outcome{State: StateFinished}); !errors.Is(err, ErrBatchCompleted) {
			t.Errorf("Expected ErrBatchCompleted, got %v", err)
		}
	})

	t.Run("missing batch", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := uuid.NewString()
		if b := s.GetBatch(ctx, id); b.State != BatchUnknown {
			t.Errorf("Expected unknown batch, got %s", b.State)
		}
		if err := s.RecordBatchItem(ctx, id, "x", Outcome{}); !errors.Is(err, ErrBatchNotFound) {
			t.Errorf("Expected ErrBatchNotFound, got %v", err)
		}
	})

	t.Run("concurrent batch items", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		id := uuid.NewString()
		const n = 20
		_ = s.CreateBatch(ctx, id, n, "best")

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if err := s.RecordBatchItem(ctx, id, fmt.Sprintf("item-%d", i), Outcome{State: StateFinished}); err != nil {
					t.Errorf("item %d: %v", i, err)
				}
			}(i)
		}
		wg.Wait()

		b := s.GetBatch(ctx, id)
		if b.Completed != n || len(b.Items) != n || b.State != BatchFinished {
			t.Errorf("Expected %d items and finished, got completed=%d items=%d state=%s", n, b.Completed, len(b.Items), b.State)
		}
	})
}
