package download

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mediadl/internal/core/job"
	"mediadl/internal/platform/engine"
)

type BatchRequest struct {
	URLs     []string `json:"urls"`
	FormatID string   `json:"format_id"`
}

type BatchTicket struct {
	BatchID string   `json:"batch_id"`
	ItemIDs []string `json:"item_ids"`
}

type batchItem struct {
	id  string
	url string
}

// StartBatch records a batch plus one queued job per URL and runs the items in
// the background, at most MaxConcurrent at a time. Every batch gets its own
// pool, so concurrent batches do not throttle each other.
func (s *Service) StartBatch(ctx context.Context, req BatchRequest) (*BatchTicket, error) {
	urls := make([]string, 0, len(req.URLs))
	for _, u := range req.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: urls are required", ErrValidation)
	}
	formatID := req.FormatID
	if formatID == "" {
		formatID = engine.FormatBest
	}

	batchID := uuid.New().String()
	if err := s.store.CreateBatch(ctx, batchID, len(urls), formatID); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	items := make([]batchItem, len(urls))
	ticket := &BatchTicket{BatchID: batchID, ItemIDs: make([]string, len(urls))}
	for i, u := range urls {
		id := uuid.New().String()
		if err := s.store.Create(ctx, id, job.Meta{Title: defaultTitle, FormatID: formatID, BatchID: batchID}); err != nil {
			return nil, fmt.Errorf("create batch item: %w", err)
		}
		items[i] = batchItem{id: id, url: u}
		ticket.ItemIDs[i] = id
	}

	go s.runBatch(context.Background(), batchID, items, formatID)
	return ticket, nil
}

// Batch returns the aggregate record for id; unknown ids read as BatchUnknown.
func (s *Service) Batch(ctx context.Context, id string) job.BatchStatus {
	return s.store.GetBatch(ctx, id)
}

func (s *Service) runBatch(ctx context.Context, batchID string, items []batchItem, formatID string) {
	start := time.Now()
	s.log.LogInfof("Batch %s started: %d items, %d workers", batchID, len(items), s.maxConcurrent)

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)
	for _, it := range items {
		g.Go(func() error {
			outcome := s.execute(ctx, it.id, it.url, formatID, defaultTitle)
			if err := s.store.RecordBatchItem(ctx, batchID, it.id, outcome); err != nil {
				s.log.LogErrorf("record batch item: %v", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	b := s.store.GetBatch(ctx, batchID)
	failed := 0
	for _, o := range b.Items {
		if o.State == job.StateError {
			failed++
		}
	}
	s.log.LogInfof("Batch %s finished in %v: %d/%d items, %d failed", batchID, time.Since(start).Round(time.Millisecond), b.Completed, b.Total, failed)
}
