package job

import (
	"context"
	"errors"
	"time"
)

var (
	ErrJobExists      = errors.New("job already exists")
	ErrBatchExists    = errors.New("batch already exists")
	ErrBatchNotFound  = errors.New("batch not found")
	ErrItemRecorded   = errors.New("batch item already recorded")
	ErrBatchCompleted = errors.New("batch already completed")
)

// Store owns every job and batch record. All writes are atomic per key and
// readers never observe a half-applied update.
type Store interface {
	Create(ctx context.Context, id string, meta Meta) error
	// Update merges p into the record, creating it if it does not exist yet.
	Update(ctx context.Context, id string, p Patch) error
	// Get never fails; a missing record reads as StateUnknown.
	Get(ctx context.Context, id string) Status

	CreateBatch(ctx context.Context, id string, total int, formatID string) error
	// RecordBatchItem adds one terminal outcome and finishes the batch with the
	// last one, in a single atomic step.
	RecordBatchItem(ctx context.Context, batchID, itemID string, o Outcome) error
	GetBatch(ctx context.Context, id string) BatchStatus

	Ping(ctx context.Context) error
}

func newStatus(id string, meta Meta, now time.Time) Status {
	return Status{
		ID:        id,
		State:     StateQueued,
		Title:     meta.Title,
		FormatID:  meta.FormatID,
		BatchID:   meta.BatchID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// apply merges p into rec. Terminal records are frozen, state never moves
// backwards and percent never decreases.
func apply(rec *Status, p Patch, now time.Time) bool {
	if rec.State.Terminal() {
		return false
	}

	switch p.State {
	case StateQueued:
		if rec.State != "" {
			return false
		}
		rec.State = StateQueued
	case StateDownloading:
		rec.State = StateDownloading
		if p.Progress != nil {
			next := *p.Progress
			if rec.Progress != nil && next.Percent < rec.Progress.Percent {
				next.Percent = rec.Progress.Percent
			}
			rec.Progress = &next
		}
	case StateFinished:
		rec.State = StateFinished
		rec.ResultPath = p.ResultPath
		rec.Progress = nil
		rec.ErrorDetail = ""
		rec.FinishedAt = &now
	case StateError:
		rec.State = StateError
		rec.ErrorDetail = p.ErrorDetail
		rec.Progress = nil
		rec.ResultPath = ""
		rec.FinishedAt = &now
	case "":
		if p.Progress != nil && rec.State == StateDownloading {
			next := *p.Progress
			rec.Progress = &next
		}
	default:
		return false
	}

	rec.UpdatedAt = now
	return true
}

func recordItem(b *BatchStatus, itemID string, o Outcome, now time.Time) error {
	if _, ok := b.Items[itemID]; ok {
		return ErrItemRecorded
	}
	if b.Completed >= b.Total {
		return ErrBatchCompleted
	}
	if b.Items == nil {
		b.Items = make(map[string]Outcome, b.Total)
	}
	b.Items[itemID] = o
	b.Completed = len(b.Items)
	if b.Completed == b.Total {
		b.State = BatchFinished
		b.FinishedAt = &now
	}
	return nil
}

// OutcomeOf converts a terminal job record into a batch outcome.
func OutcomeOf(s Status) Outcome {
	return Outcome{State: s.State, ResultPath: s.ResultPath, ErrorDetail: s.ErrorDetail}
}

func cloneStatus(s Status) Status {
	if s.Progress != nil {
		p := *s.Progress
		s.Progress = &p
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		s.FinishedAt = &t
	}
	return s
}

func cloneBatch(b BatchStatus) BatchStatus {
	items := make(map[string]Outcome, len(b.Items))
	for k, v := range b.Items {
		items[k] = v
	}
	b.Items = items
	if b.FinishedAt != nil {
		t := *b.FinishedAt
		b.FinishedAt = &t
	}
	return b
}
