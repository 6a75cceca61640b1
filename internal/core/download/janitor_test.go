package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"mediadl/internal/core/job"
	"mediadl/internal/platform/engine"
)

func TestJobIDFromFile(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		name   string
		wantID string
		wantOK bool
	}{
		{id + "_clip.mp4", id, true},
		{id + "_clip.f137.mp4.part", id, true},
		{id + ".mp4", "", false},
		{"notes_" + id + ".txt", "", false},
		{"short_clip.mp4", "", false},
	}
	for _, tt := range tests {
		got, ok := jobIDFromFile(tt.name)
		if got != tt.wantID || ok != tt.wantOK {
			t.Errorf("jobIDFromFile(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.wantID, tt.wantOK)
		}
	}
}

func TestSweepArtifacts(t *testing.T) {
	svc, store := newTestService(t, &fakeEngine{}, 3)
	ctx := context.Background()
	old := time.Now().Add(-2 * time.Hour)

	write := func(name string, mtime time.Time) string {
		t.Helper()
		path := filepath.Join(svc.dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
		return path
	}

	expired := write(uuid.NewString()+"_gone.mp4", old)

	failedID := uuid.NewString()
	_ = store.Update(ctx, failedID, job.Failed(errors.New("boom")))
	failed := write(failedID+"_partial.webm.part", old)

	finishedID := uuid.NewString()
	finished := write(finishedID+"_done.mp4", old)
	_ = store.Update(ctx, finishedID, job.Finished(finished))

	liveID := uuid.NewString()
	_ = store.Update(ctx, liveID, job.Downloading(job.Progress{Percent: 50}))
	live := write(liveID+"_live.mp4.part", old)

	fresh := write(uuid.NewString()+"_fresh.mp4", time.Now())
	foreign := write("somebody-else.txt", old)

	if n := svc.SweepArtifacts(ctx, time.Hour); n != 2 {
		t.Errorf("Expected 2 files removed, got %d", n)
	}
	for _, path := range []string{expired, failed} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("Expected %s removed, stat err = %v", filepath.Base(path), err)
		}
	}
	for _, path := range []string{finished, live, fresh, foreign} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected %s kept, got %v", filepath.Base(path), err)
		}
	}
}

func TestSweepArtifactsSkipsClaimed(t *testing.T) {
	svc, _ := newTestService(t, &fakeEngine{}, 3)
	id := uuid.NewString()
	path := filepath.Join(svc.dir, id+"_clip.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * time.Hour)
	_ = os.Chtimes(path, old, old)
	svc.claimed.Store(id, struct{}{})

	if n := svc.SweepArtifacts(context.Background(), time.Hour); n != 0 {
		t.Errorf("Expected claimed file kept, removed %d", n)
	}
}

func TestExecuteReportsStoredOutcome(t *testing.T) {
	eng := &fakeEngine{fetchFunc: func(ctx context.Context, req engine.Request) (string, error) {
		return "", errors.New("late failure")
	}}
	svc, store := newTestService(t, eng, 3)
	ctx := context.Background()
	_ = store.Update(ctx, "done", job.Finished("/srv/first.mp4"))

	got := svc.execute(ctx, "done", "https://e.com/v", engine.FormatBest, "clip")
	if got.State != job.StateFinished || got.ResultPath != "/srv/first.mp4" {
		t.Errorf("Expected outcome of the frozen record, got %+v", got)
	}
}
