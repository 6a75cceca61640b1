package download

import (
	"context"
	"sync"

	"github.com/dustin/go-humanize"

	"mediadl/internal/core/job"
	"mediadl/internal/platform/engine"
)

// progressSink forwards engine progress for one job into the store and keeps
// the last raw file the engine reported as complete.
type progressSink struct {
	store job.Store
	id    string

	mu      sync.Mutex
	rawFile string
}

func newProgressSink(store job.Store, id string) *progressSink {
	return &progressSink{store: store, id: id}
}

func (p *progressSink) Func(ctx context.Context) engine.ProgressFunc {
	return func(ev engine.Progress) {
		if ev.Status == engine.ProgressFinished && ev.Filename != "" {
			p.mu.Lock()
			p.rawFile = ev.Filename
			p.mu.Unlock()
		}
		_ = p.store.Update(ctx, p.id, job.Downloading(snapshot(ev)))
	}
}

func (p *progressSink) RawFile() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rawFile
}

func snapshot(ev engine.Progress) job.Progress {
	s := job.Progress{
		Speed:      "N/A",
		BytesTotal: ev.TotalBytes,
		BytesDone:  ev.DownloadedBytes,
	}
	if ev.TotalBytes > 0 {
		s.Percent = float64(ev.DownloadedBytes) / float64(ev.TotalBytes) * 100
		if s.Percent > 100 {
			s.Percent = 100
		}
	}
	if ev.Status == engine.ProgressFinished {
		s.Percent = 100
	}
	if ev.BytesPerSecond > 0 {
		s.Speed = humanize.IBytes(uint64(ev.BytesPerSecond)) + "/s"
	}
	return s
}
