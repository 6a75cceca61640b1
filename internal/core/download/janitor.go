package download

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mediadl/internal/core/job"
)

// idLen is the length of a canonical job id, which prefixes every file the
// runners write as "<id>_<title>.<ext>".
const idLen = 36

// jobIDFromFile returns the job id a download directory entry belongs to.
func jobIDFromFile(name string) (string, bool) {
	if len(name) <= idLen || name[idLen] != '_' {
		return "", false
	}
	if _, err := uuid.Parse(name[:idLen]); err != nil {
		return "", false
	}
	return name[:idLen], true
}

// SweepArtifacts removes job files older than maxAge whose record has expired
// or failed. Files of live or finished jobs and files not named after a job are
// left alone. It returns the number of files removed.
func (s *Service) SweepArtifacts(ctx context.Context, maxAge time.Duration) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.LogErrorf("read download dir %s: %v", s.dir, err)
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := jobIDFromFile(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if _, busy := s.claimed.Load(id); busy {
			continue
		}
		if st := s.store.Get(ctx, id); st.State != job.StateUnknown && st.State != job.StateError {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.log.LogErrorf("Error removing stale file %s: %v", path, err)
			}
			continue
		}
		removed++
	}
	return removed
}

// RunArtifactSweep sweeps the download directory every interval until ctx is
// done.
func (s *Service) RunArtifactSweep(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 || maxAge <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepArtifacts(ctx, maxAge); n > 0 {
				s.log.LogInfof("removed %d stale files from %s", n, s.dir)
			}
		}
	}
}
