package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"mediadl/internal/core/job"
	"mediadl/internal/logger"
	"mediadl/internal/utils/media"
)

// Artifact is a finished file checked out for a single delivery. Closing it
// removes the file from storage; Close is safe to call more than once.
type Artifact struct {
	Name string
	Size int64

	path    string
	file    *os.File
	once    sync.Once
	release func()
	log     *logger.Logger
}

func (a *Artifact) Read(p []byte) (int, error) { return a.file.Read(p) }

func (a *Artifact) Close() error {
	var err error
	a.once.Do(func() {
		err = a.file.Close()
		if rmErr := os.Remove(a.path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			a.log.LogErrorf("Error cleaning up %s: %v", a.path, rmErr)
		} else {
			a.log.LogInfof("Cleaned up file: %s", a.path)
		}
		if a.release != nil {
			a.release()
		}
	})
	return err
}

// Claim checks out the artifact of a finished job. Only one caller can hold a
// given artifact; once it is closed the file is gone and later claims report
// ErrArtifactMissing.
func (s *Service) Claim(ctx context.Context, id string) (*Artifact, error) {
	st := s.store.Get(ctx, id)
	if st.State != job.StateFinished {
		return nil, fmt.Errorf("%w: job %s is %s", ErrNotReady, id, st.State)
	}
	if st.ResultPath == "" {
		return nil, fmt.Errorf("%w: job %s has no artifact", ErrArtifactMissing, id)
	}

	if _, busy := s.claimed.LoadOrStore(id, struct{}{}); busy {
		return nil, fmt.Errorf("%w: job %s is already being delivered", ErrArtifactMissing, id)
	}
	release := func() { s.claimed.Delete(id) }

	f, err := os.Open(st.ResultPath)
	if err != nil {
		release()
		if errors.Is(err, fs.ErrNotExist) {
			s.log.LogWarnf("Artifact for job %s missing at %s", id, st.ResultPath)
			return nil, fmt.Errorf("%w: job %s", ErrArtifactMissing, id)
		}
		return nil, fmt.Errorf("open artifact for job %s: %w", id, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		release()
		return nil, fmt.Errorf("stat artifact for job %s: %w", id, err)
	}

	return &Artifact{
		Name:    media.DownloadName(id, st.ResultPath),
		Size:    fi.Size(),
		path:    st.ResultPath,
		file:    f,
		release: release,
		log:     s.log.WithJob(id),
	}, nil
}

// Reclaim removes the artifact of a record that is being dropped without ever
// having been delivered.
func (s *Service) Reclaim(st job.Status) {
	if st.State != job.StateFinished || st.ResultPath == "" {
		return
	}
	if _, busy := s.claimed.Load(st.ID); busy {
		return
	}
	if err := os.Remove(st.ResultPath); err == nil {
		s.log.LogInfof("Reclaimed undelivered artifact for job %s", st.ID)
	} else if !errors.Is(err, fs.ErrNotExist) {
		s.log.LogErrorf("Error reclaiming artifact for job %s: %v", st.ID, err)
	}
}
