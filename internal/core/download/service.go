package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mediadl/internal/core/formats"
	"mediadl/internal/core/job"
	"mediadl/internal/logger"
	"mediadl/internal/platform/engine"
	"mediadl/internal/utils/media"
)

const (
	defaultTitle = "video"
	infoTimeout  = 60 * time.Second
)

type Options struct {
	Store         job.Store
	Engine        engine.Engine
	DownloadDir   string
	MaxConcurrent int
}

// Service runs single and batch downloads in the background and hands finished
// artifacts out exactly once.
type Service struct {
	store         job.Store
	engine        engine.Engine
	dir           string
	maxConcurrent int
	log           *logger.Logger

	// claimed holds ids whose artifact is currently being delivered.
	claimed sync.Map
}

func NewService(opts Options) *Service {
	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = 3
	}
	dir := opts.DownloadDir
	if dir == "" {
		dir = os.TempDir()
	}
	return &Service{
		store:         opts.Store,
		engine:        opts.Engine,
		dir:           dir,
		maxConcurrent: limit,
		log:           logger.New("DownloadService"),
	}
}

type Info struct {
	Title     string           `json:"title"`
	Duration  float64          `json:"duration"`
	Thumbnail string           `json:"thumbnail"`
	Formats   []formats.Option `json:"formats"`
}

// Info resolves metadata for url and the format choices derived from it.
func (s *Service) Info(ctx context.Context, url string) (*Info, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", ErrValidation)
	}
	ctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()

	md, err := s.engine.Info(ctx, media.NormalizeURL(url))
	if err != nil {
		s.log.LogErrorf("Error getting video info for %s: %v", url, err)
		return nil, extraction(err)
	}
	title := md.Title
	if title == "" {
		title = "Unknown Title"
	}
	return &Info{
		Title:     title,
		Duration:  md.Duration,
		Thumbnail: md.Thumbnail,
		Formats:   formats.Select(md),
	}, nil
}

type SingleRequest struct {
	URL      string `json:"url"`
	FormatID string `json:"format_id"`
	Title    string `json:"title"`
}

// StartSingle records a queued job and starts it in the background. The id is
// returned as soon as the queued record is visible to readers.
func (s *Service) StartSingle(ctx context.Context, req SingleRequest) (string, error) {
	url := strings.TrimSpace(req.URL)
	if url == "" {
		return "", fmt.Errorf("%w: url is required", ErrValidation)
	}
	formatID := req.FormatID
	if formatID == "" {
		formatID = engine.FormatBest
	}
	title := req.Title
	if title == "" {
		title = defaultTitle
	}

	id := uuid.New().String()
	if err := s.store.Create(ctx, id, job.Meta{Title: title, FormatID: formatID}); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	go s.execute(context.Background(), id, url, formatID, title)
	return id, nil
}

// Status returns the current record for id; unknown ids read as StateUnknown.
func (s *Service) Status(ctx context.Context, id string) job.Status {
	return s.store.Get(ctx, id)
}

// execute runs one fetch to completion and writes the terminal record. It
// never panics and never returns an error: failures end up in the record.
// The returned outcome is the stored terminal record when one is readable.
func (s *Service) execute(ctx context.Context, id, url, formatID, title string) job.Outcome {
	log := s.log.WithJob(id)
	var (
		patch   job.Patch
		outcome job.Outcome
	)
	path, err := s.fetch(ctx, id, url, formatID, title)
	if err != nil {
		log.LogErrorf("Download error: %v", err)
		patch = job.Failed(err)
		outcome = job.Outcome{State: job.StateError, ErrorDetail: patch.ErrorDetail}
	} else {
		log.LogSuccessf("Download finished: %s", filepath.Base(path))
		patch = job.Finished(path)
		outcome = job.Outcome{State: job.StateFinished, ResultPath: path}
	}

	if uerr := s.store.Update(ctx, id, patch); uerr != nil {
		log.LogErrorf("record %s: %v", patch.State, uerr)
		return outcome
	}
	if rec := s.store.Get(ctx, id); rec.State.Terminal() {
		return job.OutcomeOf(rec)
	}
	return outcome
}

// fetch invokes the engine for one job. Engine failures and panics come back as
// errors matching ErrExtraction.
func (s *Service) fetch(ctx context.Context, id, url, formatID, title string) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			path = ""
			err = extraction(fmt.Errorf("engine panic: %v", r))
		}
	}()

	sink := newProgressSink(s.store, id)
	req := engine.Request{
		URL:            media.NormalizeURL(url),
		FormatID:       formatID,
		OutputTemplate: filepath.Join(s.dir, id+"_"+media.SafeFilename(title)+".%(ext)s"),
		Progress:       sink.Func(ctx),
	}

	path, err = s.engine.Fetch(ctx, req)
	if err != nil {
		return "", extraction(err)
	}
	if path == "" {
		path = sink.RawFile()
	}
	if path == "" {
		return "", extraction(engine.ErrNoOutput)
	}
	if engine.IsAudio(formatID) {
		path = media.ReplaceExt(path, engine.AudioExt)
	}
	return path, nil
}
