package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"mediadl/internal/logger"
)

var (
	ErrNoOutput   = errors.New("engine produced no output file")
	ErrNoMetadata = errors.New("engine returned no metadata")
)

// YTDLP drives the yt-dlp binary through go-ytdlp.
type YTDLP struct {
	log              *logger.Logger
	progressInterval time.Duration
}

func NewYTDLP(progressInterval time.Duration) *YTDLP {
	if progressInterval <= 0 {
		progressInterval = 500 * time.Millisecond
	}
	return &YTDLP{log: logger.New("YTDLP"), progressInterval: progressInterval}
}

// Install makes sure a yt-dlp binary is available, downloading one if needed.
func (y *YTDLP) Install(ctx context.Context) error {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	y.log.LogInfof("using yt-dlp %s at %s", resolved.Version, resolved.Executable)
	return nil
}

func (y *YTDLP) Info(ctx context.Context, url string) (*Metadata, error) {
	res, err := ytdlp.New().
		DumpJSON().
		NoPlaylist().
		NoWarnings().
		Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("extract info for %s: %w", url, err)
	}
	info, err := res.GetExtractedInfo()
	if err != nil {
		return nil, fmt.Errorf("decode engine metadata: %w", err)
	}
	if len(info) == 0 {
		return nil, ErrNoMetadata
	}
	return metadataFrom(info[0]), nil
}

// Fetch downloads req.URL. For the audio profile the returned path may still
// carry the source extension; the caller owns the rename to AudioExt.
func (y *YTDLP) Fetch(ctx context.Context, req Request) (string, error) {
	dl := ytdlp.New().
		DumpJSON().
		NoSimulate().
		NoPlaylist().
		RestrictFilenames().
		ForceOverwrites().
		Output(req.OutputTemplate).
		Format(Expression(req.FormatID)).
		MergeOutputFormat(MergeContainer)

	if IsAudio(req.FormatID) {
		dl = dl.ExtractAudio().AudioFormat(strings.TrimPrefix(AudioExt, ".")).AudioQuality(AudioQuality)
	}

	var rawFile string
	dl.ProgressFunc(y.progressInterval, func(update ytdlp.ProgressUpdate) {
		p := Progress{
			Status:          ProgressDownloading,
			DownloadedBytes: int64(update.DownloadedBytes),
			TotalBytes:      int64(update.TotalBytes),
			Filename:        update.Filename,
		}
		if update.Status == ytdlp.ProgressStatusFinished {
			p.Status = ProgressFinished
			rawFile = update.Filename
		}
		if !update.Started.IsZero() {
			if elapsed := time.Since(update.Started).Seconds(); elapsed > 0 {
				p.BytesPerSecond = float64(update.DownloadedBytes) / elapsed
			}
		}
		if req.Progress != nil {
			req.Progress(p)
		}
	})

	res, err := dl.Run(ctx, req.URL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", req.URL, err)
	}

	path := rawFile
	if info, err := res.GetExtractedInfo(); err != nil {
		y.log.LogWarnf("decode engine output for %s: %v", req.URL, err)
	} else if name := outputFile(info); name != "" {
		path = name
	}
	if path == "" {
		return "", ErrNoOutput
	}
	return path, nil
}

func metadataFrom(info *ytdlp.ExtractedInfo) *Metadata {
	md := &Metadata{
		Title:     deref(info.Title),
		Thumbnail: deref(info.Thumbnail),
		Formats:   make([]Format, 0, len(info.Formats)),
	}
	if info.Duration != nil {
		md.Duration = *info.Duration
	}
	for _, f := range info.Formats {
		if f == nil {
			continue
		}
		md.Formats = append(md.Formats, formatFrom(f))
	}
	return md
}

func formatFrom(f *ytdlp.ExtractedFormat) Format {
	out := Format{
		FormatID:       deref(f.FormatID),
		Ext:            deref(f.Extension),
		FPS:            f.FPS,
		Filesize:       floatPtr(f.FileSize),
		FilesizeApprox: floatPtr(f.FileSizeApprox),
		VCodec:         deref(f.VCodec),
		ACodec:         deref(f.ACodec),
	}
	if f.Height != nil {
		h := int(math.Round(*f.Height))
		out.Height = &h
	}
	return out
}

// outputFile picks the prepared output filename; later documents win.
func outputFile(info []*ytdlp.ExtractedInfo) string {
	var name string
	for _, i := range info {
		switch {
		case i.Filename != nil && *i.Filename != "":
			name = *i.Filename
		case i.AltFilename != nil && *i.AltFilename != "":
			name = *i.AltFilename
		}
	}
	return name
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatPtr(n *int) *float64 {
	if n == nil {
		return nil
	}
	f := float64(*n)
	return &f
}
