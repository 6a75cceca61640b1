// Package engine adapts the external media extraction tool (yt-dlp) to the
// download pipeline. Everything above this package only sees Engine.
package engine

import (
	"context"
	"fmt"
)

// Profiles understood by every engine in addition to raw engine format ids.
const (
	FormatBest = "best"
	FormatMP3  = "mp3"

	AudioExt        = ".mp3"
	AudioQuality    = "192K"
	MergeContainer  = "mp4"
	bestExpression  = "bestvideo+bestaudio/best"
	audioExpression = "bestaudio/best"
)

// Format is one encoding variant as reported by the engine. Pointer fields are
// absent when the engine does not know the value.
type Format struct {
	FormatID       string
	Ext            string
	Height         *int
	FPS            *float64
	Filesize       *float64
	FilesizeApprox *float64
	VCodec         string
	ACodec         string
}

type Metadata struct {
	Title     string
	Duration  float64
	Thumbnail string
	Formats   []Format
}

// Progress statuses reported through a ProgressFunc.
const (
	ProgressDownloading = "downloading"
	ProgressFinished    = "finished"
)

type Progress struct {
	Status          string
	DownloadedBytes int64
	TotalBytes      int64
	BytesPerSecond  float64
	// Filename is the raw file the engine is writing, before post-processing.
	Filename string
}

// ProgressFunc receives progress for a single fetch. It is called from the
// engine's goroutine and must not block.
type ProgressFunc func(Progress)

type Request struct {
	URL      string
	FormatID string
	// OutputTemplate is a yt-dlp output template, e.g. "/tmp/<id>_title.%(ext)s".
	OutputTemplate string
	Progress       ProgressFunc
}

type Engine interface {
	Info(ctx context.Context, url string) (*Metadata, error)
	// Fetch downloads the media and returns the final artifact path.
	Fetch(ctx context.Context, req Request) (string, error)
}

// IsAudio reports whether the format id selects the audio-only profile.
func IsAudio(formatID string) bool { return formatID == FormatMP3 }

// Expression maps a user-facing format id to the engine's format selector.
func Expression(formatID string) string {
	switch formatID {
	case "", FormatBest:
		return bestExpression
	case FormatMP3:
		return audioExpression
	default:
		return fmt.Sprintf("%s+bestaudio/best", formatID)
	}
}
