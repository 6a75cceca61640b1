// Package media holds the small URL and filename rules shared by the download
// pipeline.
package media

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

const (
	watchURLTemplate = "https://www.youtube.com/watch?v=%s"
	maxNameLength    = 100
)

// NormalizeURL rewrites YouTube Shorts links to the regular watch page. Any
// other input is returned trimmed but otherwise untouched.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "youtube.com/shorts/") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	id := strings.TrimPrefix(u.Path, "/shorts/")
	id = strings.Trim(id, "/")
	if i := strings.Index(id, "/"); i >= 0 {
		id = id[:i]
	}
	if id == "" {
		return raw
	}
	return fmt.Sprintf(watchURLTemplate, id)
}

// SafeFilename turns a user-supplied title into a path segment that is safe on
// every filesystem we write to.
func SafeFilename(title string) string {
	s := slug.Make(title)
	if s == "" {
		s = "video"
	}
	if r := []rune(s); len(r) > maxNameLength {
		s = strings.Trim(string(r[:maxNameLength]), "-")
	}
	return s
}

// DownloadName is the attachment name presented to clients. It never exposes
// the storage path.
func DownloadName(jobID, artifactPath string) string {
	short := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' {
			return r
		}
		return -1
	}, jobID)
	if len(short) > 8 {
		short = short[:8]
	}
	ext := ".mp4"
	if strings.EqualFold(filepath.Ext(artifactPath), ".mp3") {
		ext = ".mp3"
	}
	return "video_" + short + ext
}

// ReplaceExt swaps the extension of path for ext (which includes the dot).
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
