// Package formats turns raw engine metadata into the short list of choices
// offered to clients.
package formats

import (
	"fmt"
	"sort"
	"strings"

	"mediadl/internal/platform/engine"
)

const maxVideoOptions = 10

type Option struct {
	FormatID string `json:"format_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Ext      string `json:"ext"`
	Height   int    `json:"height,omitempty"`
}

var (
	bestOption = Option{FormatID: engine.FormatBest, Name: "Best Quality (Auto)", Type: "video", Ext: "mp4"}
	mp3Option  = Option{FormatID: engine.FormatMP3, Name: "MP3 Audio (192kbps)", Type: "audio", Ext: "mp3"}
)

// Fallback is returned whenever metadata is unusable.
func Fallback() []Option {
	return []Option{bestOption, mp3Option}
}

// Select builds the option list: the two synthetic profiles followed by at
// most ten muxed video variants, one per height, tallest first.
func Select(md *engine.Metadata) []Option {
	if md == nil {
		return Fallback()
	}

	videos := make([]Option, 0, len(md.Formats))
	for _, f := range md.Formats {
		if f.Height == nil || *f.Height <= 0 || !hasCodec(f.VCodec) || !hasCodec(f.ACodec) {
			continue
		}
		videos = append(videos, Option{
			FormatID: f.FormatID,
			Name:     displayName(f),
			Type:     "video",
			Ext:      "mp4",
			Height:   *f.Height,
		})
	}

	sort.SliceStable(videos, func(i, j int) bool { return videos[i].Height > videos[j].Height })

	out := Fallback()
	seen := make(map[int]struct{}, len(videos))
	for _, v := range videos {
		if _, dup := seen[v.Height]; dup {
			continue
		}
		seen[v.Height] = struct{}{}
		out = append(out, v)
		if len(seen) == maxVideoOptions {
			break
		}
	}
	return out
}

func hasCodec(c string) bool {
	return c != "" && c != "none"
}

func displayName(f engine.Format) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dp", *f.Height)
	if f.FPS != nil && *f.FPS > 0 {
		fmt.Fprintf(&b, " (%dfps)", int(*f.FPS))
	}
	size := f.Filesize
	if size == nil || *size <= 0 {
		size = f.FilesizeApprox
	}
	if size != nil && *size > 0 {
		fmt.Fprintf(&b, " - %.1fMB", *size/(1024*1024))
	}
	if family := codecFamily(f.VCodec); family != "" {
		fmt.Fprintf(&b, " [%s]", family)
	}
	return b.String()
}

func codecFamily(vcodec string) string {
	prefix := strings.ToLower(strings.SplitN(vcodec, ".", 2)[0])
	switch prefix {
	case "":
		return ""
	case "avc1", "h264":
		return "H.264"
	case "hev1", "hvc1", "h265":
		return "H.265"
	case "vp9", "vp09":
		return "VP9"
	case "av01":
		return "AV1"
	default:
		return strings.ToUpper(prefix)
	}
}
