package media

import (
	"strings"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://youtube.com/shorts/abc123", "https://www.youtube.com/watch?v=abc123"},
		{"https://www.youtube.com/shorts/abc123?feature=share", "https://www.youtube.com/watch?v=abc123"},
		{"  https://youtube.com/shorts/abc123/  ", "https://www.youtube.com/watch?v=abc123"},
		{"https://www.youtube.com/watch?v=xyz", "https://www.youtube.com/watch?v=xyz"},
		{"https://vimeo.com/12345", "https://vimeo.com/12345"},
		{"https://youtube.com/shorts/", "https://youtube.com/shorts/"},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSafeFilename(t *testing.T) {
	got := SafeFilename(`My: "Video" / Part <1>?`)
	for _, bad := range []string{"<", ">", ":", "\"", "/", "\\", "|", "?", "*", " "} {
		if strings.Contains(got, bad) {
			t.Errorf("Expected %q to be stripped from %q", bad, got)
		}
	}
	if got == "" {
		t.Error("Expected non-empty filename")
	}

	if got := SafeFilename("???"); got != "video" {
		t.Errorf("Expected fallback 'video', got %q", got)
	}

	long := strings.Repeat("a", 300)
	if got := SafeFilename(long); len([]rune(got)) > maxNameLength {
		t.Errorf("Expected at most %d runes, got %d", maxNameLength, len([]rune(got)))
	}
}

func TestDownloadName(t *testing.T) {
	tests := []struct {
		id, path, want string
	}{
		{"0123456789abcdef", "/tmp/x_title.mp3", "video_01234567.mp3"},
		{"0123456789abcdef", "/tmp/x_title.mp4", "video_01234567.mp4"},
		{"0123456789abcdef", "/tmp/x_title.webm", "video_01234567.mp4"},
		{"ab", "/tmp/x.MP3", "video_ab.mp3"},
		{"../etc", "/tmp/x.mp4", "video_etc.mp4"},
	}
	for _, tt := range tests {
		if got := DownloadName(tt.id, tt.path); got != tt.want {
			t.Errorf("DownloadName(%q, %q) = %q, want %q", tt.id, tt.path, got, tt.want)
		}
	}
}

func TestReplaceExt(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/tmp/a.webm", "/tmp/a.mp3"},
		{"/tmp/a.m4a", "/tmp/a.mp3"},
		{"/tmp/a.mp3", "/tmp/a.mp3"},
		{"/tmp/a", "/tmp/a.mp3"},
	}
	for _, tt := range tests {
		if got := ReplaceExt(tt.in, ".mp3"); got != tt.want {
			t.Errorf("ReplaceExt(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
