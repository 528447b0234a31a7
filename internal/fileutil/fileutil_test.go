package fileutil

import (
	"path/filepath"
	"testing"
)

func TestSubtitlePathFor(t *testing.T) {
	cases := map[string]string{
		"/videos/show.mkv":    "/videos/show.srt",
		"/videos/show.v2.mp4": "/videos/show.v2.srt",
		"/videos/noext":       "/videos/noext.srt",
	}
	for video, want := range cases {
		if got := SubtitlePathFor(video); got != want {
			t.Errorf("SubtitlePathFor(%q) = %q, want %q", video, got, want)
		}
	}
}

func TestSiblingWithSuffix(t *testing.T) {
	if got := SiblingWithSuffix("/s/movie.srt", "chs"); got != "/s/movie.chs.srt" {
		t.Fatalf("unexpected sibling %q", got)
	}
	if got := SiblingWithSuffix("/s/movie.srt", ".chs."); got != "/s/movie.chs.srt" {
		t.Fatalf("suffix dots should be trimmed, got %q", got)
	}
	if got := SiblingWithSuffix("/s/movie", "chs"); got != "/s/movie.chs.srt" {
		t.Fatalf("missing extension should default to .srt, got %q", got)
	}
}

func TestNormalizePath(t *testing.T) {
	if _, err := NormalizePath("  "); err == nil {
		t.Fatal("expected error for blank path")
	}
	got, err := NormalizePath("/a/b/../c")
	if err != nil {
		t.Fatalf("NormalizePath: %v", err)
	}
	if got != filepath.Clean("/a/c") {
		t.Fatalf("expected /a/c, got %q", got)
	}
}
