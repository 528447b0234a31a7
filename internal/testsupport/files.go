package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"subflow/internal/srt"
)

// WriteSubtitle writes an SRT file with one entry per provided text line.
// Timings are synthetic one-second cues.
func WriteSubtitle(t testing.TB, path string, lines ...string) {
	t.Helper()

	entries := make([]srt.Entry, 0, len(lines))
	for i, line := range lines {
		entries = append(entries, srt.Entry{
			Index: i + 1,
			Start: fmt.Sprintf("00:00:%02d,000", i),
			End:   fmt.Sprintf("00:00:%02d,900", i),
			Lines: []string{line},
		})
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := srt.WriteFile(path, entries); err != nil {
		t.Fatalf("write subtitle %s: %v", path, err)
	}
}

// TouchFile creates an empty file, making parent directories as needed.
func TouchFile(t testing.TB, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}
