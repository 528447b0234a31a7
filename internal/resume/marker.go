// Package resume persists the list of videos whose pipeline has not finished.
//
// The marker file is a plain UTF-8 list of absolute video paths, one per
// line. It is written before a recognition run starts, pruned as each video's
// full pipeline completes, and deleted once empty. The format is an external
// interface: other tooling may read it, so keep it line-oriented.
package resume

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Write replaces the marker file with the given video paths.
func Write(path string, videos []string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create marker directory: %w", err)
		}
	}
	var sb strings.Builder
	for _, video := range videos {
		trimmed := strings.TrimSpace(video)
		if trimmed == "" {
			continue
		}
		sb.WriteString(trimmed)
		sb.WriteByte('\n')
	}
	if sb.Len() == 0 {
		return Remove(path)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}
	return nil
}

// Load returns the pending video paths. A missing marker is an empty list.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read marker: %w", err)
	}
	var videos []string
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			videos = append(videos, trimmed)
		}
	}
	return videos, nil
}

// Prune removes one video from the marker, deleting the file when it becomes
// empty. Pruning a video that is not listed is a no-op.
func Prune(path, video string) error {
	videos, err := Load(path)
	if err != nil {
		return err
	}
	kept := videos[:0]
	for _, entry := range videos {
		if entry != strings.TrimSpace(video) {
			kept = append(kept, entry)
		}
	}
	return Write(path, kept)
}

// Remove deletes the marker file if present.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove marker: %w", err)
	}
	return nil
}
