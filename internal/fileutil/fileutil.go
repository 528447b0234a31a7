// Package fileutil provides small filesystem helpers shared by the pipeline.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathExists reports whether path names an existing file or directory.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// NormalizePath converts a path to its cleaned absolute form. Job identity in
// the translation queue is the normalized path.
func NormalizePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	absolute, err := filepath.Abs(filepath.Clean(trimmed))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", trimmed, err)
	}
	return absolute, nil
}

// SiblingWithSuffix builds "<stem>.<suffix><ext>" next to path, e.g.
// "movie.srt" with suffix "chs" becomes "movie.chs.srt".
func SiblingWithSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	if ext == "" {
		ext = ".srt"
	}
	suffix = strings.Trim(strings.TrimSpace(suffix), ".")
	if suffix == "" {
		return stem + ext
	}
	return stem + "." + suffix + ext
}

// SubtitlePathFor maps a video path to the subtitle the recognition tool is
// expected to produce beside it.
func SubtitlePathFor(videoPath string) string {
	ext := filepath.Ext(videoPath)
	return strings.TrimSuffix(videoPath, ext) + ".srt"
}
