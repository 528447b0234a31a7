// Package srt parses and serializes the SubRip subtitle format.
//
// The parser is deliberately tolerant: blocks whose index line is not purely
// numeric, or whose timing line lacks the "-->" separator, are skipped rather
// than repaired. The writer always emits the canonical layout.
package srt

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Entry is one subtitle cue.
type Entry struct {
	Index int
	Start string
	End   string
	Lines []string
}

const timingSeparator = "-->"

// Parse reads SRT blocks from r, skipping malformed blocks silently.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var rawLines []string
	for scanner.Scan() {
		rawLines = append(rawLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	if len(rawLines) > 0 {
		rawLines[0] = strings.TrimPrefix(rawLines[0], "\uFEFF")
	}

	var entries []Entry
	i := 0
	for i < len(rawLines) {
		line := strings.TrimSpace(rawLines[i])
		if line == "" {
			i++
			continue
		}

		if !isDigits(line) {
			i++
			continue
		}
		index, err := strconv.Atoi(line)
		if err != nil {
			i++
			continue
		}
		i++
		if i >= len(rawLines) {
			break
		}

		timing := strings.TrimSpace(rawLines[i])
		if !strings.Contains(timing, timingSeparator) {
			i++
			continue
		}
		parts := strings.SplitN(timing, timingSeparator, 2)
		start := strings.TrimSpace(parts[0])
		end := strings.TrimSpace(parts[1])
		i++

		var text []string
		for i < len(rawLines) && strings.TrimSpace(rawLines[i]) != "" {
			text = append(text, rawLines[i])
			i++
		}

		entries = append(entries, Entry{Index: index, Start: start, End: end, Lines: text})

		for i < len(rawLines) && strings.TrimSpace(rawLines[i]) == "" {
			i++
		}
	}
	return entries, nil
}

// isDigits reports whether s is non-empty and purely decimal digits. Signed
// forms like "-3" are not valid index lines.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ReadFile parses the SRT file at path.
func ReadFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open srt: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Format serializes entries in the canonical SRT layout.
func Format(entries []Entry) []byte {
	var buf bytes.Buffer
	for _, entry := range entries {
		fmt.Fprintf(&buf, "%d\n", entry.Index)
		fmt.Fprintf(&buf, "%s %s %s\n", entry.Start, timingSeparator, entry.End)
		for _, line := range entry.Lines {
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// WriteFile serializes entries to path.
func WriteFile(path string, entries []Entry) error {
	if err := os.WriteFile(path, Format(entries), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}
