package recognize

import "strings"

// markerPrefix announces that the recognition tool moved on to a new input
// file. Matching is case-insensitive.
const markerPrefix = "starting to process:"

// ParseMarker extracts the video path from a file-start marker line.
// It returns false for any other line.
func ParseMarker(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < len(markerPrefix) {
		return "", false
	}
	if !strings.EqualFold(trimmed[:len(markerPrefix)], markerPrefix) {
		return "", false
	}
	video := strings.TrimSpace(trimmed[len(markerPrefix):])
	if video == "" {
		return "", false
	}
	return video, true
}

// Tracker follows which video the recognition tool is currently working on.
//
// The tool processes the videos it was launched with in order, so marker
// identity comes from the pending queue seeded by Start; the path printed in
// the marker line is only a fallback when the queue is exhausted. A new
// marker implies the previous video's subtitle is complete, and Flush
// reports the final in-progress video exactly once, whether the run ended
// normally or with an error.
type Tracker struct {
	pending []string
	current string
	flushed bool
}

// Start seeds a new run with the videos handed to the recognition tool,
// in launch order.
func (t *Tracker) Start(videos []string) {
	t.pending = append(t.pending[:0:0], videos...)
	t.current = ""
	t.flushed = false
}

// ObserveMarker records a new in-progress video and returns the video it
// supersedes, if any.
func (t *Tracker) ObserveMarker(parsedPath string) (completed string, ok bool) {
	completed, ok = t.current, t.current != ""
	if len(t.pending) > 0 {
		t.current = t.pending[0]
		t.pending = t.pending[1:]
	} else {
		t.current = parsedPath
	}
	t.flushed = false
	return completed, ok
}

// Current returns the video currently being processed.
func (t *Tracker) Current() (string, bool) {
	return t.current, t.current != ""
}

// PendingCount returns how many seeded videos have not produced a marker yet.
func (t *Tracker) PendingCount() int {
	return len(t.pending)
}

// Flush returns the in-progress video exactly once and resets all per-run
// state. Subsequent calls return false until the next run.
func (t *Tracker) Flush() (string, bool) {
	t.pending = nil
	if t.flushed || t.current == "" {
		return "", false
	}
	t.flushed = true
	video := t.current
	t.current = ""
	return video, true
}
