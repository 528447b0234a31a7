package recognize_test

import (
	"testing"

	"subflow/internal/recognize"
)

func TestParseMarker(t *testing.T) {
	cases := []struct {
		name  string
		line  string
		video string
		ok    bool
	}{
		{"plain", "starting to process: /media/a.mp4", "/media/a.mp4", true},
		{"case insensitive", "Starting To Process: /media/b.mp4", "/media/b.mp4", true},
		{"leading whitespace", "  starting to process: /media/c.mp4 ", "/media/c.mp4", true},
		{"other log line", "loaded model large-v3", "", false},
		{"prefix without path", "starting to process:   ", "", false},
		{"prefix mid-line", "not starting to process: /x", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			video, ok := recognize.ParseMarker(tc.line)
			if ok != tc.ok {
				t.Fatalf("ParseMarker(%q) ok = %v, expected %v", tc.line, ok, tc.ok)
			}
			if video != tc.video {
				t.Errorf("ParseMarker(%q) = %q, expected %q", tc.line, video, tc.video)
			}
		})
	}
}

func TestTrackerIdentityComesFromSeededQueue(t *testing.T) {
	var tr recognize.Tracker
	tr.Start([]string{"/media/a.mp4", "/media/b.mp4"})

	if completed, ok := tr.ObserveMarker("/scratch/a-transcoded.wav"); ok {
		t.Fatalf("first marker should complete nothing, got %q", completed)
	}
	if current, ok := tr.Current(); !ok || current != "/media/a.mp4" {
		t.Fatalf("expected seeded identity a.mp4, got %q %v", current, ok)
	}

	completed, ok := tr.ObserveMarker("/scratch/b-transcoded.wav")
	if !ok || completed != "/media/a.mp4" {
		t.Fatalf("expected a.mp4 completed, got %q %v", completed, ok)
	}
	if current, ok := tr.Current(); !ok || current != "/media/b.mp4" {
		t.Fatalf("expected b.mp4 current, got %q %v", current, ok)
	}
	if tr.PendingCount() != 0 {
		t.Errorf("expected empty pending queue, got %d", tr.PendingCount())
	}
}

func TestTrackerFallsBackToParsedPathWhenQueueExhausted(t *testing.T) {
	var tr recognize.Tracker
	tr.Start(nil)

	if _, ok := tr.ObserveMarker("/media/extra.mp4"); ok {
		t.Fatal("first marker should complete nothing")
	}
	if current, ok := tr.Current(); !ok || current != "/media/extra.mp4" {
		t.Fatalf("expected parsed path fallback, got %q %v", current, ok)
	}
}

func TestTrackerFlushFiresExactlyOnceAndResets(t *testing.T) {
	var tr recognize.Tracker
	tr.Start([]string{"/media/a.mp4", "/media/b.mp4"})
	tr.ObserveMarker("a")

	video, ok := tr.Flush()
	if !ok || video != "/media/a.mp4" {
		t.Fatalf("expected flush of a.mp4, got %q %v", video, ok)
	}
	if _, ok := tr.Flush(); ok {
		t.Fatal("second flush must not fire")
	}
	if tr.PendingCount() != 0 {
		t.Errorf("flush should clear pending videos, got %d", tr.PendingCount())
	}

	// The next run starts clean.
	tr.Start([]string{"/media/c.mp4"})
	tr.ObserveMarker("c")
	if video, ok := tr.Flush(); !ok || video != "/media/c.mp4" {
		t.Fatalf("expected flush of c.mp4, got %q %v", video, ok)
	}
}

func TestTrackerFlushWithoutMarkerIsEmpty(t *testing.T) {
	var tr recognize.Tracker
	tr.Start([]string{"/media/a.mp4"})
	if _, ok := tr.Flush(); ok {
		t.Fatal("flush with no in-progress video must be empty")
	}
}
