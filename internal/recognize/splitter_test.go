package recognize_test

import (
	"testing"

	"subflow/internal/recognize"
)

func feedAll(s *recognize.Splitter, chunks ...string) []recognize.Token {
	var tokens []recognize.Token
	for _, chunk := range chunks {
		tokens = append(tokens, s.Feed([]byte(chunk))...)
	}
	return tokens
}

func TestFeedSplitsLogLines(t *testing.T) {
	var s recognize.Splitter
	tokens := feedAll(&s, "first line\nsecond line\r\n")

	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %v", len(tokens), tokens)
	}
	for i, want := range []string{"first line", "second line"} {
		if tokens[i].Kind != recognize.TokenLog {
			t.Errorf("token %d: expected log kind", i)
		}
		if tokens[i].Text != want {
			t.Errorf("token %d: expected %q, got %q", i, want, tokens[i].Text)
		}
	}
}

func TestFeedLoneCarriageReturnYieldsProgress(t *testing.T) {
	var s recognize.Splitter
	tokens := feedAll(&s, "12%|####\r34%|########\r")

	if len(tokens) != 1 {
		t.Fatalf("expected 1 token before next byte arrives, got %d", len(tokens))
	}
	if tokens[0].Kind != recognize.TokenProgress || tokens[0].Text != "12%|####" {
		t.Fatalf("unexpected token %+v", tokens[0])
	}

	tokens = feedAll(&s, "done\n")
	if len(tokens) != 2 {
		t.Fatalf("expected progress then log, got %v", tokens)
	}
	if tokens[0].Kind != recognize.TokenProgress || tokens[0].Text != "34%|########" {
		t.Errorf("unexpected progress token %+v", tokens[0])
	}
	if tokens[1].Kind != recognize.TokenLog || tokens[1].Text != "done" {
		t.Errorf("unexpected log token %+v", tokens[1])
	}
}

func TestFeedCarriageReturnNewlineAcrossChunks(t *testing.T) {
	var s recognize.Splitter
	tokens := feedAll(&s, "partial\r", "\nnext\n")

	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %v", tokens)
	}
	if tokens[0].Kind != recognize.TokenLog || tokens[0].Text != "partial" {
		t.Errorf("split \\r\\n should form a log line, got %+v", tokens[0])
	}
	if tokens[1].Text != "next" {
		t.Errorf("unexpected second token %+v", tokens[1])
	}
}

func TestFeedDropsEmptyLogLinesKeepsEmptyProgress(t *testing.T) {
	var s recognize.Splitter
	tokens := feedAll(&s, "\n\r\r\n\n")

	// The double \r yields one empty progress token, the reset signal.
	// All empty log lines are dropped.
	if len(tokens) != 1 {
		t.Fatalf("expected a single reset token, got %v", tokens)
	}
	if tokens[0].Kind != recognize.TokenProgress || tokens[0].Text != "" {
		t.Fatalf("unexpected token %+v", tokens[0])
	}
}

func TestFlushReturnsTrailingPartialLine(t *testing.T) {
	var s recognize.Splitter
	if tokens := s.Feed([]byte("no terminator")); len(tokens) != 0 {
		t.Fatalf("unterminated text should stay buffered, got %v", tokens)
	}

	tokens := s.Flush()
	if len(tokens) != 1 || tokens[0].Kind != recognize.TokenLog || tokens[0].Text != "no terminator" {
		t.Fatalf("unexpected flush result %v", tokens)
	}
	if tokens := s.Flush(); len(tokens) != 0 {
		t.Fatalf("second flush should be empty, got %v", tokens)
	}
}
