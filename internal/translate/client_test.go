package translate_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"subflow/internal/services"
	"subflow/internal/translate"
)

func completionBody(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func TestCompleteSendsChatPayload(t *testing.T) {
	var captured struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(completionBody("translated")))
	}))
	defer server.Close()

	client := translate.NewClient(translate.ClientConfig{
		BaseURL:     server.URL,
		Model:       "qwen",
		Temperature: 0.2,
	})
	content, err := client.Complete(context.Background(), "system", "user", 1024)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != "translated" {
		t.Errorf("content = %q", content)
	}
	if captured.Model != "qwen" || captured.Temperature != 0.2 || captured.MaxTokens != 1024 {
		t.Errorf("unexpected payload %+v", captured)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Errorf("unexpected messages %+v", captured.Messages)
	}
}

func TestCompleteRetriesWithDoublingBackoff(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "busy", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(completionBody("ok")))
	}))
	defer server.Close()

	var delays []time.Duration
	client := translate.NewClient(translate.ClientConfig{
		BaseURL:       server.URL,
		Model:         "qwen",
		RetryAttempts: 3,
		RetryBase:     600 * time.Millisecond,
	}, translate.WithSleeper(func(d time.Duration) { delays = append(delays, d) }))

	content, err := client.Complete(context.Background(), "system", "user", 64)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if content != "ok" {
		t.Errorf("content = %q", content)
	}
	if calls != 3 {
		t.Errorf("expected 3 requests, got %d", calls)
	}
	want := []time.Duration{600 * time.Millisecond, 1200 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("expected %d sleeps, got %v", len(want), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("sleep %d = %v, expected %v", i, delays[i], want[i])
		}
	}
}

func TestCompleteExhaustedRetriesReturnsEndpointError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := translate.NewClient(translate.ClientConfig{
		BaseURL:       server.URL,
		Model:         "qwen",
		RetryAttempts: 3,
	}, translate.WithSleeper(func(time.Duration) {}))

	_, err := client.Complete(context.Background(), "system", "user", 64)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrEndpoint) {
		t.Fatalf("expected endpoint marker, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestCompleteStopsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := translate.NewClient(translate.ClientConfig{
		BaseURL:       server.URL,
		Model:         "qwen",
		RetryAttempts: 5,
	}, translate.WithSleeper(func(time.Duration) { cancel() }))

	_, err := client.Complete(ctx, "system", "user", 64)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
