package cleaner

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()

	client, err := NewClient(Config{
		Endpoint:   endpoint,
		APIKey:     "test-key",
		Model:      "test-model",
		MaxTokens:  256,
		Prompt:     "Clean this up:",
		Timeout:    2 * time.Second,
		MaxRetries: 0,
	}, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestCleanEmptyInputSkipsNetwork(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result := client.Clean(context.Background(), "")
	if result.Text != "" {
		t.Errorf("Text = %q, want empty", result.Text)
	}
	if result.Fallback {
		t.Error("empty input must not be reported as a fallback")
	}
	if hits.Load() != 0 {
		t.Errorf("server hit %d times, want 0", hits.Load())
	}
}

func TestCleanSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("X-Api-Key = %q, want %q", got, "test-key")
		}
		if got := r.Header.Get("Anthropic-Version"); got == "" {
			t.Error("Anthropic-Version header missing")
		}

		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, want %q", req.Model, "test-model")
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messagesResponse{
			Content: []contentBlock{{Type: "text", Text: "Cleaned transcript."}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	result := client.Clean(context.Background(), "raw transcript")
	if result.Fallback {
		t.Fatalf("unexpected fallback: %v", result.Err)
	}
	if result.Text != "Cleaned transcript." {
		t.Errorf("Text = %q, want %q", result.Text, "Cleaned transcript.")
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
}

func TestCleanFallback(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "internal error", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json at all"))
			},
		},
		{
			name: "empty content array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"content":[]}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := newTestClient(t, server.URL)

			result := client.Clean(context.Background(), "original text")
			if !result.Fallback {
				t.Fatal("expected fallback")
			}
			if result.Text != "original text" {
				t.Errorf("Text = %q, want original input", result.Text)
			}
			if result.Err == nil {
				t.Error("fallback Result must carry the last error")
			}
		})
	}
}

func TestCleanFallbackOnTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Endpoint:   server.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		Timeout:    100 * time.Millisecond,
		MaxRetries: 0,
	}, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	result := client.Clean(context.Background(), "original text")
	if !result.Fallback {
		t.Fatal("expected fallback on timeout")
	}
	if result.Text != "original text" {
		t.Errorf("Text = %q, want original input", result.Text)
	}
}

func TestCleanRetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "try again", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"second try"}]}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{
		Endpoint:   server.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		Timeout:    2 * time.Second,
		MaxRetries: 1,
	}, testLogger(), nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	result := client.Clean(context.Background(), "raw")
	if result.Fallback {
		t.Fatalf("unexpected fallback: %v", result.Err)
	}
	if result.Text != "second try" {
		t.Errorf("Text = %q, want %q", result.Text, "second try")
	}
	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}

	stats := client.GetStats()
	if stats.TotalRetries != 1 {
		t.Errorf("TotalRetries = %d, want 1", stats.TotalRetries)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{APIKey: "k"}, testLogger(), nil); err == nil {
		t.Error("expected error for empty endpoint")
	}
	if _, err := NewClient(Config{Endpoint: "http://localhost"}, testLogger(), nil); err == nil {
		t.Error("expected error for empty API key")
	}
}
