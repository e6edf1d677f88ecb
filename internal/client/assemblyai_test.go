package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/config"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.mp3")
	if err := os.WriteFile(path, []byte("fake-mp3-bytes"), 0o644); err != nil {
		t.Fatalf("failed to write temp audio: %v", err)
	}
	return path
}

func newTestClient(baseURL string) *AssemblyAIClient {
	return NewAssemblyAIClient(&config.AssemblyAIConfig{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		PollIntervalSec: 0,
		PollMaxAttempts: 5,
	})
}

func TestTranscribeFile_Success(t *testing.T) {
	var pollCount int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "test-key" {
			t.Errorf("missing api key header on %s %s", r.Method, r.URL.Path)
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v2/upload":
			json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/upload/abc"})
		case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
			var req map[string]interface{}
			json.NewDecoder(r.Body).Decode(&req)
			if req["speaker_labels"] != true {
				t.Error("expected speaker_labels to be requested")
			}
			json.NewEncoder(w).Encode(map[string]string{"id": "tr-1", "status": "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/v2/transcript/tr-1":
			// First poll still processing, second completes
			if atomic.AddInt32(&pollCount, 1) < 2 {
				json.NewEncoder(w).Encode(map[string]string{"id": "tr-1", "status": "processing"})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "tr-1",
				"status": "completed",
				"text":   "Hello there. Hi.",
				"utterances": []map[string]string{
					{"speaker": "A", "text": "Hello there."},
					{"speaker": "B", "text": "Hi."},
				},
			})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.TranscribeFile(context.Background(), writeTempAudio(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Text != "Hello there. Hi." {
		t.Errorf("unexpected transcript text: %q", result.Text)
	}
	if len(result.Utterances) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(result.Utterances))
	}
	if result.Utterances[0].Speaker != "A" {
		t.Errorf("unexpected first speaker: %q", result.Utterances[0].Speaker)
	}
}

func TestTranscribeFile_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/upload":
			json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/upload/abc"})
		case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
			json.NewEncoder(w).Encode(map[string]string{"id": "tr-2", "status": "queued"})
		default:
			json.NewEncoder(w).Encode(map[string]string{
				"id": "tr-2", "status": "error", "error": "unsupported audio",
			})
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.TranscribeFile(context.Background(), writeTempAudio(t))
	if !errors.Is(err, ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure, got %v", err)
	}
}

func TestTranscribeFile_UploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "bad api key"}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.TranscribeFile(context.Background(), writeTempAudio(t))
	if !errors.Is(err, ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure, got %v", err)
	}
}

func TestTranscribeFile_PollBudgetExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v2/upload":
			json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/upload/abc"})
		case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
			json.NewEncoder(w).Encode(map[string]string{"id": "tr-3", "status": "queued"})
		default:
			json.NewEncoder(w).Encode(map[string]string{"id": "tr-3", "status": "processing"})
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = c.TranscribeFile(context.Background(), writeTempAudio(t))
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poll loop did not terminate")
	}
	if !errors.Is(err, ErrProviderFailure) {
		t.Errorf("expected ErrProviderFailure after exhausting attempts, got %v", err)
	}
}
