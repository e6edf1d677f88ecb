package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/config"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
)

// ErrProviderFailure marks a non-2xx or error-status reply from an external
// provider. Workers return it upward so the message is retried up to the
// task's retry budget, then archived.
var ErrProviderFailure = errors.New("external provider failure")

// RetryPolicy bounds a completion-polling loop. Interval and attempts come
// from configuration so the wait is never unbounded.
type RetryPolicy struct {
	Interval    time.Duration
	MaxAttempts int
}

// TranscriptResult is the transcription provider's output.
type TranscriptResult struct {
	Text       string
	Utterances []model.Utterance
}

// Transcriber defines the interface for speech-to-text operations
type Transcriber interface {
	TranscribeFile(ctx context.Context, path string) (*TranscriptResult, error)
}

// AssemblyAIClient implements Transcriber for the AssemblyAI API
type AssemblyAIClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	poll       RetryPolicy
}

// NewAssemblyAIClient creates a new AssemblyAI API client
func NewAssemblyAIClient(cfg *config.AssemblyAIConfig) *AssemblyAIClient {
	return &AssemblyAIClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		poll: RetryPolicy{
			Interval:    time.Duration(cfg.PollIntervalSec) * time.Second,
			MaxAttempts: cfg.PollMaxAttempts,
		},
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL      string `json:"audio_url"`
	SpeakerLabels bool   `json:"speaker_labels"`
}

type transcriptResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Text       string `json:"text"`
	Error      string `json:"error"`
	Utterances []struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"utterances"`
}

// TranscribeFile uploads a local audio file, submits a transcription job
// with speaker labels and polls until it completes.
func (c *AssemblyAIClient) TranscribeFile(ctx context.Context, path string) (*TranscriptResult, error) {
	audioURL, err := c.uploadAudio(ctx, path)
	if err != nil {
		return nil, err
	}

	transcriptID, err := c.submitTranscript(ctx, audioURL)
	if err != nil {
		return nil, err
	}

	return c.pollTranscript(ctx, transcriptID)
}

// uploadAudio pushes raw audio bytes to AssemblyAI's upload endpoint
func (c *AssemblyAIClient) uploadAudio(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/upload", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	log.Printf("[AssemblyAI] → POST /v2/upload (%d bytes)", len(data))

	var result uploadResponse
	if err := c.doRequest(req, &result); err != nil {
		return "", err
	}
	if result.UploadURL == "" {
		return "", fmt.Errorf("%w: upload returned no URL", ErrProviderFailure)
	}
	return result.UploadURL, nil
}

// submitTranscript starts a transcription job and returns its id
func (c *AssemblyAIClient) submitTranscript(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(transcriptRequest{
		AudioURL:      audioURL,
		SpeakerLabels: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/transcript", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	log.Printf("[AssemblyAI] → POST /v2/transcript")

	var result transcriptResponse
	if err := c.doRequest(req, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", fmt.Errorf("%w: transcript submission returned no id", ErrProviderFailure)
	}
	return result.ID, nil
}

// pollTranscript polls the transcript endpoint on a fixed interval until the
// job completes, errors out, or the attempt budget is exhausted.
func (c *AssemblyAIClient) pollTranscript(ctx context.Context, transcriptID string) (*TranscriptResult, error) {
	endpoint := fmt.Sprintf("%s/v2/transcript/%s", c.baseURL, transcriptID)

	for attempt := 1; attempt <= c.poll.MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", c.apiKey)

		var result transcriptResponse
		if err := c.doRequest(req, &result); err != nil {
			log.Printf("[AssemblyAI] Poll #%d (transcript=%s) error: %v", attempt, transcriptID, err)
			return nil, err
		}

		switch result.Status {
		case "completed":
			utterances := make([]model.Utterance, 0, len(result.Utterances))
			for _, u := range result.Utterances {
				utterances = append(utterances, model.Utterance{Speaker: u.Speaker, Text: u.Text})
			}
			return &TranscriptResult{Text: result.Text, Utterances: utterances}, nil
		case "error":
			return nil, fmt.Errorf("%w: transcription failed: %s", ErrProviderFailure, result.Error)
		}

		log.Printf("[AssemblyAI] Poll #%d (transcript=%s) status: %s", attempt, transcriptID, result.Status)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.poll.Interval):
		}
	}

	return nil, fmt.Errorf("%w: transcript %s did not complete after %d attempts", ErrProviderFailure, transcriptID, c.poll.MaxAttempts)
}

// doRequest executes an HTTP request and parses the response
func (c *AssemblyAIClient) doRequest(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[AssemblyAI] ✗ %s %s request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[AssemblyAI] ✗ %s %s failed to read response: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d: %s", ErrProviderFailure, resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		log.Printf("[AssemblyAI] ✗ unmarshal error for %s %s: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *AssemblyAIClient) IsConfigured() bool {
	return c.apiKey != ""
}
