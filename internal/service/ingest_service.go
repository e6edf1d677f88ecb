package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/client"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/queue"
)

// IngestService accepts a raw recording, stores it and emits the first
// pipeline message. The returned job id is the caller's handle for all
// subsequent polling.
type IngestService struct {
	storage   client.BlobStorage
	publisher queue.Publisher
}

// NewIngestService creates a new ingestion service
func NewIngestService(storage client.BlobStorage, publisher queue.Publisher) *IngestService {
	return &IngestService{
		storage:   storage,
		publisher: publisher,
	}
}

// Ingest stores the media under a fresh uuid-derived key (never the
// untrusted upload filename), publishes the raw-media envelope and returns
// the job id synchronously.
func (s *IngestService) Ingest(ctx context.Context, filename, contentType string, body io.Reader) (*model.UploadResponse, error) {
	jobID := uuid.New().String()
	key := jobID + safeExtension(filename)

	if err := s.storage.Upload(ctx, client.BucketRawMedia, key, body, contentType); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	displayName := strings.TrimSpace(filename)
	if displayName == "" {
		displayName = model.DefaultDisplayName
	}

	env := &model.JobEnvelope{
		JobID:       jobID,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
		MediaRef:    &model.BlobRef{Bucket: client.BucketRawMedia, Key: key},
	}
	if err := s.publisher.Publish(ctx, model.StageIngested, env); err != nil {
		return nil, fmt.Errorf("failed to publish job %s: %w", jobID, err)
	}

	return &model.UploadResponse{
		JobID:       jobID,
		DisplayName: displayName,
	}, nil
}

// safeExtension keeps only a plain extension from the declared filename so
// object keys cannot be steered by path components.
func safeExtension(filename string) string {
	ext := filepath.Ext(filepath.Base(filename))
	if ext == "" || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return strings.ToLower(ext)
}
