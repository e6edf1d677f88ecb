package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/client"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/queue"
)

// TranscribeWorker consumes audio-ready messages, runs the transcription
// provider and publishes transcript-ready messages.
type TranscribeWorker struct {
	storage     client.BlobStorage
	transcriber client.Transcriber
	publisher   queue.Publisher
	validator   *validator.Validate
}

// NewTranscribeWorker creates a new transcription worker
func NewTranscribeWorker(storage client.BlobStorage, transcriber client.Transcriber, publisher queue.Publisher, v *validator.Validate) *TranscribeWorker {
	return &TranscribeWorker{
		storage:     storage,
		transcriber: transcriber,
		publisher:   publisher,
		validator:   v,
	}
}

// ProcessTask handles one audio-ready message, publishing the transcript
// before acknowledging. Provider errors propagate so the broker redelivers
// up to the retry budget.
func (w *TranscribeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	env, err := queue.DecodeEnvelope(t)
	if err != nil {
		log.Printf("[Transcribe] Dropping malformed message: %v", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := w.validateEnvelope(env); err != nil {
		log.Printf("[Transcribe] Dropping invalid envelope (job=%s): %v", env.JobID, err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log.Printf("[Transcribe] Received job %s (%s)", env.JobID, env.AudioRef)

	tmpDir, err := os.MkdirTemp("", "transcribe-"+env.JobID+"-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	audioPath := filepath.Join(tmpDir, filepath.Base(env.AudioRef.Key))
	f, err := os.Create(audioPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	if _, err := w.storage.Download(ctx, env.AudioRef.Bucket, env.AudioRef.Key, f); err != nil {
		f.Close()
		return fmt.Errorf("failed to download %s: %w", env.AudioRef, err)
	}
	f.Close()

	log.Printf("[Transcribe] Starting transcription for job %s...", env.JobID)
	result, err := w.transcriber.TranscribeFile(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("transcription failed for job %s: %w", env.JobID, err)
	}
	log.Printf("[Transcribe] Transcription complete for job %s (%d utterances)", env.JobID, len(result.Utterances))

	next := &model.JobEnvelope{
		JobID:          env.JobID,
		DisplayName:    env.Label(),
		CreatedAt:      env.CreatedAt,
		TranscriptText: result.Text,
		Utterances:     result.Utterances,
	}
	if err := w.publisher.Publish(ctx, model.StageTranscribed, next); err != nil {
		return fmt.Errorf("failed to publish transcript-ready for job %s: %w", env.JobID, err)
	}

	log.Printf("[Transcribe] Job %s done, transcript-ready published", env.JobID)
	return nil
}

func (w *TranscribeWorker) validateEnvelope(env *model.JobEnvelope) error {
	if err := w.validator.Struct(env); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidEnvelope, err)
	}
	return env.ValidateFor(model.StageAudioExtracted)
}
