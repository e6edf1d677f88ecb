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
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/media"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/queue"
)

// ExtractWorker consumes raw-media messages, extracts the audio track and
// publishes audio-ready messages.
type ExtractWorker struct {
	storage   client.BlobStorage
	extractor media.Extractor
	publisher queue.Publisher
	validator *validator.Validate
}

// NewExtractWorker creates a new audio extraction worker
func NewExtractWorker(storage client.BlobStorage, extractor media.Extractor, publisher queue.Publisher, v *validator.Validate) *ExtractWorker {
	return &ExtractWorker{
		storage:   storage,
		extractor: extractor,
		publisher: publisher,
		validator: v,
	}
}

// ProcessTask handles one raw-media message. Returning nil acknowledges the
// message, so the audio-ready envelope is always published first; a crash in
// between redelivers the input and the transform repeats.
func (w *ExtractWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	env, err := queue.DecodeEnvelope(t)
	if err != nil {
		log.Printf("[Extract] Dropping malformed message: %v", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := w.validateEnvelope(env); err != nil {
		log.Printf("[Extract] Dropping invalid envelope (job=%s): %v", env.JobID, err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log.Printf("[Extract] Received job %s (%s)", env.JobID, env.MediaRef)

	// Local copies live in a per-job temp dir, removed on every exit path.
	tmpDir, err := os.MkdirTemp("", "extract-"+env.JobID+"-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	videoPath := filepath.Join(tmpDir, filepath.Base(env.MediaRef.Key))
	audioPath := filepath.Join(tmpDir, env.JobID+".mp3")

	if err := w.downloadBlob(ctx, *env.MediaRef, videoPath); err != nil {
		return err
	}

	log.Printf("[Extract] Extracting audio for job %s...", env.JobID)
	if err := w.extractor.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return fmt.Errorf("audio extraction failed for job %s: %w", env.JobID, err)
	}

	audioKey := env.JobID + ".mp3"
	f, err := os.Open(audioPath)
	if err != nil {
		return fmt.Errorf("failed to open extracted audio: %w", err)
	}
	defer f.Close()

	if err := w.storage.Upload(ctx, client.BucketAudio, audioKey, f, "audio/mpeg"); err != nil {
		return fmt.Errorf("failed to store extracted audio for job %s: %w", env.JobID, err)
	}

	next := &model.JobEnvelope{
		JobID:       env.JobID,
		DisplayName: env.Label(),
		CreatedAt:   env.CreatedAt,
		AudioRef:    &model.BlobRef{Bucket: client.BucketAudio, Key: audioKey},
	}
	if err := w.publisher.Publish(ctx, model.StageAudioExtracted, next); err != nil {
		return fmt.Errorf("failed to publish audio-ready for job %s: %w", env.JobID, err)
	}

	log.Printf("[Extract] Job %s done, audio-ready published", env.JobID)
	return nil
}

func (w *ExtractWorker) validateEnvelope(env *model.JobEnvelope) error {
	if err := w.validator.Struct(env); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidEnvelope, err)
	}
	return env.ValidateFor(model.StageIngested)
}

func (w *ExtractWorker) downloadBlob(ctx context.Context, ref model.BlobRef, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer f.Close()

	n, err := w.storage.Download(ctx, ref.Bucket, ref.Key, f)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", ref, err)
	}
	log.Printf("[Extract] Downloaded %s (%d bytes)", ref, n)
	return nil
}
