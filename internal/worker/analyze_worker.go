package worker

import (
	"context"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/cache"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/client"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/queue"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/store"
)

// AnalyzeWorker consumes transcript-ready messages, obtains the structured
// analysis (from cache or the provider) and upserts the full session
// document. The upsert replaces the whole document, so redelivered messages
// for the same job converge on a single record.
type AnalyzeWorker struct {
	provider  client.AnalysisProvider
	cache     cache.AnalysisCache
	sessions  store.SessionStore
	validator *validator.Validate
}

// NewAnalyzeWorker creates a new analysis worker
func NewAnalyzeWorker(provider client.AnalysisProvider, analysisCache cache.AnalysisCache, sessions store.SessionStore, v *validator.Validate) *AnalyzeWorker {
	return &AnalyzeWorker{
		provider:  provider,
		cache:     analysisCache,
		sessions:  sessions,
		validator: v,
	}
}

// ProcessTask handles one transcript-ready message.
func (w *AnalyzeWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	env, err := queue.DecodeEnvelope(t)
	if err != nil {
		log.Printf("[Analyze] Dropping malformed message: %v", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := w.validateEnvelope(env); err != nil {
		log.Printf("[Analyze] Dropping invalid envelope (job=%s): %v", env.JobID, err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log.Printf("[Analyze] Received job %s (%d utterances)", env.JobID, len(env.Utterances))

	result, err := w.analysisFor(ctx, env)
	if err != nil {
		return err
	}

	doc := &model.SessionDocument{
		JobID:            env.JobID,
		DisplayName:      env.Label(),
		CreatedAt:        env.CreatedAt,
		Roles:            result.Roles,
		EmotionalProfile: result.EmotionalProfile,
		KeyInterventions: result.KeyInterventions,
		SentenceAnalysis: result.SentenceAnalysis,
		RawTranscript:    env.TranscriptText,
	}

	if err := w.sessions.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("failed to save analysis for job %s: %w", env.JobID, err)
	}

	log.Printf("[Analyze] Saved analysis for job %s", env.JobID)
	return nil
}

// analysisFor returns the cached analysis for the transcript, or computes
// and caches a fresh one. The key is a hash of the exact transcript text, so
// byte-identical transcripts never invoke the provider twice within the TTL.
func (w *AnalyzeWorker) analysisFor(ctx context.Context, env *model.JobEnvelope) (*model.AnalysisResult, error) {
	key := cache.Key(env.TranscriptText)

	cached, hit, err := w.cache.Get(ctx, key)
	if err != nil {
		log.Printf("[Analyze] Cache read error for job %s: %v", env.JobID, err)
	}
	if hit {
		log.Printf("[Analyze] Cache HIT for job %s", env.JobID)
		return cached, nil
	}

	log.Printf("[Analyze] Cache MISS for job %s, calling analysis provider...", env.JobID)
	result, err := w.provider.Analyze(ctx, env.Utterances)
	if err != nil {
		return nil, fmt.Errorf("analysis failed for job %s: %w", env.JobID, err)
	}

	// A failed cache write only costs a recompute later; the job proceeds.
	if err := w.cache.Set(ctx, key, result); err != nil {
		log.Printf("[Analyze] Cache write error for job %s: %v", env.JobID, err)
	}

	return result, nil
}

func (w *AnalyzeWorker) validateEnvelope(env *model.JobEnvelope) error {
	if err := w.validator.Struct(env); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidEnvelope, err)
	}
	return env.ValidateFor(model.StageTranscribed)
}
