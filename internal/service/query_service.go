package service

import (
	"context"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/store"
)

// QueryService exposes read-only projections over the session documents.
type QueryService struct {
	sessions store.SessionStore
}

// NewQueryService creates a new query service
func NewQueryService(sessions store.SessionStore) *QueryService {
	return &QueryService{sessions: sessions}
}

func (s *QueryService) List(ctx context.Context) ([]model.SessionSummary, error) {
	return s.sessions.List(ctx)
}

func (s *QueryService) Get(ctx context.Context, jobID string) (*model.SessionDocument, error) {
	return s.sessions.Get(ctx, jobID)
}

func (s *QueryService) EmotionalProfile(ctx context.Context, jobID string) ([]model.PhaseEmotion, error) {
	return s.sessions.GetEmotionalProfile(ctx, jobID)
}

func (s *QueryService) Interventions(ctx context.Context, jobID string) ([]model.Intervention, error) {
	return s.sessions.GetInterventions(ctx, jobID)
}
