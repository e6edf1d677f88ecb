package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/store"
	"github.com/ItayBoros/Psychology-Session-Analyzer/pkg/response"
)

// Querier reads session documents and projections.
type Querier interface {
	List(ctx context.Context) ([]model.SessionSummary, error)
	Get(ctx context.Context, jobID string) (*model.SessionDocument, error)
	EmotionalProfile(ctx context.Context, jobID string) ([]model.PhaseEmotion, error)
	Interventions(ctx context.Context, jobID string) ([]model.Intervention, error)
}

type QueryHandler struct {
	service Querier
}

func NewQueryHandler(svc Querier) *QueryHandler {
	return &QueryHandler{service: svc}
}

// List handles GET /list with a bounded set of session summaries.
func (h *QueryHandler) List(c *fiber.Ctx) error {
	summaries, err := h.service.List(c.Context())
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, summaries)
}

// Get handles GET /analysis/:jobID. Returns the full session document, or
// 404 while the pipeline has not completed; an in-flight job and an unknown
// id look the same to the caller.
func (h *QueryHandler) Get(c *fiber.Ctx) error {
	jobID := c.Params("jobID")
	doc, err := h.service.Get(c.Context(), jobID)
	if err != nil {
		return h.queryError(c, err)
	}
	return response.OK(c, doc)
}

// EmotionalArc handles GET /analysis/:jobID/emotional-arc
func (h *QueryHandler) EmotionalArc(c *fiber.Ctx) error {
	jobID := c.Params("jobID")
	profile, err := h.service.EmotionalProfile(c.Context(), jobID)
	if err != nil {
		return h.queryError(c, err)
	}
	return response.OK(c, profile)
}

// Interventions handles GET /analysis/:jobID/interventions
func (h *QueryHandler) Interventions(c *fiber.Ctx) error {
	jobID := c.Params("jobID")
	interventions, err := h.service.Interventions(c.Context(), jobID)
	if err != nil {
		return h.queryError(c, err)
	}
	return response.OK(c, interventions)
}

func (h *QueryHandler) queryError(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return response.NotFound(c, err.Error())
	}
	return response.ServiceError(c, err.Error())
}
