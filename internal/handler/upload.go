package handler

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/ItayBoros/Psychology-Session-Analyzer/internal/model"
	"github.com/ItayBoros/Psychology-Session-Analyzer/pkg/response"
)

// Ingestor accepts a raw recording and returns the job handle.
type Ingestor interface {
	Ingest(ctx context.Context, filename, contentType string, body io.Reader) (*model.UploadResponse, error)
}

type UploadHandler struct {
	service       Ingestor
	maxUploadSize int64
}

func NewUploadHandler(svc Ingestor, maxUploadSize int64) *UploadHandler {
	return &UploadHandler{
		service:       svc,
		maxUploadSize: maxUploadSize,
	}
}

// Upload handles POST /upload
// Accepts a multipart recording, stores it and queues the analysis
// pipeline. Responds with the job id the client polls with.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > h.maxUploadSize {
		return response.ValidationError(c, "File size exceeds upload limit", map[string]interface{}{
			"maxSize":  h.maxUploadSize,
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	validTypes := map[string]bool{
		"video/mp4":        true,
		"video/quicktime":  true,
		"video/x-matroska": true,
		"video/webm":       true,
		"video/x-msvideo":  true,
		"audio/mpeg":       true,
		"audio/mp3":        true,
		"audio/wav":        true,
		"audio/x-wav":      true,
		"audio/mp4":        true,
		"audio/x-m4a":      true,
	}
	if !validTypes[contentType] {
		return response.ValidationError(c, "Invalid file type. Supported: MP4, MOV, MKV, WEBM, AVI, MP3, WAV, M4A", map[string]interface{}{
			"contentType": contentType,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	result, err := h.service.Ingest(c.Context(), file.Filename, contentType, f)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, result)
}
