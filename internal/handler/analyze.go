package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"

	"github.com/kdduha/property-inspector/backend/internal/apperror"
	"github.com/kdduha/property-inspector/backend/internal/imageproc"
	"github.com/kdduha/property-inspector/backend/internal/models"
)

const healthMessage = "Backend is working!"

type analyzeService interface {
	Analyze(ctx context.Context, inputs []imageproc.Input) (*models.AnalyzeResponse, error)
	AnalyzeStream(ctx context.Context, inputs []imageproc.Input) (<-chan models.StreamChunk, error)
}

type AnalyzeHandler struct {
	service      analyzeService
	logger       *logrus.Logger
	maxBodyBytes int64
}

func NewAnalyzeHandler(service analyzeService, logger *logrus.Logger, maxBodyBytes int64) *AnalyzeHandler {
	return &AnalyzeHandler{
		service:      service,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// Analyze godoc
// @Summary Analyze construction or property images
// @Description Accepts either an image_url form field or one or more image files. Uploads are resized and re-encoded as JPEG before analysis.
// @Tags analyze
// @Accept multipart/form-data
// @Produce json
// @Param image_url formData string false "Public image URL, forwarded as-is"
// @Param image formData file false "Image file (png, jpg, jpeg, gif, webp), may be repeated"
// @Success 200 {object} models.AnalyzeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /analyze [post]
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	inputs, err := h.resolve(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.service.Analyze(r.Context(), inputs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// AnalyzeStream godoc
// @Summary Stream an image analysis
// @Description Same input as /analyze; the result is streamed as server-sent events.
// @Tags analyze
// @Accept multipart/form-data
// @Produce text/event-stream
// @Param image_url formData string false "Public image URL, forwarded as-is"
// @Param image formData file false "Image file (png, jpg, jpeg, gif, webp), may be repeated"
// @Success 200 {object} models.StreamChunk "Stream of text deltas (SSE)"
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /analyze/stream [post]
func (h *AnalyzeHandler) AnalyzeStream(w http.ResponseWriter, r *http.Request) {
	inputs, err := h.resolve(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	stream, err := h.service.AnalyzeStream(r.Context(), inputs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher := http.NewResponseController(w)

	for chunk := range stream {
		if chunk.Err != nil {
			h.logger.WithError(chunk.Err).Error("analysis stream failed")
			data, _ := sonic.Marshal(models.ErrorResponse{Error: apperror.PublicMessage(chunk.Err)})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
			_ = flusher.Flush()
			return
		}

		if chunk.Delta != "" {
			data, err := sonic.Marshal(chunk)
			if err != nil {
				fmt.Fprintf(w, "event: error\ndata: marshal error %v\n\n", err)
				_ = flusher.Flush()
				return
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			_ = flusher.Flush()
		}

		if chunk.Done {
			fmt.Fprintf(w, "event: done\ndata: {}\n\n")
			_ = flusher.Flush()
			return
		}
	}
}

// Test godoc
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /test [get]
func (h *AnalyzeHandler) Test(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, models.HealthResponse{Message: healthMessage})
}

func (h *AnalyzeHandler) resolve(w http.ResponseWriter, r *http.Request) ([]imageproc.Input, error) {
	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	return imageproc.ResolveRequest(r)
}

func (h *AnalyzeHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperror.StatusCode(err)
	entry := h.logger.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"kind":   apperror.KindOf(err),
		"status": status,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}

	h.writeJSON(w, status, models.ErrorResponse{Error: apperror.PublicMessage(err)})
}

func (h *AnalyzeHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Error("failed to encode response")
	}
}
