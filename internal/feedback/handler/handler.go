package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"cityconnect/internal/feedback/models"
	dErrors "cityconnect/pkg/domain-errors"
	"cityconnect/pkg/platform/httputil"
	"cityconnect/pkg/requestcontext"
)

type Service interface {
	Submit(ctx context.Context, draft models.Draft) (*models.Feedback, error)
	List(ctx context.Context) ([]*models.Feedback, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/feedback", h.HandleSubmit)
	r.Get("/feedback", h.HandleList)
}

// SubmitFeedbackRequest is the body of POST /feedback.
type SubmitFeedbackRequest struct {
	Rating     int    `json:"rating"`
	Suggestion string `json:"suggestion"`
}

func (r *SubmitFeedbackRequest) Normalize() {
	r.Suggestion = strings.TrimSpace(r.Suggestion)
}

func (r *SubmitFeedbackRequest) Validate() error {
	if r.Rating < models.MinRating || r.Rating > models.MaxRating {
		return dErrors.New(dErrors.CodeValidation, "rating must be between 1 and 5")
	}
	if r.Suggestion == "" {
		return dErrors.New(dErrors.CodeValidation, "suggestion is required")
	}
	return nil
}

// ListResponse is the body of GET /feedback.
type ListResponse struct {
	Feedback []*models.Feedback `json:"feedback"`
	Total    int                `json:"total"`
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitFeedbackRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	fb, err := h.service.Submit(ctx, models.Draft{Rating: req.Rating, Suggestion: req.Suggestion})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to submit feedback", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, fb)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.service.List(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to list feedback", "request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Feedback: list, Total: len(list)})
}
