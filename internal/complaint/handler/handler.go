package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cityconnect/internal/complaint/models"
	"cityconnect/internal/complaint/service"
	"cityconnect/pkg/domain"
	"cityconnect/pkg/platform/httputil"
	"cityconnect/pkg/requestcontext"
)

// Service defines the complaint operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, draft models.Draft) (*models.Complaint, error)
	List(ctx context.Context, q service.ListQuery) ([]*models.Complaint, error)
	Get(ctx context.Context, id string) (*models.Complaint, error)
	Update(ctx context.Context, id string, patch models.Patch) (*models.Complaint, error)
}

// Handler wires complaint endpoints to the complaint service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts complaint endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/complaints", h.HandleCreate)
	r.Get("/complaints", h.HandleList)
	r.Get("/complaints/{id}", h.HandleGet)
	r.Patch("/complaints/{id}", h.HandleUpdate)
}

// HandleCreate handles POST /complaints.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateComplaintRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	complaint, err := h.service.Create(ctx, req.ToDraft())
	if err != nil {
		h.writeError(ctx, w, "failed to create complaint", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, complaint)
}

// HandleList handles GET /complaints?status=&category=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := parseListQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	complaints, err := h.service.List(ctx, q)
	if err != nil {
		h.writeError(ctx, w, "failed to list complaints", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Complaints: complaints, Total: len(complaints)})
}

// HandleGet handles GET /complaints/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseResourceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	complaint, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeError(ctx, w, "failed to get complaint", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, complaint)
}

// HandleUpdate handles PATCH /complaints/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseResourceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateComplaintRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	complaint, err := h.service.Update(ctx, id, req.ToPatch())
	if err != nil {
		h.writeError(ctx, w, "failed to update complaint", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, complaint)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
