package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cityconnect/internal/job/models"
	"cityconnect/internal/job/service"
	"cityconnect/pkg/domain"
	"cityconnect/pkg/platform/httputil"
	"cityconnect/pkg/requestcontext"
)

// Service defines the job posting operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, draft models.Draft) (*models.Job, error)
	List(ctx context.Context, q service.ListQuery) ([]*models.Job, error)
	Get(ctx context.Context, id string) (*models.Job, error)
	Update(ctx context.Context, id string, patch models.Patch) (*models.Job, error)
	Delete(ctx context.Context, id string) error
}

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

// Register mounts job endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}", h.HandleUpdate)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateJobRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	j, err := h.service.Create(ctx, req.ToDraft())
	if err != nil {
		h.writeError(ctx, w, "failed to create job", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, j)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	list, err := h.service.List(ctx, service.ListQuery{
		Department: query.Get("department"),
		Location:   query.Get("location"),
	})
	if err != nil {
		h.writeError(ctx, w, "failed to list jobs", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Jobs: list, Total: len(list)})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	j, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeError(ctx, w, "failed to get job", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, j)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateJobRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	j, err := h.service.Update(ctx, id, req.ToPatch())
	if err != nil {
		h.writeError(ctx, w, "failed to update job", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, j)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, id); err != nil {
		h.writeError(ctx, w, "failed to delete job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := domain.ParseResourceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return id, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
