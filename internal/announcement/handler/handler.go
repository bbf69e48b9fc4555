package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cityconnect/internal/announcement/models"
	"cityconnect/internal/announcement/service"
	"cityconnect/pkg/domain"
	"cityconnect/pkg/platform/httputil"
	"cityconnect/pkg/requestcontext"
)

// Service defines the announcement operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, draft models.Draft) (*models.Announcement, error)
	List(ctx context.Context, q service.ListQuery) ([]*models.Announcement, error)
	Get(ctx context.Context, id string) (*models.Announcement, error)
	Update(ctx context.Context, id string, patch models.Patch) (*models.Announcement, error)
	Deactivate(ctx context.Context, id string) (*models.Announcement, error)
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

// Register mounts announcement endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/announcements", func(r chi.Router) {
		r.Post("/", h.HandleCreate)
		r.Get("/", h.HandleList)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}", h.HandleUpdate)
		r.Post("/{id}/deactivate", h.HandleDeactivate)
		r.Delete("/{id}", h.HandleDelete)
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateAnnouncementRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.Create(ctx, req.ToDraft())
	if err != nil {
		h.writeError(ctx, w, "failed to create announcement", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var q service.ListQuery
	if v := r.URL.Query().Get("category"); v != "" {
		category, err := models.ParseCategory(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		q.Category = &category
	}
	list, err := h.service.List(ctx, q)
	if err != nil {
		h.writeError(ctx, w, "failed to list announcements", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Announcements: list, Total: len(list)})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	a, err := h.service.Get(ctx, id)
	if err != nil {
		h.writeError(ctx, w, "failed to get announcement", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateAnnouncementRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.Update(ctx, id, req.ToPatch())
	if err != nil {
		h.writeError(ctx, w, "failed to update announcement", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	a, err := h.service.Deactivate(ctx, id)
	if err != nil {
		h.writeError(ctx, w, "failed to deactivate announcement", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, id); err != nil {
		h.writeError(ctx, w, "failed to delete announcement", err)
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
