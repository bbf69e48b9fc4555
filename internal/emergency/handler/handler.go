package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"cityconnect/internal/emergency/models"
	dErrors "cityconnect/pkg/domain-errors"
	"cityconnect/pkg/platform/httputil"
	"cityconnect/pkg/requestcontext"
)

const maxSOSFieldLength = 500

// Service defines the emergency operations exposed over HTTP.
type Service interface {
	RaiseSOS(ctx context.Context, draft models.SOSDraft) (*models.SOSRequest, error)
	Contacts(ctx context.Context) ([]models.Contact, error)
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

// Register mounts emergency endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/emergency", func(r chi.Router) {
		r.Post("/sos", h.HandleSOS)
		r.Get("/contacts", h.HandleContacts)
	})
}

// SOSRequest is the body of POST /emergency/sos. Every field is optional.
type SOSRequest struct {
	Location      string `json:"location,omitempty"`
	EmergencyType string `json:"emergency_type,omitempty"`
	Message       string `json:"message,omitempty"`
}

func (r *SOSRequest) Normalize() {
	r.Location = strings.TrimSpace(r.Location)
	r.EmergencyType = strings.TrimSpace(r.EmergencyType)
	r.Message = strings.TrimSpace(r.Message)
}

// Validate implements httputil.Validatable.
func (r *SOSRequest) Validate() error {
	if len(r.Location) > maxSOSFieldLength || len(r.EmergencyType) > maxSOSFieldLength || len(r.Message) > maxSOSFieldLength {
		return dErrors.New(dErrors.CodeValidation, "sos fields must be at most 500 characters")
	}
	return nil
}

// ContactsResponse is the body of GET /emergency/contacts.
type ContactsResponse struct {
	Contacts []models.Contact `json:"contacts"`
}

func (h *Handler) HandleSOS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req := &SOSRequest{}
	if r.ContentLength != 0 {
		var ok bool
		req, ok = httputil.DecodeAndPrepare[SOSRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
	}
	sos, err := h.service.RaiseSOS(ctx, models.SOSDraft{
		Location:      req.Location,
		EmergencyType: req.EmergencyType,
		Message:       req.Message,
	})
	if err != nil {
		h.writeError(ctx, w, "failed to raise sos", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, sos)
}

func (h *Handler) HandleContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	list, err := h.service.Contacts(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to list emergency contacts", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ContactsResponse{Contacts: list})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
