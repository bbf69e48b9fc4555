package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cityconnect/internal/billing/models"
	"cityconnect/internal/billing/service"
	"cityconnect/pkg/domain"
	"cityconnect/pkg/platform/httputil"
	"cityconnect/pkg/requestcontext"
)

// Service defines the billing operations exposed over HTTP.
type Service interface {
	CreateBill(ctx context.Context, draft models.BillDraft) (*models.Bill, error)
	ListBills(ctx context.Context, q service.BillQuery) ([]*models.Bill, error)
	GetBill(ctx context.Context, id string) (*models.Bill, error)
	Settle(ctx context.Context, billID string) (*models.Settlement, error)
	ListPayments(ctx context.Context) ([]*models.Payment, error)
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
}

// Handler wires bill and payment endpoints to the billing service.
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

// Register mounts billing endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/bills", h.HandleCreateBill)
	r.Get("/bills", h.HandleListBills)
	r.Get("/bills/{id}", h.HandleGetBill)
	r.Post("/bills/{id}/pay", h.HandlePay)
	r.Get("/payments", h.HandleListPayments)
	r.Get("/payments/{id}", h.HandleGetPayment)
}

// HandleCreateBill handles POST /bills.
func (h *Handler) HandleCreateBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateBillRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	bill, err := h.service.CreateBill(ctx, req.ToDraft())
	if err != nil {
		h.writeError(ctx, w, "failed to create bill", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, bill)
}

// HandleListBills handles GET /bills?status=.
func (h *Handler) HandleListBills(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var q service.BillQuery
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := models.ParseBillStatus(v)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		q.Status = &status
	}
	bills, err := h.service.ListBills(ctx, q)
	if err != nil {
		h.writeError(ctx, w, "failed to list bills", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BillListResponse{Bills: bills, Total: len(bills)})
}

// HandleGetBill handles GET /bills/{id}.
func (h *Handler) HandleGetBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseResourceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	bill, err := h.service.GetBill(ctx, id)
	if err != nil {
		h.writeError(ctx, w, "failed to get bill", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, bill)
}

// HandlePay handles POST /bills/{id}/pay. The request carries no body.
func (h *Handler) HandlePay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := domain.ParseResourceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	settlement, err := h.service.Settle(ctx, id)
	if err != nil {
		h.writeError(ctx, w, "bill settlement rejected", err)
		return
	}

	h.logger.InfoContext(ctx, "bill settled",
		"request_id", requestID,
		"bill_id", settlement.Bill.ID,
		"transaction_id", settlement.Payment.TransactionID,
	)
	httputil.WriteJSON(w, http.StatusOK, settlement)
}

// HandleListPayments handles GET /payments.
func (h *Handler) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payments, err := h.service.ListPayments(ctx)
	if err != nil {
		h.writeError(ctx, w, "failed to list payments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, PaymentListResponse{Payments: payments, Total: len(payments)})
}

// HandleGetPayment handles GET /payments/{id}.
func (h *Handler) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := domain.ParseResourceID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	payment, err := h.service.GetPayment(ctx, id)
	if err != nil {
		h.writeError(ctx, w, "failed to get payment", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payment)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
