package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/payflow/internal/payments"
	"github.com/wolfman30/payflow/pkg/logging"
)

// PaymentsHandler handles HTTP requests for one-off charges and refunds.
type PaymentsHandler struct {
	service *payments.Service
	logger  *logging.Logger
}

// NewPaymentsHandler creates a payments handler.
func NewPaymentsHandler(service *payments.Service, logger *logging.Logger) *PaymentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &PaymentsHandler{
		service: service,
		logger:  logger,
	}
}

type processPaymentRequest struct {
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	CustomerID string `json:"customer_id"`
}

// ProcessPayment handles POST /payments. A gateway decline returns 402
// with the failed payment in the body; the failure is recorded, not
// hidden.
func (h *PaymentsHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req processPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}

	p, execErr := h.service.ExecuteProcessPayment(r.Context(), amount, req.Currency, req.CustomerID)
	if execErr != nil && p == nil {
		h.logger.Warn("payment rejected", "error", execErr)
		http.Error(w, execErr.Error(), statusForError(execErr))
		return
	}

	status := http.StatusCreated
	if execErr != nil {
		status = statusForError(execErr)
	}
	writeJSON(w, status, toPaymentResponse(p, execErr))
}

// RefundPayment handles POST /payments/{id}/refund.
func (h *PaymentsHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid payment id", http.StatusBadRequest)
		return
	}

	p, err := h.service.ExecuteRefund(r.Context(), id)
	if err != nil {
		h.logger.Warn("refund rejected", "payment_id", id, "error", err)
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(p, nil))
}

// GetPayment handles GET /payments/{id}.
func (h *PaymentsHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid payment id", http.StatusBadRequest)
		return
	}

	p, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		if !errors.Is(err, payments.ErrNotFound) {
			h.logger.Error("payment lookup failed", "payment_id", id, "error", err)
		}
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	writeJSON(w, http.StatusOK, toPaymentResponse(p, nil))
}

type listPaymentsResponse struct {
	Payments []paymentResponse `json:"payments"`
	Count    int               `json:"count"`
}

// ListPayments handles GET /payments.
func (h *PaymentsHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.ListPayments(r.Context())
	if err != nil {
		h.logger.Error("failed to list payments", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := listPaymentsResponse{Payments: make([]paymentResponse, 0, len(all))}
	for _, p := range all {
		resp.Payments = append(resp.Payments, toPaymentResponse(p, nil))
	}
	resp.Count = len(resp.Payments)
	writeJSON(w, http.StatusOK, resp)
}
