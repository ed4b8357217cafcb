package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wolfman30/payflow/internal/subscriptions"
	"github.com/wolfman30/payflow/pkg/logging"
)

// SubscriptionsHandler handles HTTP requests for subscriptions.
type SubscriptionsHandler struct {
	service *subscriptions.Service
	logger  *logging.Logger
}

// NewSubscriptionsHandler creates a subscriptions handler.
func NewSubscriptionsHandler(service *subscriptions.Service, logger *logging.Logger) *SubscriptionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SubscriptionsHandler{
		service: service,
		logger:  logger,
	}
}

type createSubscriptionRequest struct {
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	CustomerID string `json:"customer_id"`
	Interval   string `json:"interval"`
	FirstDue   string `json:"first_due,omitempty"` // RFC3339; defaults to one interval from now
}

// CreateSubscription handles POST /subscriptions.
func (h *SubscriptionsHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		http.Error(w, "invalid amount", http.StatusBadRequest)
		return
	}
	interval, err := subscriptions.ParseInterval(req.Interval)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var firstDue time.Time
	if req.FirstDue != "" {
		firstDue, err = time.Parse(time.RFC3339, req.FirstDue)
		if err != nil {
			http.Error(w, "invalid first_due format", http.StatusBadRequest)
			return
		}
	}

	sub, err := h.service.Create(r.Context(), amount, req.Currency, req.CustomerID, interval, firstDue)
	if err != nil {
		h.logger.Warn("subscription rejected", "error", err)
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	writeJSON(w, http.StatusCreated, toSubscriptionResponse(sub))
}

// GetSubscription handles GET /subscriptions/{id}.
func (h *SubscriptionsHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	h.withSubscription(w, r, h.service.Get)
}

// PauseSubscription handles POST /subscriptions/{id}/pause.
func (h *SubscriptionsHandler) PauseSubscription(w http.ResponseWriter, r *http.Request) {
	h.withSubscription(w, r, h.service.Pause)
}

// ResumeSubscription handles POST /subscriptions/{id}/resume.
func (h *SubscriptionsHandler) ResumeSubscription(w http.ResponseWriter, r *http.Request) {
	h.withSubscription(w, r, h.service.Resume)
}

// CancelSubscription handles POST /subscriptions/{id}/cancel.
func (h *SubscriptionsHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	h.withSubscription(w, r, h.service.Cancel)
}

type listSubscriptionsResponse struct {
	Subscriptions []subscriptionResponse `json:"subscriptions"`
	Count         int                    `json:"count"`
}

// ListSubscriptions handles GET /subscriptions.
func (h *SubscriptionsHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list subscriptions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := listSubscriptionsResponse{Subscriptions: make([]subscriptionResponse, 0, len(all))}
	for _, sub := range all {
		resp.Subscriptions = append(resp.Subscriptions, toSubscriptionResponse(sub))
	}
	resp.Count = len(resp.Subscriptions)
	writeJSON(w, http.StatusOK, resp)
}

func (h *SubscriptionsHandler) withSubscription(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) (*subscriptions.Subscription, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid subscription id", http.StatusBadRequest)
		return
	}

	sub, err := op(r.Context(), id)
	if err != nil {
		h.logger.Warn("subscription operation failed", "subscription_id", id, "error", err)
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	writeJSON(w, http.StatusOK, toSubscriptionResponse(sub))
}
