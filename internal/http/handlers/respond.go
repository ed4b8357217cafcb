package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/payflow/internal/payments"
	"github.com/wolfman30/payflow/internal/subscriptions"
)

// paymentResponse is the wire shape of a payment record.
type paymentResponse struct {
	ID             string `json:"id"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	TransactionRef string `json:"transaction_ref,omitempty"`
	CustomerID     string `json:"customer_id"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	CreatedAt      string `json:"created_at"`
	Error          string `json:"error,omitempty"`
}

func toPaymentResponse(p *payments.Payment, execErr error) paymentResponse {
	resp := paymentResponse{
		ID:         p.ID.String(),
		Amount:     p.Amount.StringFixed(2),
		Currency:   p.Currency,
		Status:     string(p.Status),
		CustomerID: p.CustomerID,
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
	if p.TransactionRef != "" {
		resp.TransactionRef = p.TransactionRef
	}
	if p.SubscriptionID != uuid.Nil {
		resp.SubscriptionID = p.SubscriptionID.String()
	}
	if execErr != nil {
		resp.Error = execErr.Error()
	}
	return resp
}

// subscriptionResponse is the wire shape of a subscription record.
type subscriptionResponse struct {
	ID              string `json:"id"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	CustomerID      string `json:"customer_id"`
	Interval        string `json:"interval"`
	Status          string `json:"status"`
	NextPaymentDate string `json:"next_payment_date"`
	CreatedAt       string `json:"created_at"`
}

func toSubscriptionResponse(s *subscriptions.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:              s.ID.String(),
		Amount:          s.Amount.StringFixed(2),
		Currency:        s.Currency,
		CustomerID:      s.CustomerID,
		Interval:        string(s.Interval),
		Status:          string(s.Status),
		NextPaymentDate: s.NextPaymentDate.Format(time.RFC3339),
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusForError maps the engine's error taxonomy to HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, payments.ErrInvalidArgument),
		errors.Is(err, subscriptions.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, payments.ErrNotFound),
		errors.Is(err, subscriptions.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, payments.ErrGatewayDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, payments.ErrNoCommandToUndo),
		errors.Is(err, payments.ErrCommandNotSuccessful),
		errors.Is(err, payments.ErrSubscriptionNotActive),
		errors.Is(err, payments.ErrInvalidReference),
		errors.Is(err, subscriptions.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
