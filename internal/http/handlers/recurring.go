package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wolfman30/payflow/internal/scheduler"
	"github.com/wolfman30/payflow/pkg/logging"
)

// RecurringHandler exposes a manual scheduler tick for the API's
// process-recurring action.
type RecurringHandler struct {
	scheduler *scheduler.Scheduler
	logger    *logging.Logger
	nowFn     func() time.Time
}

// NewRecurringHandler creates a recurring-scan handler.
func NewRecurringHandler(sched *scheduler.Scheduler, logger *logging.Logger) *RecurringHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecurringHandler{
		scheduler: sched,
		logger:    logger,
		nowFn:     time.Now,
	}
}

// WithClock injects the time source.
func (h *RecurringHandler) WithClock(now func() time.Time) *RecurringHandler {
	h.nowFn = now
	return h
}

type processRecurringRequest struct {
	Now string `json:"now,omitempty"` // RFC3339; defaults to the server clock
}

type processRecurringResponse struct {
	Payments []paymentResponse `json:"payments"`
	Errors   []string          `json:"errors"`
}

// ProcessRecurring handles POST /recurring/process. It runs one
// due-scan and reports every produced payment and every isolated
// per-subscription error.
func (h *RecurringHandler) ProcessRecurring(w http.ResponseWriter, r *http.Request) {
	now := h.nowFn()
	if r.Body != nil {
		var req processRecurringRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Now != "" {
			parsed, err := time.Parse(time.RFC3339, req.Now)
			if err != nil {
				http.Error(w, "invalid now format", http.StatusBadRequest)
				return
			}
			now = parsed
		}
	}

	processed, errs := h.scheduler.RunOnce(r.Context(), now)

	resp := processRecurringResponse{
		Payments: make([]paymentResponse, 0, len(processed)),
		Errors:   make([]string, 0, len(errs)),
	}
	for _, p := range processed {
		resp.Payments = append(resp.Payments, toPaymentResponse(p, nil))
	}
	for _, err := range errs {
		resp.Errors = append(resp.Errors, err.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}
