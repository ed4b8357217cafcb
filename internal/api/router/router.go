// Package router assembles the HTTP surface of the payment engine.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/payflow/internal/http/handlers"
)

// Config holds router configuration
type Config struct {
	PaymentsHandler      *handlers.PaymentsHandler
	SubscriptionsHandler *handlers.SubscriptionsHandler
	RecurringHandler     *handlers.RecurringHandler
	AdminStats           *handlers.AdminStatsHandler
	MetricsHandler       http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.PaymentsHandler != nil {
		r.Route("/payments", func(r chi.Router) {
			r.Post("/", cfg.PaymentsHandler.ProcessPayment)
			r.Get("/", cfg.PaymentsHandler.ListPayments)
			r.Get("/{id}", cfg.PaymentsHandler.GetPayment)
			r.Post("/{id}/refund", cfg.PaymentsHandler.RefundPayment)
		})
	}

	if cfg.SubscriptionsHandler != nil {
		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", cfg.SubscriptionsHandler.CreateSubscription)
			r.Get("/", cfg.SubscriptionsHandler.ListSubscriptions)
			r.Get("/{id}", cfg.SubscriptionsHandler.GetSubscription)
			r.Post("/{id}/pause", cfg.SubscriptionsHandler.PauseSubscription)
			r.Post("/{id}/resume", cfg.SubscriptionsHandler.ResumeSubscription)
			r.Post("/{id}/cancel", cfg.SubscriptionsHandler.CancelSubscription)
		})
	}

	if cfg.RecurringHandler != nil {
		r.Post("/recurring/process", cfg.RecurringHandler.ProcessRecurring)
	}

	if cfg.AdminStats != nil {
		r.Get("/admin/stats", cfg.AdminStats.Stats)
	}

	return r
}
