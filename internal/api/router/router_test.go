package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/payflow/internal/http/handlers"
	"github.com/wolfman30/payflow/internal/memory"
	"github.com/wolfman30/payflow/internal/payments"
	"github.com/wolfman30/payflow/internal/scheduler"
	"github.com/wolfman30/payflow/internal/subscriptions"
	"github.com/wolfman30/payflow/pkg/logging"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := logging.New("error")
	payStore := memory.NewPaymentStore()
	subStore := memory.NewSubscriptionStore()
	gateway := payments.NewSimulatedGateway(logger)
	paymentService := payments.NewService(gateway, payStore, logger, nil)
	subscriptionService := subscriptions.NewService(subStore, logger)
	sched := scheduler.New(subStore, payStore, gateway, scheduler.NewMemoryTracker(), logger)
	reg := prometheus.NewRegistry()

	return New(&Config{
		PaymentsHandler:      handlers.NewPaymentsHandler(paymentService, logger),
		SubscriptionsHandler: handlers.NewSubscriptionsHandler(subscriptionService, logger),
		RecurringHandler:     handlers.NewRecurringHandler(sched, logger),
		AdminStats:           handlers.NewAdminStatsHandler(reg, logger),
		MetricsHandler:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

func TestRouterRoutes(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/payments", http.StatusOK},
		{http.MethodGet, "/subscriptions", http.StatusOK},
		{http.MethodPost, "/recurring/process", http.StatusOK},
		{http.MethodGet, "/admin/stats", http.StatusOK},
		{http.MethodGet, "/unknown", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s %s = %d, want %d", tc.method, tc.path, rec.Code, tc.want)
		}
	}
}
