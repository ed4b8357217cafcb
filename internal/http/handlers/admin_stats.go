package handlers

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/wolfman30/payflow/pkg/logging"
)

// AdminStatsHandler summarizes the engine's gathered metrics for the
// admin dashboard, without scraping /metrics.
type AdminStatsHandler struct {
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

// NewAdminStatsHandler creates a stats handler over gatherer. A nil
// gatherer falls back to the default registry.
func NewAdminStatsHandler(gatherer prometheus.Gatherer, logger *logging.Logger) *AdminStatsHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminStatsHandler{
		gatherer: gatherer,
		logger:   logger,
	}
}

type adminStatsResponse struct {
	Charges          map[string]float64 `json:"charges"`
	Refunds          map[string]float64 `json:"refunds"`
	RecurringCharges map[string]float64 `json:"recurring_charges"`
	SchedulerTicks   float64            `json:"scheduler_ticks"`
}

// Stats handles GET /admin/stats.
func (h *AdminStatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	mfs, err := h.gatherer.Gather()
	if err != nil {
		h.logger.Error("metrics gather failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := adminStatsResponse{
		Charges:          map[string]float64{},
		Refunds:          map[string]float64{},
		RecurringCharges: map[string]float64{},
	}
	for _, mf := range mfs {
		if mf == nil || !strings.HasPrefix(mf.GetName(), "payflow_") {
			continue
		}
		switch mf.GetName() {
		case "payflow_payments_charges_total":
			sumByStatus(mf, resp.Charges)
		case "payflow_payments_refunds_total":
			sumByStatus(mf, resp.Refunds)
		case "payflow_scheduler_charges_total":
			sumByStatus(mf, resp.RecurringCharges)
		case "payflow_scheduler_ticks_total":
			for _, metric := range mf.Metric {
				if c := metric.GetCounter(); c != nil {
					resp.SchedulerTicks += c.GetValue()
				}
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func sumByStatus(mf *dto.MetricFamily, out map[string]float64) {
	for _, metric := range mf.Metric {
		if metric == nil {
			continue
		}
		c := metric.GetCounter()
		if c == nil {
			continue
		}
		status := "unknown"
		for _, label := range metric.Label {
			if label.GetName() == "status" {
				status = label.GetValue()
			}
		}
		out[status] += c.GetValue()
	}
}
