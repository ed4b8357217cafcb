package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics exposes counters/histograms for the payment engine.
type PaymentMetrics struct {
	chargesTotal     *prometheus.CounterVec
	refundsTotal     *prometheus.CounterVec
	chargeLatency    prometheus.Histogram
	schedulerTicks   prometheus.Counter
	schedulerCharges *prometheus.CounterVec
	dueSubscriptions prometheus.Gauge
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	m := &PaymentMetrics{
		chargesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payflow",
			Subsystem: "payments",
			Name:      "charges_total",
			Help:      "Total charge attempts by outcome status",
		}, []string{"status"}),
		refundsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payflow",
			Subsystem: "payments",
			Name:      "refunds_total",
			Help:      "Total refund attempts by outcome status",
		}, []string{"status"}),
		chargeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "payflow",
			Subsystem: "payments",
			Name:      "charge_latency_seconds",
			Help:      "Latency of gateway charge execution",
			Buckets:   prometheus.DefBuckets,
		}),
		schedulerTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "payflow",
			Subsystem: "scheduler",
			Name:      "ticks_total",
			Help:      "Total recurring payment scheduler ticks",
		}),
		schedulerCharges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "payflow",
			Subsystem: "scheduler",
			Name:      "charges_total",
			Help:      "Total recurring charges by outcome status",
		}, []string{"status"}),
		dueSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "payflow",
			Subsystem: "scheduler",
			Name:      "subscriptions_due",
			Help:      "Number of due subscriptions seen by the last tick",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.chargesTotal,
		m.refundsTotal,
		m.chargeLatency,
		m.schedulerTicks,
		m.schedulerCharges,
		m.dueSubscriptions,
	)
	return m
}

func (m *PaymentMetrics) ObserveCharge(status string, seconds float64) {
	if m == nil {
		return
	}
	m.chargesTotal.WithLabelValues(status).Inc()
	m.chargeLatency.Observe(seconds)
}

func (m *PaymentMetrics) ObserveRefund(status string) {
	if m == nil {
		return
	}
	m.refundsTotal.WithLabelValues(status).Inc()
}

func (m *PaymentMetrics) ObserveTick(due int) {
	if m == nil {
		return
	}
	m.schedulerTicks.Inc()
	m.dueSubscriptions.Set(float64(due))
}

func (m *PaymentMetrics) ObserveRecurringCharge(status string) {
	if m == nil {
		return
	}
	m.schedulerCharges.WithLabelValues(status).Inc()
}
