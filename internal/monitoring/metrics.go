package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the evaluation service.
type Metrics struct {
	// Evaluation metrics
	Evaluations        *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	SpecialsExtracted  prometheus.Counter

	// Bridge metrics
	BridgeInvocations *prometheus.CounterVec
	BridgeSettlements *prometheus.CounterVec
	BridgePending     prometheus.Gauge

	// Transport metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// New creates the metrics collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		startTime: time.Now(),

		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagebridge_evaluations_total",
				Help: "Total number of expression evaluations",
			},
			[]string{"status"},
		),
		EvaluationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pagebridge_evaluation_duration_seconds",
				Help:    "Expression evaluation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		SpecialsExtracted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pagebridge_specials_extracted_total",
				Help: "Total number of special values extracted from results",
			},
		),

		BridgeInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagebridge_bridge_invocations_total",
				Help: "Total number of exposed-function invocations",
			},
			[]string{"name"},
		),
		BridgeSettlements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagebridge_bridge_settlements_total",
				Help: "Total number of call settlements",
			},
			[]string{"name", "status"},
		),
		BridgePending: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagebridge_bridge_pending_calls",
				Help: "Number of outstanding exposed-function calls",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagebridge_ws_connections",
				Help: "Number of active WebSocket sessions",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagebridge_ws_messages_total",
				Help: "Total number of WebSocket messages by envelope type",
			},
			[]string{"type", "direction"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pagebridge_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
