package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions  prometheus.Gauge
	SessionEvents   *prometheus.CounterVec
	WSMessages      *prometheus.CounterVec
	GatewayResults  *prometheus.CounterVec
	GatewayLatency  prometheus.Histogram
	ProviderErrors  *prometheus.CounterVec
	CapabilityCalls *prometheus.CounterVec

	window *latencyWindow
}

// NewMetrics registers the instruments on the default Prometheus registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the instruments on reg. Tests pass a fresh registry.
func NewMetricsWith(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active chat sessions.",
		}),
		SessionEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		GatewayResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_results_total",
			Help:      "Conversation gateway sends by outcome.",
		}, []string{"outcome"}),
		GatewayLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_latency_ms",
			Help:      "Round trip latency of forwarded gateway sends in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		}),
		ProviderErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Generation provider errors by provider and kind.",
		}, []string{"provider", "kind"}),
		CapabilityCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_calls_total",
			Help:      "Capabilities invoked by the generation collaborator.",
		}, []string{"capability"}),
		window: newLatencyWindow(256, defaultStageTargets),
	}
}

// The helpers below are nil-safe so components can run without metrics.

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func (m *Metrics) SessionEvent(event string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) WSMessage(direction, typ string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, typ).Inc()
}

func (m *Metrics) GatewayResult(outcome string) {
	if m == nil {
		return
	}
	m.GatewayResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGatewayLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.GatewayLatency.Observe(float64(d.Milliseconds()))
	m.window.Observe(StageGatewaySend, d)
}

// ObserveStage records a chat pipeline stage in the rolling latency window only.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.window.Observe(stage, d)
}

func (m *Metrics) ProviderError(provider, kind string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, kind).Inc()
}

func (m *Metrics) CapabilityCall(name string) {
	if m == nil {
		return
	}
	m.CapabilityCalls.WithLabelValues(name).Inc()
}

// LatencySnapshot summarizes the rolling latency window.
func (m *Metrics) LatencySnapshot() LatencySnapshot {
	if m == nil {
		return LatencySnapshot{}
	}
	return m.window.Snapshot()
}

func (m *Metrics) ResetLatencyWindow() {
	if m == nil {
		return
	}
	m.window.Reset()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
