package observability

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLatencyWindowSnapshot(t *testing.T) {
	w := newLatencyWindow(8, map[string]time.Duration{StageGatewaySend: 800 * time.Millisecond})
	w.Observe(StageGatewaySend, 500*time.Millisecond)
	w.Observe(StageGatewaySend, 900*time.Millisecond)
	w.Observe(StageGatewaySend, 700*time.Millisecond)
	w.Observe(StageSubmitTotal, 1200*time.Millisecond)

	snap := w.Snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 2 || snap.Stages[0].Stage != StageGatewaySend || snap.Stages[1].Stage != StageSubmitTotal {
		t.Fatalf("Stages = %+v, want gateway_send then submit_total", snap.Stages)
	}

	s := snap.Stages[0]
	if s.Samples != 3 || s.LastMS != 700 || s.MeanMS != 700 || s.P50MS != 700 || s.P95MS != 900 || s.MaxMS != 900 {
		t.Fatalf("gateway stats = %+v", s)
	}
	if s.TargetP95MS != 800 || s.OverTarget != 1 || !s.Breaching {
		t.Fatalf("gateway target stats = %+v", s)
	}

	sub := snap.Stages[1]
	if sub.TargetP95MS != 0 || sub.Breaching || sub.OverTarget != 0 {
		t.Fatalf("untargeted stage = %+v", sub)
	}
}

func TestLatencyWindowKeepsNewestAndResets(t *testing.T) {
	w := newLatencyWindow(2, nil)
	w.Observe("x", 10*time.Millisecond)
	w.Observe("x", 2*time.Millisecond)
	w.Observe("x", 3*time.Millisecond)
	w.Observe("x", -time.Millisecond)

	s := w.Snapshot().Stages[0]
	if s.Samples != 2 || s.MaxMS != 3 || s.LastMS != 3 {
		t.Fatalf("stats = %+v, want only the two newest samples", s)
	}

	w.Reset()
	if got := len(w.Snapshot().Stages); got != 0 {
		t.Fatalf("len(Stages) after reset = %d, want 0", got)
	}
}

func TestNearestRank(t *testing.T) {
	sorted := make([]time.Duration, 20)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}
	if got := nearestRank(sorted, 50); got != 10*time.Millisecond {
		t.Fatalf("p50 = %v, want 10ms", got)
	}
	if got := nearestRank(sorted, 95); got != 19*time.Millisecond {
		t.Fatalf("p95 = %v, want 19ms", got)
	}
	if got := nearestRank(sorted[:1], 95); got != time.Millisecond {
		t.Fatalf("single-sample p95 = %v, want 1ms", got)
	}
}

func TestMetricsHelpers(t *testing.T) {
	m := NewMetricsWith("test", prometheus.NewRegistry())
	m.GatewayResult("ok")
	m.GatewayResult("ok")
	m.CapabilityCall("getCurrentTime")
	m.ObserveGatewayLatency(1500 * time.Millisecond)

	if got := testutil.ToFloat64(m.GatewayResults.WithLabelValues("ok")); got != 2 {
		t.Fatalf("gateway_results_total{ok} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CapabilityCalls.WithLabelValues("getCurrentTime")); got != 1 {
		t.Fatalf("capability_calls_total = %v, want 1", got)
	}
	snap := m.LatencySnapshot()
	if len(snap.Stages) != 1 || snap.Stages[0].LastMS != 1500 || snap.Stages[0].TargetP95MS != 8000 {
		t.Fatalf("snapshot = %+v", snap)
	}

	var nilMetrics *Metrics
	nilMetrics.GatewayResult("ok")
	nilMetrics.ObserveStage(StageSubmitTotal, time.Second)
	if len(nilMetrics.LatencySnapshot().Stages) != 0 {
		t.Fatal("nil metrics should report an empty snapshot")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := newLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	log.Info().Msg("hidden")
	log.Warn().Str("component", "test").Msg("shown")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not a single JSON line: %q", buf.String())
	}
	if line["message"] != "shown" || line["component"] != "test" {
		t.Fatalf("log line = %v", line)
	}

	if _, err := newLogger(&buf, "loud", "json"); err == nil {
		t.Fatal("expected invalid level error")
	}
	if _, err := newLogger(&buf, "info", "xml"); err == nil {
		t.Fatal("expected invalid format error")
	}
}
