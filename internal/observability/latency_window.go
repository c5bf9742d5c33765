package observability

import (
	"sort"
	"sync"
	"time"
)

// Chat pipeline stages tracked by the latency window.
const (
	StageGatewaySend = "gateway_send"
	StageSubmitTotal = "submit_total"
)

// defaultStageTargets are the p95 budgets reported next to each stage.
var defaultStageTargets = map[string]time.Duration{
	StageGatewaySend: 8 * time.Second,
	StageSubmitTotal: 9 * time.Second,
}

// StageStats summarizes one stage over the samples currently in the window.
type StageStats struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	MeanMS      float64 `json:"mean_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	MaxMS       float64 `json:"max_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
	OverTarget  int     `json:"over_target,omitempty"`
	Breaching   bool    `json:"breaching"`
}

type LatencySnapshot struct {
	GeneratedAt time.Time    `json:"generated_at"`
	WindowSize  int          `json:"window_size"`
	Stages      []StageStats `json:"stages"`
}

// latencyWindow holds the most recent size samples of every stage, oldest first.
type latencyWindow struct {
	mu      sync.Mutex
	size    int
	targets map[string]time.Duration
	samples map[string][]time.Duration
}

func newLatencyWindow(size int, targets map[string]time.Duration) *latencyWindow {
	if size <= 0 {
		size = 256
	}
	return &latencyWindow{
		size:    size,
		targets: targets,
		samples: make(map[string][]time.Duration),
	}
}

func (w *latencyWindow) Observe(stage string, d time.Duration) {
	if w == nil || stage == "" || d < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	s := append(w.samples[stage], d)
	if len(s) > w.size {
		s = append(s[:0], s[len(s)-w.size:]...)
	}
	w.samples[stage] = s
}

func (w *latencyWindow) Snapshot() LatencySnapshot {
	if w == nil {
		return LatencySnapshot{}
	}
	w.mu.Lock()
	stages := make([]StageStats, 0, len(w.samples))
	for stage, s := range w.samples {
		if len(s) > 0 {
			stages = append(stages, summarize(stage, s, w.targets[stage]))
		}
	}
	w.mu.Unlock()

	sort.Slice(stages, func(i, j int) bool { return stages[i].Stage < stages[j].Stage })
	return LatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.size,
		Stages:      stages,
	}
}

func (w *latencyWindow) Reset() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = make(map[string][]time.Duration)
}

// summarize copies s before sorting; s stays in arrival order.
func summarize(stage string, s []time.Duration, target time.Duration) StageStats {
	sorted := append([]time.Duration(nil), s...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	over := 0
	for _, d := range sorted {
		total += d
		if target > 0 && d > target {
			over++
		}
	}
	p95 := nearestRank(sorted, 95)
	return StageStats{
		Stage:       stage,
		Samples:     len(sorted),
		LastMS:      ms(s[len(s)-1]),
		MeanMS:      ms(total / time.Duration(len(sorted))),
		P50MS:       ms(nearestRank(sorted, 50)),
		P95MS:       ms(p95),
		MaxMS:       ms(sorted[len(sorted)-1]),
		TargetP95MS: ms(target),
		OverTarget:  over,
		Breaching:   target > 0 && p95 > target,
	}
}

// nearestRank returns the smallest sample with at least pct percent of the
// samples at or below it.
func nearestRank(sorted []time.Duration, pct int) time.Duration {
	rank := (pct*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
