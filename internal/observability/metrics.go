package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage names shared by the turn loop and the latency endpoint.
const (
	StageGeneration = "generation"
	StageSynthesis  = "synthesis"
	StagePacingWait = "pacing_wait"
	StageTurnTotal  = "turn_total"
	StageReplay     = "replay"
)

// Metrics groups all Prometheus instruments used by the service. Every
// method is safe on a nil receiver so components can run unmetered.
type Metrics struct {
	registry *prometheus.Registry
	stages   *StageWindow

	ActiveRuns      prometheus.Gauge
	RunEvents       *prometheus.CounterVec
	Turns           *prometheus.CounterVec
	ProviderErrors  *prometheus.CounterVec
	StageLatency    *prometheus.HistogramVec
	PacingEstimates *prometheus.CounterVec
	WSMessages      *prometheus.CounterVec
}

// NewMetrics registers instruments on a private registry so independent
// instances never collide.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		stages:   NewStageWindow(256),
		ActiveRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Number of conversation runs in progress.",
		}),
		RunEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_events_total",
			Help:      "Run lifecycle events by type.",
		}, []string{"event"}),
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Transcript entries appended by outcome.",
		}, []string{"outcome"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Turn stage latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000},
		}, []string{"stage"}),
		PacingEstimates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pacing_estimates_total",
			Help:      "Playback duration estimates by the method that produced them.",
		}, []string{"method"}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
	}
}

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.ActiveRuns.Inc()
	m.RunEvents.WithLabelValues("started").Inc()
}

// RunEnded records the end of a run. The reason is one of "stopped",
// "failed", "closed" or "max_turns".
func (m *Metrics) RunEnded(reason string) {
	if m == nil {
		return
	}
	m.ActiveRuns.Dec()
	m.RunEvents.WithLabelValues(reason).Inc()
}

func (m *Metrics) RunEvent(event string) {
	if m == nil {
		return
	}
	m.RunEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) Turn(outcome string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ProviderError(provider, code string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, code).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageLatency.WithLabelValues(stage).Observe(float64(d) / float64(time.Millisecond))
	m.stages.Observe(stage, d)
}

func (m *Metrics) PacingEstimate(method string) {
	if m == nil {
		return
	}
	m.PacingEstimates.WithLabelValues(method).Inc()
	m.stages.ObserveIndicator("pacing_" + method)
}

func (m *Metrics) WSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// LatencySnapshot returns rolling per-stage latency statistics.
func (m *Metrics) LatencySnapshot() StageSnapshot {
	if m == nil {
		return NewStageWindow(0).Snapshot()
	}
	return m.stages.Snapshot()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
