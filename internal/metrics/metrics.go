// Package metrics exposes Prometheus instruments for the turn pipeline.
// A single Registry-backed Metrics value is wired through the runtime so
// tests can assert on counters without touching global state.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	TurnsTotal     *prometheus.CounterVec
	TurnDuration   *prometheus.HistogramVec
	StageDuration  *prometheus.HistogramVec
	DecisionSource *prometheus.CounterVec
	LLMFallbacks   prometheus.Counter
	BreakerState   *prometheus.CounterVec
	Bailouts       *prometheus.CounterVec
	ClarifierUsed  *prometheus.CounterVec
	TracesDropped  prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		TurnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "turns_total",
			Help: "Processed turns by final action.",
		}, []string{"action"}),
		TurnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "turn_duration_seconds",
			Help:    "End-to-end turn processing latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "turn_stage_duration_seconds",
			Help:    "Per-stage latency inside turn processing.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"stage"}),
		DecisionSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "decisions_total",
			Help: "Decisions by source (quick_rule, card_match, llm, fallback).",
		}, []string{"source"}),
		LLMFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "llm_fallbacks_total",
			Help: "Turns answered by the rule fallback because the model was unavailable.",
		}),
		BreakerState: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_breaker_transitions_total",
			Help: "Circuit breaker state transitions.",
		}, []string{"to"}),
		Bailouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bailouts_total",
			Help: "Fallback-ladder bailouts by kind (soft, hard, final_gate).",
		}, []string{"kind"}),
		ClarifierUsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clarifier_total",
			Help: "Clarifier invocations by source (llm, rule).",
		}, []string{"source"}),
		TracesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "traces_dropped_total",
			Help: "Trace records dropped due to a full write buffer.",
		}),
	}
	reg.MustRegister(
		m.TurnsTotal, m.TurnDuration, m.StageDuration, m.DecisionSource,
		m.LLMFallbacks, m.BreakerState, m.Bailouts, m.ClarifierUsed,
		m.TracesDropped,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records one stage's wall time.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
