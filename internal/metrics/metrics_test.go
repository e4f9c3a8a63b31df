package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetrics_CountersIncrement(t *testing.T) {
	m := New()

	m.TurnsTotal.WithLabelValues("continue").Inc()
	m.TurnsTotal.WithLabelValues("continue").Inc()
	m.DecisionSource.WithLabelValues("card_match").Inc()
	m.Bailouts.WithLabelValues("hard").Inc()
	m.ObserveStage("preprocess", 2*time.Millisecond)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`turns_total{action="continue"} 2`,
		`decisions_total{source="card_match"} 1`,
		`bailouts_total{kind="hard"} 1`,
		`turn_stage_duration_seconds_count{stage="preprocess"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q\n%s", want, body)
		}
	}
}

func TestMetrics_IsolatedRegistries(t *testing.T) {
	a, b := New(), New()
	a.LLMFallbacks.Inc()

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if strings.Contains(rec.Body.String(), "llm_fallbacks_total 1") {
		t.Fatalf("registries should be independent")
	}
}
