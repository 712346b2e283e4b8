package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Trigger("addressed")
	m.Trigger("addressed")
	m.Trigger("rate_limited")
	m.Completion("reply", "ok")
	m.Completion("impression", "timeout")
	m.Reply("reply", true)
	m.Reply("apology", false)
	m.ImpressionUpdate("updated")
	m.ImpressionDropped()

	if got := testutil.ToFloat64(m.triggers.WithLabelValues("addressed")); got != 2 {
		t.Errorf("addressed triggers: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.completions.WithLabelValues("impression", "timeout")); got != 1 {
		t.Errorf("impression timeouts: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.replies.WithLabelValues("apology", "failed")); got != 1 {
		t.Errorf("failed apologies: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.queueDrops); got != 1 {
		t.Errorf("drops: got %v, want 1", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Trigger("x")
	m.Completion("reply", "ok")
	m.Reply("reply", true)
	m.ImpressionUpdate("updated")
	m.ImpressionDropped()
	if m.Registry() != nil {
		t.Error("nil metrics should have no registry")
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.Trigger("idle_chatter")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `hanashi_trigger_decisions_total{reason="idle_chatter"} 1`) {
		t.Errorf("metrics output missing trigger counter:\n%s", body)
	}
}
