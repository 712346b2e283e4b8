// Package metrics exposes Prometheus counters for the conversation engine and
// the impression worker. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hanashi"

// Metrics groups every collector Hanashi records.
type Metrics struct {
	registry *prometheus.Registry

	triggers    *prometheus.CounterVec
	completions *prometheus.CounterVec
	replies     *prometheus.CounterVec
	impressions *prometheus.CounterVec
	queueDrops  prometheus.Counter
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trigger_decisions_total",
			Help:      "Trigger policy decisions by reason.",
		}, []string{"reason"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Completion API calls by purpose and result.",
		}, []string{"purpose", "result"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Messages sent to groups by kind (reply or apology) and delivery result.",
		}, []string{"kind", "result"}),
		impressions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "impression_updates_total",
			Help:      "Per-user impression refresh outcomes.",
		}, []string{"result"}),
		queueDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "impression_jobs_dropped_total",
			Help:      "Impression jobs dropped because the worker queue was full.",
		}),
	}
	m.registry.MustRegister(
		m.triggers,
		m.completions,
		m.replies,
		m.impressions,
		m.queueDrops,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Trigger records one trigger decision by reason.
func (m *Metrics) Trigger(reason string) {
	if m == nil {
		return
	}
	m.triggers.WithLabelValues(reason).Inc()
}

// Completion records one completion call. purpose is "reply" or "impression";
// result is "ok" or a failure kind label.
func (m *Metrics) Completion(purpose, result string) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(purpose, result).Inc()
}

// Reply records one outgoing message. kind is "reply" or "apology".
func (m *Metrics) Reply(kind string, delivered bool) {
	if m == nil {
		return
	}
	result := "delivered"
	if !delivered {
		result = "failed"
	}
	m.replies.WithLabelValues(kind, result).Inc()
}

// ImpressionUpdate records the outcome of one per-user impression update.
func (m *Metrics) ImpressionUpdate(result string) {
	if m == nil {
		return
	}
	m.impressions.WithLabelValues(result).Inc()
}

// ImpressionDropped counts a job rejected by a full impression queue.
func (m *Metrics) ImpressionDropped() {
	if m == nil {
		return
	}
	m.queueDrops.Inc()
}
