// Package metricsvc exposes the engine's counters to prometheus.
package metricsvc

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/asistencia/core"
)

const namespace = "asistencia"

type PrometheusMetrics struct {
	registry    *prometheus.Registry
	resolutions *prometheus.CounterVec
	transitions *prometheus.CounterVec
	marks       *prometheus.CounterVec
}

var _ core.Metrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers the counters on their own registry, along with the Go runtime collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Room scans resolved, by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session lifecycle transitions, by resulting status.",
		}, []string{"status"}),
		marks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_marks_total",
			Help:      "Roll-call marks, by attendance status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.resolutions,
		m.transitions,
		m.marks,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *PrometheusMetrics) ObserveResolution(outcome string) {
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) ObserveTransition(status string) {
	m.transitions.WithLabelValues(status).Inc()
}

func (m *PrometheusMetrics) ObserveMark(status string) {
	m.marks.WithLabelValues(status).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *PrometheusMetrics) Registry() *prometheus.Registry { return m.registry }
