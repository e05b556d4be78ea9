// Package metrics exposes Prometheus collectors for the import and analysis pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "charge_analytics"

// Metrics groups the collectors registered on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	filesProcessed     *prometheus.CounterVec
	rowsProcessed      *prometheus.CounterVec
	processingDuration *prometheus.HistogramVec
	analyses           *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		filesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Charging exports processed, by detected format, data quality and outcome.",
		}, []string{"format", "quality", "outcome"}),
		rowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows read from exports and rows kept after cleaning.",
		}, []string{"stage"}),
		processingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent per pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Efficiency analyses run, by entry point and outcome.",
		}, []string{"source", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
	}

	reg.MustRegister(m.filesProcessed, m.rowsProcessed, m.processingDuration, m.analyses, m.httpRequests)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
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

// ObserveFile records the outcome of processing one export.
func (m *Metrics) ObserveFile(format, quality string, success bool, originalRows, processedRows int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if format == "" {
		format = "unknown"
	}
	m.filesProcessed.WithLabelValues(format, quality, outcome(success)).Inc()
	m.rowsProcessed.WithLabelValues("read").Add(float64(originalRows))
	m.rowsProcessed.WithLabelValues("kept").Add(float64(processedRows))
	m.processingDuration.WithLabelValues("process").Observe(elapsed.Seconds())
}

// ObserveAnalysis records one run of the efficiency engine.
func (m *Metrics) ObserveAnalysis(source string, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(source, outcome(success)).Inc()
	m.processingDuration.WithLabelValues("analyze").Observe(elapsed.Seconds())
}

// ObserveRequest records a served HTTP request.
func (m *Metrics) ObserveRequest(route, method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
