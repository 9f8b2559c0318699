package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private Prometheus registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	inFlight         prometheus.Gauge
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	errorsTotal      *prometheus.CounterVec
	reportsSubmitted *prometheus.CounterVec
	evidenceStored   prometheus.Counter
	evidenceSkipped  *prometheus.CounterVec
	caseTransitions  *prometheus.CounterVec
}

// NewMetrics registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Error responses by domain error code.",
		}, []string{"method", "route", "code"}),
		reportsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reports_submitted_total",
			Help: "Reports created, by submission mode.",
		}, []string{"mode"}),
		evidenceStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evidence_stored_total",
			Help: "Evidence files persisted.",
		}),
		evidenceSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evidence_skipped_total",
			Help: "Evidence files rejected, by reason.",
		}, []string{"reason"}),
		caseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "case_transitions_total",
			Help: "Case status transitions, by target status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.inFlight,
		m.requestsTotal,
		m.requestDuration,
		m.errorsTotal,
		m.reportsSubmitted,
		m.evidenceStored,
		m.evidenceSkipped,
		m.caseTransitions,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RequestStarted tracks in-flight requests; call the returned func when done.
func (m *Metrics) RequestStarted() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(method, route, code).Inc()
	m.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(method, route, code).Inc()
}

// ReportSubmitted counts a new report.
func (m *Metrics) ReportSubmitted(anonymous bool) {
	if m == nil {
		return
	}
	mode := "authenticated"
	if anonymous {
		mode = "anonymous"
	}
	m.reportsSubmitted.WithLabelValues(mode).Inc()
}

// EvidenceStored counts persisted files.
func (m *Metrics) EvidenceStored(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evidenceStored.Add(float64(n))
}

// EvidenceSkipped counts a rejected file.
func (m *Metrics) EvidenceSkipped(reason string) {
	if m == nil {
		return
	}
	m.evidenceSkipped.WithLabelValues(reason).Inc()
}

// CaseTransition counts a case reaching status.
func (m *Metrics) CaseTransition(status string) {
	if m == nil {
		return
	}
	m.caseTransitions.WithLabelValues(status).Inc()
}
