package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Business metrics
	strategyRuns        *prometheus.CounterVec
	strategyRunDuration *prometheus.HistogramVec
	batchesTotal        *prometheus.CounterVec
	batchDuration       prometheus.Histogram
	batchesActive       prometheus.Gauge
	testCasesTotal      *prometheus.CounterVec
	reportsArchived     *prometheus.CounterVec
	notificationsSent   *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Business metrics
	r.strategyRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risklab_strategy_runs_total",
			Help: "Total number of strategy executions",
		},
		[]string{"source", "status"},
	)
	r.strategyRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "risklab_strategy_run_duration_seconds",
			Help:    "Strategy execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)
	r.batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risklab_batches_total",
			Help: "Total number of finished test batches",
		},
		[]string{"status"},
	)
	r.batchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "risklab_batch_duration_seconds",
			Help:    "Test batch duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
	r.batchesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "risklab_batches_active",
			Help: "Number of test batches currently running",
		},
	)
	r.testCasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risklab_test_cases_total",
			Help: "Total number of executed test cases",
		},
		[]string{"status"},
	)
	r.reportsArchived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risklab_reports_archived_total",
			Help: "Total number of report archive attempts",
		},
		[]string{"status"},
	)
	r.notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "risklab_notifications_total",
			Help: "Total number of batch notifications",
		},
		[]string{"notifier", "status"},
	)

	reg.MustRegister(r.strategyRuns)
	reg.MustRegister(r.strategyRunDuration)
	reg.MustRegister(r.batchesTotal)
	reg.MustRegister(r.batchDuration)
	reg.MustRegister(r.batchesActive)
	reg.MustRegister(r.testCasesTotal)
	reg.MustRegister(r.reportsArchived)
	reg.MustRegister(r.notificationsSent)

	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{Registry: r.Registry})
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordStrategyRun records one strategy execution. source is "adhoc" for
// single runs and "batch" for batch cases.
func (r *Registry) RecordStrategyRun(source, status string, duration float64) {
	r.strategyRuns.WithLabelValues(source, status).Inc()
	r.strategyRunDuration.WithLabelValues(source).Observe(duration)
}

// RecordTestCase records a finished test case.
func (r *Registry) RecordTestCase(status string) {
	r.testCasesTotal.WithLabelValues(status).Inc()
}

// BatchStarted marks a batch as running.
func (r *Registry) BatchStarted() {
	r.batchesActive.Inc()
}

// BatchFinished records a batch reaching a terminal status.
func (r *Registry) BatchFinished(status string, duration float64) {
	r.batchesActive.Dec()
	r.batchesTotal.WithLabelValues(status).Inc()
	r.batchDuration.Observe(duration)
}

// RecordReportArchived records a report archive attempt.
func (r *Registry) RecordReportArchived(status string) {
	r.reportsArchived.WithLabelValues(status).Inc()
}

// RecordNotification records a notifier delivery attempt.
func (r *Registry) RecordNotification(notifier, status string) {
	r.notificationsSent.WithLabelValues(notifier, status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
