package metrics

import (
	"github.com/ghantakiran/axion-stock-sub001/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestsDuration *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Regime metrics
	fitsTotal          *prometheus.CounterVec
	fitDuration        *prometheus.HistogramVec
	emIterations       prometheus.Histogram
	classifications    *prometheus.CounterVec
	consensusAgreement prometheus.Histogram
	analysisDuration   prometheus.Histogram
	reportsArchived    *prometheus.CounterVec
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

		httpRequestsDuration: prometheus.NewHistogramVec(
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
	reg.MustRegister(r.httpRequestsDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Regime metrics
	r.fitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regime_fits_total",
			Help: "Total number of model fits by method and outcome",
		},
		[]string{"method", "status"},
	)
	r.fitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "regime_fit_duration_seconds",
			Help:    "Model fit duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"method"},
	)
	r.emIterations = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "regime_em_iterations",
			Help:    "EM iterations until convergence or cap",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		},
	)
	r.classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regime_classifications_total",
			Help: "Total number of classifications by method and regime",
		},
		[]string{"method", "regime"},
	)
	r.consensusAgreement = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "regime_consensus_agreement",
			Help:    "Fraction of methods agreeing with the consensus",
			Buckets: []float64{0.25, 0.34, 0.5, 0.67, 0.75, 1},
		},
	)
	r.analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "regime_analysis_duration_seconds",
			Help:    "Multi-method analysis duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	r.reportsArchived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "regime_reports_archived_total",
			Help: "Total number of archived analysis reports",
		},
		[]string{"status"},
	)

	reg.MustRegister(r.fitsTotal)
	reg.MustRegister(r.fitDuration)
	reg.MustRegister(r.emIterations)
	reg.MustRegister(r.classifications)
	reg.MustRegister(r.consensusAgreement)
	reg.MustRegister(r.analysisDuration)
	reg.MustRegister(r.reportsArchived)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestsDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordFit counts a fit attempt. Duration is observed for completed fits only.
func (r *Registry) RecordFit(method, status string, seconds float64) {
	r.fitsTotal.WithLabelValues(method, status).Inc()
	if status == core.FitStatusOK {
		r.fitDuration.WithLabelValues(method).Observe(seconds)
	}
}

// RecordIterations records EM iterations.
func (r *Registry) RecordIterations(method string, iterations int) {
	if method != core.MethodHMM {
		return
	}
	r.emIterations.Observe(float64(iterations))
}

// RecordClassification counts a regime classification.
func (r *Registry) RecordClassification(method string, regime core.Regime) {
	r.classifications.WithLabelValues(method, string(regime)).Inc()
}

// RecordConsensus records the agreement ratio of a consensus.
func (r *Registry) RecordConsensus(agreement float64) {
	r.consensusAgreement.Observe(agreement)
}

// RecordAnalysis records a completed multi-method analysis.
func (r *Registry) RecordAnalysis(seconds float64) {
	r.analysisDuration.Observe(seconds)
}

// RecordArchive counts an archive write.
func (r *Registry) RecordArchive(status string) {
	r.reportsArchived.WithLabelValues(status).Inc()
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
