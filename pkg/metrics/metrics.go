package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Fan-out metrics
	BatchesTotal      *prometheus.CounterVec
	BatchDuration     *prometheus.HistogramVec
	BatchOutcomes     *prometheus.CounterVec
	FetchesInProgress prometheus.Gauge
	CampaignsFiltered *prometheus.CounterVec

	// External API metrics
	ExternalAPICalls    *prometheus.CounterVec
	ExternalAPIDuration *prometheus.HistogramVec
	ExternalAPIFailures *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer to
// expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		BatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_batches_total",
				Help: "Total number of insights fan-out batches",
			},
			[]string{"kind"},
		),

		BatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "insights_batch_duration_seconds",
				Help:    "Time until every request of a batch settled",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),

		BatchOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_batch_outcomes_total",
				Help: "Settled entity outcomes by state",
			},
			[]string{"kind", "state"},
		),

		FetchesInProgress: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "insights_fetches_in_progress",
				Help: "Number of entity fetches currently running",
			},
		),

		CampaignsFiltered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "insights_campaigns_filtered_total",
				Help: "Campaigns left out of campaign listings",
			},
			[]string{"reason"},
		),

		ExternalAPICalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_api_calls_total",
				Help: "Total number of external API calls",
			},
			[]string{"api", "status"},
		),

		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "external_api_duration_seconds",
				Help:    "External API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"api"},
		),

		ExternalAPIFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "external_api_failures_total",
				Help: "Total number of external API failures",
			},
			[]string{"api", "error_type"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Completed fan-out batch
func (m *Metrics) RecordBatch(kind string, duration time.Duration) {
	m.BatchesTotal.WithLabelValues(kind).Inc()
	m.BatchDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// Settled entity outcome
func (m *Metrics) RecordBatchOutcome(kind, state string) {
	m.BatchOutcomes.WithLabelValues(kind, state).Inc()
}

func (m *Metrics) RecordCampaignFiltered(reason string, count int) {
	m.CampaignsFiltered.WithLabelValues(reason).Add(float64(count))
}

// External API call metrics
func (m *Metrics) RecordExternalAPICall(api, status string, duration time.Duration) {
	m.ExternalAPICalls.WithLabelValues(api, status).Inc()
	m.ExternalAPIDuration.WithLabelValues(api).Observe(duration.Seconds())
}

// External API failure metrics
func (m *Metrics) RecordExternalAPIFailure(api, errorType string) {
	m.ExternalAPIFailures.WithLabelValues(api, errorType).Inc()
}

func (m *Metrics) IncFetchesInProgress() {
	m.FetchesInProgress.Inc()
}

func (m *Metrics) DecFetchesInProgress() {
	m.FetchesInProgress.Dec()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
