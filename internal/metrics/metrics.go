package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 7),
		},
		[]string{"method", "endpoint"},
	)

	// Business metrics
	agreementsSubmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agreements_submitted_total",
			Help: "Total number of agreement requests submitted",
		},
	)

	agreementsDecidedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agreements_decided_total",
			Help: "Total number of agreement decisions",
		},
		[]string{"action"},
	)

	paymentIntentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Total number of charge intents created",
		},
	)
)

// RecordHTTPRequest records metrics for one completed HTTP request
func RecordHTTPRequest(method, endpoint string, status int, duration time.Duration, responseSize int64) {
	s := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, endpoint, s).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, s).Observe(duration.Seconds())
	httpResponseSize.WithLabelValues(method, endpoint).Observe(float64(responseSize))
}

func RecordAgreementSubmitted() {
	agreementsSubmittedTotal.Inc()
}

func RecordAgreementDecided(action string) {
	agreementsDecidedTotal.WithLabelValues(action).Inc()
}

func RecordPaymentIntent() {
	paymentIntentsTotal.Inc()
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
