// Package metrics exposes the Prometheus collectors recorded by the API.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamhub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	MediaUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_media_uploads_total",
			Help: "Media uploads to the object store by kind and result",
		},
		[]string{"kind", "result"},
	)

	MediaCleanupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_media_cleanup_total",
			Help: "Media deletions by result",
		},
		[]string{"result"},
	)
)

// Result labels shared by the media counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultRetried = "retried"
	ResultSkipped = "skipped"
	ResultDropped = "dropped"
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

// RecordUpload records a media upload attempt.
func RecordUpload(kind string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	MediaUploadsTotal.WithLabelValues(kind, result).Inc()
}

// RecordCleanup records the outcome of a media deletion.
func RecordCleanup(result string) {
	MediaCleanupTotal.WithLabelValues(result).Inc()
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
