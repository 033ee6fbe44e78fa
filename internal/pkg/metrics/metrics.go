package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Account metrics
	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_auth_events_total",
			Help: "Credential and session lifecycle events by outcome",
		},
		[]string{"event", "result"},
	)

	MediaUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "account_media_uploads_total",
			Help: "Media host uploads by driver and outcome",
		},
		[]string{"driver", "result"},
	)
)

// RecordHTTP records HTTP request metrics
func RecordHTTP(method, path string, statusCode int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAuth counts one lifecycle event: register, login, refresh, logout,
// password_change.
func RecordAuth(event string, err error) {
	AuthEventsTotal.WithLabelValues(event, result(err)).Inc()
}

func RecordUpload(driver string, err error) {
	MediaUploadsTotal.WithLabelValues(driver, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
