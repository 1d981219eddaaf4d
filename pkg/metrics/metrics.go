package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tracks outbound requests through the safe HTTP client, by host and outcome kind.
	HTTPOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbound_http_outcomes_total",
			Help: "Total outbound HTTP requests by host and outcome kind.",
		},
		[]string{"host", "kind"},
	)

	// Measures duration of outbound HTTP requests.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trustbound_http_request_duration_seconds",
			Help:    "Duration of outbound HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"host"},
	)

	DecodeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbound_decode_failures_total",
			Help: "Untrusted payload decode failures by kind.",
		},
		[]string{"kind"},
	)

	CredentialSourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbound_credential_source_failures_total",
			Help: "Credential source fetch failures by secret name.",
		},
		[]string{"secret"},
	)

	AuditPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trustbound_audit_publish_errors_total",
			Help: "Number of audit event publish failures.",
		},
		[]string{"subject"},
	)
)

// IncHTTPOutcome records one completed request against the outcome counter.
func IncHTTPOutcome(host, kind string) {
	HTTPOutcomesTotal.WithLabelValues(host, kind).Inc()
}

// ObserveHTTPDuration records the elapsed time of one request.
func ObserveHTTPDuration(host string, start time.Time) {
	HTTPRequestDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
}

func IncDecodeFailure(kind string) {
	DecodeFailuresTotal.WithLabelValues(kind).Inc()
}

func IncCredentialSourceFailure(secret string) {
	CredentialSourceFailures.WithLabelValues(secret).Inc()
}

func IncAuditPublishError(subject string) {
	AuditPublishErrors.WithLabelValues(subject).Inc()
}

// StartServer exposes /metrics on addr. Opt-in; the library itself never listens.
func StartServer(addr string) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		http.ListenAndServe(addr, nil) //nolint:errcheck
	}()
}
