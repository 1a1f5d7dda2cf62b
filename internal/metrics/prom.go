package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_send_total",
			Help: "Terminal send outcomes by channel and status",
		},
		[]string{"channel", "status"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by scope",
		},
		[]string{"scope"},
	)

	sendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notify_send_duration_seconds",
			Help:    "End-to-end send duration including retries",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"channel"},
	)
)

// ObserveSend feeds the Prometheus vectors for one terminal outcome.
func ObserveSend(channel, status string, duration time.Duration) {
	sendTotal.WithLabelValues(channel, status).Inc()
	sendDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// ObserveRateLimited counts one rate-limiter rejection.
func ObserveRateLimited(scope string) {
	rateLimitedTotal.WithLabelValues(scope).Inc()
}
