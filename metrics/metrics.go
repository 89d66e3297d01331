// Package metrics provides Prometheus metrics for the visualization
// toolkit.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// BackendRequests counts dashboard API calls by endpoint and outcome.
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookviz_backend_requests_total",
		Help: "Backend API requests",
	}, []string{"endpoint", "outcome"})

	// BackendLatency observes dashboard API call durations.
	BackendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookviz_backend_latency_seconds",
		Help:    "Backend API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// StaleResponsesDropped counts page responses discarded because the
	// query changed while they were in flight.
	StaleResponsesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookviz_stale_responses_dropped_total",
		Help: "Replay page responses discarded as stale",
	})

	// PagesLoaded counts replay pages applied to player state.
	PagesLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookviz_replay_pages_loaded_total",
		Help: "Replay pages loaded",
	})

	// FramesAdvanced counts cursor advances (timer and manual).
	FramesAdvanced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookviz_replay_frames_advanced_total",
		Help: "Replay frames advanced",
	})

	// PaintsTotal counts heatmap repaints.
	PaintsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookviz_heatmap_paints_total",
		Help: "Heatmap repaints executed",
	})

	// PaintDuration observes full repaint durations.
	PaintDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bookviz_heatmap_paint_seconds",
		Help:    "Heatmap repaint duration",
		Buckets: prometheus.DefBuckets,
	})

	// StreamReconnects counts live depth stream reconnect attempts.
	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookviz_stream_reconnects_total",
		Help: "Live stream reconnects",
	})
)

// ObserveBackendRequest records one API call.
func ObserveBackendRequest(endpoint string, err error, seconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	BackendRequests.WithLabelValues(endpoint, outcome).Inc()
	BackendLatency.WithLabelValues(endpoint).Observe(seconds)
}

// ObservePaint records one heatmap repaint.
func ObservePaint(seconds float64) {
	PaintsTotal.Inc()
	PaintDuration.Observe(seconds)
}

// StartMetricsServer exposes /metrics on addr.
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
