package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Poll endpoint metrics
	PollRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setpoll_requests_total",
			Help: "Total number of poll requests by outcome",
		},
		[]string{"outcome"},
	)

	PollRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "setpoll_request_duration_seconds",
			Help:    "Duration of poll requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AuthFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "setpoll_auth_failures_total",
			Help: "Total number of failed client authentications",
		},
	)

	RenderedEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "setpoll_rendered_events_total",
			Help: "Total number of event tokens delivered in live bundles",
		},
	)

	// Digest cache metrics
	DigestCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "setpoll_digest_cache_hits_total",
			Help: "Total number of credential digest cache hits",
		},
	)

	DigestCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "setpoll_digest_cache_misses_total",
			Help: "Total number of credential digest cache misses (full recompute)",
		},
	)

	// Archive streaming metrics
	StreamedBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "setpoll_streamed_bytes_total",
			Help: "Total bytes streamed from archived bundles",
		},
	)

	StreamChunksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "setpoll_stream_chunks_total",
			Help: "Total number of range-fetched chunks streamed",
		},
	)
)

// Outcome label values for PollRequestsTotal.
const (
	OutcomeServed        = "served"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeUnprocessable = "unprocessable"
	OutcomeNotFound      = "not_found"
	OutcomeError         = "error"
)
