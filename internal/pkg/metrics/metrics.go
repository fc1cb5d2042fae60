package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ipsentry_requests_total",
		Help: "The total number of intercepted requests by decision",
	}, []string{"decision"})

	BlocklistLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ipsentry_blocklist_lookups_total",
		Help: "Blocklist lookups by source (cache or store)",
	}, []string{"source"})

	GeoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ipsentry_geo_lookups_total",
		Help: "Geolocation lookups by outcome",
	}, []string{"outcome"})

	FlagsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ipsentry_flags_total",
		Help: "Suspicious addresses flagged by the anomaly detector",
	}, []string{"heuristic"})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ipsentry_rate_limited_total",
		Help: "Requests rejected by the per-route rate limiter",
	}, []string{"route"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ipsentry_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)
