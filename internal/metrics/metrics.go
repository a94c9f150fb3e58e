// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	PostMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_post_mutations_total",
			Help: "Total number of successful post mutations",
		},
		[]string{"operation"},
	)

	ImageReleaseFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_image_release_failures_total",
			Help: "Total number of image artifacts that could not be removed",
		},
	)

	OrphanedImagesRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_orphaned_images_removed_total",
			Help: "Total number of unreferenced image artifacts removed by the reconciler",
		},
	)

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_cache_hits_total",
			Help: "Total number of post cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_cache_misses_total",
			Help: "Total number of post cache misses",
		},
	)
)
