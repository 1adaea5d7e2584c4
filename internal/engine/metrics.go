package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quillscan_recognition_cache_hits_total",
			Help: "Total number of recognition cache hits",
		},
	)

	cacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quillscan_recognition_cache_misses_total",
			Help: "Total number of recognition cache misses",
		},
	)

	fallbackAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quillscan_recognition_attempts_total",
			Help: "Total number of recognition attempts across all ladder steps",
		},
	)
)
