package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quillscan_pages_processed_total",
			Help: "Total number of pages processed successfully",
		},
	)

	pagesFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quillscan_pages_failed_total",
			Help: "Total number of pages that failed processing",
		},
	)

	documentsProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quillscan_documents_processed_total",
			Help: "Total number of documents processed",
		},
	)

	pageDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quillscan_page_duration_seconds",
			Help:    "Per-page processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)
