package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched counts every page fetch that produced a response.
	PagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hulk_pages_fetched_total",
			Help: "Total number of pages fetched",
		},
	)

	// Sequences counts finished page sequences by outcome.
	Sequences = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hulk_pagination_sequences_total",
			Help: "Total number of finished page sequences by outcome",
		},
		[]string{"outcome"}, // "complete", "error"
	)

	// PagesPerSequence tracks how many pages a sequence needed.
	PagesPerSequence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hulk_pagination_pages_per_sequence",
			Help:    "Number of pages fetched per sequence",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100},
		},
	)
)
