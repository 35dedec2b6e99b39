package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorksheetFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghatz_worksheet_fetches_total",
			Help: "Total worksheet fetches from the spreadsheet backend",
		},
		[]string{"worksheet", "status"},
	)

	WorksheetFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ghatz_worksheet_fetch_latency_seconds",
			Help:    "Worksheet fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"worksheet"},
	)

	RowsCleaned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghatz_rows_cleaned_total",
			Help: "Total rows kept after cleaning",
		},
		[]string{"domain"},
	)

	RowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghatz_rows_dropped_total",
			Help: "Total rows excluded during cleaning",
		},
		[]string{"domain"},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghatz_cache_requests_total",
			Help: "Table cache lookups by result",
		},
		[]string{"result"},
	)

	ViewBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghatz_view_builds_total",
			Help: "View model builds by outcome",
		},
		[]string{"domain", "outcome"},
	)
)
