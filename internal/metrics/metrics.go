package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── HTTP request metrics (RED method) ──────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "yield_engine",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "yield_engine",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})
)

// ── Source / aggregation metrics ───────────────────────────────────────

var (
	SourceFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Subsystem: "source",
		Name:      "fetch_total",
		Help:      "Total number of fetch attempts per source.",
	}, []string{"source", "status"})

	SourceFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "yield_engine",
		Subsystem: "source",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of a source fetch in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"source"})

	SourceRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "yield_engine",
		Subsystem: "source",
		Name:      "records",
		Help:      "Number of records returned by the last fetch per source.",
	}, []string{"source"})

	AggregateRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "yield_engine",
		Subsystem: "aggregate",
		Name:      "records",
		Help:      "Number of ranked records in the last aggregation.",
	})

	CacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Live-set cache lookups by result.",
	}, []string{"result"})
)

// ── Resolver metrics ───────────────────────────────────────────────────

var (
	AnalyzeTierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Subsystem: "analyze",
		Name:      "tier_total",
		Help:      "Analyze responses by the fallback tier that produced them.",
	}, []string{"tier"})

	HistoryTierTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yield_engine",
		Subsystem: "history",
		Name:      "tier_total",
		Help:      "History responses by the fallback tier that produced them.",
	}, []string{"tier"})
)
