package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// Movement engine metrics
	MovementsCommitted *prometheus.CounterVec
	CommandFailures    *prometheus.CounterVec
	CommandDuration    *prometheus.HistogramVec
	StockRejections    prometheus.Counter

	// Reconciliation metrics
	ReconciliationMismatches prometheus.Gauge

	// Database metrics
	DBConnections prometheus.Gauge

	// Reference cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		MovementsCommitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockledger_movements_committed_total",
				Help: "Total number of committed movements by kind",
			},
			[]string{"kind"},
		),
		CommandFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockledger_command_failures_total",
				Help: "Total number of failed movement commands by kind and error type",
			},
			[]string{"kind", "error_type"},
		),
		CommandDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockledger_command_duration_seconds",
				Help:    "Duration of movement commands",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		StockRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "stockledger_insufficient_stock_total",
			Help: "Total number of commands rejected for insufficient stock",
		}),
		ReconciliationMismatches: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "stockledger_reconciliation_mismatches",
			Help: "Balance rows disagreeing with the ledger at last check",
		}),
		DBConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "stockledger_db_connections",
			Help: "Current number of database connections",
		}),
		CacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockledger_reference_cache_hits_total",
				Help: "Reference data cache hits",
			},
			[]string{"kind"},
		),
		CacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockledger_reference_cache_misses_total",
				Help: "Reference data cache misses",
			},
			[]string{"kind"},
		),
	}
}
