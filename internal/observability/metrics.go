package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for stablecore.
type Metrics struct {
	// --- Operations ---
	OperationsTotal   *prometheus.CounterVec // op, result
	OperationDuration *prometheus.HistogramVec
	HealthFactor      *prometheus.HistogramVec // op

	// --- Liquidation ---
	LiquidationsTotal     prometheus.Counter
	CollateralSeizedTotal prometheus.Counter
	DebtBurnedTotal       prometheus.Counter

	// --- Oracle ---
	QuoteRejections *prometheus.CounterVec // reason

	// --- State ---
	PositionsTracked prometheus.Gauge
	DebtOutstanding  prometheus.Gauge

	// --- Outbound ---
	EventsPublished *prometheus.CounterVec // event_type
	PublishErrors   prometheus.Counter
	PersistErrors   prometheus.Counter
}

// NewMetrics creates and registers all metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stablecore",
			Name:      "operations_total",
			Help:      "Position operations by type and result kind.",
		}, []string{"op", "result"}),

		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stablecore",
			Name:      "operation_duration_seconds",
			Help:      "End-to-end duration of one position operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}, []string{"op"}),

		HealthFactor: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stablecore",
			Name:      "health_factor",
			Help:      "Health factor observed at commit time, by operation.",
			Buckets:   []float64{0.5, 0.75, 0.85, 1.0, 1.25, 1.5, 2, 3, 5, 10},
		}, []string{"op"}),

		LiquidationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "stablecore",
			Name:      "liquidations_total",
			Help:      "Committed liquidation settlements.",
		}),

		CollateralSeizedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "stablecore",
			Name:      "collateral_seized_units_total",
			Help:      "Collateral moved to liquidators, in smallest units.",
		}),

		DebtBurnedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "stablecore",
			Name:      "debt_burned_units_total",
			Help:      "Debt repaid by liquidators, in smallest units.",
		}),

		QuoteRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stablecore",
			Name:      "quote_rejections_total",
			Help:      "Oracle quotes rejected during validation, by reason.",
		}, []string{"reason"}),

		PositionsTracked: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "stablecore",
			Name:      "positions_tracked",
			Help:      "Number of positions currently tracked in memory.",
		}),

		DebtOutstanding: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "stablecore",
			Name:      "debt_outstanding_units",
			Help:      "Total outstanding debt across all positions.",
		}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stablecore",
			Name:      "events_published_total",
			Help:      "Outbound events published, by event type.",
		}, []string{"event_type"}),

		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "stablecore",
			Name:      "publish_errors_total",
			Help:      "Failed outbound event publishes.",
		}),

		PersistErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "stablecore",
			Name:      "persist_errors_total",
			Help:      "Failed durable writes of positions or config.",
		}),
	}
}
