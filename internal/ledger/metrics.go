package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blocksInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymentindexor_ledger_blocks_inserted_total",
		Help: "Total number of block rows inserted",
	})

	paymentEventsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymentindexor_ledger_payment_events_inserted_total",
		Help: "Total number of payment event rows inserted",
	})

	replaysIgnored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentindexor_ledger_replays_ignored_total",
		Help: "Identical re-deliveries that were treated as no-ops",
	}, []string{"kind"})

	invalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymentindexor_ledger_invalidations_total",
		Help: "Total number of invalidations applied",
	})

	invalidatedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentindexor_ledger_invalidated_rows_total",
		Help: "Rows removed by invalidations",
	}, []string{"table"})

	invalidationDepth = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paymentindexor_ledger_invalidation_depth_blocks",
		Help:    "Number of blocks removed per invalidation",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})
)

func BlockInsertedInc() {
	blocksInserted.Inc()
}

func PaymentEventInsertedInc() {
	paymentEventsInserted.Inc()
}

func ReplayIgnoredInc(kind string) {
	replaysIgnored.WithLabelValues(kind).Inc()
}

func InvalidationLog(blocks, events int64) {
	invalidations.Inc()
	invalidatedRows.WithLabelValues("blocks").Add(float64(blocks))
	invalidatedRows.WithLabelValues("payment_events").Add(float64(events))
	invalidationDepth.Observe(float64(blocks))
}
