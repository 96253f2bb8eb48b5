package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	engineState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paymentindexor_engine_state",
		Help: "Current engine state (0=connecting, 1=streaming, 2=terminated, 3=faulted)",
	})

	batchesCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymentindexor_engine_batches_committed_total",
		Help: "Total number of data batches committed",
	})

	batchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "paymentindexor_engine_batch_duration_seconds",
		Help:    "Time taken to persist one data batch",
		Buckets: prometheus.DefBuckets,
	})

	paymentsYielded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymentindexor_engine_payments_total",
		Help: "Total number of payment events yielded",
	})

	invalidationsYielded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymentindexor_engine_invalidations_total",
		Help: "Total number of invalidate messages yielded",
	})

	heartbeats = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymentindexor_engine_heartbeats_total",
		Help: "Total number of heartbeats received",
	})

	faults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paymentindexor_engine_faults_total",
		Help: "Total number of engine faults by kind",
	}, []string{"kind"})

	lastBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "paymentindexor_engine_last_block",
		Help: "Highest block number committed by the engine",
	})

	restarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paymentindexor_supervisor_restarts_total",
		Help: "Total number of engine restarts after a retryable fault",
	})
)

func StateLog(s State) {
	engineState.Set(float64(s))
}

func BatchCommittedLog(duration time.Duration, payments int, highestBlock uint64) {
	batchesCommitted.Inc()
	batchDuration.Observe(duration.Seconds())
	paymentsYielded.Add(float64(payments))
	if highestBlock > 0 {
		lastBlock.Set(float64(highestBlock))
	}
}

func InvalidationLog(lastValidBlock uint64) {
	invalidationsYielded.Inc()
	lastBlock.Set(float64(lastValidBlock))
}

func HeartbeatInc() {
	heartbeats.Inc()
}

func FaultInc(kind error) {
	faults.WithLabelValues(faultLabel(kind)).Inc()
}

func RestartInc() {
	restarts.Inc()
}

func faultLabel(kind error) string {
	switch kind {
	case ErrConnection:
		return "connection"
	case ErrProtocolViolation:
		return "protocol"
	case ErrDecode:
		return "decode"
	case ErrStore:
		return "store"
	default:
		return "unknown"
	}
}
