package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "paymentindexor"

// Severities used with ErrorsInc.
const (
	SeverityFatal     = "fatal"
	SeverityRetryable = "retryable"
	SeverityPanic     = "panic"
)

var (
	ledgerQueries = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "query_duration_seconds",
			Help:      "Duration of read-only ledger queries",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	ledgerQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "query_errors_total",
			Help:      "Read-only ledger queries that returned an error",
		},
		[]string{"operation"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Always 1, labelled with the running version",
		},
		[]string{"version", "go_version"},
	)

	uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the process started",
		},
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	componentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "component_health",
			Help:      "1 while the component is healthy, 0 otherwise",
		},
		[]string{"component"},
	)

	goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Number of live goroutines",
		},
	)

	memory = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_bytes",
			Help:      "Go runtime memory statistics",
		},
		[]string{"type"},
	)

	gcCycles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gc_cycles",
			Help:      "Completed GC cycles",
		},
	)

	startTime = time.Now()
)

// ObserveQuery records the duration of one ledger read, and a failure when err is set.
func ObserveQuery(operation string, start time.Time, err error) {
	ledgerQueries.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		ledgerQueryErrors.WithLabelValues(operation).Inc()
	}
}

// SetBuildInfo publishes the running version.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

func ErrorsInc(component, severity string) {
	errorsTotal.WithLabelValues(component, severity).Inc()
}

func ComponentHealthSet(component string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	componentHealth.WithLabelValues(component).Set(v)
}

// UpdateSystemMetrics samples uptime and Go runtime statistics.
func UpdateSystemMetrics() {
	uptime.Set(time.Since(startTime).Seconds())
	goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	memory.WithLabelValues("heap_alloc").Set(float64(m.HeapAlloc))
	memory.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
	memory.WithLabelValues("heap_objects").Set(float64(m.HeapObjects))
	memory.WithLabelValues("stack_inuse").Set(float64(m.StackInuse))
	memory.WithLabelValues("sys").Set(float64(m.Sys))
	gcCycles.Set(float64(m.NumGC))
}
