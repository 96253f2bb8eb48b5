package provider

import (
	"time"

	pkgprovider "github.com/goran-ethernal/PaymentIndexor/pkg/provider"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paymentindexor_provider_messages_total",
			Help: "Total number of stream messages received by kind",
		},
		[]string{"kind"},
	)

	providerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paymentindexor_provider_errors_total",
			Help: "Total number of provider errors by operation and type",
		},
		[]string{"operation", "error_type"},
	)

	dialDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "paymentindexor_provider_dial_duration_seconds",
			Help:    "Time taken to connect to the provider",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func MessageReceivedInc(kind pkgprovider.MessageKind) {
	messagesReceived.WithLabelValues(string(kind)).Inc()
}

func ProviderErrorInc(operation, errorType string) {
	providerErrors.WithLabelValues(operation, errorType).Inc()
}

func ProviderDialDuration(duration time.Duration) {
	dialDuration.Observe(duration.Seconds())
}
