package metrics

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveQuery_CountsFailures(t *testing.T) {
	before := testutil.ToFloat64(ledgerQueryErrors.WithLabelValues("stats_test"))

	ObserveQuery("stats_test", time.Now(), nil)
	ObserveQuery("stats_test", time.Now(), errors.New("boom"))

	require.Equal(t, before+1, testutil.ToFloat64(ledgerQueryErrors.WithLabelValues("stats_test")))
}

func TestComponentHealthSet(t *testing.T) {
	ComponentHealthSet("health_test", true)
	require.Equal(t, 1.0, testutil.ToFloat64(componentHealth.WithLabelValues("health_test")))

	ComponentHealthSet("health_test", false)
	require.Equal(t, 0.0, testutil.ToFloat64(componentHealth.WithLabelValues("health_test")))
}

func TestErrorsInc(t *testing.T) {
	before := testutil.ToFloat64(errorsTotal.WithLabelValues("errors_test", SeverityPanic))
	ErrorsInc("errors_test", SeverityPanic)
	require.Equal(t, before+1, testutil.ToFloat64(errorsTotal.WithLabelValues("errors_test", SeverityPanic)))
}

func TestUpdateSystemMetrics(t *testing.T) {
	SetBuildInfo("test")
	UpdateSystemMetrics()

	require.Positive(t, testutil.ToFloat64(goroutines))
	require.Positive(t, testutil.ToFloat64(memory.WithLabelValues("sys")))
	require.Equal(t, 1.0, testutil.ToFloat64(buildInfo.WithLabelValues("test", runtime.Version())))
}
