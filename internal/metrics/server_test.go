package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/goran-ethernal/PaymentIndexor/internal/logger"
	"github.com/goran-ethernal/PaymentIndexor/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestServer_Disabled(t *testing.T) {
	s := NewServer(&config.MetricsConfig{Enabled: false}, logger.NewNopLogger())
	require.NoError(t, s.Start(context.Background()))
	require.Nil(t, s.Addr())
	require.NoError(t, s.Stop(context.Background()))

	s = NewServer(nil, logger.NewNopLogger())
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestServer_ServesMetrics(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true, ListenAddress: "127.0.0.1:0", Path: "/metrics"}

	s := NewServer(cfg, logger.NewNopLogger())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, s.Stop(ctx))
	})

	ComponentHealthSet("engine", true)
	ObserveQuery("latest_block", time.Now(), nil)

	resp, err := http.Get("http://" + s.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "paymentindexor_component_health")
	require.Contains(t, string(body), "paymentindexor_ledger_query_duration_seconds")
	require.Contains(t, string(body), "paymentindexor_uptime_seconds")

	health, err := http.Get("http://" + s.Addr().String() + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	require.Equal(t, http.StatusOK, health.StatusCode)
}

func TestServer_ListenError(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true, ListenAddress: "256.0.0.1:1", Path: "/metrics"}
	require.Error(t, NewServer(cfg, logger.NewNopLogger()).Start(context.Background()))
}
