package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		development bool
		wantErr     bool
	}{
		{name: "debug level production", level: "debug"},
		{name: "info level production", level: "info"},
		{name: "warn level development", level: "warn", development: true},
		{name: "error level development", level: "error", development: true},
		{name: "invalid level", level: "invalid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.development)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger.SugaredLogger)
			require.Equal(t, tt.level, logger.GetLevel())
		})
	}
}

func TestLogger_SetLevel(t *testing.T) {
	logger, err := NewLogger("info", false)
	require.NoError(t, err)

	require.NoError(t, logger.SetLevel("debug"))
	require.Equal(t, "debug", logger.GetLevel())

	require.Error(t, logger.SetLevel("loud"))
	require.Equal(t, "debug", logger.GetLevel())
}

func TestLogger_WithComponent(t *testing.T) {
	logger, err := NewLogger("info", false)
	require.NoError(t, err)
	require.Empty(t, logger.GetComponent())

	engineLogger := logger.WithComponent("engine")
	require.Equal(t, "engine", engineLogger.GetComponent())

	// child shares the parent's level
	require.NoError(t, logger.SetLevel("error"))
	require.Equal(t, "error", engineLogger.GetLevel())
}

func TestNewComponentLogger_InvalidLevelPanics(t *testing.T) {
	require.Panics(t, func() {
		_ = NewComponentLogger("ledger", "verbose", false)
	})
}

type stubLoggingConfig struct {
	defaultLevel    string
	componentLevels map[string]string
}

func (s *stubLoggingConfig) GetComponentLevel(component string) string {
	if level, ok := s.componentLevels[component]; ok {
		return level
	}
	return s.defaultLevel
}

func (s *stubLoggingConfig) IsDevelopment() bool {
	return false
}

func TestNewComponentLoggerFromConfig(t *testing.T) {
	cfg := &stubLoggingConfig{
		defaultLevel:    "warn",
		componentLevels: map[string]string{"engine": "debug"},
	}

	tests := []struct {
		name          string
		component     string
		config        LoggingConfig
		expectedLevel string
	}{
		{name: "component override", component: "engine", config: cfg, expectedLevel: "debug"},
		{name: "default level", component: "ledger", config: cfg, expectedLevel: "warn"},
		{name: "nil config", component: "provider", config: nil, expectedLevel: "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewComponentLoggerFromConfig(tt.component, tt.config)
			require.Equal(t, tt.component, logger.GetComponent())
			require.Equal(t, tt.expectedLevel, logger.GetLevel())
		})
	}
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	require.NotNil(t, logger.SugaredLogger)

	logger.Debug("test")
	logger.Infow("test", "block", 1)
	logger.Error("test")
}
