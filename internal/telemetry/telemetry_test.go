package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		json    bool
		debug   bool
	}{
		{"json info", false, true, false},
		{"json debug", true, true, true},
		{"console info", false, false, false},
		{"console debug", true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.verbose, tt.json)
			require.NoError(t, err)
			defer logger.Sync()

			assert.Equal(t, tt.debug, logger.Core().Enabled(zapcore.DebugLevel))
			assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		})
	}
}

func TestSetupTracing_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "", "voicecalc", "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSetupTracing_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address so no export happens.
	shutdown, err := SetupTracing(context.Background(), "http://192.0.2.1:4318", "voicecalc", "test")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
