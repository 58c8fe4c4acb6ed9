package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 60*time.Second, cfg.Scan.Interval)
	assert.Equal(t, 100, cfg.Scan.ChunkSize)
	assert.Equal(t, 60, cfg.Scan.BoxWindow)
	assert.InDelta(t, 1.5, cfg.Scan.BoxVolumeMult, 1e-9)
	assert.InDelta(t, 0.5, cfg.Scan.BoxAmplitudeMax, 1e-9)
	assert.Zero(t, cfg.Scan.BoxAmplitudeMin, "lower amplitude bound disabled by default")
	assert.Equal(t, 5, cfg.Scan.MAShortWindow)
	assert.Equal(t, 20, cfg.Scan.MALongWindow)
	assert.InDelta(t, -0.05, cfg.Exit.StopLossThreshold, 1e-9)
	assert.InDelta(t, 0.10, cfg.Exit.TakeProfitThreshold, 1e-9)
	assert.Equal(t, 365, cfg.Sync.BackfillDays)
}

func TestLoad_TargetList(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("SCAN_TARGETS", "sh.600519, sz.300750,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"sh.600519", "sz.300750"}, cfg.Scan.Targets)
}

func TestLoad_RejectsInconsistentValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "non-negative stop loss", key: "STOP_LOSS_THRESHOLD", value: "0.05"},
		{name: "negative take profit", key: "TAKE_PROFIT_THRESHOLD", value: "-0.10"},
		{name: "short window above long", key: "MA_SHORT_WINDOW", value: "30"},
		{name: "zero chunk size", key: "SCAN_CHUNK_SIZE", value: "0"},
		{name: "zero box window", key: "BOX_WINDOW", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATA_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
