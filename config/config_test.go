package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"dga-topology/analytics"
	"dga-topology/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dgatopo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, analytics.DefaultWindowSize, cfg.Analysis.WindowSize)
	assert.Equal(t, 1, cfg.Analysis.Step)
	assert.Equal(t, 1, cfg.Analysis.MaxDim)
	assert.True(t, cfg.Analysis.Difference)
	assert.Equal(t, "end", cfg.Analysis.Alignment)
	assert.Equal(t, "zero", cfg.Analysis.EmptyPolicy)
	assert.Equal(t, "chebyshev", cfg.Analysis.GroundMetric)
	assert.InDelta(t, 1.0, cfg.Analysis.Order, 0)
	assert.Equal(t, analytics.DefaultMaxSimplices, cfg.Analysis.MaxSimplices)

	assert.Equal(t, 64, cfg.Engine.QueueSize)
	assert.Equal(t, analytics.DefaultFlagWindow, cfg.Engine.FlagWindow)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ";", cfg.Ingest.Delimiter)
	assert.Equal(t, "Timestamp", cfg.Ingest.TimestampColumn)

	opts := cfg.Analysis.Options()
	assert.Equal(t, models.AlignEnd, opts.Alignment)
	assert.Equal(t, analytics.EmptyZero, opts.EmptyPolicy)
	require.NoError(t, opts.Validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
analysis:
  window_size: 12
  step: 3
  maxdim: 2
  difference: false
  alignment: boundary
  empty_policy: nan
engine:
  workers: 3
  flag_dim: 2
server:
  port: 9090
  read_timeout: 5s
redis:
  enabled: true
  addr: redis:6379
  ttl: 1h
logging:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Analysis.WindowSize)
	assert.Equal(t, 3, cfg.Analysis.Step)
	assert.Equal(t, 2, cfg.Analysis.MaxDim)
	assert.False(t, cfg.Analysis.Difference)
	assert.Equal(t, models.AlignBoundary, cfg.Analysis.Options().Alignment)
	assert.Equal(t, analytics.EmptyNaN, cfg.Analysis.Options().EmptyPolicy)

	engine := cfg.Engine.Engine()
	assert.Equal(t, 3, engine.Workers)
	assert.Equal(t, 2, engine.FlagDim)
	assert.Equal(t, 64, engine.QueueSize)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DGATOPO_ANALYSIS_WINDOW_SIZE", "7")
	t.Setenv("DGATOPO_SERVER_PORT", "9191")
	t.Setenv("DGATOPO_REDIS_ENABLED", "true")

	cfg, err := LoadConfig(writeConfig(t, "analysis:\n  window_size: 12\n"))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Analysis.WindowSize)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		target error
	}{
		{name: "window", body: "analysis:\n  window_size: 0\n", target: models.ErrInvalidConfig},
		{name: "alignment", body: "analysis:\n  alignment: middle\n", target: models.ErrInvalidConfig},
		{name: "complex_size", body: "analysis:\n  window_size: 5000\n  maxdim: 3\n", target: models.ErrInvalidConfig},
		{name: "metric", body: "analysis:\n  ground_metric: cosine\n", target: models.ErrInvalidConfig},
		{name: "port", body: "server:\n  port: 70000\n", target: ErrInvalidPort},
		{name: "log_level", body: "logging:\n  level: loud\n", target: ErrInvalidLogLevel},
		{name: "flag_dim", body: "engine:\n  flag_dim: 3\n", target: ErrInvalidEngine},
		{name: "delimiter", body: "ingest:\n  delimiter: ';;'\n", target: models.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LoadConfig(writeConfig(t, tt.body))
			require.ErrorIs(t, err, tt.target)
		})
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(writeConfig(t, "analysis: [unclosed\n"))
	require.Error(t, err)
}
