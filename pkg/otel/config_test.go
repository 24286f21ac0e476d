package otel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "llmsdigest", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRate)
	assert.Equal(t, MetricsBackendMemory, cfg.Metrics.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.IncludeTraceID)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"negative sample rate", func(c *Config) { c.Tracing.SampleRate = -0.1 }, ErrInvalidSampleRate},
		{"sample rate above one", func(c *Config) { c.Tracing.SampleRate = 1.5 }, ErrInvalidSampleRate},
		{"unknown level", func(c *Config) { c.Logging.Level = "verbose" }, ErrInvalidLogLevel},
		{"unknown format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogFormat},
		{"unknown backend", func(c *Config) { c.Metrics.Backend = "statsd" }, ErrInvalidMetricsBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{ServiceName: "docs"}.WithDefaults()

	assert.Equal(t, "docs", cfg.ServiceName)
	assert.Equal(t, "0.1.0", cfg.ServiceVersion)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, MetricsBackendMemory, cfg.Metrics.Backend)
}
