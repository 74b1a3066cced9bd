package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsTelemetrySettings(t *testing.T) {
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "HTTP")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")

	cfg := Load()

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.OtelEnabled)
	assert.Equal(t, "collector:4318", cfg.OtelEndpoint)
	assert.Equal(t, "http", cfg.OtelProtocol)
	assert.Equal(t, 0.5, cfg.OtelSamplingRatio)
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "maybe")
	t.Setenv("OTEL_SAMPLING_RATIO", "half")

	cfg := Load()

	assert.False(t, cfg.OtelEnabled)
	assert.Equal(t, 0.1, cfg.OtelSamplingRatio)
	assert.Equal(t, "grpc", cfg.OtelProtocol)
}
