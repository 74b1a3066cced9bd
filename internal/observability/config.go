package observability

import (
	"strings"

	"github.com/smallbiznis/claimflow/internal/config"
)

// Config is the slice of the application config the logger, tracer and
// meter providers read.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled       bool
	OtelEndpoint      string
	OtelProtocol      string
	OtelSamplingRatio float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "claimflow"
	}
	return Config{
		ServiceName:       serviceName,
		Environment:       strings.TrimSpace(cfg.Environment),
		Version:           strings.TrimSpace(cfg.AppVersion),
		LogLevel:          cfg.LogLevel,
		LogFormat:         cfg.LogFormat,
		OtelEnabled:       cfg.OtelEnabled,
		OtelEndpoint:      cfg.OtelEndpoint,
		OtelProtocol:      cfg.OtelProtocol,
		OtelSamplingRatio: cfg.OtelSamplingRatio,
	}
}

// Debug is true for debug logging or any non-production environment.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
