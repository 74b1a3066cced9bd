package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const DefaultTaxRate = 0.10

// LifecycleConfig holds the tunables of the claim lifecycle that may change at runtime.
type LifecycleConfig struct {
	TaxRate        float64 `mapstructure:"taxRate"`
	LockTTLSeconds int     `mapstructure:"lockTTLSeconds"`
}

func DefaultLifecycleConfig() LifecycleConfig {
	return LifecycleConfig{
		TaxRate:        DefaultTaxRate,
		LockTTLSeconds: 30,
	}
}

type LifecycleConfigHolder struct {
	current atomic.Value // holds LifecycleConfig
}

// NewStaticLifecycleConfigHolder returns a holder pinned to cfg, without file watching.
func NewStaticLifecycleConfigHolder(cfg LifecycleConfig) *LifecycleConfigHolder {
	holder := &LifecycleConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewLifecycleConfigHolder(appCfg Config, log *zap.Logger) (*LifecycleConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.lifecycle")

	v := viper.New()

	v.SetConfigName("claims")
	v.SetConfigType("yml")
	if appCfg.LifecycleConfigDir != "" {
		v.AddConfigPath(appCfg.LifecycleConfigDir)
	}
	v.AddConfigPath("/etc/claimflow")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLAIMFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultLifecycleConfig()
	v.SetDefault("lifecycle.taxRate", defaults.TaxRate)
	v.SetDefault("lifecycle.lockTTLSeconds", defaults.LockTTLSeconds)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg LifecycleConfig
	if err := v.UnmarshalKey("lifecycle", &cfg); err != nil {
		return nil, err
	}
	if err := validateLifecycleConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticLifecycleConfigHolder(cfg)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated LifecycleConfig
			if err := v.UnmarshalKey("lifecycle", &updated); err != nil {
				log.Warn("lifecycle config reload failed", zap.Error(err))
				return
			}
			if err := validateLifecycleConfig(updated); err != nil {
				log.Warn("invalid lifecycle config ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("lifecycle config reloaded", zap.String("file", e.Name), zap.Float64("tax_rate", updated.TaxRate))
		})
	}

	return holder, nil
}

func (h *LifecycleConfigHolder) Get() LifecycleConfig {
	if h == nil {
		return DefaultLifecycleConfig()
	}
	cfg, ok := h.current.Load().(LifecycleConfig)
	if !ok {
		return DefaultLifecycleConfig()
	}
	return cfg
}

func validateLifecycleConfig(cfg LifecycleConfig) error {
	if cfg.TaxRate < 0 || cfg.TaxRate > 1 {
		return errors.New("lifecycle.taxRate must be between 0 and 1")
	}
	if cfg.LockTTLSeconds <= 0 {
		return errors.New("lifecycle.lockTTLSeconds must be positive")
	}
	return nil
}
