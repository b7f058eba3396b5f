// Package config loads engine settings from an optional config.yaml
// plus environment overrides.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the runtime settings of the engine process.
type Config struct {
	// Workers is the compute pool size.
	Workers int
	// ParseCacheTTL bounds how long parsed queries are memoized.
	ParseCacheTTL time.Duration
	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Workers:       4,
		ParseCacheTTL: 5 * time.Minute,
		LogLevel:      "info",
	}
}

// Load reads config.yaml from configPath, layering environment
// overrides (TABENG_ENGINE_WORKERS and friends) on top of defaults. A
// missing config file is not an error; defaults and env apply.
func Load(configPath string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()
	v.SetEnvPrefix("TABENG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("engine.workers")
	v.BindEnv("engine.parse_cache_ttl")
	v.BindEnv("engine.log_level")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return cfg, err
		}
	}

	if v.IsSet("engine.workers") {
		cfg.Workers = v.GetInt("engine.workers")
	}
	if v.IsSet("engine.parse_cache_ttl") {
		cfg.ParseCacheTTL = v.GetDuration("engine.parse_cache_ttl")
	}
	if v.IsSet("engine.log_level") {
		cfg.LogLevel = v.GetString("engine.log_level")
	}

	return cfg, nil
}
