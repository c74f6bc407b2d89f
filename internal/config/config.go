// Package config loads dealflow's configuration.
//
// Sources, highest priority first:
// 1. Environment variables prefixed DEALFLOW_ (DEALFLOW_SERVER_PORT, DEALFLOW_LOG_LEVEL, ...)
// 2. A YAML config file (optional)
// 3. Default values
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	River     RiverConfig     `mapstructure:"river"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path          string `mapstructure:"path"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// TelemetryConfig feeds the OpenTelemetry providers.
type TelemetryConfig struct {
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Environment    string        `mapstructure:"environment"`
	Exporter       string        `mapstructure:"exporter"` // stdout, otlp or none
	Endpoint       string        `mapstructure:"endpoint"` // OTLP host:port; empty uses the exporter default
	Insecure       bool          `mapstructure:"insecure"`
	SampleRatio    float64       `mapstructure:"sample_ratio"`
	MetricInterval time.Duration `mapstructure:"metric_interval"`
}

// RiverConfig contains River queue settings.
type RiverConfig struct {
	MaxWorkers int `mapstructure:"max_workers"`
}

// PipelineConfig points at the stage seed file. Empty means the built-in funnel.
type PipelineConfig struct {
	StagesFile string `mapstructure:"stages_file"`
}

// Load reads configuration from the given file (if any) and the environment.
// Without a path, ./dealflow.yaml is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dealflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Maps nested config: server.port → DEALFLOW_SERVER_PORT
	v.SetEnvPrefix("DEALFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	switch c.Telemetry.Exporter {
	case "stdout", "otlp", "none":
	default:
		return fmt.Errorf("telemetry.exporter %q must be stdout, otlp or none", c.Telemetry.Exporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio %v must be between 0 and 1", c.Telemetry.SampleRatio)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Database
	v.SetDefault("database.path", "dealflow.db")
	v.SetDefault("database.busy_timeout_ms", 5000)

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Telemetry
	v.SetDefault("telemetry.service_name", "dealflow")
	v.SetDefault("telemetry.service_version", "0.1.0")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.exporter", "none")
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.metric_interval", "60s")

	// River
	v.SetDefault("river.max_workers", 2)

	// Pipeline
	v.SetDefault("pipeline.stages_file", "")
}
