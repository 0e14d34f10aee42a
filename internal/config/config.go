// Package config contains everything related to configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	PostgresDSN   string
	ClickhouseDSN string // empty disables the ClickHouse fact store
	MetricsAddr   string
	PassInterval  time.Duration // scheduler pass cadence
}

// Default values
const (
	defaultMetricsAddr  = ":9090"
	defaultPassInterval = time.Minute
)

// fileConfig is the on-disk shape. Durations are parsed from strings
// like "30s" or "5m".
type fileConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	MetricsAddr   string `yaml:"metrics_addr"`
	PassInterval  string `yaml:"pass_interval"`
}

// Load reads configuration from a YAML file, then applies environment
// overrides. An empty path skips the file and uses env only.
func Load(path string) (*Config, error) {
	cfg := &Config{
		MetricsAddr:  defaultMetricsAddr,
		PassInterval: defaultPassInterval,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		if fc.PostgresDSN != "" {
			cfg.PostgresDSN = fc.PostgresDSN
		}
		if fc.ClickhouseDSN != "" {
			cfg.ClickhouseDSN = fc.ClickhouseDSN
		}
		if fc.MetricsAddr != "" {
			cfg.MetricsAddr = fc.MetricsAddr
		}
		if fc.PassInterval != "" {
			d, err := time.ParseDuration(fc.PassInterval)
			if err != nil {
				return nil, fmt.Errorf("parse pass_interval: %w", err)
			}
			cfg.PassInterval = d
		}
	}

	if v := os.Getenv("ADPULSE_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("ADPULSE_CLICKHOUSE_DSN"); v != "" {
		cfg.ClickhouseDSN = v
	}
	if v := os.Getenv("ADPULSE_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("ADPULSE_PASS_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse ADPULSE_PASS_INTERVAL: %w", err)
		}
		cfg.PassInterval = d
	}

	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres_dsn is required (config file or ADPULSE_POSTGRES_DSN)")
	}
	if cfg.PassInterval <= 0 {
		return nil, fmt.Errorf("pass_interval must be positive")
	}

	return cfg, nil
}
