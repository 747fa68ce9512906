package main

import (
	"fmt"
	"os"
	"time"

	yaml "go.yaml.in/yaml/v2"

	"ledgersync/pkg/backoff"
	"ledgersync/pkg/sync"
)

// appConfig is the daemon's YAML configuration file. Every section has a
// working default, so an empty file runs the in-memory stack.
type appConfig struct {
	CatalogFile string `yaml:"catalog_file"`

	Gateway struct {
		// Kind selects the ledger backend: "memory" or "postgres".
		Kind string `yaml:"kind"`
		// DSN for the postgres backend. The DATABASE_URL environment
		// variable overrides it.
		PostgresDSN string `yaml:"postgres_dsn"`
		// TimeoutMS bounds each gateway call.
		TimeoutMS int `yaml:"timeout_ms"`
	} `yaml:"gateway"`

	Sync struct {
		Ledger        uint32 `yaml:"ledger"`
		ProbeID       uint64 `yaml:"probe_id"`
		IDOffset      uint64 `yaml:"id_offset"`
		BatchSize     int    `yaml:"batch_size"`
		MaxAttempts   int    `yaml:"max_attempts"`
		BackoffKind   string `yaml:"backoff_kind"` // "linear" or "exponential"
		BackoffBaseMS int    `yaml:"backoff_base_ms"`
		BackoffMaxMS  int    `yaml:"backoff_max_ms"`
		CreateDelayMS int    `yaml:"create_delay_ms"`
		RunOnStart    bool   `yaml:"run_on_start"`
	} `yaml:"sync"`

	Cache struct {
		// Kind selects the balance cache: "memory", "redis" or "none".
		Kind       string `yaml:"kind"`
		RedisAddr  string `yaml:"redis_addr"`
		TTLSeconds int    `yaml:"ttl_seconds"`
		Bloom      bool   `yaml:"bloom"`
	} `yaml:"cache"`

	Events struct {
		// Kind selects the publisher: "kafka" or "none".
		Kind    string   `yaml:"kind"`
		Brokers []string `yaml:"brokers"`
	} `yaml:"events"`

	Metrics struct {
		// Kind selects the collector: "prometheus", "memory" or "none".
		Kind      string `yaml:"kind"`
		Namespace string `yaml:"namespace"`
	} `yaml:"metrics"`

	API struct {
		Address string `yaml:"address"`
	} `yaml:"api"`
}

func defaultAppConfig() appConfig {
	var cfg appConfig
	cfg.CatalogFile = "accounts.yaml"
	cfg.Gateway.Kind = "memory"
	cfg.Gateway.TimeoutMS = 5000
	cfg.Cache.Kind = "memory"
	cfg.Cache.TTLSeconds = 60
	cfg.Cache.Bloom = true
	cfg.Events.Kind = "none"
	cfg.Metrics.Kind = "prometheus"
	cfg.Metrics.Namespace = "ledgersync"
	cfg.API.Address = ":8080"
	cfg.Sync.RunOnStart = true
	return cfg
}

// loadAppConfig reads the YAML file when it exists; a missing file means
// "all defaults".
func loadAppConfig(path string) (appConfig, error) {
	cfg := defaultAppConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// syncConfig converts the file section into the protocol configuration,
// leaving defaults in place for unset knobs.
func (c appConfig) syncConfig() sync.Config {
	cfg := sync.DefaultConfig()
	if c.Sync.Ledger != 0 {
		cfg.Ledger = c.Sync.Ledger
	}
	if c.Sync.ProbeID != 0 {
		cfg.ProbeID = c.Sync.ProbeID
	}
	if c.Sync.IDOffset != 0 {
		cfg.IDOffset = c.Sync.IDOffset
	}
	if c.Sync.BatchSize != 0 {
		cfg.BatchSize = c.Sync.BatchSize
	}
	if c.Sync.MaxAttempts != 0 {
		cfg.MaxAttempts = c.Sync.MaxAttempts
	}
	if c.Sync.CreateDelayMS != 0 {
		cfg.CreateDelay = time.Duration(c.Sync.CreateDelayMS) * time.Millisecond
	}
	if c.Sync.BackoffBaseMS != 0 {
		base := time.Duration(c.Sync.BackoffBaseMS) * time.Millisecond
		switch c.Sync.BackoffKind {
		case "exponential":
			cfg.Backoff = backoff.Exponential{
				Base: base,
				Max:  time.Duration(c.Sync.BackoffMaxMS) * time.Millisecond,
			}
		default:
			cfg.Backoff = backoff.Linear{Base: base}
		}
	}
	return cfg
}
