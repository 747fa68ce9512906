package sync

import (
	"testing"
	"time"

	"ledgersync/pkg/backoff"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, true},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, true},
		{"nil backoff", func(c *Config) { c.Backoff = nil }, true},
		{"zero id offset", func(c *Config) { c.IDOffset = 0 }, true},
		{"probe collides with mapped range", func(c *Config) { c.ProbeID = 150 }, true},
		{"probe below offset", func(c *Config) { c.ProbeID = 1; c.IDOffset = 100 }, false},
		{
			name: "exponential backoff",
			mutate: func(c *Config) {
				c.Backoff = backoff.Exponential{Base: 50 * time.Millisecond, Max: time.Second}
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Ledger != 1 {
		t.Errorf("Expected ledger 1, got %d", cfg.Ledger)
	}
	if cfg.ProbeID != 999999 {
		t.Errorf("Expected probe id 999999, got %d", cfg.ProbeID)
	}
	if cfg.IDOffset != 100 {
		t.Errorf("Expected id offset 100, got %d", cfg.IDOffset)
	}
	if cfg.BatchSize != 5 {
		t.Errorf("Expected batch size 5, got %d", cfg.BatchSize)
	}
	if cfg.MaxAttempts != 5 {
		t.Errorf("Expected 5 attempts, got %d", cfg.MaxAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}
