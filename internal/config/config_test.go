// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Ingest.Port != 16000 {
		t.Errorf("default ingest port = %d, want 16000", cfg.Ingest.Port)
	}
	if cfg.Batch.FlushInterval != 10*time.Second {
		t.Errorf("default flush interval = %v, want 10s", cfg.Batch.FlushInterval)
	}
	if cfg.Broadcast.ThrottleInterval != 5*time.Second {
		t.Errorf("default throttle interval = %v, want 5s", cfg.Broadcast.ThrottleInterval)
	}
	if cfg.Ingest.SessionTimeout != 15*time.Second {
		t.Errorf("default session timeout = %v, want 15s", cfg.Ingest.SessionTimeout)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GEOFLEET_INGEST__PORT", "17000")
	t.Setenv("GEOFLEET_BATCH__FLUSH_INTERVAL", "30s")
	t.Setenv("GEOFLEET_LOGGING__LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Ingest.Port != 17000 {
		t.Errorf("ingest port = %d, want env override 17000", cfg.Ingest.Port)
	}
	if cfg.Batch.FlushInterval != 30*time.Second {
		t.Errorf("flush interval = %v, want env override 30s", cfg.Batch.FlushInterval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want env override debug", cfg.Logging.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
ingest:
  port: 18000
  session_timeout: 45s
dedup:
  max_entries: 500
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Ingest.Port != 18000 {
		t.Errorf("ingest port = %d, want file value 18000", cfg.Ingest.Port)
	}
	if cfg.Ingest.SessionTimeout != 45*time.Second {
		t.Errorf("session timeout = %v, want file value 45s", cfg.Ingest.SessionTimeout)
	}
	if cfg.Dedup.MaxEntries != 500 {
		t.Errorf("dedup max entries = %d, want file value 500", cfg.Dedup.MaxEntries)
	}
	// Untouched sections keep defaults.
	if cfg.Batch.FlushInterval != 10*time.Second {
		t.Errorf("flush interval = %v, want default 10s", cfg.Batch.FlushInterval)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("ingest:\n  port: 18000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("GEOFLEET_INGEST__PORT", "19000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Ingest.Port != 19000 {
		t.Errorf("ingest port = %d, env should override file", cfg.Ingest.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero ingest port", func(c *Config) { c.Ingest.Port = 0 }},
		{"port collision", func(c *Config) { c.Ingest.Port = c.Server.Port }},
		{"negative flush interval", func(c *Config) { c.Batch.FlushInterval = -time.Second }},
		{"zero throttle", func(c *Config) { c.Broadcast.ThrottleInterval = 0 }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"zero dedup window", func(c *Config) { c.Dedup.Window = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() accepted invalid config")
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GEOFLEET_INGEST__PORT", "ingest.port"},
		{"GEOFLEET_BATCH__FLUSH_INTERVAL", "batch.flush_interval"},
		{"GEOFLEET_SERVER__SHUTDOWN_TIMEOUT", "server.shutdown_timeout"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
