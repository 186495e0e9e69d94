// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

// Package config provides layered configuration loading for Geofleet.
//
// Configuration is resolved in three layers, later layers overriding
// earlier ones:
//
//  1. Built-in defaults (struct values)
//  2. Optional YAML config file
//  3. Environment variables (GEOFLEET_ prefix)
package config

import (
	"time"
)

// Config is the root configuration for the Geofleet server process.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Ingest    IngestConfig    `koanf:"ingest"`
	Database  DatabaseConfig  `koanf:"database"`
	Dedup     DedupConfig     `koanf:"dedup"`
	Batch     BatchConfig     `koanf:"batch"`
	Broadcast BroadcastConfig `koanf:"broadcast"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP server hosting the query API, the
// websocket subscriber endpoint, health checks, and /metrics.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// IngestConfig configures the TCP telemetry listener and its sessions.
type IngestConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// AcceptTimeout bounds a single Accept call; on expiry the listener
	// simply retries, it never shuts down.
	AcceptTimeout time.Duration `koanf:"accept_timeout"`

	// SessionTimeout is the per-connection read inactivity timeout.
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// MaxLineBytes caps the length of a single wire message.
	MaxLineBytes int `koanf:"max_line_bytes"`

	// MessagesPerSecond and MessageBurst bound the inbound message rate
	// of one session; a session exceeding them is slowed, not dropped.
	MessagesPerSecond float64 `koanf:"messages_per_second"`
	MessageBurst      int     `koanf:"message_burst"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// DedupConfig bounds the duplicate-message filter.
type DedupConfig struct {
	// Window is how long a message fingerprint is remembered.
	Window time.Duration `koanf:"window"`

	// MaxEntries caps retained fingerprints; the least recently seen
	// are evicted first.
	MaxEntries int `koanf:"max_entries"`
}

// BatchConfig configures the report accumulator and its time-gated writer.
type BatchConfig struct {
	FlushInterval time.Duration `koanf:"flush_interval"`

	// Circuit breaker around the persistence call.
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
	BreakerCooldown         time.Duration `koanf:"breaker_cooldown"`
}

// BroadcastConfig configures the throttled subscriber fan-out.
type BroadcastConfig struct {
	ThrottleInterval time.Duration `koanf:"throttle_interval"`
}

// APIConfig configures the read-only query endpoints.
type APIConfig struct {
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	MaxHistoryRows  int           `koanf:"max_history_rows"`
}

// LoggingConfig mirrors logging.Config for the config file.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Wire-facing
// defaults (ports, timeouts, intervals) match the deployed protocol:
// ingest on 16000 with a 20s accept and 15s session timeout, a 10s
// flush gate, and a 5s broadcast throttle.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Ingest: IngestConfig{
			Host:              "0.0.0.0",
			Port:              16000,
			AcceptTimeout:     20 * time.Second,
			SessionTimeout:    15 * time.Second,
			MaxLineBytes:      1024,
			MessagesPerSecond: 50,
			MessageBurst:      100,
		},
		Database: DatabaseConfig{
			Path:      "/data/geofleet.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Dedup: DedupConfig{
			Window:     5 * time.Minute,
			MaxEntries: 100_000,
		},
		Batch: BatchConfig{
			FlushInterval:           10 * time.Second,
			BreakerFailureThreshold: 5,
			BreakerCooldown:         30 * time.Second,
		},
		Broadcast: BroadcastConfig{
			ThrottleInterval: 5 * time.Second,
		},
		API: APIConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
			MaxHistoryRows:  10_000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
