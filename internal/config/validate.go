// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for values that would make the
// process misbehave at runtime. It collects all problems rather than
// stopping at the first.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port))
	}
	if c.Ingest.Port < 1 || c.Ingest.Port > 65535 {
		errs = append(errs, fmt.Errorf("ingest.port must be in 1-65535, got %d", c.Ingest.Port))
	}
	if c.Server.Port == c.Ingest.Port {
		errs = append(errs, fmt.Errorf("server.port and ingest.port must differ, both are %d", c.Server.Port))
	}

	if c.Ingest.AcceptTimeout <= 0 {
		errs = append(errs, errors.New("ingest.accept_timeout must be positive"))
	}
	if c.Ingest.SessionTimeout <= 0 {
		errs = append(errs, errors.New("ingest.session_timeout must be positive"))
	}
	if c.Ingest.MaxLineBytes < 64 {
		errs = append(errs, fmt.Errorf("ingest.max_line_bytes must be at least 64, got %d", c.Ingest.MaxLineBytes))
	}
	if c.Ingest.MessagesPerSecond <= 0 {
		errs = append(errs, errors.New("ingest.messages_per_second must be positive"))
	}

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path must not be empty"))
	}

	if c.Dedup.Window <= 0 {
		errs = append(errs, errors.New("dedup.window must be positive"))
	}
	if c.Dedup.MaxEntries <= 0 {
		errs = append(errs, errors.New("dedup.max_entries must be positive"))
	}

	if c.Batch.FlushInterval <= 0 {
		errs = append(errs, errors.New("batch.flush_interval must be positive"))
	}

	if c.Broadcast.ThrottleInterval <= 0 {
		errs = append(errs, errors.New("broadcast.throttle_interval must be positive"))
	}

	if c.API.RateLimitReqs <= 0 {
		errs = append(errs, errors.New("api.rate_limit_reqs must be positive"))
	}
	if c.API.MaxHistoryRows <= 0 {
		errs = append(errs, errors.New("api.max_history_rows must be positive"))
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not a known level", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
