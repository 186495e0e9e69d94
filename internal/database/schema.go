// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package database

import "fmt"

// Date and time are stored as TEXT in ISO shape (YYYY-MM-DD, HH:MM:SS)
// so lexicographic comparison matches chronological order; range and
// MAX() queries work on the concatenated "date time" string.
const schemaLocations = `
CREATE TABLE IF NOT EXISTS locations (
    client_id  TEXT   NOT NULL,
    alias      TEXT   NOT NULL,
    latitude   DOUBLE NOT NULL,
    longitude  DOUBLE NOT NULL,
    date       TEXT   NOT NULL,
    time       TEXT   NOT NULL,
    speed      DOUBLE NOT NULL,
    rpm        DOUBLE NOT NULL,
    fuel       DOUBLE NOT NULL,
    created_at TIMESTAMP DEFAULT current_timestamp,
    PRIMARY KEY (client_id, date, time)
)`

const schemaAliases = `
CREATE TABLE IF NOT EXISTS aliases (
    client_id TEXT PRIMARY KEY,
    alias     TEXT NOT NULL UNIQUE
)`

var schemaIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_locations_date_time ON locations (date, time)`,
	`CREATE INDEX IF NOT EXISTS idx_locations_alias ON locations (alias)`,
}

// createSchema creates tables and indexes if they do not exist.
func (db *DB) createSchema() error {
	for _, stmt := range append([]string{schemaLocations, schemaAliases}, schemaIndexes...) {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
