// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/geofleet/geofleet/internal/metrics"
)

// createAliasRetries bounds the insert-then-reread loop in CreateAlias.
// Each retry only happens when two devices race for the same ordinal,
// so the loop settles almost immediately in practice.
const createAliasRetries = 5

// GetAlias returns the stored alias for a device, with found=false
// when the device has never been named.
func (db *DB) GetAlias(ctx context.Context, deviceID string) (string, bool, error) {
	start := time.Now()

	var alias string
	err := db.conn.QueryRowContext(ctx,
		`SELECT alias FROM aliases WHERE client_id = ?`, deviceID).Scan(&alias)
	metrics.RecordDBQuery("select", "aliases", time.Since(start), ignoreNoRows(err))
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get alias: %w", err)
	}
	return alias, true, nil
}

// CreateAlias assigns the next free "taxi N" alias to a device.
//
// The insert computes N inside the statement so two racing devices
// cannot both read the same count. A race still surfaces as a unique
// violation on the alias column; ON CONFLICT swallows it and the next
// attempt recomputes. Whoever wins, the re-read returns the persisted
// alias for this device.
func (db *DB) CreateAlias(ctx context.Context, deviceID string) (string, error) {
	for attempt := 0; attempt < createAliasRetries; attempt++ {
		start := time.Now()
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO aliases (client_id, alias)
			SELECT ?, 'taxi ' || CAST(COUNT(*) + 1 AS VARCHAR)
			FROM aliases
			ON CONFLICT DO NOTHING`, deviceID)
		metrics.RecordDBQuery("insert", "aliases", time.Since(start), err)
		if err != nil {
			return "", fmt.Errorf("create alias: %w", err)
		}

		alias, found, err := db.GetAlias(ctx, deviceID)
		if err != nil {
			return "", err
		}
		if found {
			return alias, nil
		}
		// Lost the ordinal race to another device; recompute.
	}
	return "", fmt.Errorf("create alias for %q: retries exhausted", deviceID)
}

// ListAliases returns every device-to-alias assignment, ordered by alias.
func (db *DB) ListAliases(ctx context.Context) (map[string]string, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT client_id, alias FROM aliases ORDER BY alias`)
	metrics.RecordDBQuery("select_all", "aliases", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer closeWithLog(rows, "rows")

	out := make(map[string]string)
	for rows.Next() {
		var clientID, alias string
		if err := rows.Scan(&clientID, &alias); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		out[clientID] = alias
	}
	return out, rows.Err()
}

// ignoreNoRows strips sql.ErrNoRows so a miss is not counted as a
// query error in metrics.
func ignoreNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	return err
}
