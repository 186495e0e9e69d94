// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/geofleet/geofleet/internal/metrics"
	"github.com/geofleet/geofleet/internal/models"
)

// InsertLocations persists a batch of reports inside one transaction.
// Rows whose (client_id, date, time) key already exists are skipped, so
// retrying a partially applied batch never creates duplicates. Returns
// the number of rows actually inserted.
func (db *DB) InsertLocations(ctx context.Context, reports []models.LocationReport) (int64, error) {
	if len(reports) == 0 {
		return 0, nil
	}

	start := time.Now()
	inserted, err := db.insertLocationsTx(ctx, reports)
	metrics.RecordDBQuery("insert", "locations", time.Since(start), err)
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (db *DB) insertLocationsTx(ctx context.Context, reports []models.LocationReport) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO locations
			(client_id, alias, latitude, longitude, date, time, speed, rpm, fuel)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer closeWithLog(stmt, "statement")

	var inserted int64
	for i := range reports {
		r := &reports[i]
		res, err := stmt.ExecContext(ctx,
			r.DeviceID, r.Alias, r.Latitude, r.Longitude,
			r.Date, r.Time, r.Speed, r.RPM, r.Fuel)
		if err != nil {
			return 0, fmt.Errorf("insert report %s: %w", r.Key(), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}
	return inserted, nil
}

// QueryHistory returns reports inside the filter's closed datetime
// range, oldest first, optionally restricted to a single alias.
func (db *DB) QueryHistory(ctx context.Context, filter models.HistoryFilter) ([]models.LocationReport, error) {
	start := time.Now()

	query := `
		SELECT client_id, alias, latitude, longitude, date, time, speed, rpm, fuel
		FROM locations
		WHERE date || ' ' || time >= ? AND date || ' ' || time <= ?`
	args := []interface{}{
		filter.StartDate + " " + filter.StartTime,
		filter.EndDate + " " + filter.EndTime,
	}
	if filter.Alias != "" {
		query += ` AND alias = ?`
		args = append(args, filter.Alias)
	}
	query += ` ORDER BY date, time`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("select", "locations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer closeWithLog(rows, "rows")

	return scanReports(rows)
}

// LastLocations returns the most recent report per device, ordered by
// alias for stable presentation.
func (db *DB) LastLocations(ctx context.Context) ([]models.LastLocation, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT l.client_id, l.alias, l.latitude, l.longitude, l.date, l.time
		FROM locations l
		JOIN (
			SELECT client_id, MAX(date || ' ' || time) AS latest
			FROM locations
			GROUP BY client_id
		) m ON l.client_id = m.client_id
		   AND l.date || ' ' || l.time = m.latest
		ORDER BY l.alias`)
	metrics.RecordDBQuery("select_last", "locations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query last locations: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var out []models.LastLocation
	for rows.Next() {
		var loc models.LastLocation
		if err := rows.Scan(&loc.ClientID, &loc.Alias, &loc.Latitude,
			&loc.Longitude, &loc.Date, &loc.Time); err != nil {
			return nil, fmt.Errorf("scan last location: %w", err)
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// GetStats summarizes stored fleet data for the stats endpoint.
func (db *DB) GetStats(ctx context.Context) (*models.FleetStats, error) {
	start := time.Now()

	var stats models.FleetStats
	var lastReport sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT client_id), MAX(date || ' ' || time)
		FROM locations`).
		Scan(&stats.TotalReports, &stats.TotalDevices, &lastReport)
	metrics.RecordDBQuery("stats", "locations", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	if lastReport.Valid {
		stats.LastReportAt = lastReport.String
	}
	return &stats, nil
}

// scanReports drains a result set of full location rows.
func scanReports(rows *sql.Rows) ([]models.LocationReport, error) {
	var out []models.LocationReport
	for rows.Next() {
		var r models.LocationReport
		if err := rows.Scan(&r.DeviceID, &r.Alias, &r.Latitude, &r.Longitude,
			&r.Date, &r.Time, &r.Speed, &r.RPM, &r.Fuel); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
