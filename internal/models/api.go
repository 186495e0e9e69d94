// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package models

import "time"

// APIResponse is the envelope for every query API response.
type APIResponse struct {
	Status   string      `json:"status"` // success or error
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// APIError carries a machine-readable code and a human-readable message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Count       int       `json:"count,omitempty"`
}

// HistoryRequest is the body of a history query: a closed datetime
// range with an optional alias filter. Datetimes use the HTML
// datetime-local shape, YYYY-MM-DDTHH:MM.
type HistoryRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Alias string `json:"alias,omitempty"`
}

// HistoryFilter is the parsed, validated form of a HistoryRequest.
type HistoryFilter struct {
	StartDate string // YYYY-MM-DD
	StartTime string // HH:MM:SS
	EndDate   string
	EndTime   string
	Alias     string
	Limit     int
}

// LastLocation is the most recent known report for one device.
type LastLocation struct {
	ClientID  string  `json:"client_id"`
	Alias     string  `json:"alias"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Date      string  `json:"date"`
	Time      string  `json:"time"`
}

// FleetStats summarizes the stored fleet data.
type FleetStats struct {
	TotalReports  int64      `json:"total_reports"`
	TotalDevices  int64      `json:"total_devices"`
	LastReportAt  string     `json:"last_report_at,omitempty"` // "date time" of newest row
	LastFlushTime *time.Time `json:"last_flush_time,omitempty"`
	PendingBatch  int        `json:"pending_batch"`
}
