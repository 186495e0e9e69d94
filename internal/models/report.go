// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

// Package models defines the data types shared across Geofleet components.
package models

import (
	"strconv"
	"time"
)

// LocationReport is one parsed telemetry message from a fleet device.
// It is immutable once parsed: the codec creates it, the alias registry
// fills in Alias exactly once, and every later consumer treats it as
// read-only.
type LocationReport struct {
	DeviceID  string  `json:"client_id" validate:"required"`
	Alias     string  `json:"alias"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
	Date      string  `json:"date" validate:"required"` // YYYY-MM-DD
	Time      string  `json:"time" validate:"required"` // HH:MM:SS
	Speed     float64 `json:"speed" validate:"gte=0"`
	RPM       float64 `json:"rpm" validate:"gte=0"`
	Fuel      float64 `json:"fuel" validate:"gte=0"`
}

// Key returns the persistence identity of the report. A report is never
// stored twice for the same key.
func (r *LocationReport) Key() string {
	return r.DeviceID + "|" + r.Date + "|" + r.Time
}

// Timestamp parses the report's date and time as a UTC instant.
func (r *LocationReport) Timestamp() (time.Time, error) {
	return time.Parse("2006-01-02 15:04:05", r.Date+" "+r.Time)
}

// BroadcastPayload is the wire form of a report pushed to live
// subscribers. All values are strings, matching the subscriber protocol.
type BroadcastPayload struct {
	ClientID  string `json:"client_id"`
	Alias     string `json:"alias"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	Speed     string `json:"speed"`
	RPM       string `json:"rpm"`
	Fuel      string `json:"fuel"`
}

// NewBroadcastPayload converts a report to its subscriber wire form.
func NewBroadcastPayload(r *LocationReport) BroadcastPayload {
	return BroadcastPayload{
		ClientID:  r.DeviceID,
		Alias:     r.Alias,
		Latitude:  formatDecimal(r.Latitude),
		Longitude: formatDecimal(r.Longitude),
		Date:      r.Date,
		Time:      r.Time,
		Speed:     formatDecimal(r.Speed),
		RPM:       formatDecimal(r.RPM),
		Fuel:      formatDecimal(r.Fuel),
	}
}

// formatDecimal renders a float in its shortest exact decimal form.
func formatDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
