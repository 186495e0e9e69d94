// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package protocol

import (
	"errors"
	"testing"
)

func TestParseValid(t *testing.T) {
	line := "ID:42 Latitude:4.6097 Longitude:-74.0817 Timestamp:2024-05-01 10:00:00 Speed:30 RPM:1500 Fuel:80"

	report, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if report.DeviceID != "42" {
		t.Errorf("DeviceID = %q, want %q", report.DeviceID, "42")
	}
	if report.Latitude != 4.6097 {
		t.Errorf("Latitude = %v, want 4.6097", report.Latitude)
	}
	if report.Longitude != -74.0817 {
		t.Errorf("Longitude = %v, want -74.0817", report.Longitude)
	}
	if report.Date != "2024-05-01" {
		t.Errorf("Date = %q, want 2024-05-01", report.Date)
	}
	if report.Time != "10:00:00" {
		t.Errorf("Time = %q, want 10:00:00", report.Time)
	}
	if report.Speed != 30 {
		t.Errorf("Speed = %v, want 30", report.Speed)
	}
	if report.RPM != 1500 {
		t.Errorf("RPM = %v, want 1500", report.RPM)
	}
	if report.Fuel != 80 {
		t.Errorf("Fuel = %v, want 80", report.Fuel)
	}
	if report.Alias != "" {
		t.Errorf("Alias should be unresolved after parse, got %q", report.Alias)
	}
}

func TestParseVariants(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"extra spaces after labels", "ID: abc7 Latitude: -1.5 Longitude: 2.25 Timestamp: 2023-12-31 23:59:59 Speed: 0 RPM: 0.5 Fuel: 100.25"},
		{"integer coordinates", "ID:9 Latitude:4 Longitude:-74 Timestamp:2024-05-01 10:00:00 Speed:30 RPM:1500 Fuel:80"},
		{"alphanumeric device id", "ID:taxi_007 Latitude:4.6 Longitude:-74.0 Timestamp:2024-05-01 10:00:00 Speed:12.5 RPM:900 Fuel:55"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.line); err != nil {
				t.Errorf("Parse(%q) failed: %v", tt.line, err)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"missing id", "Latitude:abc Longitude:-74 Timestamp:bad"},
		{"empty", ""},
		{"non-numeric latitude", "ID:42 Latitude:abc Longitude:-74.0 Timestamp:2024-05-01 10:00:00 Speed:30 RPM:1500 Fuel:80"},
		{"missing fuel", "ID:42 Latitude:4.6 Longitude:-74.0 Timestamp:2024-05-01 10:00:00 Speed:30 RPM:1500"},
		{"fields out of order", "Latitude:4.6 ID:42 Longitude:-74.0 Timestamp:2024-05-01 10:00:00 Speed:30 RPM:1500 Fuel:80"},
		{"negative speed", "ID:42 Latitude:4.6 Longitude:-74.0 Timestamp:2024-05-01 10:00:00 Speed:-30 RPM:1500 Fuel:80"},
		{"wrong date shape", "ID:42 Latitude:4.6 Longitude:-74.0 Timestamp:01-05-2024 10:00:00 Speed:30 RPM:1500 Fuel:80"},
		{"impossible month", "ID:42 Latitude:4.6 Longitude:-74.0 Timestamp:2024-13-01 10:00:00 Speed:30 RPM:1500 Fuel:80"},
		{"impossible hour", "ID:42 Latitude:4.6 Longitude:-74.0 Timestamp:2024-05-01 25:00:00 Speed:30 RPM:1500 Fuel:80"},
		{"trailing garbage", "ID:42 Latitude:4.6 Longitude:-74.0 Timestamp:2024-05-01 10:00:00 Speed:30 RPM:1500 Fuel:80 Extra:1"},
		{"lowercase label", "id:42 Latitude:4.6 Longitude:-74.0 Timestamp:2024-05-01 10:00:00 Speed:30 RPM:1500 Fuel:80"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := Parse(tt.line)
			if err == nil {
				t.Fatalf("Parse(%q) accepted malformed input", tt.line)
			}
			if !errors.Is(err, ErrMalformedMessage) {
				t.Errorf("error = %v, want ErrMalformedMessage", err)
			}
			if report != nil {
				t.Errorf("Parse returned a report alongside an error")
			}
		})
	}
}
