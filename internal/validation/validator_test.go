// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package validation

import (
	"strings"
	"testing"

	"github.com/geofleet/geofleet/internal/models"
)

func validReport() models.LocationReport {
	return models.LocationReport{
		DeviceID:  "42",
		Latitude:  40.7128,
		Longitude: -74.006,
		Date:      "2024-05-01",
		Time:      "12:30:45",
		Speed:     33.5,
		RPM:       2400,
		Fuel:      67.2,
	}
}

func TestValidateReportOK(t *testing.T) {
	r := validReport()
	if err := ValidateStruct(&r); err != nil {
		t.Fatalf("expected valid report, got: %v", err)
	}
}

func TestValidateReportRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.LocationReport)
		wantSub string
	}{
		{
			name:    "latitude too large",
			mutate:  func(r *models.LocationReport) { r.Latitude = 91 },
			wantSub: "latitude",
		},
		{
			name:    "latitude too small",
			mutate:  func(r *models.LocationReport) { r.Latitude = -90.5 },
			wantSub: "latitude",
		},
		{
			name:    "longitude out of range",
			mutate:  func(r *models.LocationReport) { r.Longitude = 181 },
			wantSub: "longitude",
		},
		{
			name:    "negative speed",
			mutate:  func(r *models.LocationReport) { r.Speed = -1 },
			wantSub: ">=",
		},
		{
			name:    "negative rpm",
			mutate:  func(r *models.LocationReport) { r.RPM = -100 },
			wantSub: ">=",
		},
		{
			name:    "negative fuel",
			mutate:  func(r *models.LocationReport) { r.Fuel = -0.1 },
			wantSub: ">=",
		},
		{
			name:    "missing device id",
			mutate:  func(r *models.LocationReport) { r.DeviceID = "" },
			wantSub: "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validReport()
			tt.mutate(&r)
			err := ValidateStruct(&r)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(strings.ToLower(err.Error()), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidateBoundaryValues(t *testing.T) {
	r := validReport()
	r.Latitude = 90
	r.Longitude = -180
	r.Speed = 0
	r.RPM = 0
	r.Fuel = 0
	if err := ValidateStruct(&r); err != nil {
		t.Fatalf("boundary values should pass: %v", err)
	}
}
