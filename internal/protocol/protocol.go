// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

// Package protocol implements the telemetry line protocol spoken by
// fleet devices.
//
// One message is one line of text with seven labeled fields in fixed
// order:
//
//	ID:42 Latitude:4.6097 Longitude:-74.0817 Timestamp:2024-05-01 10:00:00 Speed:30 RPM:1500 Fuel:80
//
// Parsing is all-or-nothing: any missing field, malformed decimal, or
// impossible timestamp rejects the whole message. The parser is pure
// and stateless.
package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/geofleet/geofleet/internal/models"
)

// Replies sent back on the ingestion connection, one per message.
const (
	AckReply    = "Data received and saved."
	RejectReply = "Incorrect data format."
)

// ErrMalformedMessage is returned for any line that does not match the
// telemetry grammar.
var ErrMalformedMessage = errors.New("malformed telemetry message")

// linePattern matches one complete telemetry message. Labels are
// case-sensitive; fields are whitespace-separated and strictly ordered.
var linePattern = regexp.MustCompile(
	`^ID:\s*(\w+)` +
		`\s+Latitude:\s*(-?\d+(?:\.\d+)?)` +
		`\s+Longitude:\s*(-?\d+(?:\.\d+)?)` +
		`\s+Timestamp:\s*(\d{4}-\d{2}-\d{2})\s+(\d{2}:\d{2}:\d{2})` +
		`\s+Speed:\s*(\d+(?:\.\d+)?)` +
		`\s+RPM:\s*(\d+(?:\.\d+)?)` +
		`\s+Fuel:\s*(\d+(?:\.\d+)?)$`,
)

// Parse converts one wire line into a LocationReport. The report's
// Alias is left empty; the alias registry resolves it later.
func Parse(line string) (*models.LocationReport, error) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedMessage, truncate(line, 128))
	}

	// The pattern guarantees numeric shape, so these cannot fail.
	lat, _ := strconv.ParseFloat(m[2], 64)
	lon, _ := strconv.ParseFloat(m[3], 64)
	speed, _ := strconv.ParseFloat(m[6], 64)
	rpm, _ := strconv.ParseFloat(m[7], 64)
	fuel, _ := strconv.ParseFloat(m[8], 64)

	// The shape check above accepts impossible calendar values such as
	// month 13; reject them here.
	if _, err := time.Parse("2006-01-02 15:04:05", m[4]+" "+m[5]); err != nil {
		return nil, fmt.Errorf("%w: invalid timestamp %q", ErrMalformedMessage, m[4]+" "+m[5])
	}

	return &models.LocationReport{
		DeviceID:  m[1],
		Latitude:  lat,
		Longitude: lon,
		Date:      m[4],
		Time:      m[5],
		Speed:     speed,
		RPM:       rpm,
		Fuel:      fuel,
	}, nil
}

// truncate bounds a string for inclusion in error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
