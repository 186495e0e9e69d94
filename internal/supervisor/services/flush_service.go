// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package services

import (
	"context"
	"time"

	"github.com/geofleet/geofleet/internal/logging"
)

// Flusher matches the batch accumulator's flush surface.
type Flusher interface {
	MaybeFlush(ctx context.Context) error
	Flush(ctx context.Context) error
}

// FlushService periodically nudges the batch accumulator. Flushing is
// primarily driven by inbound traffic; this service covers quiet
// periods so buffered reports still reach storage.
type FlushService struct {
	accumulator Flusher
	interval    time.Duration
	name        string
}

// NewFlushService creates the periodic flusher.
func NewFlushService(accumulator Flusher, interval time.Duration) *FlushService {
	if interval <= 0 {
		interval = time.Second
	}
	return &FlushService{
		accumulator: accumulator,
		interval:    interval,
		name:        "periodic-flush",
	}
}

// Serve implements suture.Service. On shutdown a final forced flush
// drains whatever is still buffered.
func (f *FlushService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := f.accumulator.Flush(flushCtx); err != nil {
				logging.Error().Err(err).Msg("Final flush on shutdown failed")
			}
			return ctx.Err()

		case <-ticker.C:
			if err := f.accumulator.MaybeFlush(ctx); err != nil {
				logging.Error().Err(err).Msg("Periodic flush failed, batch retained")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (f *FlushService) String() string {
	return f.name
}
