// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

// Package broadcast throttles the stream of accepted reports into a
// live feed for websocket subscribers.
//
// Delivery is best-effort: at most one frame goes out per throttle
// window, and a report arriving while the gate is closed is dropped
// outright, never queued for later. Subscribers see a sampled feed,
// not a replay.
package broadcast

import (
	"sync"
	"time"

	"github.com/geofleet/geofleet/internal/metrics"
	"github.com/geofleet/geofleet/internal/models"
)

// Sink receives the throttled feed, in production the websocket hub.
type Sink interface {
	BroadcastLocation(payload models.BroadcastPayload)
}

// Broadcaster gates positions to the sink at most once per throttle
// interval.
type Broadcaster struct {
	mu       sync.Mutex
	last     time.Time
	throttle time.Duration
	sink     Sink

	// now is replaceable in tests.
	now func() time.Time
}

// NewBroadcaster creates a broadcaster pushing to sink at most once
// per throttle interval.
func NewBroadcaster(sink Sink, throttle time.Duration) *Broadcaster {
	if throttle <= 0 {
		throttle = 5 * time.Second
	}
	return &Broadcaster{
		throttle: throttle,
		sink:     sink,
		now:      time.Now,
	}
}

// Offer submits a fresh position. If the gate is open the position
// goes out and the gate timestamp advances regardless of delivery
// outcome; inside the window the position is discarded.
func (b *Broadcaster) Offer(payload models.BroadcastPayload) {
	b.mu.Lock()
	now := b.now()
	if now.Sub(b.last) < b.throttle {
		b.mu.Unlock()
		metrics.BroadcastDropped.Inc()
		return
	}
	b.last = now
	b.mu.Unlock()

	metrics.BroadcastFrames.WithLabelValues("location").Inc()
	b.sink.BroadcastLocation(payload)
}
