// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/geofleet/geofleet/internal/models"
)

type fakeSink struct {
	mu     sync.Mutex
	frames []models.BroadcastPayload
}

func (s *fakeSink) BroadcastLocation(p models.BroadcastPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, p)
}

func (s *fakeSink) delivered() []models.BroadcastPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.BroadcastPayload, len(s.frames))
	copy(out, s.frames)
	return out
}

func payload(id string, lat string) models.BroadcastPayload {
	return models.BroadcastPayload{ClientID: id, Latitude: lat, Longitude: "0"}
}

func newTestBroadcaster(sink Sink) (*Broadcaster, func(time.Duration)) {
	b := NewBroadcaster(sink, 5*time.Second)
	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return b, func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
}

func TestOfferOpenGateSendsImmediately(t *testing.T) {
	sink := &fakeSink{}
	b, _ := newTestBroadcaster(sink)

	b.Offer(payload("1", "40"))

	frames := sink.delivered()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	if frames[0].ClientID != "1" {
		t.Errorf("frame client = %q, want %q", frames[0].ClientID, "1")
	}
}

func TestOfferDropsInsideWindow(t *testing.T) {
	sink := &fakeSink{}
	b, advance := newTestBroadcaster(sink)

	b.Offer(payload("1", "first")) // opens the window
	advance(time.Second)
	b.Offer(payload("1", "second"))
	b.Offer(payload("2", "41"))

	if got := sink.delivered(); len(got) != 1 || got[0].Latitude != "first" {
		t.Fatalf("frames inside window = %v, want only the first", got)
	}

	// The dropped positions stay dropped after the window reopens.
	advance(5 * time.Second)
	if got := sink.delivered(); len(got) != 1 {
		t.Fatalf("dropped position was retried: frames = %v", got)
	}

	b.Offer(payload("1", "third"))
	got := sink.delivered()
	if len(got) != 2 {
		t.Fatalf("got %d frames after window reopened, want 2", len(got))
	}
	if got[1].Latitude != "third" {
		t.Errorf("second frame latitude = %q, want %q", got[1].Latitude, "third")
	}
}

func TestOfferSpacedBeyondIntervalDeliversBoth(t *testing.T) {
	sink := &fakeSink{}
	b, advance := newTestBroadcaster(sink)

	b.Offer(payload("1", "40"))
	advance(5 * time.Second)
	b.Offer(payload("2", "41"))

	got := sink.delivered()
	if len(got) != 2 {
		t.Fatalf("got %d frames, want 2", len(got))
	}
	if got[0].ClientID != "1" || got[1].ClientID != "2" {
		t.Errorf("frames = %v, want clients 1 then 2", got)
	}
}

func TestOfferAdvancesGatePerDelivery(t *testing.T) {
	sink := &fakeSink{}
	b, advance := newTestBroadcaster(sink)

	// Steady sub-interval traffic: one frame per window, the rest lost.
	for i := 0; i < 10; i++ {
		b.Offer(payload("1", "40"))
		advance(time.Second)
	}

	if got := sink.delivered(); len(got) != 2 {
		t.Fatalf("got %d frames over 10s of 1s traffic, want 2", len(got))
	}
}
