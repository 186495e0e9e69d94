// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/geofleet/geofleet/internal/models"
)

func TestRelayDeliversPublishedReports(t *testing.T) {
	pubsub := NewPubSub(16)
	defer pubsub.Close()

	sink := &fakeSink{}
	b := NewBroadcaster(sink, 5*time.Second)
	relay := NewRelay(pubsub, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	// Give the subscription a moment to attach before publishing.
	time.Sleep(50 * time.Millisecond)

	report := models.LocationReport{
		DeviceID: "42", Alias: "taxi 1",
		Latitude: 40.7128, Longitude: -74.006,
		Date: "2024-05-01", Time: "12:30:45",
		Speed: 33.5, RPM: 2400, Fuel: 67.2,
	}
	if err := PublishReport(pubsub, report); err != nil {
		t.Fatalf("PublishReport: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		n := len(sink.frames)
		sink.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.frames) != 1 {
		t.Fatalf("sink received %d frames, want 1", len(sink.frames))
	}
	got := sink.frames[0]
	if got.ClientID != "42" || got.Alias != "taxi 1" {
		t.Errorf("payload = %+v", got)
	}
	if got.Latitude != "40.7128" || got.Speed != "33.5" {
		t.Errorf("payload values not formatted: %+v", got)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestRelayDropsUndecodableMessage(t *testing.T) {
	pubsub := NewPubSub(16)
	defer pubsub.Close()

	sink := &fakeSink{}
	b := NewBroadcaster(sink, 5*time.Second)
	relay := NewRelay(pubsub, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = relay.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	msg := message.NewMessage(watermill.NewUUID(), []byte("{not json"))
	if err := pubsub.Publish(TopicLocations, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	report := models.LocationReport{DeviceID: "7", Date: "2024-05-01", Time: "12:00:00"}
	if err := PublishReport(pubsub, report); err != nil {
		t.Fatalf("PublishReport: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sink.mu.Lock()
		n := len(sink.frames)
		sink.mu.Unlock()
		if n == 1 {
			return // bad message skipped, good one delivered
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("valid report not delivered after undecodable message")
}
