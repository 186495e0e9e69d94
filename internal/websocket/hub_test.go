// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/geofleet/geofleet/internal/models"
)

func testClient(h *Hub, buffer int) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  h,
		send: make(chan Message, buffer),
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	c := testClient(hub, 1)
	hub.Register <- c
	waitFor(t, func() bool { return hub.ClientCount() == 1 }, "client not registered")

	hub.Unregister <- c
	waitFor(t, func() bool { return hub.ClientCount() == 0 }, "client not unregistered")

	// Unregistering closes the send channel.
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Error("send channel not closed")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("RunWithContext returned %v, want context.Canceled", err)
	}
}

func TestHubBroadcastLocation(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	a := testClient(hub, 4)
	b := testClient(hub, 4)
	hub.Register <- a
	hub.Register <- b
	waitFor(t, func() bool { return hub.ClientCount() == 2 }, "clients not registered")

	payload := models.BroadcastPayload{ClientID: "42", Alias: "taxi 1", Latitude: "40.7128", Longitude: "-74.006"}
	hub.BroadcastLocation(payload)

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Type != MessageTypeLocation {
				t.Errorf("message type = %q, want %q", msg.Type, MessageTypeLocation)
			}
			got, ok := msg.Data.(models.BroadcastPayload)
			if !ok {
				t.Fatalf("message data has type %T", msg.Data)
			}
			if got.Alias != "taxi 1" {
				t.Errorf("alias = %q, want %q", got.Alias, "taxi 1")
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	slow := testClient(hub, 1)
	hub.Register <- slow
	waitFor(t, func() bool { return hub.ClientCount() == 1 }, "client not registered")

	// First frame fills the buffer, second finds it full and evicts.
	hub.BroadcastLocation(models.BroadcastPayload{ClientID: "1"})
	hub.BroadcastLocation(models.BroadcastPayload{ClientID: "2"})

	waitFor(t, func() bool { return hub.ClientCount() == 0 }, "slow subscriber not dropped")
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.RunWithContext(ctx) }()

	c := testClient(hub, 1)
	hub.Register <- c
	waitFor(t, func() bool { return hub.ClientCount() == 1 }, "client not registered")

	cancel()
	<-done

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() after shutdown = %d, want 0", hub.ClientCount())
	}
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel after shutdown")
		}
	default:
		t.Error("send channel not closed after shutdown")
	}
}

func TestEnqueueAfterCloseDoesNotPanic(t *testing.T) {
	c := testClient(NewHub(), 1)

	// A subscriber ping can race the hub dropping the client; queuing
	// the pong reply after the close must be a safe no-op.
	c.closeSend()
	if !c.enqueue(Message{Type: MessageTypePong}) {
		t.Error("enqueue on closed client reported a full buffer")
	}

	// Closing again is a no-op too.
	c.closeSend()
}

func TestEnqueueReportsFullBuffer(t *testing.T) {
	c := testClient(NewHub(), 1)

	if !c.enqueue(Message{Type: MessageTypeLocation}) {
		t.Fatal("first enqueue should fit the buffer")
	}
	if c.enqueue(Message{Type: MessageTypeLocation}) {
		t.Error("second enqueue should report a full buffer")
	}
}
