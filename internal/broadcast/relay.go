// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package broadcast

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/geofleet/geofleet/internal/logging"
	"github.com/geofleet/geofleet/internal/models"
)

// Relay consumes accepted reports from the event bus and feeds the
// throttled broadcaster. It decouples ingestion latency from websocket
// delivery: a slow subscriber never backpressures a TCP session.
type Relay struct {
	subscriber  message.Subscriber
	broadcaster *Broadcaster
}

// NewRelay creates a relay between the bus and the broadcaster.
func NewRelay(subscriber message.Subscriber, broadcaster *Broadcaster) *Relay {
	return &Relay{
		subscriber:  subscriber,
		broadcaster: broadcaster,
	}
}

// Run consumes TopicLocations until the context is canceled.
// Malformed payloads are acked and dropped: the bus only carries
// messages this process published, so a decode failure is a bug to
// surface in logs, not a message to redeliver forever.
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, TopicLocations)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicLocations, err)
	}

	logging.Info().Str("topic", TopicLocations).Msg("Broadcast relay started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("component", "broadcast-relay").Msg("Broadcast relay stopped")
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(msg)
		}
	}
}

func (r *Relay) handle(msg *message.Message) {
	defer msg.Ack()

	var report models.LocationReport
	if err := json.Unmarshal(msg.Payload, &report); err != nil {
		logging.Error().
			Err(err).
			Str("message_uuid", msg.UUID).
			Msg("Dropping undecodable location message")
		return
	}

	r.broadcaster.Offer(models.NewBroadcastPayload(&report))
}
