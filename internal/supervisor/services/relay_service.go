// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package services

import "context"

// Runner matches a component with a blocking Run loop, such as the
// broadcast relay.
type Runner interface {
	Run(ctx context.Context) error
}

// RelayService supervises the event-bus-to-broadcaster relay.
type RelayService struct {
	relay Runner
	name  string
}

// NewRelayService wraps the relay as a supervised service.
func NewRelayService(relay Runner) *RelayService {
	return &RelayService{relay: relay, name: "broadcast-relay"}
}

// Serve implements suture.Service.
func (r *RelayService) Serve(ctx context.Context) error {
	return r.relay.Run(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (r *RelayService) String() string {
	return r.name
}
