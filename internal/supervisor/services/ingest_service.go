// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

// Package services wraps Geofleet components as suture services.
package services

import "context"

// ContextServer matches a component with a blocking, context-aware
// Serve loop, such as the telemetry TCP listener.
type ContextServer interface {
	Serve(ctx context.Context) error
}

// IngestService supervises the telemetry TCP listener.
type IngestService struct {
	server ContextServer
	name   string
}

// NewIngestService wraps the listener as a supervised service.
func NewIngestService(server ContextServer) *IngestService {
	return &IngestService{server: server, name: "ingest-listener"}
}

// Serve implements suture.Service.
func (s *IngestService) Serve(ctx context.Context) error {
	return s.server.Serve(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (s *IngestService) String() string {
	return s.name
}
