// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

// Package ingest accepts device TCP connections and runs each message
// through the telemetry pipeline: parse, validate, deduplicate,
// resolve alias, buffer for persistence, publish for broadcast.
package ingest

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/geofleet/geofleet/internal/alias"
	"github.com/geofleet/geofleet/internal/batch"
	"github.com/geofleet/geofleet/internal/broadcast"
	"github.com/geofleet/geofleet/internal/dedup"
	"github.com/geofleet/geofleet/internal/logging"
	"github.com/geofleet/geofleet/internal/metrics"
	"github.com/geofleet/geofleet/internal/protocol"
	"github.com/geofleet/geofleet/internal/validation"
)

// Pipeline processes raw telemetry messages end to end. It is shared
// by every session; all stages are safe for concurrent use.
type Pipeline struct {
	filter      *dedup.Filter
	registry    *alias.Registry
	accumulator *batch.Accumulator
	publisher   message.Publisher
}

// NewPipeline assembles the ingestion pipeline.
func NewPipeline(filter *dedup.Filter, registry *alias.Registry, accumulator *batch.Accumulator, publisher message.Publisher) *Pipeline {
	return &Pipeline{
		filter:      filter,
		registry:    registry,
		accumulator: accumulator,
		publisher:   publisher,
	}
}

// Handle processes one raw message and returns the reply to send back
// on the wire.
//
// Duplicates are acknowledged like fresh messages: the device cannot
// tell a retransmission was suppressed, so it stops retrying. Internal
// failures after a message was accepted (alias lookup, flush, publish)
// are logged but still acknowledged; the report either sits in the
// retained batch or was already counted, and rejecting would make the
// device retransmit data we cannot distinguish from new.
func (p *Pipeline) Handle(ctx context.Context, raw []byte) string {
	report, err := protocol.Parse(string(raw))
	if err != nil {
		metrics.RecordMessage(metrics.OutcomeRejected)
		logging.Debug().Err(err).Msg("Rejected telemetry message")
		return protocol.RejectReply
	}

	if err := validation.ValidateStruct(report); err != nil {
		metrics.RecordMessage(metrics.OutcomeRejected)
		logging.Debug().Err(err).Str("device_id", report.DeviceID).Msg("Rejected out-of-range report")
		return protocol.RejectReply
	}

	if !p.filter.Admit(raw) {
		metrics.RecordMessage(metrics.OutcomeDuplicate)
		return protocol.AckReply
	}

	resolved, err := p.registry.Resolve(ctx, report.DeviceID)
	if err != nil {
		logging.Error().Err(err).Str("device_id", report.DeviceID).Msg("Alias resolution failed")
	} else {
		report.Alias = resolved
	}

	metrics.RecordMessage(metrics.OutcomeAccepted)

	if err := p.accumulator.Append(ctx, *report); err != nil {
		// The batch is retained; a later gate opening retries.
		logging.Error().Err(err).Msg("Batch flush failed, reports retained")
	}

	if err := broadcast.PublishReport(p.publisher, *report); err != nil {
		logging.Error().Err(err).Str("device_id", report.DeviceID).Msg("Failed to publish report for broadcast")
	}

	return protocol.AckReply
}
