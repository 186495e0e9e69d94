// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

// Package batch accumulates accepted reports in memory and writes them
// to durable storage in time-gated batches.
//
// Writes are gated rather than per-report: a batch is persisted only
// when the flush interval has elapsed since the last successful flush.
// A failed flush retains the batch so no accepted report is lost; the
// storage call itself is idempotent (insert-or-ignore on the natural
// key), so retrying a partially applied batch is safe.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/geofleet/geofleet/internal/logging"
	"github.com/geofleet/geofleet/internal/metrics"
	"github.com/geofleet/geofleet/internal/models"
)

// Store is the durable sink for location batches.
type Store interface {
	// InsertLocations persists a batch, ignoring rows whose natural key
	// already exists. Returns the number of rows actually inserted.
	InsertLocations(ctx context.Context, reports []models.LocationReport) (int64, error)
}

// Config controls flush gating and storage failure handling.
type Config struct {
	// FlushInterval is the minimum time between successful flushes.
	FlushInterval time.Duration

	// BreakerThreshold is the consecutive-failure count that opens the
	// storage circuit breaker.
	BreakerThreshold uint32

	// BreakerCooldown is how long the breaker stays open before probing
	// storage again.
	BreakerCooldown time.Duration
}

// Accumulator buffers reports and flushes them through a circuit
// breaker. All methods are safe for concurrent use.
type Accumulator struct {
	mu      sync.Mutex
	pending []models.LocationReport
	// lastFlush gates the next flush; it starts at construction time
	// so the first window has to elapse. lastSuccess stays zero until
	// a batch actually reaches storage.
	lastFlush   time.Time
	lastSuccess time.Time
	flushing    bool

	interval time.Duration
	store    Store
	breaker  *gobreaker.CircuitBreaker[int64]

	// now is replaceable in tests.
	now func() time.Time
}

// NewAccumulator creates an accumulator writing to store.
func NewAccumulator(store Store, cfg Config) *Accumulator {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "location-store",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetBreakerState(name, to.String())
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Storage circuit breaker state changed")
		},
	}

	a := &Accumulator{
		interval: cfg.FlushInterval,
		store:    store,
		breaker:  gobreaker.NewCircuitBreaker[int64](settings),
		now:      time.Now,
	}
	a.lastFlush = a.now()
	return a
}

// Append adds a report to the pending batch and flushes if the gate
// is open.
func (a *Accumulator) Append(ctx context.Context, report models.LocationReport) error {
	a.mu.Lock()
	a.pending = append(a.pending, report)
	a.mu.Unlock()
	return a.MaybeFlush(ctx)
}

// MaybeFlush persists the pending batch if the flush interval has
// elapsed since the last successful flush. A no-op when the batch is
// empty, the gate is closed, or another flush is already in flight.
func (a *Accumulator) MaybeFlush(ctx context.Context) error {
	a.mu.Lock()
	if len(a.pending) == 0 || a.flushing || a.now().Sub(a.lastFlush) < a.interval {
		a.mu.Unlock()
		return nil
	}
	snapshot, size := a.handOffLocked()
	a.mu.Unlock()

	return a.persist(ctx, snapshot, size)
}

// Flush persists the pending batch regardless of the time gate.
// Used at shutdown so buffered reports are not lost.
func (a *Accumulator) Flush(ctx context.Context) error {
	a.mu.Lock()
	if len(a.pending) == 0 || a.flushing {
		a.mu.Unlock()
		return nil
	}
	snapshot, size := a.handOffLocked()
	a.mu.Unlock()

	return a.persist(ctx, snapshot, size)
}

// handOffLocked marks a flush in flight and snapshots the pending
// prefix. Caller holds the lock.
func (a *Accumulator) handOffLocked() ([]models.LocationReport, int) {
	a.flushing = true
	size := len(a.pending)
	snapshot := make([]models.LocationReport, size)
	copy(snapshot, a.pending)
	return snapshot, size
}

// persist writes the snapshot through the circuit breaker, then drops
// the flushed prefix and advances the gate only on success.
func (a *Accumulator) persist(ctx context.Context, snapshot []models.LocationReport, size int) error {
	start := time.Now()
	inserted, err := a.breaker.Execute(func() (int64, error) {
		return a.store.InsertLocations(ctx, snapshot)
	})

	a.mu.Lock()
	a.flushing = false
	if err == nil {
		// Reports appended during the write stay pending.
		remainder := make([]models.LocationReport, len(a.pending)-size)
		copy(remainder, a.pending[size:])
		a.pending = remainder
		a.lastFlush = a.now()
		a.lastSuccess = a.lastFlush
	}
	metrics.BatchPending.Set(float64(len(a.pending)))
	a.mu.Unlock()

	metrics.RecordFlush(size, time.Since(start), err)

	if err != nil {
		return fmt.Errorf("flush %d reports: %w", size, err)
	}

	logging.Debug().
		Int("batch_size", size).
		Int64("inserted", inserted).
		Dur("duration", time.Since(start)).
		Msg("Flushed location batch")
	return nil
}

// Pending returns the number of buffered reports.
func (a *Accumulator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// BreakerState reports the storage breaker state for health checks.
func (a *Accumulator) BreakerState() string {
	return a.breaker.State().String()
}

// LastFlush returns the time of the last successful flush, or the zero
// time when no batch has reached storage yet.
func (a *Accumulator) LastFlush() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastSuccess
}
