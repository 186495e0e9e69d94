// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

// Package alias maps raw device identifiers to stable human-readable
// fleet names ("taxi 1", "taxi 2", ...).
//
// Assignment is first-come-first-served and permanent: the first time a
// device identifier is seen it receives the next free ordinal, and every
// later report reuses it. The registry is cache-first so the hot path
// touches storage only on a device's first sighting after startup.
package alias

import (
	"context"
	"fmt"
	"sync"

	"github.com/geofleet/geofleet/internal/logging"
)

// Store is the persistence surface the registry needs.
type Store interface {
	// GetAlias returns the stored alias for a device, with found=false
	// when the device has never been named.
	GetAlias(ctx context.Context, deviceID string) (alias string, found bool, err error)

	// CreateAlias assigns and persists the next free alias for a device.
	// It must be safe under concurrent callers for the same device and
	// return the winning alias either way.
	CreateAlias(ctx context.Context, deviceID string) (string, error)
}

// Registry resolves device identifiers to aliases, caching results
// in memory for the lifetime of the process.
type Registry struct {
	mu    sync.RWMutex
	cache map[string]string
	store Store
}

// NewRegistry creates a registry backed by the given store.
func NewRegistry(store Store) *Registry {
	return &Registry{
		cache: make(map[string]string),
		store: store,
	}
}

// Resolve returns the alias for a device, assigning one on first
// sighting. Cache hits never touch the store.
func (r *Registry) Resolve(ctx context.Context, deviceID string) (string, error) {
	r.mu.RLock()
	if alias, ok := r.cache[deviceID]; ok {
		r.mu.RUnlock()
		return alias, nil
	}
	r.mu.RUnlock()

	alias, found, err := r.store.GetAlias(ctx, deviceID)
	if err != nil {
		return "", fmt.Errorf("alias lookup for device %q: %w", deviceID, err)
	}

	if !found {
		alias, err = r.store.CreateAlias(ctx, deviceID)
		if err != nil {
			return "", fmt.Errorf("alias assignment for device %q: %w", deviceID, err)
		}
		logging.Info().
			Str("device_id", deviceID).
			Str("alias", alias).
			Msg("Assigned alias to new device")
	}

	r.mu.Lock()
	r.cache[deviceID] = alias
	r.mu.Unlock()

	return alias, nil
}

// Warm preloads the cache, typically from a full table scan at startup.
func (r *Registry) Warm(aliases map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, alias := range aliases {
		r.cache[id] = alias
	}
}

// CacheSize returns the number of cached device aliases.
func (r *Registry) CacheSize() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}
