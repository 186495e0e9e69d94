// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

// Package dedup suppresses duplicate telemetry messages.
//
// Devices on flaky cellular links retransmit aggressively, so the same
// raw line frequently arrives more than once. The filter fingerprints
// each raw message with SHA-256 and remembers fingerprints in a bounded
// LRU window with TTL: a repeat inside the window is a duplicate, a
// repeat after the window ages out is admitted again.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// entry is a node in the recency list.
type entry struct {
	fingerprint string
	firstSeen   time.Time
	expiresAt   time.Time
	prev        *entry
	next        *entry
}

// Filter is a thread-safe duplicate filter over raw message bytes.
//
// It combines a hashmap with a doubly-linked recency list so Admit is
// O(1) including eviction. Expiration is lazy: stale fingerprints are
// dropped when revisited or when capacity pressure evicts them.
type Filter struct {
	mu sync.Mutex

	// capacity bounds memory regardless of traffic volume.
	capacity int

	// window is how long a fingerprint suppresses repeats.
	window time.Duration

	items map[string]*entry

	// head.next is most recent, tail.prev is least recent.
	head *entry
	tail *entry

	admitted   int64
	duplicates int64

	// now is replaceable in tests.
	now func() time.Time
}

// NewFilter creates a duplicate filter holding at most capacity
// fingerprints, each suppressing repeats for the given window.
func NewFilter(capacity int, window time.Duration) *Filter {
	if capacity <= 0 {
		capacity = 100_000
	}
	if window <= 0 {
		window = 5 * time.Minute
	}

	f := &Filter{
		capacity: capacity,
		window:   window,
		items:    make(map[string]*entry, capacity),
		head:     &entry{},
		tail:     &entry{},
		now:      time.Now,
	}
	f.head.next = f.tail
	f.tail.prev = f.head
	return f
}

// Fingerprint returns the hex SHA-256 digest of a raw message.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Admit reports whether the raw message is new within the window.
// A first sighting records the fingerprint and returns true; a repeat
// inside the window returns false. Either way the fingerprint becomes
// the most recently used.
func (f *Filter) Admit(raw []byte) bool {
	return f.AdmitFingerprint(Fingerprint(raw))
}

// AdmitFingerprint is Admit for callers that already hold the digest.
func (f *Filter) AdmitFingerprint(fp string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()

	if e, ok := f.items[fp]; ok {
		if !now.After(e.expiresAt) {
			f.moveToFront(e)
			f.duplicates++
			return false
		}
		// Window elapsed, treat as a fresh message.
		f.remove(e)
	}

	e := &entry{
		fingerprint: fp,
		firstSeen:   now,
		expiresAt:   now.Add(f.window),
	}
	f.addToFront(e)
	f.items[fp] = e

	for len(f.items) > f.capacity {
		f.evictOldest()
	}

	f.admitted++
	return true
}

// Len returns the number of fingerprints currently tracked.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Stats returns counters for admitted and suppressed messages plus the
// current window size.
func (f *Filter) Stats() (admitted, duplicates int64, size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admitted, f.duplicates, len(f.items)
}

// Sweep removes every expired fingerprint and returns how many were
// dropped. Called periodically so an idle fleet does not pin memory.
func (f *Filter) Sweep() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	removed := 0
	for e := f.tail.prev; e != f.head; {
		prev := e.prev
		if now.After(e.expiresAt) {
			f.remove(e)
			removed++
		}
		e = prev
	}
	return removed
}

// list helpers, lock held

func (f *Filter) addToFront(e *entry) {
	e.prev = f.head
	e.next = f.head.next
	f.head.next.prev = e
	f.head.next = e
}

func (f *Filter) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	f.addToFront(e)
}

func (f *Filter) remove(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(f.items, e.fingerprint)
}

func (f *Filter) evictOldest() {
	oldest := f.tail.prev
	if oldest == f.head {
		return
	}
	f.remove(oldest)
}
