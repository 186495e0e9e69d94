// Geofleet - Fleet Telemetry Ingestion and Live Tracking
// Copyright 2026 Geofleet contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/geofleet/geofleet

package dedup

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAdmitFirstThenDuplicate(t *testing.T) {
	f := NewFilter(100, time.Minute)

	raw := []byte("ID:42 Latitude:40.7128 Longitude:-74.0060 Timestamp:2024-05-01 12:30:45 Speed:33.5 RPM:2400 Fuel:67.2")
	if !f.Admit(raw) {
		t.Fatal("first sighting should be admitted")
	}
	if f.Admit(raw) {
		t.Fatal("repeat inside window should be suppressed")
	}
	if f.Admit(raw) {
		t.Fatal("third repeat should still be suppressed")
	}

	admitted, duplicates, size := f.Stats()
	if admitted != 1 || duplicates != 2 || size != 1 {
		t.Errorf("stats = (%d, %d, %d), want (1, 2, 1)", admitted, duplicates, size)
	}
}

func TestDistinctMessagesAdmitted(t *testing.T) {
	f := NewFilter(100, time.Minute)

	for i := 0; i < 10; i++ {
		raw := []byte(fmt.Sprintf("ID:%d Latitude:0 Longitude:0 Timestamp:2024-05-01 12:00:0%d Speed:0 RPM:0 Fuel:0", i, i))
		if !f.Admit(raw) {
			t.Errorf("distinct message %d suppressed", i)
		}
	}
	if f.Len() != 10 {
		t.Errorf("Len() = %d, want 10", f.Len())
	}
}

func TestWindowExpiry(t *testing.T) {
	f := NewFilter(100, time.Minute)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	f.now = func() time.Time { return now }

	raw := []byte("hello")
	if !f.Admit(raw) {
		t.Fatal("first sighting should be admitted")
	}

	now = base.Add(30 * time.Second)
	if f.Admit(raw) {
		t.Fatal("repeat at 30s should be suppressed")
	}

	now = base.Add(61 * time.Second)
	if !f.Admit(raw) {
		t.Fatal("repeat after window should be admitted again")
	}
}

func TestCapacityEviction(t *testing.T) {
	f := NewFilter(3, time.Minute)

	f.Admit([]byte("a"))
	f.Admit([]byte("b"))
	f.Admit([]byte("c"))
	f.Admit([]byte("d")) // evicts "a"

	if f.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.Len())
	}
	if !f.Admit([]byte("a")) {
		t.Error("evicted fingerprint should be admitted as new")
	}
	if f.Admit([]byte("c")) {
		t.Error("retained fingerprint should still be suppressed")
	}
}

func TestSweep(t *testing.T) {
	f := NewFilter(100, time.Minute)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base
	f.now = func() time.Time { return now }

	f.Admit([]byte("old-1"))
	f.Admit([]byte("old-2"))
	now = base.Add(2 * time.Minute)
	f.Admit([]byte("fresh"))

	if removed := f.Sweep(); removed != 2 {
		t.Errorf("Sweep() removed %d, want 2", removed)
	}
	if f.Len() != 1 {
		t.Errorf("Len() after sweep = %d, want 1", f.Len())
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint([]byte("same bytes"))
	b := Fingerprint([]byte("same bytes"))
	c := Fingerprint([]byte("other bytes"))
	if a != b {
		t.Error("identical input must produce identical fingerprints")
	}
	if a == c {
		t.Error("different input must produce different fingerprints")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
}

func TestConcurrentAdmit(t *testing.T) {
	f := NewFilter(10_000, time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	// 50 goroutines race on the same 100 messages; each message must be
	// admitted exactly once in total.
	for g := 0; g < 50; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if f.Admit([]byte(fmt.Sprintf("msg-%d", i))) {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if admitted != 100 {
		t.Errorf("admitted %d messages total, want exactly 100", admitted)
	}
}
