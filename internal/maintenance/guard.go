package maintenance

import (
	"sync"
	"time"
)

type guardEntry struct {
	running   bool
	lastRunAt time.Time
}

// GuardStore is the process-wide throttle state for maintenance tasks.
// Entries live for the process lifetime; in a multi-instance deployment each
// instance throttles independently, which is accepted as a best-effort
// throttle rather than a distributed lock.
type GuardStore struct {
	mu      sync.Mutex
	entries map[string]*guardEntry
}

// NewGuardStore constructs an empty store.
func NewGuardStore() *GuardStore {
	return &GuardStore{entries: make(map[string]*guardEntry)}
}

// Acquire attempts the IDLE -> RUNNING transition for key. Both guards — not
// already running, and minInterval elapsed since the last run — are
// evaluated under one lock so concurrent callers on the same key cannot both
// pass.
func (g *GuardStore) Acquire(key string, minInterval time.Duration, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[key]
	if !ok {
		entry = &guardEntry{}
		g.entries[key] = entry
	}
	if entry.running {
		return false
	}
	if !entry.lastRunAt.IsZero() && now.Sub(entry.lastRunAt) < minInterval {
		return false
	}
	entry.running = true
	return true
}

// Release transitions the key back to IDLE and records the attempt time. A
// failed attempt still counts as a run so a broken task cannot hot-loop.
func (g *GuardStore) Release(key string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[key]
	if !ok {
		return
	}
	entry.running = false
	entry.lastRunAt = now
}

// LastRun returns the recorded last attempt time for a key, zero when the
// key has never completed a run. Intended for tests and diagnostics.
func (g *GuardStore) LastRun(key string) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if entry, ok := g.entries[key]; ok {
		return entry.lastRunAt
	}
	return time.Time{}
}

// Reset clears all guard state. Intended for tests.
func (g *GuardStore) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries = make(map[string]*guardEntry)
}
