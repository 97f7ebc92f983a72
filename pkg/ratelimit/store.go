package ratelimit

import (
	"sync"
	"time"
)

// Entry is the per-key rate-limit state. Fixed-window strategies use Count
// and WindowReset; the sliding window uses Timestamps. Violations belongs to
// the progressive strategy and survives window resets until the entry is
// swept.
type Entry struct {
	Count        int         `json:"count"`
	WindowReset  time.Time   `json:"window_reset"`
	FirstAttempt time.Time   `json:"first_attempt"`
	Timestamps   []time.Time `json:"timestamps,omitempty"`
	Violations   int         `json:"violations,omitempty"`

	// ExpiresAt is the instant after which the entry carries no live state
	// and may be removed by the sweep. Correctness never depends on the
	// sweep running; stale entries are reset lazily at access time.
	ExpiresAt time.Time `json:"expires_at"`
}

// EntryStore is the storage contract behind the limiter. The in-memory
// implementation serves single-process deployments; a remote implementation
// (see RedisStore) can back a distributed one without changing the
// algorithmic logic.
//
// Implementations must be safe for concurrent use. Atomicity of a
// read-modify-write across Get and Set is the limiter's responsibility, not
// the store's.
type EntryStore interface {
	Get(key string) (Entry, bool)
	Set(key string, e Entry)
	Delete(key string)

	// SweepExpired removes entries whose ExpiresAt precedes now and reports
	// how many were removed. This is a liveness optimization only.
	SweepExpired(now time.Time) int

	// Clear drops all entries. Admin use only.
	Clear()
}

// MemoryStore is the default in-process EntryStore backed by a mutex-guarded
// map.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	return e, ok
}

func (s *MemoryStore) Set(key string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = e
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

func (s *MemoryStore) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if now.After(e.ExpiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]Entry)
}

// Len reports the number of live entries. Exposed for tests and metrics.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}
