package cache

import (
	"sync"
	"time"
)

type memEntry struct {
	value     Value
	expiresAt time.Time
}

// Memory is the bounded in-process tier. When a Set pushes it past its
// bound, the entry with the earliest expiry is evicted (lowest key on ties).
// This is expiry order, not recency.
type Memory struct {
	mu    sync.Mutex
	max   int
	items map[string]memEntry
}

// NewMemory returns a tier holding at most max entries. max <= 0 means
// unbounded.
func NewMemory(max int) *Memory {
	return &Memory{max: max, items: make(map[string]memEntry)}
}

// Get returns the value for key if it has not expired at now. An expired
// entry is dropped.
func (m *Memory) Get(key string, now time.Time) (Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return Value{}, false
	}
	if !e.expiresAt.After(now) {
		delete(m.items, key)
		return Value{}, false
	}
	return e.value, true
}

// Set stores value under key and evicts at most one entry if the tier is
// over its bound. It returns the evicted key, or "".
func (m *Memory) Set(key string, value Value, expiresAt time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = memEntry{value: value, expiresAt: expiresAt}
	if m.max <= 0 || len(m.items) <= m.max {
		return ""
	}
	victim := m.soonestLocked()
	delete(m.items, victim)
	return victim
}

func (m *Memory) soonestLocked() string {
	var (
		victim string
		at     time.Time
		found  bool
	)
	for k, e := range m.items {
		if !found || e.expiresAt.Before(at) || (e.expiresAt.Equal(at) && k < victim) {
			victim, at, found = k, e.expiresAt, true
		}
	}
	return victim
}

// Delete removes key if present.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
}

// Clear empties the tier.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.items = make(map[string]memEntry)
	m.mu.Unlock()
}

// Sweep drops every entry expired at now and returns the count.
func (m *Memory) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k, e := range m.items {
		if !e.expiresAt.After(now) {
			delete(m.items, k)
			n++
		}
	}
	return n
}

// Len returns the number of entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Max returns the configured bound.
func (m *Memory) Max() int { return m.max }
