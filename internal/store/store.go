package store

import (
	"context"
	"sync"
	"time"

	"tracklive/internal/metrics"
	"tracklive/internal/track"
)

// Store holds the authoritative order state per key. Implementations must
// apply each merge atomically with respect to its key and must never hand
// out state that a later merge mutates in place.
//
// The memory backend is the reference; the Postgres backend is the durable
// swap-in. Both share the merge semantics of track.OrderState.Apply.
type Store interface {
	// Get returns the stored state, or the pending view for unknown keys.
	// It never mutates anything.
	Get(ctx context.Context, key string) (track.OrderState, error)
	// Merge folds a patch into the state for key, creating the record if
	// needed, and returns the full resulting state.
	Merge(ctx context.Context, key string, patch track.Patch, label string) (track.OrderState, error)
	// Sweep drops every record last updated before olderThan unless keep
	// approves its key, and returns the removed keys.
	Sweep(ctx context.Context, olderThan time.Time, keep func(key string) bool) ([]string, error)
}

var _ Store = (*Memory)(nil)

// Memory is the in-process reference store.
type Memory struct {
	mu    sync.RWMutex
	clock func() time.Time
	items map[string]track.OrderState
}

// NewMemory returns an empty in-memory store. clock stamps UpdatedAt and
// timeline entries; pass nil for time.Now.
func NewMemory(clock func() time.Time) *Memory {
	if clock == nil {
		clock = time.Now
	}
	return &Memory{
		clock: clock,
		items: make(map[string]track.OrderState),
	}
}

func (m *Memory) Get(_ context.Context, key string) (track.OrderState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.items[key]
	if !ok {
		return track.Pending(), nil
	}
	return cloneState(st), nil
}

func (m *Memory) Merge(_ context.Context, key string, patch track.Patch, label string) (track.OrderState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.items[key]
	if !ok {
		cur = track.Pending()
	}
	next := cur.Apply(patch, label, m.clock())
	m.items[key] = next
	metrics.TrackedOrders.Set(float64(len(m.items)))
	return cloneState(next), nil
}

func (m *Memory) Sweep(_ context.Context, olderThan time.Time, keep func(string) bool) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for key, st := range m.items {
		if st.UpdatedAt != nil && !st.UpdatedAt.Before(olderThan) {
			continue
		}
		if keep != nil && keep(key) {
			continue
		}
		delete(m.items, key)
		removed = append(removed, key)
	}
	metrics.TrackedOrders.Set(float64(len(m.items)))
	return removed, nil
}

// Len reports how many orders currently have a record.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// cloneState copies the state so callers can hold it across later merges.
func cloneState(s track.OrderState) track.OrderState {
	out := s
	out.Timeline = make([]track.TimelineEntry, len(s.Timeline))
	copy(out.Timeline, s.Timeline)
	return out
}
