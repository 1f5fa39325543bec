package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracklive/internal/store"
	"tracklive/internal/track"
)

func statusPtr(s track.Status) *track.Status { return &s }

func strptr(s string) *string { return &s }

func intptr(n int) *int { return &n }

// fakeClock hands out strictly increasing timestamps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func TestMemoryGetUnknownKey(t *testing.T) {
	m := store.NewMemory(nil)

	st, err := m.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, track.StatusPending, st.Status)
	assert.NotNil(t, st.Timeline)
	assert.Empty(t, st.Timeline)
	assert.Nil(t, st.UpdatedAt)
	assert.Equal(t, 0, m.Len(), "a read must not create a record")
}

func TestMemoryMerge(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	m := store.NewMemory(clock.Now)

	st, err := m.Merge(ctx, "T1", track.Patch{
		Status:     statusPtr(track.StatusAccepted),
		DriverName: strptr("Ali"),
	}, "Driver accepted your order")
	require.NoError(t, err)
	assert.Equal(t, track.StatusAccepted, st.Status)
	require.Len(t, st.Timeline, 1)
	assert.Equal(t, start.Add(time.Second), st.Timeline[0].TS)

	st, err = m.Merge(ctx, "T1", track.Patch{
		Status: statusPtr(track.StatusEnroute),
	}, "Driver is on the way")
	require.NoError(t, err)
	assert.Equal(t, track.StatusEnroute, st.Status)
	require.NotNil(t, st.DriverName)
	assert.Equal(t, "Ali", *st.DriverName)
	require.Len(t, st.Timeline, 2)
	assert.True(t, st.Timeline[0].TS.Before(st.Timeline[1].TS))

	got, err := m.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, st, got)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory(nil)

	st, err := m.Merge(ctx, "T1", track.Patch{Status: statusPtr(track.StatusAccepted)}, "Driver accepted your order")
	require.NoError(t, err)

	st.Status = track.StatusCompleted
	st.Timeline[0].Label = "tampered"

	fresh, err := m.Get(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, track.StatusAccepted, fresh.Status)
	assert.Equal(t, "Driver accepted your order", fresh.Timeline[0].Label)
}

func TestMemoryKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory(nil)

	_, err := m.Merge(ctx, "T1", track.Patch{Status: statusPtr(track.StatusCompleted)}, "Order delivered")
	require.NoError(t, err)

	st, err := m.Get(ctx, "T2")
	require.NoError(t, err)
	assert.Equal(t, track.StatusPending, st.Status)
	assert.Empty(t, st.Timeline)
}

func TestMemorySweep(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := newFakeClock(start)
	m := store.NewMemory(clock.Now)

	_, err := m.Merge(ctx, "stale", track.Patch{}, "")
	require.NoError(t, err)
	_, err = m.Merge(ctx, "watched", track.Patch{}, "")
	require.NoError(t, err)

	clock.mu.Lock()
	clock.now = start.Add(time.Hour)
	clock.mu.Unlock()

	_, err = m.Merge(ctx, "fresh", track.Patch{}, "")
	require.NoError(t, err)

	removed, err := m.Sweep(ctx, start.Add(30*time.Minute), func(key string) bool {
		return key == "watched"
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"stale"}, removed)
	assert.Equal(t, 2, m.Len())

	st, err := m.Get(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, track.StatusPending, st.Status)
}

func TestMemoryConcurrentMerges(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Merge(ctx, "shared", track.Patch{Status: statusPtr(track.StatusEnroute)}, "Driver is on the way")
			assert.NoError(t, err)
			_, err = m.Get(ctx, "shared")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := m.Get(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, st.Timeline, 50)
}
