package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/issuelens/internal/issue"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func openTestCache(t *testing.T, path string, clock *fakeClock, maxItems int) *Cache {
	t.Helper()
	c, err := Open(context.Background(), path, Options{
		MaxMemoryItems:  maxItems,
		CleanupInterval: time.Hour,
		Now:             clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func mustJSON(t *testing.T, v any) Value {
	t.Helper()
	val, err := JSONValue(v)
	require.NoError(t, err)
	return val
}

func TestCacheSetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"), newClock(), 10)

	require.NoError(t, c.Set(ctx, "a", mustJSON(t, map[string]int{"x": 1}), 86400*time.Second))

	got, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"x":1}`, string(got.JSON))

	var decoded map[string]int
	require.NoError(t, got.Decode(&decoded))
	assert.Equal(t, 1, decoded["x"])

	require.NoError(t, c.Delete(ctx, "a"))
	_, ok, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheValueKinds(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	clock := newClock()
	c := openTestCache(t, path, clock, 10)

	issues := []issue.Issue{{
		Number:    7,
		Title:     "crash on start",
		Labels:    []string{"bug"},
		State:     "open",
		UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}
	require.NoError(t, c.Set(ctx, "issues", IssuesValue(issues), 0))
	require.NoError(t, c.Set(ctx, "summary", SummaryValue("App crashes at startup"), 0))

	// A second cache on the same file has an empty memory tier, so both
	// reads come from sqlite.
	fresh := openTestCache(t, path, clock, 10)

	got, ok, err := fresh.Get(ctx, "issues")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindIssues, got.Kind)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, 7, got.Issues[0].Number)
	assert.True(t, issues[0].UpdatedAt.Equal(got.Issues[0].UpdatedAt))

	got, ok, err = fresh.Get(ctx, "summary")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, SummaryValue("App crashes at startup"), got)
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"), clock, 10)

	require.NoError(t, c.Set(ctx, "k", SummaryValue("v"), time.Second))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(2 * time.Second)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := c.store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "stale durable row should be removed on read")
}

func TestCacheDefaultTTL(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"), clock, 10)

	require.NoError(t, c.Set(ctx, "k", SummaryValue("v"), 0))
	row, ok, err := c.store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, clock.Now().Add(DefaultTTL), row.ExpiresAt, time.Millisecond)
}

func TestCacheMemoryBoundFallsBackToDurable(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"), newClock(), 2)

	require.NoError(t, c.Set(ctx, "a", mustJSON(t, 1), 0))
	require.NoError(t, c.Set(ctx, "b", mustJSON(t, 2), 0))
	require.NoError(t, c.Set(ctx, "c", mustJSON(t, 3), 0))
	assert.LessOrEqual(t, c.mem.Len(), 2)

	for i, key := range []string{"a", "b", "c"} {
		got, ok, err := c.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok, "key %s", key)
		assert.JSONEq(t, fmt.Sprint(i+1), string(got.JSON))
		assert.LessOrEqual(t, c.mem.Len(), 2)
	}
}

func TestCachePromotesDurableHit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	clock := newClock()

	first := openTestCache(t, path, clock, 10)
	require.NoError(t, first.Set(ctx, "k", SummaryValue("v"), time.Minute))
	stored, _, err := first.store.Get(ctx, "k")
	require.NoError(t, err)

	second := openTestCache(t, path, clock, 10)
	assert.Equal(t, 0, second.mem.Len())
	_, ok, err := second.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, second.mem.Len())

	second.mem.mu.Lock()
	promoted := second.mem.items["k"].expiresAt
	second.mem.mu.Unlock()
	assert.True(t, stored.ExpiresAt.Equal(promoted), "promotion keeps the stored expiry")
}

func TestCacheClear(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"), newClock(), 10)

	keys := []string{"a", "b", "c"}
	for _, k := range keys {
		require.NoError(t, c.Set(ctx, k, SummaryValue(k), 0))
	}
	require.NoError(t, c.Clear(ctx))

	assert.Equal(t, 0, c.mem.Len())
	for _, k := range keys {
		_, ok, err := c.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestCachePeriodicSweep(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"), clock, 10)

	require.NoError(t, c.Set(ctx, "short", SummaryValue("s"), time.Minute))
	require.NoError(t, c.Set(ctx, "long", SummaryValue("l"), 48*time.Hour))

	clock.Advance(30 * time.Minute)
	_, _, err := c.Get(ctx, "long")
	require.NoError(t, err)
	st, err := c.store.Stats(ctx, clock.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Rows, "no sweep before the interval elapses")

	clock.Advance(31 * time.Minute)
	_, _, err = c.Get(ctx, "long")
	require.NoError(t, err)
	st, err = c.store.Stats(ctx, clock.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, st.Rows)
	assert.Equal(t, 1, c.mem.Len())
}

func TestCacheSweepNow(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"), clock, 10)

	require.NoError(t, c.Set(ctx, "a", SummaryValue("a"), time.Second))
	require.NoError(t, c.Set(ctx, "b", SummaryValue("b"), time.Hour))
	clock.Advance(time.Minute)

	res, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Memory: 1, Durable: 1}, res)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.DurableRows)
	assert.EqualValues(t, 0, stats.DurableExpired)
	assert.Equal(t, 1, stats.MemoryItems)
	assert.Equal(t, 10, stats.MemoryMax)
}

func TestCacheUnreadableRowIsMiss(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"), clock, 10)

	require.NoError(t, c.store.Set(ctx, "old", `{"v":99,"kind":"summary","summary":"x"}`, clock.Now().Add(time.Hour)))

	_, ok, err := c.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err := c.store.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheStorageFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c, err := Open(ctx, filepath.Join(t.TempDir(), "cache.db"), Options{Now: clock.Now})
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "mem", SummaryValue("in memory"), 0))
	require.NoError(t, c.Close())

	t.Run("memory hit still served", func(t *testing.T) {
		got, ok, err := c.Get(ctx, "mem")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "in memory", got.Summary)
	})

	t.Run("get after memory miss errors", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "missing")
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
	})

	t.Run("set errors and leaves no memory entry", func(t *testing.T) {
		err := c.Set(ctx, "new", SummaryValue("x"), 0)
		assert.ErrorIs(t, err, ErrStorageUnavailable)
		_, ok := c.mem.Get("new", clock.Now())
		assert.False(t, ok)
	})
}

func TestCacheConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := openTestCache(t, filepath.Join(t.TempDir(), "cache.db"), newClock(), 16)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%8)
			if err := c.Set(ctx, key, SummaryValue(key), 0); err != nil {
				errs <- err
				return
			}
			if _, _, err := c.Get(ctx, key); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	for i := 0; i < 8; i++ {
		key := fmt.Sprintf("k%d", i)
		got, ok, err := c.Get(ctx, key)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, key, got.Summary)
	}
}
