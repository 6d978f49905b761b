package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := OpenStore(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreInitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "cache.db")

	first := openTestStore(t, path)
	require.NoError(t, first.Set(ctx, "k", "v", time.Now().Add(time.Hour)))

	second := openTestStore(t, path)
	row, ok, err := second.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", row.Value)
	assert.Equal(t, path, second.Path())
}

func TestStoreUpsertDeleteClear(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "cache.db"))
	exp := time.Unix(2_000_000_000, 500_000_000)

	require.NoError(t, s.Set(ctx, "k", "one", exp))
	require.NoError(t, s.Set(ctx, "k", "two", exp.Add(time.Hour)))

	row, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", row.Value)
	assert.WithinDuration(t, exp.Add(time.Hour), row.ExpiresAt, time.Microsecond)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"), "deleting a missing row is fine")
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "a", "1", exp))
	require.NoError(t, s.Set(ctx, "b", "2", exp))
	require.NoError(t, s.Clear(ctx))
	st, err := s.Stats(ctx, exp)
	require.NoError(t, err)
	assert.EqualValues(t, 0, st.Rows)
}

func TestStoreGetIgnoresExpiry(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "cache.db"))

	require.NoError(t, s.Set(ctx, "k", "v", time.Now().Add(-time.Hour)))
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreSweep(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, filepath.Join(t.TempDir(), "cache.db"))
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, s.Set(ctx, "past", "p", now.Add(-time.Minute)))
	require.NoError(t, s.Set(ctx, "edge", "e", now))
	require.NoError(t, s.Set(ctx, "future", "f", now.Add(time.Minute)))

	st, err := s.Stats(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.Rows)
	assert.EqualValues(t, 2, st.Expired)

	n, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "sweep removes expires_at < now only")

	_, ok, err := s.Get(ctx, "edge")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreClosedIsUnavailable(t *testing.T) {
	ctx := context.Background()
	s, err := OpenStore(ctx, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "get", se.Op)

	assert.ErrorIs(t, s.Set(ctx, "k", "v", time.Now()), ErrStorageUnavailable)
	assert.ErrorIs(t, s.Clear(ctx), ErrStorageUnavailable)
	_, err = s.Sweep(ctx, time.Now())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
