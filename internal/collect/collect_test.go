package collect

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/issuelens/internal/cache"
	"github.com/dshills/issuelens/internal/issue"
	"github.com/dshills/issuelens/internal/retry"
)

type fakeFetcher struct {
	calls int
	errs  []error
	list  []issue.Issue
}

func (f *fakeFetcher) ListOpenIssues(_ context.Context, owner, repo string) ([]issue.Issue, error) {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return f.list, nil
}

func openCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.Open(context.Background(), filepath.Join(t.TempDir(), "cache.db"), cache.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func noSleep() retry.Policy {
	p := retry.DefaultPolicy()
	p.Sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

var sample = []issue.Issue{
	{Number: 2, Title: "second", State: "open", Labels: []string{"bug"}, Assignees: []string{}},
	{Number: 1, Title: "first", State: "open", Labels: []string{}, Assignees: []string{}},
}

func TestIssues_CacheThrough(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	f := &fakeFetcher{list: sample}
	col := New(f, c, Options{Token: "tok", Policy: noSleep()})

	res, err := col.Issues(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, sample, res.Issues)

	res, err = col.Issues(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Equal(t, []int{2, 1}, []int{res.Issues[0].Number, res.Issues[1].Number})
	assert.Equal(t, 1, f.calls)

	// A different token is a different key.
	other := New(f, c, Options{Token: "other", Policy: noSleep()})
	_, err = other.Issues(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestIssues_ForceRefresh(t *testing.T) {
	ctx := context.Background()
	c := openCache(t)
	f := &fakeFetcher{list: sample}

	_, err := New(f, c, Options{Policy: noSleep()}).Issues(ctx, "octo", "hello")
	require.NoError(t, err)
	res, err := New(f, c, Options{Policy: noSleep(), ForceRefresh: true}).Issues(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 2, f.calls)
}

func TestIssues_RetriesTransient(t *testing.T) {
	f := &fakeFetcher{
		list: sample,
		errs: []error{
			retry.New(retry.KindTransient, errors.New("502")),
			retry.RateLimited(errors.New("slow down"), time.Time{}),
		},
	}
	res, err := New(f, openCache(t), Options{Policy: noSleep()}).Issues(context.Background(), "o", "r")
	require.NoError(t, err)
	assert.Len(t, res.Issues, 2)
	assert.Equal(t, 3, f.calls)
}

func TestIssues_Failures(t *testing.T) {
	t.Run("not found is fatal", func(t *testing.T) {
		f := &fakeFetcher{errs: []error{retry.New(retry.KindNotFound, errors.New("404"))}}
		_, err := New(f, openCache(t), Options{Policy: noSleep()}).Issues(context.Background(), "o", "r")
		require.Error(t, err)
		assert.True(t, retry.IsKind(err, retry.KindNotFound))
		assert.Equal(t, 1, f.calls)
	})

	t.Run("exhausted", func(t *testing.T) {
		boom := retry.New(retry.KindTimeout, errors.New("slow"))
		f := &fakeFetcher{errs: []error{boom, boom, boom}}
		_, err := New(f, openCache(t), Options{Policy: noSleep()}).Issues(context.Background(), "o", "r")
		require.Error(t, err)
		assert.ErrorIs(t, err, retry.ErrExhaustedRetries)
		assert.True(t, retry.IsKind(err, retry.KindTimeout))
		assert.Equal(t, 3, f.calls)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		c := openCache(t)
		f := &fakeFetcher{errs: []error{retry.New(retry.KindAuth, errors.New("401"))}, list: sample}
		_, err := New(f, c, Options{Policy: noSleep()}).Issues(context.Background(), "o", "r")
		require.Error(t, err)
		res, err := New(f, c, Options{Policy: noSleep()}).Issues(context.Background(), "o", "r")
		require.NoError(t, err)
		assert.False(t, res.Cached)
	})
}

func TestIssues_EmptyListIsCached(t *testing.T) {
	c := openCache(t)
	f := &fakeFetcher{}
	col := New(f, c, Options{Policy: noSleep()})

	res, err := col.Issues(context.Background(), "o", "r")
	require.NoError(t, err)
	assert.NotNil(t, res.Issues)
	assert.Empty(t, res.Issues)

	res, err = col.Issues(context.Background(), "o", "r")
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Empty(t, res.Issues)
	assert.Equal(t, 1, f.calls)
}
