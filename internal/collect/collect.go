package collect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/issuelens/internal/cache"
	"github.com/dshills/issuelens/internal/issue"
	"github.com/dshills/issuelens/internal/retry"
)

// DefaultIssuesTTL bounds how stale a cached issue list may be.
const DefaultIssuesTTL = time.Hour

// Fetcher lists the open issues of a repository.
type Fetcher interface {
	ListOpenIssues(ctx context.Context, owner, repo string) ([]issue.Issue, error)
}

// Store is the part of the cache the collector needs.
type Store interface {
	Get(ctx context.Context, key string) (cache.Value, bool, error)
	Set(ctx context.Context, key string, value cache.Value, expireIn time.Duration) error
}

// Options configures a Collector.
type Options struct {
	// Token only enters the cache key, hashed.
	Token        string
	IssuesTTL    time.Duration
	ForceRefresh bool
	Policy       retry.Policy
	Logger       *slog.Logger
}

// Collector is a cache-through wrapper around a Fetcher.
type Collector struct {
	fetcher Fetcher
	store   Store
	opts    Options
	log     *slog.Logger
}

// New creates a Collector.
func New(fetcher Fetcher, store Store, opts Options) *Collector {
	if opts.IssuesTTL <= 0 {
		opts.IssuesTTL = DefaultIssuesTTL
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = retry.DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Collector{fetcher: fetcher, store: store, opts: opts, log: opts.Logger}
}

// Result is a collected issue list and where it came from.
type Result struct {
	Issues []issue.Issue
	Cached bool
}

// Issues returns the open issues of owner/repo. Upstream failures are
// retried per the policy; there is no fallback for raw data, so an
// exhausted or fatal failure is returned.
func (c *Collector) Issues(ctx context.Context, owner, repo string) (Result, error) {
	slug := owner + "/" + repo
	key := cache.IssuesKey(slug, c.opts.Token)

	if !c.opts.ForceRefresh {
		v, ok, err := c.store.Get(ctx, key)
		if err != nil {
			return Result{}, err
		}
		if ok && v.Kind == cache.KindIssues {
			c.log.Debug("issue list served from cache", "repo", slug, "count", len(v.Issues))
			return Result{Issues: v.Issues, Cached: true}, nil
		}
	}

	var list []issue.Issue
	err := c.opts.Policy.Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		list, err = c.fetcher.ListOpenIssues(ctx, owner, repo)
		return err
	}, func(f *retry.Failure, attempt int, delay time.Duration) {
		c.log.Warn("fetching issues failed, retrying",
			"repo", slug, "attempt", attempt+1, "kind", f.Kind, "delay", delay)
	})
	if err != nil {
		return Result{}, fmt.Errorf("fetching issues of %s: %w", slug, err)
	}
	if list == nil {
		list = []issue.Issue{}
	}

	if err := c.store.Set(ctx, key, cache.IssuesValue(list), c.opts.IssuesTTL); err != nil {
		return Result{}, err
	}
	c.log.Info("fetched open issues", "repo", slug, "count", len(list))
	return Result{Issues: list}, nil
}
