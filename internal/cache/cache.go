package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Defaults for Options fields left at zero.
const (
	DefaultTTL             = 24 * time.Hour
	DefaultMaxMemoryItems  = 1000
	DefaultCleanupInterval = time.Hour
)

// Options tunes a Cache.
type Options struct {
	MaxMemoryItems  int
	CleanupInterval time.Duration
	DefaultTTL      time.Duration
	Now             func() time.Time
	Logger          *slog.Logger
}

// Cache is the memory + sqlite facade. Construct one per process and pass
// it to every consumer.
type Cache struct {
	mem   *Memory
	store *Store
	ttl   time.Duration
	every time.Duration
	now   func() time.Time
	log   *slog.Logger

	sweepMu   sync.Mutex
	lastSweep time.Time
}

// New builds a Cache over an open store.
func New(store *Store, opts Options) *Cache {
	if opts.MaxMemoryItems == 0 {
		opts.MaxMemoryItems = DefaultMaxMemoryItems
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Cache{
		mem:       NewMemory(opts.MaxMemoryItems),
		store:     store,
		ttl:       opts.DefaultTTL,
		every:     opts.CleanupInterval,
		now:       opts.Now,
		log:       opts.Logger,
		lastSweep: opts.Now(),
	}
}

// Open opens the sqlite store at path and wraps it in a Cache.
func Open(ctx context.Context, path string, opts Options) (*Cache, error) {
	store, err := OpenStore(ctx, path)
	if err != nil {
		return nil, err
	}
	return New(store, opts), nil
}

// Close closes the durable store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Get looks up key in memory, then in sqlite. A durable hit is promoted into
// memory with its stored expiry. A sqlite failure is returned as an error,
// never as a miss.
func (c *Cache) Get(ctx context.Context, key string) (Value, bool, error) {
	if err := c.maybeSweep(ctx); err != nil {
		return Value{}, false, err
	}
	now := c.now()
	if v, ok := c.mem.Get(key, now); ok {
		return v, true, nil
	}

	row, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return Value{}, false, err
	}
	if !ok {
		return Value{}, false, nil
	}
	if !row.ExpiresAt.After(now) {
		if err := c.store.Delete(ctx, key); err != nil {
			return Value{}, false, err
		}
		return Value{}, false, nil
	}

	v, err := decodeValue(row.Value)
	if err != nil {
		c.log.Warn("dropping unreadable cache row", "key", key, "error", err)
		if err := c.store.Delete(ctx, key); err != nil {
			return Value{}, false, err
		}
		return Value{}, false, nil
	}
	c.mem.Set(key, v, row.ExpiresAt)
	return v, true, nil
}

// Set stores value under key in both tiers. expireIn <= 0 uses the default
// TTL. If the sqlite write fails the memory entry is dropped again and the
// error is returned.
func (c *Cache) Set(ctx context.Context, key string, value Value, expireIn time.Duration) error {
	if expireIn <= 0 {
		expireIn = c.ttl
	}
	encoded, err := encodeValue(value)
	if err != nil {
		return err
	}
	expiresAt := c.now().Add(expireIn)

	if evicted := c.mem.Set(key, value, expiresAt); evicted != "" {
		c.log.Debug("memory tier evicted entry", "key", evicted)
	}
	if err := c.store.Set(ctx, key, encoded, expiresAt); err != nil {
		c.mem.Delete(key)
		return err
	}
	return nil
}

// Delete removes key from both tiers.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mem.Delete(key)
	return c.store.Delete(ctx, key)
}

// Clear empties both tiers.
func (c *Cache) Clear(ctx context.Context) error {
	c.mem.Clear()
	return c.store.Clear(ctx)
}

// SweepResult counts entries removed by a sweep.
type SweepResult struct {
	Memory  int   `json:"memory"`
	Durable int64 `json:"durable"`
}

// Sweep removes expired entries from both tiers now.
func (c *Cache) Sweep(ctx context.Context) (SweepResult, error) {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	return c.sweepLocked(ctx, c.now())
}

func (c *Cache) maybeSweep(ctx context.Context) error {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) < c.every {
		return nil
	}
	res, err := c.sweepLocked(ctx, now)
	if err != nil {
		return err
	}
	c.log.Debug("cache sweep", "memory", res.Memory, "durable", res.Durable)
	return nil
}

func (c *Cache) sweepLocked(ctx context.Context, now time.Time) (SweepResult, error) {
	res := SweepResult{Memory: c.mem.Sweep(now)}
	n, err := c.store.Sweep(ctx, now)
	if err != nil {
		return res, errors.Wrap(err, "periodic sweep")
	}
	res.Durable = n
	c.lastSweep = now
	return res, nil
}

// Stats describes both tiers.
type Stats struct {
	Path           string    `json:"path"`
	MemoryItems    int       `json:"memoryItems"`
	MemoryMax      int       `json:"memoryMax"`
	DurableRows    int64     `json:"durableRows"`
	DurableExpired int64     `json:"durableExpired"`
	LastSweep      time.Time `json:"lastSweep"`
}

// Stats reports tier sizes.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	st, err := c.store.Stats(ctx, c.now())
	if err != nil {
		return Stats{}, err
	}
	c.sweepMu.Lock()
	last := c.lastSweep
	c.sweepMu.Unlock()
	return Stats{
		Path:           c.store.Path(),
		MemoryItems:    c.mem.Len(),
		MemoryMax:      c.mem.Max(),
		DurableRows:    st.Rows,
		DurableExpired: st.Expired,
		LastSweep:      last,
	}, nil
}
