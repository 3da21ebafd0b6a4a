package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yndnr/tabsess-go/internal/storage"
	"github.com/yndnr/tabsess-go/pkg/cmap"
)

// DefaultJanitorInterval is how often the background janitor sweeps
// for expired entries when no interval is configured.
const DefaultJanitorInterval = 30 * time.Second

// entry is a single cached value with its expiration deadline.
// A zero deadline means the entry never expires.
type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache is an in-process storage.CacheClient backed by a sharded map.
type Cache struct {
	entries *cmap.Map[string, entry]

	expired atomic.Int64

	stopJanitor chan struct{}
	janitorDone sync.WaitGroup
	closed      atomic.Bool
	closeOnce   sync.Once

	// now is injected in tests to control expiry.
	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates a memory cache and starts its janitor.
// A non-positive janitorInterval falls back to DefaultJanitorInterval.
func NewCache(janitorInterval time.Duration, opts ...Option) *Cache {
	if janitorInterval <= 0 {
		janitorInterval = DefaultJanitorInterval
	}

	c := &Cache{
		entries:     cmap.New[string, entry](),
		stopJanitor: make(chan struct{}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.janitorDone.Add(1)
	go c.janitor(janitorInterval)

	return c
}

// Get retrieves the value for a key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.check(ctx, key); err != nil {
		return nil, err
	}

	e, ok := c.entries.Get(key)
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	if e.expired(c.now()) {
		c.reap(key)
		return nil, storage.ErrKeyNotFound
	}

	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, nil
}

// Set stores a value under a key with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.check(ctx, key); err != nil {
		return err
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	e := entry{value: stored}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries.Set(key, e)
	return nil
}

// Expire resets the TTL of an existing key.
func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.check(ctx, key); err != nil {
		return err
	}

	now := c.now()
	found := false
	c.entries.Update(key, func(e entry, exists bool) entry {
		if !exists || e.expired(now) {
			return e
		}
		found = true
		if ttl > 0 {
			e.expiresAt = now.Add(ttl)
		} else {
			e.expiresAt = time.Time{}
		}
		return e
	})
	if !found {
		return storage.ErrKeyNotFound
	}
	return nil
}

// Delete removes a key. Absent keys are ignored.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.check(ctx, key); err != nil {
		return err
	}
	c.entries.Delete(key)
	return nil
}

// Has reports whether a live entry exists for the key.
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	if err := c.check(ctx, key); err != nil {
		return false, err
	}

	e, ok := c.entries.Get(key)
	if !ok {
		return false, nil
	}
	if e.expired(c.now()) {
		c.reap(key)
		return false, nil
	}
	return true, nil
}

// Stats returns point-in-time statistics.
func (c *Cache) Stats(ctx context.Context) (storage.CacheStats, error) {
	if c.closed.Load() {
		return storage.CacheStats{}, storage.ErrCacheClosed
	}
	if err := ctx.Err(); err != nil {
		return storage.CacheStats{}, err
	}

	var keys, bytes int64
	now := c.now()
	c.entries.Range(func(_ string, e entry) bool {
		if !e.expired(now) {
			keys++
			bytes += int64(len(e.value))
		}
		return true
	})

	return storage.CacheStats{
		Keys:      keys,
		BytesUsed: bytes,
		Expired:   c.expired.Load(),
		Backend:   "memory",
	}, nil
}

// Close stops the janitor and clears the cache.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.stopJanitor)
		c.janitorDone.Wait()
		c.entries.Clear()
	})
	return nil
}

func (c *Cache) check(ctx context.Context, key string) error {
	if c.closed.Load() {
		return storage.ErrCacheClosed
	}
	if key == "" {
		return storage.ErrInvalidKey
	}
	return ctx.Err()
}

// reap removes an entry found expired on the read path.
func (c *Cache) reap(key string) {
	if e, ok := c.entries.Get(key); ok && e.expired(c.now()) {
		c.entries.Delete(key)
		c.expired.Add(1)
	}
}

// janitor periodically sweeps expired entries.
func (c *Cache) janitor(interval time.Duration) {
	defer c.janitorDone.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopJanitor:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	now := c.now()
	var stale []string
	c.entries.Range(func(key string, e entry) bool {
		if e.expired(now) {
			stale = append(stale, key)
		}
		return true
	})
	for _, key := range stale {
		if e, ok := c.entries.Get(key); ok && e.expired(now) {
			c.entries.Delete(key)
			c.expired.Add(1)
		}
	}
}
