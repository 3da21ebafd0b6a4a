package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// BadgerConfig configures the embedded BadgerDB cache backend.
type BadgerConfig struct {
	// Dir is the directory for data and value log files.
	Dir string

	// InMemory runs Badger without touching disk. Dir is ignored.
	InMemory bool

	// SyncWrites forces fsync on every write.
	SyncWrites bool

	// GCInterval is how often the value-log garbage collector runs.
	// Zero disables the GC loop.
	GCInterval time.Duration

	// GCDiscardRatio is the rewrite threshold passed to the value-log GC.
	GCDiscardRatio float64

	// Logger receives Badger's internal log output.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns a configuration suitable for a local
// single-node deployment.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:            dir,
		SyncWrites:     false,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// BadgerCache is a CacheClient backed by an embedded BadgerDB instance.
//
// Entry TTLs map directly onto Badger's native expiry, so expired
// sessions vanish without a janitor. A background loop runs value-log
// GC to reclaim space left behind by expired snapshots.
type BadgerCache struct {
	db     *badger.DB
	logger *slog.Logger
	cfg    BadgerConfig

	expired atomic.Int64

	stopGC  chan struct{}
	gcDone  sync.WaitGroup
	closed  atomic.Bool
	closeMu sync.Mutex
}

// NewBadgerCache opens (or creates) a Badger-backed cache.
func NewBadgerCache(cfg BadgerConfig) (*BadgerCache, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.GCDiscardRatio <= 0 || cfg.GCDiscardRatio >= 1 {
		cfg.GCDiscardRatio = 0.5
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(&badgerLogger{logger: cfg.Logger.With("component", "badger")})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("storage: open badger at %q: %w", cfg.Dir, err)
	}

	c := &BadgerCache{
		db:     db,
		logger: cfg.Logger,
		cfg:    cfg,
		stopGC: make(chan struct{}),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		c.gcDone.Add(1)
		go c.gcLoop()
	}

	return c, nil
}

// Get retrieves the value for a key.
func (c *BadgerCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.check(ctx, key); err != nil {
		return nil, err
	}

	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: badger get: %w", err)
	}
	return value, nil
}

// Set stores a value with the given TTL.
func (c *BadgerCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.check(ctx, key); err != nil {
		return err
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("storage: badger set: %w", err)
	}
	return nil
}

// Expire rewrites the entry with a fresh TTL. Badger has no in-place
// TTL update, so this is a read-modify-write inside one transaction.
func (c *BadgerCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.check(ctx, key); err != nil {
		return err
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		entry := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("storage: badger expire: %w", err)
	}
	return nil
}

// Delete removes a key. Absent keys are ignored.
func (c *BadgerCache) Delete(ctx context.Context, key string) error {
	if err := c.check(ctx, key); err != nil {
		return err
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("storage: badger delete: %w", err)
	}
	return nil
}

// Has reports whether a live entry exists for the key.
func (c *BadgerCache) Has(ctx context.Context, key string) (bool, error) {
	if err := c.check(ctx, key); err != nil {
		return false, err
	}

	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: badger has: %w", err)
	}
	return true, nil
}

// Stats returns point-in-time statistics.
func (c *BadgerCache) Stats(ctx context.Context) (CacheStats, error) {
	if c.closed.Load() {
		return CacheStats{}, ErrCacheClosed
	}
	if err := ctx.Err(); err != nil {
		return CacheStats{}, err
	}

	var keys int64
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys++
		}
		return nil
	})
	if err != nil {
		return CacheStats{}, fmt.Errorf("storage: badger stats: %w", err)
	}

	lsm, vlog := c.db.Size()
	return CacheStats{
		Keys:      keys,
		BytesUsed: lsm + vlog,
		Expired:   c.expired.Load(),
		Backend:   "badger",
	}, nil
}

// Close stops the GC loop and closes the database.
func (c *BadgerCache) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}
	close(c.stopGC)
	c.gcDone.Wait()

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("storage: badger close: %w", err)
	}
	return nil
}

func (c *BadgerCache) check(ctx context.Context, key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if key == "" {
		return ErrInvalidKey
	}
	return ctx.Err()
}

// gcLoop periodically runs value-log garbage collection.
func (c *BadgerCache) gcLoop() {
	defer c.gcDone.Done()

	ticker := time.NewTicker(c.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopGC:
			return
		case <-ticker.C:
			// RunValueLogGC returns ErrNoRewrite when nothing was
			// reclaimed; loop while it keeps finding work.
			for {
				err := c.db.RunValueLogGC(c.cfg.GCDiscardRatio)
				if err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						c.logger.Warn("badger value-log gc failed", "error", err)
					}
					break
				}
				c.expired.Add(1)
			}
		}
	}
}

// RegisterMetrics registers Badger cache collectors with the registry.
func (c *BadgerCache) RegisterMetrics(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tabsess",
			Subsystem: "badger",
			Name:      "lsm_size_bytes",
			Help:      "Size of the LSM tree in bytes.",
		}, func() float64 {
			lsm, _ := c.db.Size()
			return float64(lsm)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tabsess",
			Subsystem: "badger",
			Name:      "vlog_size_bytes",
			Help:      "Size of the value log in bytes.",
		}, func() float64 {
			_, vlog := c.db.Size()
			return float64(vlog)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "tabsess",
			Subsystem: "badger",
			Name:      "gc_rewrites_total",
			Help:      "Number of value-log files rewritten by GC.",
		}, func() float64 {
			return float64(c.expired.Load())
		}),
	}

	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return fmt.Errorf("storage: register badger metrics: %w", err)
		}
	}
	return nil
}

// badgerLogger adapts Badger's logger interface to slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
