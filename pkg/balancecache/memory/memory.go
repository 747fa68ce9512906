// Package memory is the in-process balance cache: a mutex-guarded map
// with TTL expiry and periodic cleanup.
package memory

import (
	"context"
	"sync"
	"time"

	"ledgersync/pkg/balancecache"
)

type entry struct {
	balance   balancecache.Balance
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Config tunes the in-memory cache.
type Config struct {
	Name string

	// DefaultTTL applies when Set is called with a non-positive TTL.
	DefaultTTL time.Duration

	// CleanupInterval is how often expired entries are swept out.
	CleanupInterval time.Duration
}

// Cache is an in-memory balancecache.Cache.
type Cache struct {
	mu     sync.RWMutex
	data   map[uint64]entry
	config Config

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
}

// New creates an in-memory cache and starts its cleanup goroutine.
func New(config Config) *Cache {
	if config.Name == "" {
		config.Name = "memory"
	}
	if config.DefaultTTL == 0 {
		config.DefaultTTL = time.Hour
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = time.Minute
	}

	c := &Cache{
		data:   make(map[uint64]entry),
		config: config,
		ticker: time.NewTicker(config.CleanupInterval),
		stop:   make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanup()
	return c
}

// Get implements balancecache.Cache.
func (c *Cache) Get(ctx context.Context, id uint64) (balancecache.Balance, error) {
	if err := ctx.Err(); err != nil {
		return balancecache.Balance{}, err
	}

	c.mu.RLock()
	e, ok := c.data[id]
	c.mu.RUnlock()

	if !ok || e.expired(time.Now()) {
		return balancecache.Balance{}, balancecache.ErrMiss
	}
	return e.balance, nil
}

// GetMulti implements balancecache.Cache.
func (c *Cache) GetMulti(ctx context.Context, ids []uint64) (map[uint64]balancecache.Balance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	result := make(map[uint64]balancecache.Balance, len(ids))

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range ids {
		if e, ok := c.data[id]; ok && !e.expired(now) {
			result[id] = e.balance
		}
	}
	return result, nil
}

// Set implements balancecache.Cache.
func (c *Cache) Set(ctx context.Context, id uint64, b balancecache.Balance, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	c.mu.Lock()
	c.data[id] = entry{balance: b, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// SetMulti implements balancecache.Cache.
func (c *Cache) SetMulti(ctx context.Context, items map[uint64]balancecache.Balance, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	expiresAt := time.Now().Add(ttl)

	c.mu.Lock()
	for id, b := range items {
		c.data[id] = entry{balance: b, expiresAt: expiresAt}
	}
	c.mu.Unlock()
	return nil
}

// Delete implements balancecache.Cache.
func (c *Cache) Delete(ctx context.Context, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.data, id)
	c.mu.Unlock()
	return nil
}

// Name implements balancecache.Cache.
func (c *Cache) Name() string { return c.config.Name }

// Close stops the cleanup goroutine.
func (c *Cache) Close() error {
	close(c.stop)
	c.wg.Wait()
	c.ticker.Stop()
	return nil
}

// Len returns the number of entries, including any not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *Cache) cleanup() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		case <-c.ticker.C:
			now := time.Now()
			c.mu.Lock()
			for id, e := range c.data {
				if e.expired(now) {
					delete(c.data, id)
				}
			}
			c.mu.Unlock()
		}
	}
}

var _ balancecache.Cache = (*Cache)(nil)
