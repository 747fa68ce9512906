// Package redis backs the balance cache with Redis via rueidis, letting
// verified balances survive process restarts and be shared across
// instances.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"ledgersync/pkg/balancecache"
)

// Config tunes the Redis balance cache.
type Config struct {
	Name         string
	Addr         string
	Username     string
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a single-node configuration for local use.
func DefaultConfig() Config {
	return Config{
		Name:         "redis",
		Addr:         "localhost:6379",
		KeyPrefix:    "ledgersync:balance:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Cache is a Redis-backed balancecache.Cache.
type Cache struct {
	client rueidis.Client
	config Config
}

// New connects to Redis and verifies the connection with a ping.
func New(config Config) (*Cache, error) {
	if config.Name == "" {
		config.Name = "redis"
	}
	if config.Addr == "" {
		return nil, fmt.Errorf("redis: no address configured")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      []string{config.Addr},
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return &Cache{client: client, config: config}, nil
}

func (c *Cache) key(id uint64) string {
	return c.config.KeyPrefix + strconv.FormatUint(id, 10)
}

// Get implements balancecache.Cache.
func (c *Cache) Get(ctx context.Context, id uint64) (balancecache.Balance, error) {
	resp := c.client.Do(ctx, c.client.B().Get().Key(c.key(id)).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return balancecache.Balance{}, balancecache.ErrMiss
		}
		return balancecache.Balance{}, fmt.Errorf("redis get: %w", err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return balancecache.Balance{}, fmt.Errorf("redis get: failed to read response: %w", err)
	}

	var b balancecache.Balance
	if err := json.Unmarshal(data, &b); err != nil {
		return balancecache.Balance{}, fmt.Errorf("redis get: failed to unmarshal: %w", err)
	}
	return b, nil
}

// GetMulti implements balancecache.Cache using pipelined GETs.
func (c *Cache) GetMulti(ctx context.Context, ids []uint64) (map[uint64]balancecache.Balance, error) {
	if len(ids) == 0 {
		return map[uint64]balancecache.Balance{}, nil
	}

	cmds := make([]rueidis.Completed, len(ids))
	for i, id := range ids {
		cmds[i] = c.client.B().Get().Key(c.key(id)).Build()
	}

	results := c.client.DoMulti(ctx, cmds...)

	found := make(map[uint64]balancecache.Balance, len(ids))
	var errs []error
	for i, resp := range results {
		if err := resp.Error(); err != nil {
			if !rueidis.IsRedisNil(err) {
				errs = append(errs, fmt.Errorf("id %d: %w", ids[i], err))
			}
			continue
		}
		data, err := resp.AsBytes()
		if err != nil {
			errs = append(errs, fmt.Errorf("id %d: failed to read: %w", ids[i], err))
			continue
		}
		var b balancecache.Balance
		if err := json.Unmarshal(data, &b); err != nil {
			errs = append(errs, fmt.Errorf("id %d: failed to unmarshal: %w", ids[i], err))
			continue
		}
		found[ids[i]] = b
	}

	if len(errs) > 0 {
		return found, errors.Join(errs...)
	}
	return found, nil
}

// Set implements balancecache.Cache.
func (c *Cache) Set(ctx context.Context, id uint64, b balancecache.Balance, ttl time.Duration) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("redis set: failed to marshal: %w", err)
	}
	cmd := c.client.B().Set().Key(c.key(id)).Value(string(data)).Ex(ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// SetMulti implements balancecache.Cache using pipelined SETs.
func (c *Cache) SetMulti(ctx context.Context, items map[uint64]balancecache.Balance, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(items))
	ids := make([]uint64, 0, len(items))
	for id, b := range items {
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("redis set multi: id %d: failed to marshal: %w", id, err)
		}
		cmds = append(cmds, c.client.B().Set().Key(c.key(id)).Value(string(data)).Ex(ttl).Build())
		ids = append(ids, id)
	}

	results := c.client.DoMulti(ctx, cmds...)
	var errs []error
	for i, resp := range results {
		if err := resp.Error(); err != nil {
			errs = append(errs, fmt.Errorf("id %d: %w", ids[i], err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Delete implements balancecache.Cache.
func (c *Cache) Delete(ctx context.Context, id uint64) error {
	if err := c.client.Do(ctx, c.client.B().Del().Key(c.key(id)).Build()).Error(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Name implements balancecache.Cache.
func (c *Cache) Name() string { return c.config.Name }

// Close implements balancecache.Cache.
func (c *Cache) Close() error {
	c.client.Close()
	return nil
}

var _ balancecache.Cache = (*Cache)(nil)
