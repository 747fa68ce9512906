// Package balancecache caches verified ledger balances so repeated
// balance reads are served without re-querying the ledger. Entries are
// written only after verification, so a cached value is as trustworthy as
// the verification that produced it; TTL expiry forces a fresh read-back
// eventually.
package balancecache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when an id is not cached.
var ErrMiss = errors.New("balancecache: miss")

// Balance is a cached record balance in minor units. Minor units keep the
// cached form exact and JSON-friendly; conversion to currency amounts
// happens at the projection layer.
type Balance struct {
	DebitsPosted  uint64 `json:"debits_posted"`
	CreditsPosted uint64 `json:"credits_posted"`
}

// Cache stores verified balances keyed by ledger id.
type Cache interface {
	// Get returns the cached balance for one id, or ErrMiss.
	Get(ctx context.Context, id uint64) (Balance, error)

	// GetMulti returns the cached balances among the requested ids.
	// Missing ids are simply absent from the result.
	GetMulti(ctx context.Context, ids []uint64) (map[uint64]Balance, error)

	// Set stores one balance with the given time-to-live.
	Set(ctx context.Context, id uint64, b Balance, ttl time.Duration) error

	// SetMulti stores several balances with the given time-to-live.
	SetMulti(ctx context.Context, items map[uint64]Balance, ttl time.Duration) error

	// Delete removes a cached balance. Deleting an absent id is not an
	// error.
	Delete(ctx context.Context, id uint64) error

	// Name identifies the cache layer for logs and metrics.
	Name() string

	// Close releases resources held by the cache.
	Close() error
}

// IsMiss reports whether err indicates an uncached id.
func IsMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}
