package balancecache

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
)

// BloomCache gates a Cache with a bloom filter over the ids ever stored.
// Reads for ids that were never cached are rejected without touching the
// backend, which matters most for the Redis cache where a miss is a
// network round trip. False positives only cost a backend miss; false
// negatives cannot occur.
type BloomCache struct {
	inner  Cache
	filter *bloom.BloomFilter
	mu     sync.RWMutex

	totalQueries  uint64
	bloomRejected uint64
}

// NewBloomCache wraps a cache with a filter sized for the expected number
// of distinct ids at the given false positive rate.
func NewBloomCache(inner Cache, expectedItems uint, falsePositiveRate float64) *BloomCache {
	if expectedItems == 0 {
		expectedItems = 1024
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	return &BloomCache{
		inner:  inner,
		filter: bloom.NewWithEstimates(expectedItems, falsePositiveRate),
	}
}

func idBytes(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

// Get implements Cache.
func (b *BloomCache) Get(ctx context.Context, id uint64) (Balance, error) {
	b.mu.Lock()
	b.totalQueries++
	mayExist := b.filter.Test(idBytes(id))
	if !mayExist {
		b.bloomRejected++
	}
	b.mu.Unlock()

	if !mayExist {
		return Balance{}, ErrMiss
	}
	return b.inner.Get(ctx, id)
}

// GetMulti implements Cache, stripping ids the filter rejects before
// asking the backend.
func (b *BloomCache) GetMulti(ctx context.Context, ids []uint64) (map[uint64]Balance, error) {
	candidates := make([]uint64, 0, len(ids))

	b.mu.Lock()
	for _, id := range ids {
		b.totalQueries++
		if b.filter.Test(idBytes(id)) {
			candidates = append(candidates, id)
		} else {
			b.bloomRejected++
		}
	}
	b.mu.Unlock()

	if len(candidates) == 0 {
		return map[uint64]Balance{}, nil
	}
	return b.inner.GetMulti(ctx, candidates)
}

// Set implements Cache and admits the id into the filter.
func (b *BloomCache) Set(ctx context.Context, id uint64, bal Balance, ttl time.Duration) error {
	b.mu.Lock()
	b.filter.Add(idBytes(id))
	b.mu.Unlock()
	return b.inner.Set(ctx, id, bal, ttl)
}

// SetMulti implements Cache and admits all ids into the filter.
func (b *BloomCache) SetMulti(ctx context.Context, items map[uint64]Balance, ttl time.Duration) error {
	b.mu.Lock()
	for id := range items {
		b.filter.Add(idBytes(id))
	}
	b.mu.Unlock()
	return b.inner.SetMulti(ctx, items, ttl)
}

// Delete implements Cache. The filter cannot forget an id; the backend
// miss after deletion is the filter's false positive case.
func (b *BloomCache) Delete(ctx context.Context, id uint64) error {
	return b.inner.Delete(ctx, id)
}

// Name implements Cache.
func (b *BloomCache) Name() string { return "bloom(" + b.inner.Name() + ")" }

// Close implements Cache.
func (b *BloomCache) Close() error { return b.inner.Close() }

// Stats returns how many reads the filter saw and how many it rejected.
func (b *BloomCache) Stats() (queries, rejected uint64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.totalQueries, b.bloomRejected
}

var _ Cache = (*BloomCache)(nil)
