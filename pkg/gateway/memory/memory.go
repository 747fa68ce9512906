// Package memory implements an in-memory reference ledger. It honors the
// same contract as the real service: at-most-once creation, immutable
// records, and (optionally) delayed read visibility, which makes it useful
// both as a test double for the eventual-consistency behavior and as the
// backend for the runnable example.
package memory

import (
	"context"
	"sync"

	"ledgersync/pkg/gateway"
	"ledgersync/pkg/ledger"
)

// Config tunes the in-memory ledger.
type Config struct {
	// Name is the gateway identifier for logs and metrics.
	Name string

	// VisibilityDelay is the number of lookups for which a freshly created
	// record stays invisible, simulating the propagation delay of the real
	// service's read path. Zero means reads are immediately consistent.
	VisibilityDelay int
}

type storedRecord struct {
	record ledger.Record

	// remainingDelay counts down on each lookup that touches the id.
	remainingDelay int
}

// Ledger is an in-memory Gateway implementation.
type Ledger struct {
	mu      sync.Mutex
	records map[uint64]*storedRecord
	config  Config
}

// New creates an empty in-memory ledger.
func New(config Config) *Ledger {
	if config.Name == "" {
		config.Name = "memory"
	}
	return &Ledger{
		records: make(map[uint64]*storedRecord),
		config:  config,
	}
}

// CreateAccounts stores each record at most once. A duplicate id yields
// StatusExists; the stored record is never overwritten.
func (l *Ledger) CreateAccounts(ctx context.Context, records []ledger.Record) ([]gateway.CreateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	results := make([]gateway.CreateResult, len(records))
	for i, r := range records {
		res := gateway.CreateResult{Index: i, ID: r.ID}
		if _, exists := l.records[r.ID]; exists {
			res.Status = gateway.StatusExists
		} else {
			l.records[r.ID] = &storedRecord{
				record:         r,
				remainingDelay: l.config.VisibilityDelay,
			}
			res.Status = gateway.StatusCreated
		}
		results[i] = res
	}
	return results, nil
}

// LookupAccounts returns the visible records among the requested ids.
// Records still inside their visibility delay are skipped and their delay
// counter decremented, so they surface on a later lookup.
func (l *Ledger) LookupAccounts(ctx context.Context, ids []uint64) ([]ledger.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var found []ledger.Record
	for _, id := range ids {
		sr, ok := l.records[id]
		if !ok {
			continue
		}
		if sr.remainingDelay > 0 {
			sr.remainingDelay--
			continue
		}
		found = append(found, sr.record)
	}
	return found, nil
}

// Name implements gateway.Gateway.
func (l *Ledger) Name() string { return l.config.Name }

// Close implements gateway.Gateway.
func (l *Ledger) Close() error { return nil }

// Len returns the number of stored records, visible or not.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

var _ gateway.Gateway = (*Ledger)(nil)
