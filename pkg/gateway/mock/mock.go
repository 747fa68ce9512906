// Package mock provides a scriptable Gateway implementation for tests.
package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"ledgersync/pkg/gateway"
	"ledgersync/pkg/ledger"
)

// Gateway is a mock ledger gateway. Set the function hooks to script
// behavior; call counters are tracked atomically.
type Gateway struct {
	CreateFunc func(ctx context.Context, records []ledger.Record) ([]gateway.CreateResult, error)
	LookupFunc func(ctx context.Context, ids []uint64) ([]ledger.Record, error)
	NameFunc   func() string
	CloseFunc  func() error

	createCalls int64
	lookupCalls int64
	closeCalls  int64
}

// New returns a mock whose creates all succeed and whose lookups find
// nothing, which is the neutral starting point for most tests.
func New() *Gateway {
	return &Gateway{}
}

// CreateAccounts implements gateway.Gateway. Without a hook, every record
// reports StatusCreated.
func (m *Gateway) CreateAccounts(ctx context.Context, records []ledger.Record) ([]gateway.CreateResult, error) {
	atomic.AddInt64(&m.createCalls, 1)
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, records)
	}
	results := make([]gateway.CreateResult, len(records))
	for i, r := range records {
		results[i] = gateway.CreateResult{Index: i, ID: r.ID, Status: gateway.StatusCreated}
	}
	return results, nil
}

// LookupAccounts implements gateway.Gateway. Without a hook, no records
// are found.
func (m *Gateway) LookupAccounts(ctx context.Context, ids []uint64) ([]ledger.Record, error) {
	atomic.AddInt64(&m.lookupCalls, 1)
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, ids)
	}
	return nil, nil
}

// Name implements gateway.Gateway.
func (m *Gateway) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

// Close implements gateway.Gateway.
func (m *Gateway) Close() error {
	atomic.AddInt64(&m.closeCalls, 1)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// CreateCalls returns the number of CreateAccounts calls.
func (m *Gateway) CreateCalls() int { return int(atomic.LoadInt64(&m.createCalls)) }

// LookupCalls returns the number of LookupAccounts calls.
func (m *Gateway) LookupCalls() int { return int(atomic.LoadInt64(&m.lookupCalls)) }

// CloseCalls returns the number of Close calls.
func (m *Gateway) CloseCalls() int { return int(atomic.LoadInt64(&m.closeCalls)) }

// LookupScript returns a LookupFunc that replays the given responses in
// order, then keeps returning the last one. Useful for simulating a record
// that becomes visible only after a number of lookups.
func LookupScript(responses ...[]ledger.Record) func(context.Context, []uint64) ([]ledger.Record, error) {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context, ids []uint64) ([]ledger.Record, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(responses) == 0 {
			return nil, nil
		}
		resp := responses[i]
		if i < len(responses)-1 {
			i++
		}
		return resp, nil
	}
}

var _ gateway.Gateway = (*Gateway)(nil)
