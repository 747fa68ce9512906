// Package gateway defines the client surface of the external ledger
// service: create records, look records up by id. Implementations live in
// subpackages; pkg/resilience wraps any of them with circuit breaking and
// timeouts.
package gateway

import (
	"context"
	"fmt"

	"ledgersync/pkg/ledger"
)

// CreateStatus is the per-record outcome of a create request.
type CreateStatus int

const (
	// StatusCreated means the record was durably created by this request.
	StatusCreated CreateStatus = iota

	// StatusExists means an identical id already existed. The creation
	// semantics are at-most-once, so this is the expected outcome on
	// every run after the first.
	StatusExists

	// StatusFailed means the ledger rejected the record; Code carries the
	// service's raw result code for diagnosis.
	StatusFailed
)

// String returns the status label used in logs and metrics.
func (s CreateStatus) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusExists:
		return "exists"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CreateResult is the outcome for a single record within a create request.
// Partial success within a batch is attributable per record.
type CreateResult struct {
	// Index is the record's position within the submitted batch.
	Index int

	// ID is the ledger identifier of the record.
	ID uint64

	Status CreateStatus

	// Code is the gateway's raw result code when Status is StatusFailed.
	Code uint32
}

// Err converts a failed result into an error, nil otherwise.
func (r CreateResult) Err() error {
	if r.Status != StatusFailed {
		return nil
	}
	return fmt.Errorf("%w: id=%d code=%d", ledger.ErrCreateFailed, r.ID, r.Code)
}

// Gateway is the minimal contract the sync protocol needs from the ledger
// service. Lookups may return fewer records than requested, in any order;
// absence of an id in the result means "not found", not an error.
type Gateway interface {
	// CreateAccounts submits records for creation and returns one result
	// per input record, in input order.
	CreateAccounts(ctx context.Context, records []ledger.Record) ([]CreateResult, error)

	// LookupAccounts returns the records found for the given ids.
	LookupAccounts(ctx context.Context, ids []uint64) ([]ledger.Record, error)

	// Name identifies the gateway implementation for logs and metrics.
	Name() string

	// Close releases resources held by the gateway.
	Close() error
}
