package sync

import (
	"errors"
	"time"

	"ledgersync/pkg/backoff"
	"ledgersync/pkg/ledger"
)

// Config carries the tunable knobs of the sync protocol. The historical
// per-deployment divergences (probe id, id offset, batch size, retry
// budget, backoff shape) are all configuration here, not code paths.
type Config struct {
	// Ledger is the ledger namespace all records are created in.
	Ledger uint32

	// ProbeID is the well-known id of the connectivity-probe record. It
	// must stay outside the range the catalog maps onto.
	ProbeID uint64

	// IDOffset is added to the catalog position to form the ledger id.
	// Changing it against a populated ledger orphans the existing records.
	IDOffset uint64

	// BatchSize bounds how many ids a single lookup carries, respecting
	// the ledger's query-size limits.
	BatchSize int

	// MaxAttempts is the retry budget for both verification modes.
	MaxAttempts int

	// Backoff maps the attempt number onto the delay before the next try.
	Backoff backoff.Policy

	// CreateDelay is a fixed pause before each record creation, giving the
	// ledger breathing room between writes. Zero disables it.
	CreateDelay time.Duration
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Ledger:      ledger.DefaultLedger,
		ProbeID:     ledger.ProbeID,
		IDOffset:    ledger.DefaultIDOffset,
		BatchSize:   5,
		MaxAttempts: 5,
		Backoff:     backoff.Linear{Base: 100 * time.Millisecond},
		CreateDelay: 50 * time.Millisecond,
	}
}

// Validate checks the configuration for values that would make a run
// ill-defined.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return errors.New("sync: batch size must be at least 1")
	}
	if c.MaxAttempts < 1 {
		return errors.New("sync: max attempts must be at least 1")
	}
	if c.Backoff == nil {
		return errors.New("sync: backoff policy required")
	}
	if c.IDOffset == 0 {
		return errors.New("sync: id offset must reserve the low id range")
	}
	// The probe must never collide with a mapped catalog id. Mapped ids
	// start at IDOffset, so the probe either sits below the offset or far
	// above any realistic catalog size.
	if c.ProbeID >= c.IDOffset && c.ProbeID < c.IDOffset+1<<16 {
		return errors.New("sync: probe id inside the mapped id range")
	}
	return nil
}
