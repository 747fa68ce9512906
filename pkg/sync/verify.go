package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ledgersync/pkg/backoff"
	"ledgersync/pkg/gateway"
	"ledgersync/pkg/ledger"
	"ledgersync/pkg/logging"
	"ledgersync/pkg/metrics"
)

// Verifier confirms that ledger records hold the expected posted balances.
// Because the ledger's read path is eventually consistent, a record that
// was just created may be invisible for a while; the verifier retries
// misses with increasing backoff. A record that is visible but carries the
// wrong balances is a data-integrity failure and is never retried in
// single-record mode.
type Verifier struct {
	gw      gateway.Gateway
	cfg     Config
	logger  *logging.Logger
	metrics metrics.Collector
	sleep   backoff.Sleeper
}

// NewVerifier builds a verifier. logger, collector and sleeper may be nil,
// in which case no-op implementations are used (sleeper defaults to a real
// wall-clock sleep).
func NewVerifier(gw gateway.Gateway, cfg Config, logger *logging.Logger, collector metrics.Collector, sleep backoff.Sleeper) *Verifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	if sleep == nil {
		sleep = backoff.Sleep
	}
	return &Verifier{
		gw:      gw,
		cfg:     cfg,
		logger:  logger.Named("verify"),
		metrics: collector,
		sleep:   sleep,
	}
}

// VerifyRecord confirms a single record's balances, retrying lookups up to
// the attempt budget while the record stays invisible. A balance mismatch
// fails immediately.
func (v *Verifier) VerifyRecord(ctx context.Context, want ledger.Record) error {
	for attempt := 1; attempt <= v.cfg.MaxAttempts; attempt++ {
		start := time.Now()
		found, err := v.gw.LookupAccounts(ctx, []uint64{want.ID})
		v.metrics.RecordLookup(1, len(found), time.Since(start))
		if err != nil {
			v.metrics.RecordVerifyAttempt("single", attempt, "error")
			return ledger.Wrap(err, "verify lookup", want.ID)
		}

		got, ok := findRecord(found, want.ID)
		if !ok {
			v.metrics.RecordVerifyAttempt("single", attempt, "missing")
			v.logger.Debug("record not visible yet",
				zap.Uint64("id", want.ID),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", v.cfg.MaxAttempts),
			)
			if attempt < v.cfg.MaxAttempts {
				if err := v.sleep(ctx, v.cfg.Backoff.Delay(attempt)); err != nil {
					return err
				}
			}
			continue
		}

		if !want.BalancesEqual(got) {
			v.metrics.RecordVerifyAttempt("single", attempt, "mismatch")
			return mismatchError(want, got)
		}

		v.metrics.RecordVerifyAttempt("single", attempt, "verified")
		v.logger.Debug("record verified",
			zap.Uint64("id", want.ID),
			zap.Int("attempt", attempt),
		)
		return nil
	}

	return fmt.Errorf("%w: id=%d not found after %d attempts",
		ledger.ErrVerifyTimeout, want.ID, v.cfg.MaxAttempts)
}

// VerifyBatch confirms a whole set of records. Expected records are split
// into fixed-size batches; an attempt succeeds only when every id in every
// batch is found with matching balances. Any deficiency, missing record or
// mismatch alike, fails the attempt as a whole and the next attempt
// re-checks everything from scratch. Partial verification never counts.
func (v *Verifier) VerifyBatch(ctx context.Context, wants []ledger.Record) error {
	if len(wants) == 0 {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= v.cfg.MaxAttempts; attempt++ {
		lastErr = v.checkAllBatches(ctx, wants)
		if lastErr == nil {
			v.metrics.RecordVerifyAttempt("batch", attempt, "verified")
			return nil
		}
		if ledger.IsMismatch(lastErr) {
			v.metrics.RecordVerifyAttempt("batch", attempt, "mismatch")
		} else if ledger.IsNotFound(lastErr) {
			v.metrics.RecordVerifyAttempt("batch", attempt, "missing")
		} else {
			v.metrics.RecordVerifyAttempt("batch", attempt, "error")
			return lastErr
		}

		v.logger.Debug("batch verification attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", v.cfg.MaxAttempts),
			zap.Error(lastErr),
		)
		if attempt < v.cfg.MaxAttempts {
			if err := v.sleep(ctx, v.cfg.Backoff.Delay(attempt)); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%w: %d attempts: %w", ledger.ErrVerifyTimeout, v.cfg.MaxAttempts, lastErr)
}

// checkAllBatches runs one full pass over every batch. The first
// deficiency aborts the pass.
func (v *Verifier) checkAllBatches(ctx context.Context, wants []ledger.Record) error {
	for start := 0; start < len(wants); start += v.cfg.BatchSize {
		end := start + v.cfg.BatchSize
		if end > len(wants) {
			end = len(wants)
		}
		batch := wants[start:end]

		ids := make([]uint64, len(batch))
		for i, w := range batch {
			ids[i] = w.ID
		}

		lookupStart := time.Now()
		found, err := v.gw.LookupAccounts(ctx, ids)
		v.metrics.RecordLookup(len(ids), len(found), time.Since(lookupStart))
		if err != nil {
			return ledger.Wrap(err, "batch lookup", ids[0])
		}

		byID := make(map[uint64]ledger.Record, len(found))
		for _, r := range found {
			byID[r.ID] = r
		}

		for _, want := range batch {
			got, ok := byID[want.ID]
			if !ok {
				return fmt.Errorf("%w: id=%d", ledger.ErrNotFound, want.ID)
			}
			if !want.BalancesEqual(got) {
				return mismatchError(want, got)
			}
		}
	}
	return nil
}

func findRecord(records []ledger.Record, id uint64) (ledger.Record, bool) {
	for _, r := range records {
		if r.ID == id {
			return r, true
		}
	}
	return ledger.Record{}, false
}

func mismatchError(want, got ledger.Record) error {
	return fmt.Errorf("%w: id=%d expected debits=%d credits=%d, observed debits=%d credits=%d",
		ledger.ErrVerifyMismatch, want.ID,
		want.DebitsPosted, want.CreditsPosted,
		got.DebitsPosted, got.CreditsPosted)
}
