// Package sync implements the ledger synchronization protocol: for each
// catalog account, build its ledger record, create it idempotently, and
// verify the posted balances against expectation despite the ledger's
// asynchronous read visibility. A run either verifies the whole catalog or
// fails fast at the first unverifiable account.
package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ledgersync/pkg/backoff"
	"ledgersync/pkg/catalog"
	"ledgersync/pkg/events"
	"ledgersync/pkg/gateway"
	"ledgersync/pkg/ledger"
	"ledgersync/pkg/logging"
	"ledgersync/pkg/metrics"
)

// Options carries the optional collaborators of a Synchronizer. Zero
// values fall back to no-op implementations (and a real wall-clock sleep).
type Options struct {
	Logger    *logging.Logger
	Metrics   metrics.Collector
	Publisher events.Publisher
	Sleeper   backoff.Sleeper
}

// LastRun summarizes the most recent run for status reporting.
type LastRun struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	Duration   string    `json:"duration"`
	Accounts   int       `json:"accounts"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
}

// Synchronizer drives the create-then-verify sequence over a catalog.
// Accounts are processed strictly in catalog order, one at a time; there
// is deliberately no concurrency, which keeps failure attribution
// unambiguous and avoids overwhelming the ledger.
type Synchronizer struct {
	gw        gateway.Gateway
	cfg       Config
	logger    *logging.Logger
	metrics   metrics.Collector
	publisher events.Publisher
	sleep     backoff.Sleeper
	verifier  *Verifier

	mu      gosync.Mutex
	lastRun *LastRun
}

// New builds a Synchronizer for the given gateway and configuration.
func New(gw gateway.Gateway, cfg Config, opts Options) (*Synchronizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Sleeper == nil {
		opts.Sleeper = backoff.Sleep
	}

	return &Synchronizer{
		gw:        gw,
		cfg:       cfg,
		logger:    opts.Logger.Named("sync"),
		metrics:   opts.Metrics,
		publisher: opts.Publisher,
		sleep:     opts.Sleeper,
		verifier:  NewVerifier(gw, cfg, opts.Logger, opts.Metrics, opts.Sleeper),
	}, nil
}

// Verifier exposes the synchronizer's verification engine, which shares
// its configuration and collaborators.
func (s *Synchronizer) Verifier() *Verifier { return s.verifier }

// Config returns the active configuration.
func (s *Synchronizer) Config() Config { return s.cfg }

// LastRun returns a summary of the most recent run, if any.
func (s *Synchronizer) LastRun() (LastRun, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRun == nil {
		return LastRun{}, false
	}
	return *s.lastRun, true
}

// Probe confirms the gateway is reachable by creating the well-known probe
// record. Both a fresh creation and "already exists" prove reachability;
// anything else fails the probe.
func (s *Synchronizer) Probe(ctx context.Context) error {
	probe := ledger.Record{
		ID:     s.cfg.ProbeID,
		Ledger: s.cfg.Ledger,
		Code:   1,
	}

	start := time.Now()
	results, err := s.gw.CreateAccounts(ctx, []ledger.Record{probe})
	if err != nil {
		s.metrics.RecordCreate("error", time.Since(start))
		return fmt.Errorf("%w: %w", ledger.ErrProbeFailed, err)
	}
	if len(results) != 1 {
		s.metrics.RecordCreate("error", time.Since(start))
		return fmt.Errorf("%w: expected 1 result, got %d", ledger.ErrProbeFailed, len(results))
	}

	res := results[0]
	s.metrics.RecordCreate(res.Status.String(), time.Since(start))
	switch res.Status {
	case gateway.StatusCreated, gateway.StatusExists:
		s.logger.Info("ledger gateway reachable",
			zap.String("gateway", s.gw.Name()),
			zap.Uint64("probe_id", s.cfg.ProbeID),
			zap.String("probe_status", res.Status.String()),
		)
		return nil
	default:
		return fmt.Errorf("%w: probe create returned code %d", ledger.ErrProbeFailed, res.Code)
	}
}

// BuildRecords maps the catalog onto the expected ledger records, in
// catalog order.
func (s *Synchronizer) BuildRecords(cat catalog.Catalog) []ledger.Record {
	records := make([]ledger.Record, len(cat))
	for i, a := range cat {
		records[i] = ledger.BuildRecord(i, a, s.cfg.IDOffset, s.cfg.Ledger)
	}
	return records
}

// SyncAccounts ensures every catalog account exists in the ledger with the
// expected balances. Processing is sequential and fail-fast: once an
// account cannot be verified, later accounts are never touched, since
// downstream balance projection assumes total catalog coverage. The run is
// safe to repeat — creates that find a pre-existing record proceed to
// verification instead of failing.
func (s *Synchronizer) SyncAccounts(ctx context.Context, cat catalog.Catalog) error {
	runID := uuid.NewString()
	start := time.Now()
	logger := s.logger.With(zap.String("run_id", runID))

	logger.Info("starting sync run",
		zap.Int("accounts", len(cat)),
		zap.String("gateway", s.gw.Name()),
	)

	err := s.run(ctx, runID, logger, cat)

	duration := time.Since(start)
	s.metrics.RecordRun(err == nil, len(cat), duration)
	s.recordLastRun(runID, start, duration, len(cat), err)

	if err != nil {
		logger.Error("sync run failed", zap.Error(err), zap.Duration("duration", duration))
		return err
	}
	logger.Info("sync run complete",
		zap.Int("accounts", len(cat)),
		zap.Duration("duration", duration),
	)
	return nil
}

func (s *Synchronizer) run(ctx context.Context, runID string, logger *logging.Logger, cat catalog.Catalog) error {
	if err := cat.Validate(); err != nil {
		return s.fail(ctx, runID, "", 0, err)
	}

	if err := s.Probe(ctx); err != nil {
		return s.fail(ctx, runID, "", s.cfg.ProbeID, err)
	}

	for i, acct := range cat {
		record := ledger.BuildRecord(i, acct, s.cfg.IDOffset, s.cfg.Ledger)
		accountLogger := logger.With(
			zap.String("account_id", acct.ID),
			zap.String("account_name", acct.Name),
			zap.Uint64("ledger_id", record.ID),
		)

		if s.cfg.CreateDelay > 0 {
			if err := s.sleep(ctx, s.cfg.CreateDelay); err != nil {
				return s.fail(ctx, runID, acct.ID, record.ID, err)
			}
		}

		status, err := s.createRecord(ctx, record)
		if err != nil {
			return s.fail(ctx, runID, acct.ID, record.ID, err)
		}
		accountLogger.Info("record submitted",
			zap.String("status", status.String()),
			zap.Uint64("debits_posted", record.DebitsPosted),
			zap.Uint64("credits_posted", record.CreditsPosted),
			zap.Uint16("code", record.Code),
			zap.String("flags", record.Flags.String()),
		)

		if err := s.verifier.VerifyRecord(ctx, record); err != nil {
			return s.fail(ctx, runID, acct.ID, record.ID, err)
		}
		accountLogger.Info("record verified")

		s.publish(ctx, events.TopicAccountSynced, events.AccountSynced{
			RunID:         runID,
			AccountID:     acct.ID,
			LedgerID:      record.ID,
			DebitsPosted:  record.DebitsPosted,
			CreditsPosted: record.CreditsPosted,
			OccurredAt:    time.Now().UTC(),
		})
	}

	s.publish(ctx, events.TopicSyncCompleted, events.SyncCompleted{
		RunID:      runID,
		Accounts:   len(cat),
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// createRecord submits one record and interprets the per-record outcome.
// "Already exists" is success: the record will be verified like any other.
func (s *Synchronizer) createRecord(ctx context.Context, record ledger.Record) (gateway.CreateStatus, error) {
	start := time.Now()
	results, err := s.gw.CreateAccounts(ctx, []ledger.Record{record})
	if err != nil {
		s.metrics.RecordCreate("error", time.Since(start))
		return gateway.StatusFailed, ledger.Wrap(err, "create", record.ID)
	}
	if len(results) != 1 {
		s.metrics.RecordCreate("error", time.Since(start))
		return gateway.StatusFailed, fmt.Errorf("%w: id=%d: expected 1 result, got %d",
			ledger.ErrCreateFailed, record.ID, len(results))
	}

	res := results[0]
	s.metrics.RecordCreate(res.Status.String(), time.Since(start))
	switch res.Status {
	case gateway.StatusCreated, gateway.StatusExists:
		return res.Status, nil
	default:
		return res.Status, res.Err()
	}
}

func (s *Synchronizer) fail(ctx context.Context, runID, accountID string, ledgerID uint64, err error) error {
	syncErr := &SyncError{RunID: runID, AccountID: accountID, LedgerID: ledgerID, Err: err}
	s.publish(ctx, events.TopicSyncFailed, events.SyncFailed{
		RunID:      runID,
		AccountID:  accountID,
		Reason:     err.Error(),
		OccurredAt: time.Now().UTC(),
	})
	return syncErr
}

// publish delivers an event best-effort; a publish failure never fails the
// run.
func (s *Synchronizer) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("event publish failed",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}

func (s *Synchronizer) recordLastRun(runID string, start time.Time, duration time.Duration, accounts int, err error) {
	lr := &LastRun{
		RunID:     runID,
		StartedAt: start.UTC(),
		Duration:  duration.String(),
		Accounts:  accounts,
		Success:   err == nil,
	}
	if err != nil {
		lr.Error = err.Error()
	}
	s.mu.Lock()
	s.lastRun = lr
	s.mu.Unlock()
}
