// Package progress reads verified balances back from the ledger and
// projects them into debt-payoff metrics. It is a pure read/compute layer:
// it assumes the catalog was fully synchronized and verified, and it never
// retries on its own.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ledgersync/pkg/balancecache"
	"ledgersync/pkg/catalog"
	"ledgersync/pkg/gateway"
	"ledgersync/pkg/ledger"
	"ledgersync/pkg/logging"
	"ledgersync/pkg/metrics"
)

// Config tunes the reader. IDOffset and BatchSize must match the values
// the synchronizer used, or the reader addresses the wrong records.
type Config struct {
	IDOffset  uint64
	BatchSize int

	// CacheTTL is how long verified balances are served from the cache
	// before the ledger is consulted again.
	CacheTTL time.Duration
}

// DefaultConfig mirrors the synchronizer's defaults.
func DefaultConfig() Config {
	return Config{
		IDOffset:  ledger.DefaultIDOffset,
		BatchSize: 5,
		CacheTTL:  time.Minute,
	}
}

// Balance is a record's verified balances in currency units.
type Balance struct {
	CurrentBalance decimal.Decimal `json:"current_balance"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// DebtProgress is the payoff projection for one debt account.
type DebtProgress struct {
	Name            string           `json:"name"`
	Category        catalog.Category `json:"category"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	CurrentBalance  decimal.Decimal  `json:"current_balance"`
	PercentagePaid  decimal.Decimal  `json:"percentage_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	NextPaymentDue  *time.Time       `json:"next_payment_due,omitempty"`
	MinimumPayment  *decimal.Decimal `json:"minimum_payment,omitempty"`
}

// Reader computes balance and payoff views over a synchronized catalog.
type Reader struct {
	gw      gateway.Gateway
	cat     catalog.Catalog
	cfg     Config
	cache   balancecache.Cache
	logger  *logging.Logger
	metrics metrics.Collector
	sf      singleflight.Group
}

// NewReader builds a reader. cache may be nil to read straight from the
// ledger every time; logger and collector may be nil.
func NewReader(gw gateway.Gateway, cat catalog.Catalog, cfg Config, cache balancecache.Cache, logger *logging.Logger, collector metrics.Collector) *Reader {
	if logger == nil {
		logger = logging.NewNop()
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Reader{
		gw:      gw,
		cat:     cat,
		cfg:     cfg,
		cache:   cache,
		logger:  logger.Named("progress"),
		metrics: collector,
	}
}

// ids returns the ledger ids of every catalog account, in catalog order.
func (r *Reader) ids() []uint64 {
	ids := make([]uint64, len(r.cat))
	for i := range r.cat {
		ids[i] = ledger.RecordID(i, r.cfg.IDOffset)
	}
	return ids
}

// VerifiedBalances returns the balances of every catalog account as the
// ledger reports them. The full id set must be found; a gap means the
// catalog was not (or not completely) synchronized and is an error, never
// a partial result. Concurrent callers share one read via singleflight,
// and results are written through to the cache when one is configured.
func (r *Reader) VerifiedBalances(ctx context.Context) (map[uint64]Balance, error) {
	result, err, _ := r.sf.Do("balances", func() (interface{}, error) {
		return r.readBalances(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[uint64]Balance), nil
}

func (r *Reader) readBalances(ctx context.Context) (map[uint64]Balance, error) {
	ids := r.ids()

	if cached, ok := r.fromCache(ctx, ids); ok {
		return cached, nil
	}

	minor := make(map[uint64]balancecache.Balance, len(ids))
	for start := 0; start < len(ids); start += r.cfg.BatchSize {
		end := start + r.cfg.BatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		lookupStart := time.Now()
		found, err := r.gw.LookupAccounts(ctx, batch)
		r.metrics.RecordLookup(len(batch), len(found), time.Since(lookupStart))
		if err != nil {
			return nil, ledger.Wrap(err, "balance lookup", batch[0])
		}
		for _, rec := range found {
			minor[rec.ID] = balancecache.Balance{
				DebitsPosted:  rec.DebitsPosted,
				CreditsPosted: rec.CreditsPosted,
			}
		}
	}

	for _, id := range ids {
		if _, ok := minor[id]; !ok {
			return nil, fmt.Errorf("%w: id=%d missing from balance read", ledger.ErrNotFound, id)
		}
	}

	if r.cache != nil {
		if err := r.cache.SetMulti(ctx, minor, r.cfg.CacheTTL); err != nil {
			r.logger.Warn("balance cache write failed", zap.Error(err))
		}
	}

	return toCurrency(minor), nil
}

// fromCache serves the read from the cache when it covers every id.
// Partial coverage falls back to the ledger: a half-cached view could mix
// balance generations.
func (r *Reader) fromCache(ctx context.Context, ids []uint64) (map[uint64]Balance, bool) {
	if r.cache == nil {
		return nil, false
	}

	start := time.Now()
	cached, err := r.cache.GetMulti(ctx, ids)
	hit := err == nil && len(cached) == len(ids)
	r.metrics.RecordCacheGet(r.cache.Name(), hit, time.Since(start))
	if err != nil {
		r.logger.Warn("balance cache read failed", zap.Error(err))
		return nil, false
	}
	if !hit {
		return nil, false
	}
	return toCurrency(cached), true
}

func toCurrency(minor map[uint64]balancecache.Balance) map[uint64]Balance {
	out := make(map[uint64]Balance, len(minor))
	for id, b := range minor {
		out[id] = Balance{
			CurrentBalance: ledger.FromMinorUnits(b.DebitsPosted),
			TotalAmount:    ledger.FromMinorUnits(b.CreditsPosted),
		}
	}
	return out
}

var hundred = decimal.NewFromInt(100)

// DebtProgress computes payoff metrics for every debt-bearing account.
// Non-debt accounts (checking, savings, debit) are excluded even though
// their balances were verified.
func (r *Reader) DebtProgress(ctx context.Context) (map[uint64]DebtProgress, error) {
	balances, err := r.VerifiedBalances(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[uint64]DebtProgress)
	for i, acct := range r.cat {
		if !acct.Category.Debt() {
			continue
		}
		id := ledger.RecordID(i, r.cfg.IDOffset)
		bal, ok := balances[id]
		if !ok {
			return nil, fmt.Errorf("%w: id=%d missing from verified balances", ledger.ErrNotFound, id)
		}

		dp := DebtProgress{
			Name:             acct.Name,
			Category:         acct.Category,
			TotalAmount:      bal.TotalAmount,
			CurrentBalance:   bal.CurrentBalance,
			PercentagePaid:   percentagePaid(bal),
			RemainingBalance: bal.TotalAmount.Sub(bal.CurrentBalance).Round(2),
		}
		if acct.Schedule != nil {
			due := acct.Schedule.DueDate
			dp.NextPaymentDue = &due
			min := acct.Schedule.MinimumPayment
			dp.MinimumPayment = &min
		}
		out[id] = dp
	}
	return out, nil
}

// percentagePaid is debits over credits. A zero credit total would make
// the division undefined; such an account is treated as fully paid,
// mirroring the catalog entity's own payment percentage.
func percentagePaid(b Balance) decimal.Decimal {
	if b.TotalAmount.IsZero() {
		return hundred
	}
	return b.CurrentBalance.Div(b.TotalAmount).Mul(hundred).Round(2)
}
