// Package resilience wraps a ledger gateway with circuit breaker and
// timeout protection. The sync protocol's own retry loops handle the
// not-yet-visible record case; this layer handles the transport being
// slow or down.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"ledgersync/pkg/gateway"
	"ledgersync/pkg/ledger"
	"ledgersync/pkg/logging"
	"ledgersync/pkg/metrics"
)

// Gateway decorates another gateway.Gateway with a circuit breaker and a
// per-call timeout.
type Gateway struct {
	inner   gateway.Gateway
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.Collector
	logger  *logging.Logger
}

// New wraps the given gateway. The no-op metrics collector is used.
func New(inner gateway.Gateway, config Config, logger *logging.Logger) *Gateway {
	return NewWithMetrics(inner, config, logger, metrics.Nop{})
}

// NewWithMetrics wraps the given gateway with a custom metrics collector.
func NewWithMetrics(inner gateway.Gateway, config Config, logger *logging.Logger, collector metrics.Collector) *Gateway {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("resilience").Named(inner.Name())

	g := &Gateway{
		inner:   inner,
		timeout: config.Timeout,
		metrics: collector,
		logger:  logger,
	}

	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: config.CircuitBreaker.MaxRequests,
		Interval:    config.CircuitBreaker.Interval,
		Timeout:     config.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if config.CircuitBreaker.ReadyToTrip != nil {
				return config.CircuitBreaker.ReadyToTrip(Counts{
					Requests:             counts.Requests,
					TotalSuccesses:       counts.TotalSuccesses,
					TotalFailures:        counts.TotalFailures,
					ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
					ConsecutiveFailures:  counts.ConsecutiveFailures,
				})
			}
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("gateway", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			g.metrics.RecordCircuitState(name, state)
		},
	}
	g.cb = gobreaker.NewCircuitBreaker(settings)

	logger.Info("resilient gateway initialized",
		zap.Duration("timeout", config.Timeout),
		zap.Uint32("max_requests", config.CircuitBreaker.MaxRequests),
		zap.Duration("circuit_interval", config.CircuitBreaker.Interval),
		zap.Duration("circuit_timeout", config.CircuitBreaker.Timeout),
	)

	return g
}

// CreateAccounts implements gateway.Gateway with breaker and timeout
// protection.
func (g *Gateway) CreateAccounts(ctx context.Context, records []ledger.Record) ([]gateway.CreateResult, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	result, err := g.cb.Execute(func() (interface{}, error) {
		return g.inner.CreateAccounts(ctx, records)
	})
	if err != nil {
		return nil, g.translate(ctx, "create", err)
	}
	return result.([]gateway.CreateResult), nil
}

// LookupAccounts implements gateway.Gateway with breaker and timeout
// protection.
func (g *Gateway) LookupAccounts(ctx context.Context, ids []uint64) ([]ledger.Record, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	result, err := g.cb.Execute(func() (interface{}, error) {
		return g.inner.LookupAccounts(ctx, ids)
	})
	if err != nil {
		return nil, g.translate(ctx, "lookup", err)
	}
	return result.([]ledger.Record), nil
}

// Name returns the name of the wrapped gateway.
func (g *Gateway) Name() string { return g.inner.Name() }

// Close closes the wrapped gateway.
func (g *Gateway) Close() error { return g.inner.Close() }

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout > 0 {
		return context.WithTimeout(ctx, g.timeout)
	}
	return ctx, func() {}
}

func (g *Gateway) translate(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		g.logger.Warn("circuit breaker rejected request", zap.String("operation", op))
		return ledger.ErrCircuitOpen
	case ctx.Err() == context.DeadlineExceeded:
		g.logger.Warn("gateway operation timed out",
			zap.String("operation", op),
			zap.Duration("timeout", g.timeout),
		)
		return ledger.ErrGatewayUnavailable
	default:
		g.logger.Error("gateway operation failed",
			zap.String("operation", op),
			zap.Error(err),
		)
		return err
	}
}

var _ gateway.Gateway = (*Gateway)(nil)
