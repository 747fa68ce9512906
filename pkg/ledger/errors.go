package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the gateway and sync layers.
var (
	// ErrNotFound is returned when a looked-up record does not exist (yet).
	// During verification this is the one recoverable condition: a created
	// record may simply not be visible on the read path yet.
	ErrNotFound = errors.New("ledger: record not found")

	// ErrAlreadyExists reports a duplicate create. It is not a failure for
	// the sync protocol, which treats creation as create-or-verify.
	ErrAlreadyExists = errors.New("ledger: record already exists")

	// ErrCreateFailed is returned when the gateway rejects a create for a
	// reason other than the record already existing.
	ErrCreateFailed = errors.New("ledger: record creation failed")

	// ErrVerifyMismatch is a data-integrity condition: the record exists
	// but its posted balances differ from expectation. Never retried.
	ErrVerifyMismatch = errors.New("ledger: verified balances mismatch")

	// ErrVerifyTimeout is returned when a record stayed invisible for the
	// whole verification attempt budget.
	ErrVerifyTimeout = errors.New("ledger: verification attempts exhausted")

	// ErrProbeFailed means the connectivity probe could not be created,
	// i.e. the gateway is unreachable or unhealthy.
	ErrProbeFailed = errors.New("ledger: connectivity probe failed")

	// ErrGatewayUnavailable is returned when a gateway operation times out
	// or the transport is down.
	ErrGatewayUnavailable = errors.New("ledger: gateway unavailable")

	// ErrCircuitOpen is returned while the gateway circuit breaker is open.
	ErrCircuitOpen = errors.New("ledger: gateway circuit breaker open")
)

// IsNotFound reports whether err indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists reports whether err indicates a duplicate create.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsMismatch reports whether err indicates a balance mismatch.
func IsMismatch(err error) bool {
	return errors.Is(err, ErrVerifyMismatch)
}

// Classify maps an error onto a short label for metrics.
func Classify(err error) string {
	if err == nil {
		return "none"
	}
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrGatewayUnavailable):
		return "unavailable"
	case errors.Is(err, ErrVerifyMismatch):
		return "mismatch"
	case errors.Is(err, ErrVerifyTimeout):
		return "verify_timeout"
	case errors.Is(err, ErrProbeFailed):
		return "probe_failed"
	case errors.Is(err, ErrCreateFailed):
		return "create_failed"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		msg := strings.ToLower(err.Error())
		switch {
		case strings.Contains(msg, "connect") || strings.Contains(msg, "dial"):
			return "connection"
		case strings.Contains(msg, "context"):
			return "context"
		default:
			return "other"
		}
	}
}

// Wrap annotates an error with the failing operation and record id.
func Wrap(err error, op string, id uint64) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ledger %s id=%d: %w", op, id, err)
}
