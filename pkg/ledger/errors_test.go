package ledger

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, "none"},
		{"not found", ErrNotFound, "not_found"},
		{"already exists", ErrAlreadyExists, "already_exists"},
		{"create failed", ErrCreateFailed, "create_failed"},
		{"mismatch", ErrVerifyMismatch, "mismatch"},
		{"verify timeout", ErrVerifyTimeout, "verify_timeout"},
		{"probe failed", ErrProbeFailed, "probe_failed"},
		{"unavailable", ErrGatewayUnavailable, "unavailable"},
		{"circuit open", ErrCircuitOpen, "circuit_open"},
		{"wrapped sentinel", fmt.Errorf("outer: %w", ErrVerifyMismatch), "mismatch"},
		{"connection refused", errors.New("dial tcp 127.0.0.1:3000: connection refused"), "connection"},
		{"context canceled", errors.New("context canceled"), "context"},
		{"unknown", errors.New("something else"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "verify lookup", 105)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !IsNotFound(err) {
		t.Error("Wrapped error lost its sentinel")
	}
	expected := "ledger verify lookup id=105: ledger: record not found"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	if Wrap(nil, "verify lookup", 105) != nil {
		t.Error("Wrapping nil should return nil")
	}
}

func TestPredicates(t *testing.T) {
	wrapped := Wrap(ErrVerifyMismatch, "verify", 101)

	if !IsMismatch(wrapped) {
		t.Error("IsMismatch should see through Wrap")
	}
	if IsMismatch(ErrNotFound) {
		t.Error("IsMismatch should reject ErrNotFound")
	}
	if !IsAlreadyExists(fmt.Errorf("create: %w", ErrAlreadyExists)) {
		t.Error("IsAlreadyExists should see through wrapping")
	}
	if IsNotFound(nil) {
		t.Error("IsNotFound(nil) should be false")
	}
}
