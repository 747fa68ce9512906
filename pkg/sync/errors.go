package sync

import "fmt"

// SyncError is the terminal failure of a run. It names the offending
// account and ledger id so the caller can tell exactly where the run
// stopped; accounts after the failing one were never processed.
type SyncError struct {
	RunID     string
	AccountID string
	LedgerID  uint64
	Err       error
}

// Error implements error.
func (e *SyncError) Error() string {
	if e.AccountID == "" {
		return fmt.Sprintf("sync run %s: %v", e.RunID, e.Err)
	}
	return fmt.Sprintf("sync run %s: account %s (ledger id %d): %v",
		e.RunID, e.AccountID, e.LedgerID, e.Err)
}

// Unwrap exposes the underlying taxonomy sentinel for errors.Is checks.
func (e *SyncError) Unwrap() error { return e.Err }
