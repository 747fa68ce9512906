// Package ledger defines the client-side view of the external balance
// ledger: the record shape, the policy that maps catalog accounts onto
// records, and the error taxonomy shared by the gateway and sync layers.
package ledger

import (
	"fmt"
	"strings"
)

// DefaultLedger is the single logical ledger namespace used for every
// account record this system creates.
const DefaultLedger uint32 = 1

// Flags is the constraint-flag bitmask carried on a ledger record. The bit
// values match the ledger service's wire encoding and must not be renumbered.
type Flags uint16

const (
	// FlagDebitsMustNotExceedCredits rejects postings that would push the
	// owed amount past the recorded total. Set on debt accounts.
	FlagDebitsMustNotExceedCredits Flags = 1 << 1

	// FlagCreditsMustNotExceedDebits rejects postings that would overdraw
	// an active deposit account past its recorded balance.
	FlagCreditsMustNotExceedDebits Flags = 1 << 2

	// FlagHistory enables balance history tracking on the record.
	FlagHistory Flags = 1 << 3
)

// Has reports whether all bits of f2 are set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// String renders the set flags for logs and failure messages.
func (f Flags) String() string {
	var parts []string
	if f.Has(FlagDebitsMustNotExceedCredits) {
		parts = append(parts, "debits_must_not_exceed_credits")
	}
	if f.Has(FlagCreditsMustNotExceedDebits) {
		parts = append(parts, "credits_must_not_exceed_debits")
	}
	if f.Has(FlagHistory) {
		parts = append(parts, "history")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Record is an account record as created in and read back from the ledger
// service. Records are immutable once created: the sync protocol only ever
// creates or verifies them, never updates.
type Record struct {
	ID uint64

	// DebitsPosted and CreditsPosted are minor-unit (cent) amounts. For a
	// debt account, debits carry the current balance owed and credits the
	// total principal or limit.
	DebitsPosted  uint64
	CreditsPosted uint64

	Ledger uint32
	Code   uint16
	Flags  Flags
}

// String is the compact form used in log fields and error messages.
func (r Record) String() string {
	return fmt.Sprintf("record(id=%d debits=%d credits=%d code=%d flags=%s)",
		r.ID, r.DebitsPosted, r.CreditsPosted, r.Code, r.Flags)
}

// BalancesEqual reports whether the posted balances of two records match.
// Verification compares balances only; code and flags are not required to
// match for a record to verify.
func (r Record) BalancesEqual(other Record) bool {
	return r.DebitsPosted == other.DebitsPosted && r.CreditsPosted == other.CreditsPosted
}
