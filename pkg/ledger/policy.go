package ledger

import (
	"ledgersync/pkg/catalog"
)

// CategoryCode maps an account category onto the ledger's numeric account
// code. Unknown categories map to 0 rather than failing: a catalog may
// carry categories newer than this package.
func CategoryCode(c catalog.Category) uint16 {
	switch c {
	case catalog.Checking:
		return 1
	case catalog.Savings:
		return 2
	case catalog.CreditCard:
		return 3
	case catalog.Loan:
		return 4
	case catalog.StudentLoan:
		return 5
	case catalog.IOU:
		return 6
	default:
		return 0
	}
}

// ConstraintFlags derives the constraint-flag set for an account.
//
// Debt accounts (and closed accounts still carrying a balance, which are
// treated as debt regardless of their original category) must never reach
// a state where the amount paid in exceeds the amount owed. Active checking
// accounts must never be overdrawn past their recorded balance. The two
// balance-direction bits are mutually exclusive: no category/closed
// combination satisfies both predicates. Every record tracks history.
func ConstraintFlags(a catalog.Account) Flags {
	flags := FlagHistory

	if a.Category.Debt() || (a.Closed && a.CurrentBalance.IsPositive()) {
		flags |= FlagDebitsMustNotExceedCredits
	}

	if a.Category == catalog.Checking && !a.Closed {
		flags |= FlagCreditsMustNotExceedDebits
	}

	return flags
}

// BuildRecord constructs the ledger record for the account at the given
// catalog position. idOffset and ledgerID come from the sync configuration;
// the same values must be used on every run against the same ledger so the
// mapping stays reproducible.
func BuildRecord(index int, a catalog.Account, idOffset uint64, ledgerID uint32) Record {
	return Record{
		ID:            RecordID(index, idOffset),
		DebitsPosted:  MinorUnits(a.CurrentBalance),
		CreditsPosted: MinorUnits(a.TotalAmount),
		Ledger:        ledgerID,
		Code:          CategoryCode(a.Category),
		Flags:         ConstraintFlags(a),
	}
}
