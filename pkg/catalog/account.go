package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies an account for ledger mapping purposes.
type Category string

// Known account categories. Unknown values are tolerated by the ledger
// mapping (they map to code 0), so new categories can appear in a catalog
// before this package learns about them.
const (
	CreditCard  Category = "CREDIT_CARD"
	Loan        Category = "LOAN"
	StudentLoan Category = "STUDENT_LOAN"
	IOU         Category = "IOU"
	Checking    Category = "CHECKING"
	Savings     Category = "SAVINGS"
	Debit       Category = "DEBIT"
)

// Debt reports whether the category represents money owed by the account
// holder. Debt accounts are the ones tracked by payoff projection.
func (c Category) Debt() bool {
	switch c {
	case CreditCard, Loan, StudentLoan, IOU:
		return true
	}
	return false
}

// PaymentSchedule describes the recurring payment terms of an account.
// It is carried through to payoff projection untouched; the ledger never
// sees it.
type PaymentSchedule struct {
	DueDate        time.Time
	Frequency      string
	MinimumPayment decimal.Decimal
}

// LoanDetail is a per-note breakdown for accounts that aggregate several
// sub-loans under one servicer (e.g. a student loan account). Details are
// informational only and are not reconciled individually against the ledger.
type LoanDetail struct {
	Principal decimal.Decimal
	Rate      decimal.Decimal
	Deferred  bool
}

// Account is a single entry of the account catalog. Accounts are immutable
// inputs for the duration of a sync run.
type Account struct {
	ID            string
	Name          string
	Category      Category
	AccountNumber string

	// TotalAmount is the credit limit, loan principal, or target amount.
	TotalAmount decimal.Decimal

	// CurrentBalance is the amount currently owed (or held, for deposit
	// accounts). Expected to not exceed TotalAmount; violations surface
	// as verification mismatches downstream rather than local errors.
	CurrentBalance decimal.Decimal

	APR decimal.Decimal

	Active bool
	Closed bool

	Schedule    *PaymentSchedule
	LoanDetails []LoanDetail
}

var hundred = decimal.NewFromInt(100)

// PaymentPercentage returns how much of the account's total has been paid
// off, as a percentage. An account with a zero total is fully paid.
func (a Account) PaymentPercentage() decimal.Decimal {
	if a.TotalAmount.IsZero() {
		return hundred
	}
	return a.TotalAmount.Sub(a.CurrentBalance).Div(a.TotalAmount).Mul(hundred)
}
