package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	"ledgersync/pkg/catalog"
)

func TestCategoryCode(t *testing.T) {
	tests := []struct {
		category catalog.Category
		expected uint16
	}{
		{catalog.Checking, 1},
		{catalog.Savings, 2},
		{catalog.CreditCard, 3},
		{catalog.Loan, 4},
		{catalog.StudentLoan, 5},
		{catalog.IOU, 6},
		{catalog.Debit, 0},
		{catalog.Category("CRYPTO"), 0},
		{catalog.Category(""), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			if code := CategoryCode(tt.category); code != tt.expected {
				t.Errorf("Expected code %d for %q, got %d", tt.expected, tt.category, code)
			}
		})
	}
}

func TestConstraintFlags(t *testing.T) {
	tests := []struct {
		name     string
		account  catalog.Account
		expected Flags
	}{
		{
			name:     "credit card",
			account:  catalog.Account{Category: catalog.CreditCard},
			expected: FlagHistory | FlagDebitsMustNotExceedCredits,
		},
		{
			name:     "loan",
			account:  catalog.Account{Category: catalog.Loan},
			expected: FlagHistory | FlagDebitsMustNotExceedCredits,
		},
		{
			name:     "student loan",
			account:  catalog.Account{Category: catalog.StudentLoan},
			expected: FlagHistory | FlagDebitsMustNotExceedCredits,
		},
		{
			name:     "iou",
			account:  catalog.Account{Category: catalog.IOU},
			expected: FlagHistory | FlagDebitsMustNotExceedCredits,
		},
		{
			name:     "active checking",
			account:  catalog.Account{Category: catalog.Checking, Active: true},
			expected: FlagHistory | FlagCreditsMustNotExceedDebits,
		},
		{
			name: "closed checking with residual balance",
			account: catalog.Account{
				Category:       catalog.Checking,
				Closed:         true,
				CurrentBalance: decimal.NewFromFloat(42.73),
			},
			expected: FlagHistory | FlagDebitsMustNotExceedCredits,
		},
		{
			name:     "closed checking with zero balance",
			account:  catalog.Account{Category: catalog.Checking, Closed: true},
			expected: FlagHistory,
		},
		{
			name:     "savings",
			account:  catalog.Account{Category: catalog.Savings},
			expected: FlagHistory,
		},
		{
			name:     "debit",
			account:  catalog.Account{Category: catalog.Debit, Active: true},
			expected: FlagHistory,
		},
		{
			name:     "unknown category",
			account:  catalog.Account{Category: catalog.Category("CRYPTO")},
			expected: FlagHistory,
		},
		{
			name: "closed credit card still owing",
			account: catalog.Account{
				Category:       catalog.CreditCard,
				Closed:         true,
				CurrentBalance: decimal.NewFromInt(100),
			},
			expected: FlagHistory | FlagDebitsMustNotExceedCredits,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := ConstraintFlags(tt.account)
			if flags != tt.expected {
				t.Errorf("Expected flags %s, got %s", tt.expected, flags)
			}
		})
	}
}

func TestConstraintFlags_BalanceDirectionBitsExclusive(t *testing.T) {
	categories := []catalog.Category{
		catalog.Checking, catalog.Savings, catalog.CreditCard,
		catalog.Loan, catalog.StudentLoan, catalog.IOU,
		catalog.Debit, catalog.Category("CRYPTO"),
	}
	balances := []decimal.Decimal{decimal.Zero, decimal.NewFromInt(500)}

	for _, category := range categories {
		for _, closed := range []bool{false, true} {
			for _, balance := range balances {
				account := catalog.Account{
					Category:       category,
					Closed:         closed,
					Active:         !closed,
					CurrentBalance: balance,
				}
				flags := ConstraintFlags(account)

				if !flags.Has(FlagHistory) {
					t.Errorf("%s closed=%v balance=%s: history flag not set",
						category, closed, balance)
				}
				if flags.Has(FlagDebitsMustNotExceedCredits) && flags.Has(FlagCreditsMustNotExceedDebits) {
					t.Errorf("%s closed=%v balance=%s: both balance-direction flags set",
						category, closed, balance)
				}
			}
		}
	}
}

func TestBuildRecord(t *testing.T) {
	account := catalog.Account{
		ID:             "gs-3286",
		Name:           "GS 3286",
		Category:       catalog.CreditCard,
		TotalAmount:    decimal.NewFromInt(1500),
		CurrentBalance: decimal.NewFromFloat(1039.74),
	}

	record := BuildRecord(3, account, DefaultIDOffset, DefaultLedger)

	if record.ID != 103 {
		t.Errorf("Expected id 103, got %d", record.ID)
	}
	if record.DebitsPosted != 103974 {
		t.Errorf("Expected debits 103974, got %d", record.DebitsPosted)
	}
	if record.CreditsPosted != 150000 {
		t.Errorf("Expected credits 150000, got %d", record.CreditsPosted)
	}
	if record.Ledger != 1 {
		t.Errorf("Expected ledger 1, got %d", record.Ledger)
	}
	if record.Code != 3 {
		t.Errorf("Expected code 3, got %d", record.Code)
	}
	expectedFlags := FlagHistory | FlagDebitsMustNotExceedCredits
	if record.Flags != expectedFlags {
		t.Errorf("Expected flags %s, got %s", expectedFlags, record.Flags)
	}
}

func TestRecordID(t *testing.T) {
	tests := []struct {
		index    int
		offset   uint64
		expected uint64
	}{
		{0, 100, 100},
		{10, 100, 110},
		{0, 1, 1},
		{255, 1000, 1255},
	}

	for _, tt := range tests {
		if id := RecordID(tt.index, tt.offset); id != tt.expected {
			t.Errorf("RecordID(%d, %d): expected %d, got %d",
				tt.index, tt.offset, tt.expected, id)
		}
	}
}
