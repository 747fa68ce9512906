package ledger

import "testing"

func TestFlags_Has(t *testing.T) {
	f := FlagHistory | FlagDebitsMustNotExceedCredits

	if !f.Has(FlagHistory) {
		t.Error("Expected history flag to be set")
	}
	if !f.Has(FlagDebitsMustNotExceedCredits) {
		t.Error("Expected debits flag to be set")
	}
	if f.Has(FlagCreditsMustNotExceedDebits) {
		t.Error("Credits flag should not be set")
	}
	if !f.Has(FlagHistory | FlagDebitsMustNotExceedCredits) {
		t.Error("Has should match a combined mask")
	}
}

func TestFlags_String(t *testing.T) {
	tests := []struct {
		flags    Flags
		expected string
	}{
		{0, "none"},
		{FlagHistory, "history"},
		{FlagDebitsMustNotExceedCredits | FlagHistory, "debits_must_not_exceed_credits|history"},
		{FlagCreditsMustNotExceedDebits | FlagHistory, "credits_must_not_exceed_debits|history"},
	}

	for _, tt := range tests {
		if got := tt.flags.String(); got != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, got)
		}
	}
}

func TestRecord_BalancesEqual(t *testing.T) {
	base := Record{ID: 101, DebitsPosted: 103974, CreditsPosted: 150000, Code: 3}

	tests := []struct {
		name     string
		other    Record
		expected bool
	}{
		{"identical", base, true},
		{
			// Verification compares the posted balances only.
			name:     "different code and flags",
			other:    Record{ID: 101, DebitsPosted: 103974, CreditsPosted: 150000, Code: 1, Flags: FlagHistory},
			expected: true,
		},
		{
			name:     "different debits",
			other:    Record{ID: 101, DebitsPosted: 103975, CreditsPosted: 150000},
			expected: false,
		},
		{
			name:     "different credits",
			other:    Record{ID: 101, DebitsPosted: 103974, CreditsPosted: 150001},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.BalancesEqual(tt.other); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
