package ledger

import "github.com/shopspring/decimal"

// Monetary amounts cross the ledger boundary as integer minor units
// (cents). The conversion rounds half away from zero on amount*100, and
// the same function is used at every conversion site: creation and
// verification must agree on rounding or amounts that round differently
// would surface as spurious verification mismatches.

var minorFactor = decimal.NewFromInt(100)

// MinorUnits converts a currency amount to integer cents.
func MinorUnits(amount decimal.Decimal) uint64 {
	return uint64(amount.Mul(minorFactor).Round(0).IntPart())
}

// FromMinorUnits converts integer cents back to a currency amount. For any
// input with at most two decimal places the round trip through MinorUnits
// is exact.
func FromMinorUnits(units uint64) decimal.Decimal {
	return decimal.New(int64(units), -2)
}
