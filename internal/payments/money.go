package payments

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a major-unit amount into the gateway's integer minor
// units. Rounding happens only here, at the gateway boundary; everything
// upstream stays decimal.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// MajorUnits converts gateway minor units back into a decimal amount.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred)
}
