// Package fixedpoint carries scaled integer amounts together with their
// decimal count, so price and amount fields are never mixed up with
// human-readable decimals or float arithmetic.
package fixedpoint

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// AmountDecimals is the fixed-point scale for USD amounts inside a mint
// authorization. The on-chain token uses 6 decimals.
const AmountDecimals int32 = 6

// Value is a scaled integer with an explicit decimal count.
type Value struct {
	Raw      *big.Int
	Decimals int32
}

// FromDecimal scales d by 10^decimals and rounds half away from zero.
// The rounding rule must match what the verifying contract expects: the
// signature commits to the integer, so a mismatched rule silently changes
// the minted amount rather than failing verification.
func FromDecimal(d decimal.Decimal, decimals int32) Value {
	scaled := d.Shift(decimals).Round(0)
	return Value{Raw: scaled.BigInt(), Decimals: decimals}
}

// ToDecimal undoes the scaling.
func (v Value) ToDecimal() decimal.Decimal {
	if v.Raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.Raw, -v.Decimals)
}

// AmountUnits converts a human USD amount to 6-decimal token units.
func AmountUnits(amountUSD decimal.Decimal) *big.Int {
	return FromDecimal(amountUSD, AmountDecimals).Raw
}

// UnitsToAmount converts 6-decimal token units back to a USD decimal.
func UnitsToAmount(units *big.Int) decimal.Decimal {
	return Value{Raw: units, Decimals: AmountDecimals}.ToDecimal()
}

func (v Value) String() string {
	return fmt.Sprintf("%s@%dd", v.ToDecimal().String(), v.Decimals)
}
