package fixedpoint

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountUnitsScaling(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"100", 100_000_000},
		{"0.000001", 1},
		{"1.5", 1_500_000},
		{"2.1234567", 2_123_457}, // rounds half away from zero
		{"0.0000004", 0},
	}

	for _, tc := range cases {
		got := AmountUnits(decimal.RequireFromString(tc.in))
		if got.Int64() != tc.want {
			t.Errorf("AmountUnits(%s) = %d, want %d", tc.in, got.Int64(), tc.want)
		}
	}
}

func TestRoundTripStable(t *testing.T) {
	// decimalToUnits then unitsToDecimal must be a fixed point under
	// repeated application.
	values := []string{"100", "0.123456", "99.9999994", "1234567.654321"}
	for _, raw := range values {
		d := decimal.RequireFromString(raw)
		once := UnitsToAmount(AmountUnits(d))
		twice := UnitsToAmount(AmountUnits(once))
		if !once.Equal(twice) {
			t.Errorf("round trip of %s not stable: %s != %s", raw, once, twice)
		}
		if !once.Equal(d.Round(6)) {
			t.Errorf("round trip of %s = %s, want %s", raw, once, d.Round(6))
		}
	}
}

func TestToDecimalNilRaw(t *testing.T) {
	v := Value{Decimals: 8}
	if !v.ToDecimal().IsZero() {
		t.Fatalf("expected zero for nil raw")
	}
}

func TestPriceScale(t *testing.T) {
	v := FromDecimal(decimal.RequireFromString("2500.00"), 8)
	want := big.NewInt(250_000_000_000)
	if v.Raw.Cmp(want) != 0 {
		t.Fatalf("price scale: got %s want %s", v.Raw, want)
	}
	if v.Decimals != 8 {
		t.Fatalf("decimals: got %d", v.Decimals)
	}
}
