package state_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"stablecore/internal/state"
)

func wholeCollateral(n int64) uint64 {
	return uint64(n) * 1_000_000_000
}

func wholeDebt(n int64) uint64 {
	return uint64(n) * 1_000_000
}

// ============================================================================
// Test: health factor formula
// ============================================================================

func TestHealthFactor_ZeroDebtSentinel(t *testing.T) {
	for _, collateral := range []uint64{0, 1, wholeCollateral(10)} {
		hf, err := state.HealthFactor(collateral, 0, decimal.NewFromInt(100))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !hf.Equal(state.MaxHealthFactor) {
			t.Errorf("collateral=%d: got %s, want MaxHealthFactor", collateral, hf)
		}
	}
}

func TestHealthFactor_Formula(t *testing.T) {
	// 10 collateral at price 100 backing 700 debt: hf = 1000/700.
	hf, err := state.HealthFactor(wholeCollateral(10), wholeDebt(700), decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := decimal.NewFromInt(1000).Div(decimal.NewFromInt(700))
	if !hf.Equal(want) {
		t.Errorf("got %s, want %s", hf, want)
	}

	// Above the 0.8 deposit gate.
	if hf.LessThan(decimal.RequireFromString("0.8")) {
		t.Error("hf should clear the 0.8 gate")
	}
}

func TestHealthFactor_BelowGate(t *testing.T) {
	// 10 collateral at price 100 backing 1300 debt: hf ~ 0.769 < 0.8.
	hf, err := state.HealthFactor(wholeCollateral(10), wholeDebt(1300), decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hf.LessThan(decimal.RequireFromString("0.8")) {
		t.Errorf("hf %s should be below 0.8", hf)
	}
}

func TestHealthFactor_MonotonicInCollateral(t *testing.T) {
	price := decimal.NewFromInt(100)
	debt := wholeDebt(500)

	prev := decimal.Zero
	for _, collateral := range []uint64{wholeCollateral(1), wholeCollateral(2), wholeCollateral(5), wholeCollateral(9)} {
		hf, err := state.HealthFactor(collateral, debt, price)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !hf.GreaterThan(prev) {
			t.Errorf("hf not strictly increasing in collateral: %s after %s", hf, prev)
		}
		prev = hf
	}
}

func TestHealthFactor_MonotonicInDebt(t *testing.T) {
	price := decimal.NewFromInt(100)
	collateral := wholeCollateral(10)

	prev := state.MaxHealthFactor
	for _, debt := range []uint64{wholeDebt(100), wholeDebt(200), wholeDebt(500), wholeDebt(900)} {
		hf, err := state.HealthFactor(collateral, debt, price)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !hf.LessThan(prev) {
			t.Errorf("hf not strictly decreasing in debt: %s after %s", hf, prev)
		}
		prev = hf
	}
}

func TestDebtToCollateralUnits_InverseOfPricing(t *testing.T) {
	// 500 debt at price 100 is worth 5 whole collateral units.
	got, err := state.DebtToCollateralUnits(wholeDebt(500), decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := decimal.NewFromUint64(wholeCollateral(5))
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}
