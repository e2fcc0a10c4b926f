package smath_test

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"stablecore/internal/protocol"
	"stablecore/internal/smath"
)

// ============================================================================
// Test: checked integer ops
// ============================================================================

func TestAdd_Overflow(t *testing.T) {
	_, err := smath.Add[uint64](math.MaxUint64, 1)
	if !errors.Is(err, protocol.ErrMathOverflow) {
		t.Errorf("expected MathOverflow, got %v", err)
	}

	_, err = smath.Add[uint16](math.MaxUint16, 1)
	if !errors.Is(err, protocol.ErrMathOverflow) {
		t.Errorf("uint16: expected MathOverflow, got %v", err)
	}
}

func TestAdd_Ok(t *testing.T) {
	got, err := smath.Add[uint64](math.MaxUint64-1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != math.MaxUint64 {
		t.Errorf("got %d, want MaxUint64", got)
	}
}

func TestSub_Underflow(t *testing.T) {
	// Every unsigned width must fail, never wrap.
	if _, err := smath.Sub[uint64](3, 5); !errors.Is(err, protocol.ErrMathOverflow) {
		t.Errorf("uint64: expected MathOverflow, got %v", err)
	}
	if _, err := smath.Sub[uint32](3, 5); !errors.Is(err, protocol.ErrMathOverflow) {
		t.Errorf("uint32: expected MathOverflow, got %v", err)
	}
	if _, err := smath.Sub[uint16](3, 5); !errors.Is(err, protocol.ErrMathOverflow) {
		t.Errorf("uint16: expected MathOverflow, got %v", err)
	}
}

func TestSub_Ok(t *testing.T) {
	got, err := smath.Sub[uint64](5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestMul_Overflow(t *testing.T) {
	_, err := smath.Mul[uint64](math.MaxUint64/2+1, 2)
	if !errors.Is(err, protocol.ErrMathOverflow) {
		t.Errorf("expected MathOverflow, got %v", err)
	}
}

func TestMul_ZeroOperand(t *testing.T) {
	got, err := smath.Mul[uint64](0, math.MaxUint64)
	if err != nil || got != 0 {
		t.Errorf("got (%d, %v), want (0, nil)", got, err)
	}
}

func TestDiv_ByZero(t *testing.T) {
	_, err := smath.Div[uint64](10, 0)
	if !errors.Is(err, protocol.ErrDivisionByZero) {
		t.Errorf("expected DivisionByZero, got %v", err)
	}
}

// ============================================================================
// Test: decimal helpers
// ============================================================================

func TestDecDiv_ByZero(t *testing.T) {
	_, err := smath.DecDiv(decimal.NewFromInt(1), decimal.Zero)
	if !errors.Is(err, protocol.ErrDivisionByZero) {
		t.Errorf("expected DivisionByZero, got %v", err)
	}
}

func TestDecToUint64_Negative(t *testing.T) {
	_, err := smath.DecToUint64(decimal.NewFromInt(-1))
	if !errors.Is(err, protocol.ErrConversionFailed) {
		t.Errorf("expected ConversionFailed, got %v", err)
	}
}

func TestDecToUint64_TooLarge(t *testing.T) {
	d := decimal.NewFromUint64(math.MaxUint64).Add(decimal.NewFromInt(1))
	_, err := smath.DecToUint64(d)
	if !errors.Is(err, protocol.ErrConversionFailed) {
		t.Errorf("expected ConversionFailed, got %v", err)
	}
}

func TestDecToUint64_Truncates(t *testing.T) {
	got, err := smath.DecToUint64(decimal.RequireFromString("42.999"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestBpsToDecimal(t *testing.T) {
	if d := smath.BpsToDecimal(8500); !d.Equal(decimal.RequireFromString("0.85")) {
		t.Errorf("got %s, want 0.85", d)
	}
}

func TestBpsToDecimal_OverUnity(t *testing.T) {
	// Ratio bounds above 100% convert like any other value; the only
	// range-capped parameter is the liquidation bonus, checked at config
	// validation.
	if d := smath.BpsToDecimal(15_000); !d.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("got %s, want 1.5", d)
	}
}
