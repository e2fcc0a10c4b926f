package state

import (
	"math"

	"github.com/shopspring/decimal"

	"stablecore/internal/smath"
)

// Asset precisions. Collateral and debt amounts arrive in smallest units;
// prices are quoted per whole collateral asset in whole debt-asset units.
const (
	// CollateralDecimals is the precision of the collateral asset
	// (smallest units per whole unit = 10^9).
	CollateralDecimals = 9
	// DebtDecimals is the precision of the synthetic debt asset
	// (smallest units per whole unit = 10^6).
	DebtDecimals = 6
)

var (
	collateralScale = decimal.New(1, CollateralDecimals)
	debtScale       = decimal.New(1, DebtDecimals)

	// MaxHealthFactor is the sentinel returned for a position with no
	// debt: maximally healthy, never liquidatable.
	MaxHealthFactor = decimal.NewFromUint64(math.MaxUint64)
)

// HealthFactor computes the solvency ratio of a position:
//
//	collateralValue = collateralUnits * price / collateralScale
//	debtValue       = amountMinted / debtScale
//	healthFactor    = collateralValue / debtValue
//
// A health factor of 1.0 means the collateral value exactly covers the
// debt. Comparison against a threshold (minimum LTV or liquidation) is the
// caller's job; the threshold is a comparison bound, not baked into the
// ratio. Zero debt returns MaxHealthFactor.
func HealthFactor(collateralUnits, amountMinted uint64, price decimal.Decimal) (decimal.Decimal, error) {
	if amountMinted == 0 {
		return MaxHealthFactor, nil
	}

	collateralValue, err := smath.DecDiv(decimal.NewFromUint64(collateralUnits).Mul(price), collateralScale)
	if err != nil {
		return decimal.Zero, err
	}
	debtValue, err := smath.DecDiv(decimal.NewFromUint64(amountMinted), debtScale)
	if err != nil {
		return decimal.Zero, err
	}

	return smath.DecDiv(collateralValue, debtValue)
}

// DebtToCollateralUnits converts a debt amount into collateral smallest
// units at the given price: the inverse of the health-factor pricing step.
// Used by liquidation to price the seized collateral.
func DebtToCollateralUnits(amountMinted uint64, price decimal.Decimal) (decimal.Decimal, error) {
	debtValue, err := smath.DecDiv(decimal.NewFromUint64(amountMinted), debtScale)
	if err != nil {
		return decimal.Zero, err
	}
	wholeCollateral, err := smath.DecDiv(debtValue, price)
	if err != nil {
		return decimal.Zero, err
	}
	return wholeCollateral.Mul(collateralScale), nil
}
