// Package protocol defines the error taxonomy shared by every stablecore
// component. Callers are expected to match with errors.Is; operations never
// return a generic failure in place of one of these kinds.
package protocol

import "errors"

var (
	// Arithmetic
	ErrMathOverflow     = errors.New("math overflow")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrConversionFailed = errors.New("conversion failed")

	// Oracle quote acceptance
	ErrInvalidQuoteSource       = errors.New("invalid quote source")
	ErrInvalidQuoteFormat       = errors.New("invalid quote format")
	ErrStaleQuote               = errors.New("stale quote")
	ErrMissingRequiredPriceFeed = errors.New("missing required price feed")
	ErrInvalidPrice             = errors.New("price must be greater than 0")

	// Config validation
	ErrInvalidBasisPoints      = errors.New("invalid basis points")
	ErrInvalidLtvConfiguration = errors.New("invalid ltv configuration")
	ErrUnauthorized            = errors.New("caller is not the config authority")

	// Position risk gates
	ErrBelowMinimumHealthFactor        = errors.New("below minimum health factor")
	ErrAboveLiquidationThreshold       = errors.New("above liquidation threshold")
	ErrRentBelowMinimumAfterWithdrawal = errors.New("vault reserve below minimum after withdrawal")
	ErrInvalidCollateralAmount         = errors.New("collateral amount must be greater than 0")
)

// Kind returns the stable machine-readable name for a taxonomy error, or
// "Internal" for anything outside the taxonomy. Used by the HTTP layer and
// by event payloads so automated liquidators can branch on the exact cause.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMathOverflow):
		return "MathOverflow"
	case errors.Is(err, ErrDivisionByZero):
		return "DivisionByZero"
	case errors.Is(err, ErrConversionFailed):
		return "ConversionFailed"
	case errors.Is(err, ErrInvalidQuoteSource):
		return "InvalidQuoteSource"
	case errors.Is(err, ErrInvalidQuoteFormat):
		return "InvalidQuoteFormat"
	case errors.Is(err, ErrStaleQuote):
		return "StaleQuote"
	case errors.Is(err, ErrMissingRequiredPriceFeed):
		return "MissingRequiredPriceFeed"
	case errors.Is(err, ErrInvalidPrice):
		return "InvalidPrice"
	case errors.Is(err, ErrInvalidBasisPoints):
		return "InvalidBasisPoints"
	case errors.Is(err, ErrInvalidLtvConfiguration):
		return "InvalidLtvConfiguration"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrBelowMinimumHealthFactor):
		return "BelowMinimumHealthFactor"
	case errors.Is(err, ErrAboveLiquidationThreshold):
		return "AboveLiquidationThreshold"
	case errors.Is(err, ErrRentBelowMinimumAfterWithdrawal):
		return "RentBelowMinimumAfterWithdrawal"
	case errors.Is(err, ErrInvalidCollateralAmount):
		return "InvalidCollateralAmount"
	default:
		return "Internal"
	}
}
