// Package oracle validates externally supplied price quotes. Cryptographic
// attestation of the blob is the host environment's job; the verifier here
// establishes everything else a price needs before the risk math may trust
// it: source identity, wire shape, freshness, feed identity, positivity.
package oracle

import (
	"crypto/subtle"

	"github.com/shopspring/decimal"

	"stablecore/internal/protocol"
)

// QuoteVerifier checks raw quote blobs against the protocol's configured
// oracle source and price feed. It is stateless and safe for concurrent use.
type QuoteVerifier struct {
	sourceID [IDLen]byte
	feedID   [IDLen]byte
	maxAge   uint64
}

// NewQuoteVerifier builds a verifier for the given oracle source identity
// and required feed, with the default staleness bound.
func NewQuoteVerifier(sourceID, feedID [IDLen]byte) *QuoteVerifier {
	return &QuoteVerifier{
		sourceID: sourceID,
		feedID:   feedID,
		maxAge:   OracleMaxAge,
	}
}

// WithMaxAge overrides the staleness bound, in slots.
func (v *QuoteVerifier) WithMaxAge(maxAge uint64) *QuoteVerifier {
	v.maxAge = maxAge
	return v
}

// Verify runs the full acceptance protocol over a raw quote blob and
// returns the validated price for the configured feed.
//
// Check order is fixed: structure, source authenticity, freshness, feed
// identity, positivity. Each failure carries its own error kind so callers can tell
// "resubmit with a fresher quote" apart from "this quote is garbage".
func (v *QuoteVerifier) Verify(data []byte, currentSlot uint64) (decimal.Decimal, error) {
	quote, err := DecodeQuote(data)
	if err != nil {
		return decimal.Zero, err
	}

	if subtle.ConstantTimeCompare(quote.SourceID[:], v.sourceID[:]) != 1 {
		return decimal.Zero, protocol.ErrInvalidQuoteSource
	}

	// A quote from a future slot cannot be stale; only a lagging one can.
	if quote.Slot < currentSlot && currentSlot-quote.Slot > v.maxAge {
		return decimal.Zero, protocol.ErrStaleQuote
	}

	for _, feed := range quote.Feeds {
		if feed.FeedID != v.feedID {
			continue
		}
		if !feed.Price.IsPositive() {
			return decimal.Zero, protocol.ErrInvalidPrice
		}
		return feed.Price, nil
	}

	return decimal.Zero, protocol.ErrMissingRequiredPriceFeed
}
