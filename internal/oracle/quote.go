package oracle

import (
	"encoding/binary"

	"github.com/shopspring/decimal"

	"stablecore/internal/protocol"
)

// OracleMaxAge is the maximum number of slots a quote may lag behind the
// caller-supplied current slot before it is rejected as stale.
const OracleMaxAge uint64 = 100

// IDLen is the byte length of source and feed identifiers.
const IDLen = 32

// quoteMagic prefixes every encoded quote blob.
var quoteMagic = [4]byte{'S', 'Q', 'T', '1'}

// FeedValue is one (feed, price) entry inside a quote.
type FeedValue struct {
	FeedID [IDLen]byte
	Price  decimal.Decimal
}

// Quote is a decoded price attestation: the identity of the oracle source
// that produced it, the slot it was produced at, and one or more feed
// entries. Quotes are transient per-call inputs and are never persisted.
type Quote struct {
	SourceID [IDLen]byte
	Slot     uint64
	Feeds    []FeedValue
}

// Encoded quote layout, little-endian:
//
//	magic    [4]byte
//	sourceID [32]byte
//	slot     uint64
//	count    uint16
//	entries  count * (feedID [32]byte, mantissa int64, exponent int32)
const (
	headerLen = 4 + IDLen + 8 + 2
	entryLen  = IDLen + 8 + 4
)

// Encode serializes the quote into the delimited wire form. A price whose
// coefficient does not fit the wire's int64 mantissa fails with
// InvalidQuoteFormat rather than encoding a truncated value.
func (q *Quote) Encode() ([]byte, error) {
	buf := make([]byte, 0, headerLen+len(q.Feeds)*entryLen)
	buf = append(buf, quoteMagic[:]...)
	buf = append(buf, q.SourceID[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, q.Slot)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(q.Feeds)))
	for _, f := range q.Feeds {
		coeff := f.Price.Coefficient()
		if !coeff.IsInt64() {
			return nil, protocol.ErrInvalidQuoteFormat
		}
		buf = append(buf, f.FeedID[:]...)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(coeff.Int64()))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(f.Price.Exponent()))
	}
	return buf, nil
}

// DecodeQuote parses a raw quote blob. Anything that does not decode into a
// well-formed header plus exactly the advertised number of entries fails
// with InvalidQuoteFormat.
func DecodeQuote(data []byte) (*Quote, error) {
	if len(data) < headerLen {
		return nil, protocol.ErrInvalidQuoteFormat
	}
	if [4]byte(data[:4]) != quoteMagic {
		return nil, protocol.ErrInvalidQuoteFormat
	}

	var q Quote
	copy(q.SourceID[:], data[4:4+IDLen])
	q.Slot = binary.LittleEndian.Uint64(data[4+IDLen:])
	count := int(binary.LittleEndian.Uint16(data[4+IDLen+8:]))

	if count == 0 || len(data) != headerLen+count*entryLen {
		return nil, protocol.ErrInvalidQuoteFormat
	}

	q.Feeds = make([]FeedValue, count)
	for i := 0; i < count; i++ {
		off := headerLen + i*entryLen
		copy(q.Feeds[i].FeedID[:], data[off:off+IDLen])
		mantissa := int64(binary.LittleEndian.Uint64(data[off+IDLen:]))
		exponent := int32(binary.LittleEndian.Uint32(data[off+IDLen+8:]))
		q.Feeds[i].Price = decimal.New(mantissa, exponent)
	}

	return &q, nil
}
