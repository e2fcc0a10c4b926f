package state

import (
	"github.com/google/uuid"
)

// Position is one depositor's collateral/debt ledger entry. The collateral
// balance itself is not stored here; it lives in an external custody vault
// and is read at the moment of use. The invariant AmountMinted >= 0 is
// carried by the unsigned type; all mutations go through checked arithmetic.
type Position struct {
	// Owner is the depositor's identity.
	Owner uuid.UUID
	// AmountMinted is the outstanding debt in debt-asset smallest units.
	AmountMinted uint64
	// DerivationTag and VaultTag are opaque identifiers owned by the
	// external addressing layer; carried, never interpreted.
	DerivationTag byte
	VaultTag      byte
	// Version increments on every committed mutation.
	Version int64
}

// HasDebt reports whether the position carries outstanding debt. A position
// without debt has an effectively infinite health factor and can never be
// liquidated.
func (p *Position) HasDebt() bool {
	return p.AmountMinted > 0
}

// CanonicalBytes returns a deterministic serialization used for audit
// hashing of committed state.
func (p *Position) CanonicalBytes() []byte {
	buf := make([]byte, 0, 32)
	buf = append(buf, p.Owner[:]...)
	buf = appendUint64LE(buf, p.AmountMinted)
	buf = append(buf, p.DerivationTag, p.VaultTag)
	buf = appendUint64LE(buf, uint64(p.Version))
	return buf
}

func appendUint64LE(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}
