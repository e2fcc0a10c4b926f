package state_test

import (
	"bytes"
	"testing"

	"github.com/google/uuid"

	"stablecore/internal/state"
)

func TestHasDebt(t *testing.T) {
	pos := state.Position{Owner: uuid.New()}
	if pos.HasDebt() {
		t.Error("fresh position reports debt")
	}
	pos.AmountMinted = 1
	if !pos.HasDebt() {
		t.Error("minted position reports no debt")
	}
}

func TestCanonicalBytesDeterministic(t *testing.T) {
	pos := state.Position{
		Owner:         uuid.MustParse("4fc1a2b3-0000-4000-8000-000000000001"),
		AmountMinted:  700_000_000,
		DerivationTag: 3,
		VaultTag:      7,
		Version:       12,
	}

	first := pos.CanonicalBytes()
	second := pos.CanonicalBytes()
	if !bytes.Equal(first, second) {
		t.Error("canonical bytes differ between calls")
	}

	// 16 owner + 8 minted + 2 tags + 8 version
	if len(first) != 34 {
		t.Errorf("canonical length = %d, want 34", len(first))
	}

	// Any field change must change the serialization.
	changed := pos
	changed.AmountMinted++
	if bytes.Equal(first, changed.CanonicalBytes()) {
		t.Error("canonical bytes unchanged after debt change")
	}
	changed = pos
	changed.Version++
	if bytes.Equal(first, changed.CanonicalBytes()) {
		t.Error("canonical bytes unchanged after version change")
	}
}
