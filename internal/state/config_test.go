package state_test

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"stablecore/internal/protocol"
	"stablecore/internal/state"
)

func u16(v uint16) *uint16 { return &v }

// ============================================================================
// Test: config lifecycle
// ============================================================================

func TestConfigStore_Initialize(t *testing.T) {
	cs := state.NewConfigStore()
	authority := uuid.New()

	cfg, err := cs.Initialize(authority, 8000, 7500, 500)
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if cfg.Authority != authority {
		t.Error("authority not recorded")
	}

	snap, ok := cs.Snapshot()
	if !ok {
		t.Fatal("snapshot should be available after initialize")
	}
	if snap.MinLoanToValueBps != 8000 || snap.LiquidationThresholdBps != 7500 || snap.LiquidationBonusBps != 500 {
		t.Errorf("snapshot mismatch: %+v", snap)
	}
}

func TestConfigStore_InitializeTwice(t *testing.T) {
	cs := state.NewConfigStore()
	if _, err := cs.Initialize(uuid.New(), 8000, 7500, 500); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := cs.Initialize(uuid.New(), 9000, 8500, 500); err == nil {
		t.Error("second initialize should fail")
	}
}

func TestConfigStore_InitializeInvalidBps(t *testing.T) {
	cs := state.NewConfigStore()
	_, err := cs.Initialize(uuid.New(), 8000, 7500, 10_001)
	if !errors.Is(err, protocol.ErrInvalidBasisPoints) {
		t.Errorf("expected InvalidBasisPoints, got %v", err)
	}
}

func TestConfigStore_InitializeInvalidLtvOrdering(t *testing.T) {
	cs := state.NewConfigStore()

	// Equal is as invalid as inverted: the ordering must be strict.
	for _, threshold := range []uint16{8000, 8500} {
		_, err := cs.Initialize(uuid.New(), 8000, threshold, 500)
		if !errors.Is(err, protocol.ErrInvalidLtvConfiguration) {
			t.Errorf("threshold=%d: expected InvalidLtvConfiguration, got %v", threshold, err)
		}
	}
}

func TestConfigStore_UpdatePartial(t *testing.T) {
	cs := state.NewConfigStore()
	authority := uuid.New()
	if _, err := cs.Initialize(authority, 8000, 7500, 500); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	cfg, err := cs.Update(authority, state.ConfigUpdate{LiquidationBonusBps: u16(1000)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if cfg.LiquidationBonusBps != 1000 {
		t.Errorf("bonus: got %d, want 1000", cfg.LiquidationBonusBps)
	}
	if cfg.MinLoanToValueBps != 8000 || cfg.LiquidationThresholdBps != 7500 {
		t.Error("untouched fields changed")
	}
}

func TestConfigStore_UpdateRejectsUnauthorized(t *testing.T) {
	cs := state.NewConfigStore()
	if _, err := cs.Initialize(uuid.New(), 8000, 7500, 500); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	_, err := cs.Update(uuid.New(), state.ConfigUpdate{LiquidationBonusBps: u16(1000)})
	if !errors.Is(err, protocol.ErrUnauthorized) {
		t.Errorf("expected Unauthorized, got %v", err)
	}
}

func TestConfigStore_UpdatePreservesInvariant(t *testing.T) {
	cs := state.NewConfigStore()
	authority := uuid.New()
	if _, err := cs.Initialize(authority, 8000, 7500, 500); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Raising the threshold above min LTV must be rejected in its entirety.
	_, err := cs.Update(authority, state.ConfigUpdate{LiquidationThresholdBps: u16(8200)})
	if !errors.Is(err, protocol.ErrInvalidLtvConfiguration) {
		t.Fatalf("expected InvalidLtvConfiguration, got %v", err)
	}

	snap, _ := cs.Snapshot()
	if snap.LiquidationThresholdBps != 7500 {
		t.Errorf("prior config not retained: %+v", snap)
	}

	// Moving both fields together so the invariant holds is fine.
	cfg, err := cs.Update(authority, state.ConfigUpdate{
		MinLoanToValueBps:       u16(9000),
		LiquidationThresholdBps: u16(8200),
	})
	if err != nil {
		t.Fatalf("combined update: %v", err)
	}
	if cfg.MinLoanToValueBps != 9000 || cfg.LiquidationThresholdBps != 8200 {
		t.Errorf("combined update not applied: %+v", cfg)
	}
}

func TestConfigStore_UpdateBeforeInitialize(t *testing.T) {
	cs := state.NewConfigStore()
	if _, err := cs.Update(uuid.New(), state.ConfigUpdate{}); err == nil {
		t.Error("update before initialize should fail")
	}
}

// ============================================================================
// Test: position manager
// ============================================================================

func TestPositionManager_FindOrCreate(t *testing.T) {
	pm := state.NewPositionManager()
	owner := uuid.New()

	if pm.Get(owner) != nil {
		t.Fatal("position should not exist yet")
	}

	pos := pm.FindOrCreate(owner)
	if pos.Owner != owner || pos.AmountMinted != 0 {
		t.Errorf("fresh position malformed: %+v", pos)
	}

	again := pm.FindOrCreate(owner)
	if again != pos {
		t.Error("second FindOrCreate should return the same record")
	}
	if pm.Count() != 1 {
		t.Errorf("count: got %d, want 1", pm.Count())
	}
}

func TestPositionManager_AllReturnsCopies(t *testing.T) {
	pm := state.NewPositionManager()
	pos := pm.FindOrCreate(uuid.New())
	pos.AmountMinted = 42

	all := pm.All()
	if len(all) != 1 {
		t.Fatalf("len: got %d, want 1", len(all))
	}
	all[0].AmountMinted = 99
	if pos.AmountMinted != 42 {
		t.Error("All must return copies, not aliases")
	}
}

func TestPositionManager_TotalDebt(t *testing.T) {
	pm := state.NewPositionManager()
	pm.Commit(uuid.New(), 700)
	pm.Commit(uuid.New(), 300)

	if got := pm.TotalDebt(); got != 1000 {
		t.Errorf("total debt: got %d, want 1000", got)
	}
}

func TestPositionManager_TotalDebtSaturates(t *testing.T) {
	pm := state.NewPositionManager()
	pm.Commit(uuid.New(), math.MaxUint64)
	pm.Commit(uuid.New(), math.MaxUint64)

	if got := pm.TotalDebt(); got != math.MaxUint64 {
		t.Errorf("total debt should pin at MaxUint64, got %d", got)
	}
}
