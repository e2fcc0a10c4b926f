package state

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"stablecore/internal/protocol"
	"stablecore/internal/smath"
)

// Config holds the protocol-wide risk parameters. There is exactly one per
// deployment; it is created once and mutated only by the recorded authority.
type Config struct {
	// Authority is the only identity allowed to update the parameters.
	Authority uuid.UUID
	// MinLoanToValueBps is the health-factor floor for voluntarily
	// increasing risk (deposit-with-mint, withdraw).
	MinLoanToValueBps uint16
	// LiquidationThresholdBps is the health-factor line below which a
	// position becomes liquidatable. Strictly below MinLoanToValueBps,
	// leaving a buffer between "cannot open more risk" and "liquidatable".
	LiquidationThresholdBps uint16
	// LiquidationBonusBps is the premium paid to liquidators.
	LiquidationBonusBps uint16
	// DerivationTag and MintTag are opaque identifiers owned by the
	// external addressing layer; carried, never interpreted.
	DerivationTag byte
	MintTag       byte
}

// ValidateParams checks the cross-field invariants every config write must
// satisfy: liquidation bonus within basis-point range, and the minimum LTV
// strictly above the liquidation threshold.
func ValidateParams(minLtvBps, liquidationThresholdBps, liquidationBonusBps uint16) error {
	if liquidationBonusBps > smath.MaxBasisPoints {
		return fmt.Errorf("liquidation_bonus_bps %d: %w", liquidationBonusBps, protocol.ErrInvalidBasisPoints)
	}
	if minLtvBps <= liquidationThresholdBps {
		return fmt.Errorf("min_loan_to_value_bps %d <= liquidation_threshold_bps %d: %w",
			minLtvBps, liquidationThresholdBps, protocol.ErrInvalidLtvConfiguration)
	}
	return nil
}

// ConfigUpdate is a partial update; nil fields keep their current value.
type ConfigUpdate struct {
	MinLoanToValueBps       *uint16
	LiquidationThresholdBps *uint16
	LiquidationBonusBps     *uint16
}

// ConfigStore is the single mutable home of the Config record. Readers take
// value snapshots; writers are serialized and re-validate the full parameter
// set, so a partial update can never commit a config violating the ordering
// invariant.
type ConfigStore struct {
	mu          sync.RWMutex
	cfg         Config
	initialized bool
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{}
}

// Initialize records the parameters and the authority. It fails if called
// twice or if the parameters violate the config invariants.
func (s *ConfigStore) Initialize(authority uuid.UUID, minLtvBps, liquidationThresholdBps, liquidationBonusBps uint16) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return Config{}, fmt.Errorf("config already initialized")
	}
	if err := ValidateParams(minLtvBps, liquidationThresholdBps, liquidationBonusBps); err != nil {
		return Config{}, err
	}

	s.cfg = Config{
		Authority:               authority,
		MinLoanToValueBps:       minLtvBps,
		LiquidationThresholdBps: liquidationThresholdBps,
		LiquidationBonusBps:     liquidationBonusBps,
	}
	s.initialized = true

	return s.cfg, nil
}

// Restore installs a previously persisted config without re-running the
// initialization checks. Intended for startup recovery only.
func (s *ConfigStore) Restore(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.initialized = true
}

// Update applies a partial parameter change on behalf of caller. The change
// is all-or-nothing: an authority mismatch or a resulting parameter set that
// fails validation leaves the prior config untouched.
func (s *ConfigStore) Update(caller uuid.UUID, upd ConfigUpdate) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return Config{}, fmt.Errorf("config not initialized")
	}
	if caller != s.cfg.Authority {
		return Config{}, protocol.ErrUnauthorized
	}

	next := s.cfg
	if upd.MinLoanToValueBps != nil {
		next.MinLoanToValueBps = *upd.MinLoanToValueBps
	}
	if upd.LiquidationThresholdBps != nil {
		next.LiquidationThresholdBps = *upd.LiquidationThresholdBps
	}
	if upd.LiquidationBonusBps != nil {
		next.LiquidationBonusBps = *upd.LiquidationBonusBps
	}

	if err := ValidateParams(next.MinLoanToValueBps, next.LiquidationThresholdBps, next.LiquidationBonusBps); err != nil {
		return Config{}, err
	}

	s.cfg = next
	return s.cfg, nil
}

// Snapshot returns a copy of the current config for use by one operation
// invocation. The bool is false until Initialize has succeeded.
func (s *ConfigStore) Snapshot() (Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, s.initialized
}
