package core

import (
	"context"

	"github.com/google/uuid"

	"stablecore/internal/event"
	"stablecore/internal/state"
)

// CollateralCustody is the external vault holding each position's
// collateral. The core reads balances live and instructs movements only
// after every solvency check has passed; a movement failure is fatal to the
// whole operation.
type CollateralCustody interface {
	// Balance returns the collateral currently held for owner's vault,
	// in collateral smallest units.
	Balance(ctx context.Context, owner uuid.UUID) (uint64, error)

	// Deposit moves amount from the depositor into owner's vault.
	Deposit(ctx context.Context, owner uuid.UUID, amount uint64) error

	// Withdraw moves amount out of owner's vault to recipient. For a
	// voluntary withdrawal recipient is the owner; for a liquidation it
	// is the liquidator.
	Withdraw(ctx context.Context, owner, recipient uuid.UUID, amount uint64) error

	// MinimumReserve is the floor a vault's remaining balance must stay
	// at or above after a withdrawal, in collateral smallest units.
	MinimumReserve() uint64
}

// DebtToken mints and burns the synthetic debt asset. Called only after
// validation; never consulted for risk decisions.
type DebtToken interface {
	Mint(ctx context.Context, to uuid.UUID, amount uint64) error
	Burn(ctx context.Context, from uuid.UUID, amount uint64) error
}

// EventSink receives typed events after a state transition commits.
type EventSink interface {
	Publish(ctx context.Context, evt event.Event) error
}

// Recorder persists committed position and config snapshots plus an audit
// row per emitted event. Write failures are surfaced to metrics but do not
// roll back the in-memory commit.
type Recorder interface {
	SavePosition(ctx context.Context, pos state.Position) error
	SaveConfig(ctx context.Context, cfg state.Config) error
	RecordEvent(ctx context.Context, evt event.Event) error
}
