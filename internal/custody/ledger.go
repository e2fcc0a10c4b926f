// Package custody provides in-process implementations of the collateral
// vault and debt token collaborators. In production deployments these sit
// in front of the real asset rails; the ledger keeps authoritative balances
// for a single-node deployment and for integration testing.
package custody

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// VaultLedger tracks per-owner collateral balances. It implements
// core.CollateralCustody.
//
// Withdrawn collateral leaves custody entirely: it is handed to the
// recipient's external wallet, not to a vault of theirs. The ledger keeps a
// cumulative payout tally per recipient so the outflow stays auditable.
type VaultLedger struct {
	mu       sync.RWMutex
	balances map[uuid.UUID]uint64
	payouts  map[uuid.UUID]uint64
	reserve  uint64
}

// NewVaultLedger creates a ledger whose vaults must retain at least
// minReserve collateral units after any withdrawal.
func NewVaultLedger(minReserve uint64) *VaultLedger {
	return &VaultLedger{
		balances: make(map[uuid.UUID]uint64),
		payouts:  make(map[uuid.UUID]uint64),
		reserve:  minReserve,
	}
}

func (v *VaultLedger) Balance(ctx context.Context, owner uuid.UUID) (uint64, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.balances[owner], nil
}

func (v *VaultLedger) Deposit(ctx context.Context, owner uuid.UUID, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	next := v.balances[owner] + amount
	if next < v.balances[owner] {
		return fmt.Errorf("vault balance overflow for %s", owner)
	}
	v.balances[owner] = next
	return nil
}

func (v *VaultLedger) Withdraw(ctx context.Context, owner, recipient uuid.UUID, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	bal := v.balances[owner]
	if amount > bal {
		return fmt.Errorf("insufficient vault balance for %s: have %d, want %d", owner, bal, amount)
	}
	v.balances[owner] = bal - amount
	v.payouts[recipient] += amount
	return nil
}

func (v *VaultLedger) MinimumReserve() uint64 {
	return v.reserve
}

// PaidOut returns the cumulative collateral paid out of custody to one
// recipient.
func (v *VaultLedger) PaidOut(recipient uuid.UUID) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.payouts[recipient]
}

// TokenLedger tracks the circulating debt token supply per holder. It
// implements core.DebtToken.
type TokenLedger struct {
	mu       sync.RWMutex
	holdings map[uuid.UUID]uint64
	supply   uint64
}

func NewTokenLedger() *TokenLedger {
	return &TokenLedger{holdings: make(map[uuid.UUID]uint64)}
}

func (t *TokenLedger) Mint(ctx context.Context, to uuid.UUID, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.supply+amount < t.supply {
		return fmt.Errorf("token supply overflow")
	}
	t.holdings[to] += amount
	t.supply += amount
	return nil
}

func (t *TokenLedger) Burn(ctx context.Context, from uuid.UUID, amount uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	held := t.holdings[from]
	if amount > held {
		return fmt.Errorf("insufficient token balance for %s: have %d, want %d", from, held, amount)
	}
	t.holdings[from] = held - amount
	t.supply -= amount
	return nil
}

// Supply returns the circulating debt token supply.
func (t *TokenLedger) Supply() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.supply
}

// Holding returns the debt tokens held by one account.
func (t *TokenLedger) Holding(holder uuid.UUID) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.holdings[holder]
}
