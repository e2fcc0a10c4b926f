package custody

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestVaultLedgerDepositWithdraw(t *testing.T) {
	ctx := context.Background()
	vault := NewVaultLedger(1_000_000)
	owner := uuid.New()
	recipient := uuid.New()

	if err := vault.Deposit(ctx, owner, 5_000_000_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := vault.Withdraw(ctx, owner, recipient, 2_000_000_000); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	bal, err := vault.Balance(ctx, owner)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 3_000_000_000 {
		t.Errorf("balance = %d, want 3000000000", bal)
	}
	if vault.MinimumReserve() != 1_000_000 {
		t.Errorf("minimum reserve = %d, want 1000000", vault.MinimumReserve())
	}
}

func TestVaultLedgerPayoutLeavesCustody(t *testing.T) {
	ctx := context.Background()
	vault := NewVaultLedger(0)
	owner := uuid.New()
	liquidator := uuid.New()

	if err := vault.Deposit(ctx, owner, 10_000_000_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := vault.Withdraw(ctx, owner, liquidator, 4_000_000_000); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	// Seized collateral goes to the liquidator's external wallet, never
	// into a vault balance of theirs.
	if bal, _ := vault.Balance(ctx, liquidator); bal != 0 {
		t.Errorf("liquidator vault balance = %d, want 0", bal)
	}
	if got := vault.PaidOut(liquidator); got != 4_000_000_000 {
		t.Errorf("paid out = %d, want 4000000000", got)
	}

	if err := vault.Withdraw(ctx, owner, liquidator, 1_000_000_000); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := vault.PaidOut(liquidator); got != 5_000_000_000 {
		t.Errorf("payouts should accumulate: got %d, want 5000000000", got)
	}
}

func TestVaultLedgerRejectsOverdraw(t *testing.T) {
	ctx := context.Background()
	vault := NewVaultLedger(0)
	owner := uuid.New()

	if err := vault.Deposit(ctx, owner, 100); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := vault.Withdraw(ctx, owner, owner, 101); err == nil {
		t.Fatal("expected overdraw to fail")
	}

	bal, _ := vault.Balance(ctx, owner)
	if bal != 100 {
		t.Errorf("failed withdraw changed balance: %d", bal)
	}
}

func TestTokenLedgerMintBurn(t *testing.T) {
	ctx := context.Background()
	token := NewTokenLedger()
	holder := uuid.New()

	if err := token.Mint(ctx, holder, 500_000_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := token.Burn(ctx, holder, 200_000_000); err != nil {
		t.Fatalf("burn: %v", err)
	}

	if got := token.Holding(holder); got != 300_000_000 {
		t.Errorf("holding = %d, want 300000000", got)
	}
	if got := token.Supply(); got != 300_000_000 {
		t.Errorf("supply = %d, want 300000000", got)
	}

	if err := token.Burn(ctx, holder, 400_000_000); err == nil {
		t.Fatal("expected burn beyond holding to fail")
	}
}
