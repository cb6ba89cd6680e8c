package token

import (
	"errors"
	"math/big"
	"testing"

	"curvelaunch/core/state"
)

func addr(label string) [20]byte {
	var out [20]byte
	copy(out[:], label)
	return out
}

func newTestLedger(t *testing.T) (*Ledger, *state.Manager) {
	t.Helper()
	mgr := state.NewManager()
	return NewLedger(mgr), mgr
}

func TestMintAndTransfer(t *testing.T) {
	ledger, _ := newTestLedger(t)
	alice := addr("alice")
	bob := addr("bob")

	if err := ledger.Mint(alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	for _, tc := range []struct {
		account [20]byte
		want    int64
	}{{alice, 60}, {bob, 40}} {
		balance, err := ledger.BalanceOf(tc.account)
		if err != nil {
			t.Fatalf("balance: %v", err)
		}
		if balance.Cmp(big.NewInt(tc.want)) != 0 {
			t.Fatalf("balance = %s, want %d", balance, tc.want)
		}
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	ledger, _ := newTestLedger(t)
	alice := addr("alice")
	bob := addr("bob")
	if err := ledger.Mint(alice, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(alice, bob, big.NewInt(11)); !errors.Is(err, errInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestTransferRejectsNonPositiveAmounts(t *testing.T) {
	ledger, _ := newTestLedger(t)
	alice := addr("alice")
	bob := addr("bob")
	if err := ledger.Transfer(alice, bob, big.NewInt(0)); !errors.Is(err, errInvalidAmount) {
		t.Fatalf("expected invalid amount for zero, got %v", err)
	}
	if err := ledger.Transfer(alice, bob, nil); !errors.Is(err, errInvalidAmount) {
		t.Fatalf("expected invalid amount for nil, got %v", err)
	}
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	ledger, _ := newTestLedger(t)
	owner := addr("owner")
	spender := addr("spender")
	sink := addr("sink")

	if err := ledger.Mint(owner, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Approve(owner, spender, big.NewInt(50)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.TransferFrom(spender, owner, sink, big.NewInt(30)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	remaining, err := ledger.Allowance(owner, spender)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if remaining.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("allowance = %s, want 20", remaining)
	}
	if err := ledger.TransferFrom(spender, owner, sink, big.NewInt(30)); !errors.Is(err, errInsufficientAllow) {
		t.Fatalf("expected insufficient allowance, got %v", err)
	}
}

func TestTransferFromSelfSkipsAllowance(t *testing.T) {
	ledger, _ := newTestLedger(t)
	owner := addr("owner")
	sink := addr("sink")
	if err := ledger.Mint(owner, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.TransferFrom(owner, owner, sink, big.NewInt(10)); err != nil {
		t.Fatalf("self transfer from: %v", err)
	}
}

func TestApproveZeroClearsGrant(t *testing.T) {
	ledger, _ := newTestLedger(t)
	owner := addr("owner")
	spender := addr("spender")
	if err := ledger.Approve(owner, spender, big.NewInt(50)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := ledger.Approve(owner, spender, big.NewInt(0)); err != nil {
		t.Fatalf("clear approve: %v", err)
	}
	remaining, err := ledger.Allowance(owner, spender)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if remaining.Sign() != 0 {
		t.Fatalf("allowance = %s, want 0", remaining)
	}
}

func TestLedgerWritesRevertWithSnapshot(t *testing.T) {
	ledger, mgr := newTestLedger(t)
	alice := addr("alice")
	bob := addr("bob")
	if err := ledger.Mint(alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	snap := mgr.Snapshot()
	if err := ledger.Transfer(alice, bob, big.NewInt(60)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := ledger.Approve(alice, bob, big.NewInt(5)); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := mgr.RevertToSnapshot(snap); err != nil {
		t.Fatalf("revert: %v", err)
	}
	balance, err := ledger.BalanceOf(alice)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("balance after revert = %s, want 100", balance)
	}
	allowance, err := ledger.Allowance(alice, bob)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if allowance.Sign() != 0 {
		t.Fatalf("allowance survived revert: %s", allowance)
	}
}
