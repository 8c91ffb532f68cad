package token

import (
	"context"
	"errors"
	"testing"

	"ReliefAuction/internal/storage"
	"ReliefAuction/internal/txn"
	"ReliefAuction/internal/types"
)

var (
	minter = types.DeriveAddress("test", []byte("minter"))
	alice  = types.DeriveAddress("test", []byte("alice"))
	bob    = types.DeriveAddress("test", []byte("bob"))
	escrow = types.DeriveAddress("test", []byte("escrow"))
)

// newFundedLedger returns a memory ledger where alice holds amount.
func newFundedLedger(t *testing.T, amount uint64) *Ledger {
	t.Helper()

	l := New(txn.New(nil), "reward", minter)
	if err := l.Mint(context.Background(), minter, alice, amount); err != nil {
		t.Fatalf("Mint: %v", err)
	}

	return l
}

func TestMint_OnlyMinter(t *testing.T) {
	l := New(txn.New(nil), "reward", minter)

	err := l.Mint(context.Background(), alice, alice, 10)
	if !errors.Is(err, ErrNotMinter) {
		t.Fatalf("err = %v, want ErrNotMinter", err)
	}

	if l.TotalSupply(context.Background()) != 0 {
		t.Error("supply changed on rejected mint")
	}
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	l := newFundedLedger(t, 100)

	err := l.Transfer(ctx, alice, bob, 101)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	if l.BalanceOf(ctx, alice) != 100 || l.BalanceOf(ctx, bob) != 0 {
		t.Error("balances changed on failed transfer")
	}
}

func TestTransferFrom_ConsumesAllowance(t *testing.T) {
	ctx := context.Background()
	l := newFundedLedger(t, 1000)

	if err := l.Approve(ctx, alice, escrow, 600); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if err := l.TransferFrom(ctx, escrow, alice, escrow, 400); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}

	if got := l.Allowance(ctx, alice, escrow); got != 200 {
		t.Errorf("allowance = %d, want 200", got)
	}

	err := l.TransferFrom(ctx, escrow, alice, escrow, 201)
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("err = %v, want ErrInsufficientAllowance", err)
	}

	if l.BalanceOf(ctx, escrow) != 400 || l.BalanceOf(ctx, alice) != 600 {
		t.Errorf("escrow=%d alice=%d", l.BalanceOf(ctx, escrow), l.BalanceOf(ctx, alice))
	}
}

func TestTransferFrom_AllowanceRestoredWhenMoveFails(t *testing.T) {
	ctx := context.Background()
	l := newFundedLedger(t, 50)

	_ = l.Approve(ctx, alice, escrow, 500)

	err := l.TransferFrom(ctx, escrow, alice, escrow, 100)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	if got := l.Allowance(ctx, alice, escrow); got != 500 {
		t.Errorf("allowance = %d, want 500 after rollback", got)
	}
}

func TestBurn_ReducesSupply(t *testing.T) {
	ctx := context.Background()
	l := newFundedLedger(t, 1500)

	if err := l.Burn(ctx, alice, 1500); err != nil {
		t.Fatalf("Burn: %v", err)
	}

	if l.TotalSupply(ctx) != 0 || l.BalanceOf(ctx, alice) != 0 {
		t.Errorf("supply=%d balance=%d", l.TotalSupply(ctx), l.BalanceOf(ctx, alice))
	}
}

func TestHook_ErrorAbortsMovement(t *testing.T) {
	ctx := context.Background()
	l := newFundedLedger(t, 100)

	l.SetHook(func(ctx context.Context, from, to types.Address, amount uint64) error {
		return errors.New("rejected by receiver")
	})

	if err := l.Transfer(ctx, alice, bob, 10); err == nil {
		t.Fatal("expected hook error")
	}

	if l.BalanceOf(ctx, alice) != 100 {
		t.Error("movement not rolled back")
	}
}

func TestHook_SeesAppliedBalances(t *testing.T) {
	ctx := context.Background()
	l := newFundedLedger(t, 100)

	var seen uint64
	l.SetHook(func(ctx context.Context, from, to types.Address, amount uint64) error {
		seen = l.BalanceOf(ctx, to)
		return nil
	})

	if err := l.Transfer(ctx, alice, bob, 30); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if seen != 30 {
		t.Errorf("hook saw %d, want 30", seen)
	}
}

func TestLoad_RestoresPersistedState(t *testing.T) {
	ctx := context.Background()

	db, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	defer db.Close()

	l := New(txn.New(db), "reward", minter)
	_ = l.Mint(ctx, minter, alice, 700)
	_ = l.Transfer(ctx, alice, bob, 700)
	_ = l.Approve(ctx, bob, escrow, 250)

	restored := New(txn.New(db), "reward", minter)
	if err := restored.Load(db); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if restored.BalanceOf(ctx, bob) != 700 || restored.BalanceOf(ctx, alice) != 0 {
		t.Errorf("bob=%d alice=%d", restored.BalanceOf(ctx, bob), restored.BalanceOf(ctx, alice))
	}

	if restored.Allowance(ctx, bob, escrow) != 250 {
		t.Errorf("allowance = %d, want 250", restored.Allowance(ctx, bob, escrow))
	}

	if restored.TotalSupply(ctx) != 700 {
		t.Errorf("supply = %d, want 700", restored.TotalSupply(ctx))
	}

	// zero balances are deleted rather than stored
	if v, _ := db.Get(l.balanceKey(alice)); v != nil {
		t.Errorf("zero balance stored: %v", v)
	}
}

func TestLedgers_NamespacesDoNotCollide(t *testing.T) {
	ctx := context.Background()

	db, _ := storage.NewMemory()
	defer db.Close()

	x := txn.New(db)
	reward := New(x, "reward", minter)
	native := New(x, "native", minter)

	_ = reward.Mint(ctx, minter, alice, 5)
	_ = native.Mint(ctx, minter, alice, 9)

	check := New(txn.New(db), "native", minter)
	_ = check.Load(db)

	if check.BalanceOf(ctx, alice) != 9 {
		t.Errorf("native balance = %d, want 9", check.BalanceOf(ctx, alice))
	}
}
