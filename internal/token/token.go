// Package token implements the fungible ledgers the engine settles in: the
// reward token bidders escrow, and the native coin carrying transfer fees.
package token

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"ReliefAuction/internal/txn"
	"ReliefAuction/internal/types"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when a pull exceeds the approved amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrNotMinter is returned when a non-minter mints.
	ErrNotMinter = errors.New("caller is not the minter")

	// ErrOverflow is returned when a credit would wrap a balance or the supply.
	ErrOverflow = errors.New("amount overflow")
)

// Hook observes every balance movement after it is applied. It runs inside the
// moving call, so it may re-enter the engine with ctx; returning an error
// aborts the movement.
type Hook func(ctx context.Context, from, to types.Address, amount uint64) error

// allowanceKey identifies one owner->spender approval.
type allowanceKey struct {
	owner   types.Address
	spender types.Address
}

// Ledger is a fungible balance ledger. All mutations run through the shared
// executor so they roll back together with the engine call that caused them.
type Ledger struct {
	x      *txn.Executor // x serializes and journals every call
	name   string        // name namespaces storage keys
	minter types.Address // minter may create new supply

	balances   map[types.Address]uint64
	allowances map[allowanceKey]uint64
	supply     uint64
	hook       Hook

	dirtyBalances   map[types.Address]struct{}
	dirtyAllowances map[allowanceKey]struct{}
	dirtySupply     bool
}

// New creates an empty ledger named name and registers it with x.
func New(x *txn.Executor, name string, minter types.Address) *Ledger {
	l := &Ledger{
		x:               x,
		name:            name,
		minter:          minter,
		balances:        make(map[types.Address]uint64),
		allowances:      make(map[allowanceKey]uint64),
		dirtyBalances:   make(map[types.Address]struct{}),
		dirtyAllowances: make(map[allowanceKey]struct{}),
	}

	x.Register(l)

	return l
}

// Name returns the ledger's namespace.
func (l *Ledger) Name() string {
	return l.name
}

// SetHook installs h as the movement hook. Pass nil to remove it.
func (l *Ledger) SetHook(h Hook) {
	l.hook = h
}

// BalanceOf returns the balance of a.
func (l *Ledger) BalanceOf(ctx context.Context, a types.Address) uint64 {
	var balance uint64
	l.x.View(ctx, func() { balance = l.balances[a] })

	return balance
}

// Allowance returns how much spender may pull from owner.
func (l *Ledger) Allowance(ctx context.Context, owner, spender types.Address) uint64 {
	var amount uint64
	l.x.View(ctx, func() { amount = l.allowances[allowanceKey{owner, spender}] })

	return amount
}

// TotalSupply returns the amount in circulation.
func (l *Ledger) TotalSupply(ctx context.Context) uint64 {
	var supply uint64
	l.x.View(ctx, func() { supply = l.supply })

	return supply
}

// Approve sets the amount spender may pull from owner, replacing any previous value.
func (l *Ledger) Approve(ctx context.Context, owner, spender types.Address, amount uint64) error {
	return l.x.Run(ctx, func(ctx context.Context) error {
		l.setAllowance(ctx, allowanceKey{owner, spender}, amount)
		return nil
	})
}

// Transfer moves amount from from to to on from's authority.
func (l *Ledger) Transfer(ctx context.Context, from, to types.Address, amount uint64) error {
	return l.x.Run(ctx, func(ctx context.Context) error {
		return l.move(ctx, from, to, amount)
	})
}

// TransferFrom moves amount from from to to on spender's allowance.
func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to types.Address, amount uint64) error {
	return l.x.Run(ctx, func(ctx context.Context) error {
		key := allowanceKey{from, spender}

		allowed := l.allowances[key]
		if allowed < amount {
			return fmt.Errorf("%w: allowed %d, need %d", ErrInsufficientAllowance, allowed, amount)
		}

		l.setAllowance(ctx, key, allowed-amount)

		return l.move(ctx, from, to, amount)
	})
}

// Burn destroys amount from from's balance.
func (l *Ledger) Burn(ctx context.Context, from types.Address, amount uint64) error {
	return l.x.Run(ctx, func(ctx context.Context) error {
		balance := l.balances[from]
		if balance < amount {
			return fmt.Errorf("%w: burn %d from balance %d", ErrInsufficientBalance, amount, balance)
		}

		l.setBalance(ctx, from, balance-amount)
		l.setSupply(ctx, l.supply-amount)

		return nil
	})
}

// Mint creates amount new units for to. Only the minter may mint.
func (l *Ledger) Mint(ctx context.Context, caller, to types.Address, amount uint64) error {
	return l.x.Run(ctx, func(ctx context.Context) error {
		if caller != l.minter {
			return ErrNotMinter
		}

		supply := l.supply + amount
		if supply < l.supply {
			return fmt.Errorf("%w: supply %d + %d", ErrOverflow, l.supply, amount)
		}

		l.setSupply(ctx, supply)
		l.setBalance(ctx, to, l.balances[to]+amount)

		return nil
	})
}

// move debits from, credits to, then runs the hook.
func (l *Ledger) move(ctx context.Context, from, to types.Address, amount uint64) error {
	balance := l.balances[from]
	if balance < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, balance, amount)
	}

	if from != to {
		credited := l.balances[to] + amount
		if credited < l.balances[to] {
			return fmt.Errorf("%w: credit %d to %s", ErrOverflow, amount, to.Short())
		}

		l.setBalance(ctx, from, balance-amount)
		l.setBalance(ctx, to, credited)
	}

	if l.hook != nil && amount > 0 {
		if err := l.hook(ctx, from, to, amount); err != nil {
			return fmt.Errorf("transfer hook:\n%w", err)
		}
	}

	return nil
}

// setBalance writes a journaled balance.
func (l *Ledger) setBalance(ctx context.Context, a types.Address, v uint64) {
	txn.Put(ctx, l.x, l.balances, a, v)
	txn.Mark(ctx, l.x, l.dirtyBalances, a)
}

// setAllowance writes a journaled allowance.
func (l *Ledger) setAllowance(ctx context.Context, k allowanceKey, v uint64) {
	txn.Put(ctx, l.x, l.allowances, k, v)
	txn.Mark(ctx, l.x, l.dirtyAllowances, k)
}

// setSupply writes the journaled supply.
func (l *Ledger) setSupply(ctx context.Context, v uint64) {
	txn.Assign(ctx, l.x, &l.supply, v)
	txn.Flag(ctx, l.x, &l.dirtySupply)
}

// encodeAmount encodes a uint64 as 8 little-endian bytes.
func encodeAmount(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}
