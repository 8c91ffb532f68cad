package genesis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ReliefAuction/internal/txn"
	"ReliefAuction/internal/types"
)

// ErrFaucetCooldown is returned when an address drips again too early.
var ErrFaucetCooldown = errors.New("faucet cooldown active")

// Faucet mints a fixed allocation on request. It exists for test networks and
// is disabled unless configured.
type Faucet struct {
	x        *txn.Executor
	ledgers  Ledgers
	drip     Allocation
	cooldown time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last map[types.Address]time.Time
}

// NewFaucet creates a faucet paying reward and native per drip, at most once
// per cooldown for each address.
func NewFaucet(x *txn.Executor, l Ledgers, reward, native uint64, cooldown time.Duration) *Faucet {
	return &Faucet{
		x:        x,
		ledgers:  l,
		drip:     Allocation{Reward: reward, Native: native},
		cooldown: cooldown,
		now:      time.Now,
		last:     make(map[types.Address]time.Time),
	}
}

// Drip mints the configured allocation to to and returns it.
func (f *Faucet) Drip(ctx context.Context, to types.Address) (Allocation, error) {
	if to.IsZero() {
		return Allocation{}, fmt.Errorf("faucet recipient is the zero address")
	}

	now := f.now()

	f.mu.Lock()
	if at, ok := f.last[to]; ok && now.Sub(at) < f.cooldown {
		f.mu.Unlock()
		return Allocation{}, ErrFaucetCooldown
	}
	f.last[to] = now
	f.mu.Unlock()

	a := f.drip
	a.To = to

	err := f.x.Run(ctx, func(ctx context.Context) error {
		return mint(ctx, f.ledgers, a)
	})
	if err != nil {
		f.mu.Lock()
		delete(f.last, to)
		f.mu.Unlock()

		return Allocation{}, err
	}

	return a, nil
}
