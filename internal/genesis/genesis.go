// Package genesis initializes a fresh daemon: it persists the owner, seeds
// the treasury registry and mints the starting supply of both ledgers.
package genesis

import (
	"context"
	"fmt"

	"ReliefAuction/internal/auction"
	"ReliefAuction/internal/logger"
	"ReliefAuction/internal/token"
	"ReliefAuction/internal/txn"
	"ReliefAuction/internal/types"
)

// Minter is the account allowed to create reward and native supply.
var Minter = types.DeriveAddress("relief-genesis/minter")

// Allocation is a starting balance.
type Allocation struct {
	To     types.Address // To receives the supply
	Reward uint64        // Reward is the reward-token amount
	Native uint64        // Native is the native-coin amount
}

// Config holds the genesis state of a fresh daemon.
type Config struct {
	// Treasuries are appended to the registry in order.
	Treasuries []types.Address

	// Allocations are minted once.
	Allocations []Allocation
}

// Ledgers groups the collaborators genesis writes to.
type Ledgers struct {
	Engine *auction.Engine
	Reward *token.Ledger
	Native *token.Ledger
}

// Apply writes cfg as one atomic call. The engine's configured owner is
// persisted and acts as caller for the treasury registrations.
func Apply(ctx context.Context, x *txn.Executor, l Ledgers, cfg Config) error {
	for i, t := range cfg.Treasuries {
		if t.IsZero() {
			return fmt.Errorf("treasury %d is the zero address", i)
		}
	}

	err := x.Run(ctx, func(ctx context.Context) error {
		if err := l.Engine.Bootstrap(ctx); err != nil {
			return fmt.Errorf("persist owner:\n%w", err)
		}

		owner := l.Engine.Owner(ctx)

		for _, t := range cfg.Treasuries {
			if _, err := l.Engine.AddTreasuryAddress(ctx, owner, t); err != nil {
				return fmt.Errorf("add treasury %s:\n%w", t.Short(), err)
			}
		}

		for _, a := range cfg.Allocations {
			if err := mint(ctx, l, a); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("genesis applied",
		"owner", l.Engine.Owner(ctx).Short(),
		"treasuries", len(cfg.Treasuries),
		"allocations", len(cfg.Allocations),
	)

	return nil
}

// mint credits one allocation on both ledgers.
func mint(ctx context.Context, l Ledgers, a Allocation) error {
	if a.Reward > 0 {
		if err := l.Reward.Mint(ctx, Minter, a.To, a.Reward); err != nil {
			return fmt.Errorf("mint reward to %s:\n%w", a.To.Short(), err)
		}
	}

	if a.Native > 0 {
		if err := l.Native.Mint(ctx, Minter, a.To, a.Native); err != nil {
			return fmt.Errorf("mint native to %s:\n%w", a.To.Short(), err)
		}
	}

	return nil
}
