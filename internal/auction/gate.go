package auction

import (
	"context"

	"ReliefAuction/internal/events"
	"ReliefAuction/internal/types"
)

// requireOwner rejects any caller other than the current owner.
func (e *Engine) requireOwner(caller types.Address) error {
	if caller != e.owner {
		return ErrNotOwner
	}

	return nil
}

// Owner returns the address holding the owner capability.
func (e *Engine) Owner(ctx context.Context) types.Address {
	var owner types.Address
	e.x.View(ctx, func() { owner = e.owner })

	return owner
}

// TransferOwnership re-points the owner capability to next, typically the
// governing body's address.
func (e *Engine) TransferOwnership(ctx context.Context, caller, next types.Address) error {
	return e.run(ctx, "transfer_ownership", func(ctx context.Context) error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}

		if next.IsZero() {
			return ErrZeroAddress
		}

		previous := e.owner
		e.setOwner(ctx, next)

		e.emit(ctx, events.Event{
			Kind:         events.KindOwnershipTransferred,
			Actor:        previous,
			Counterparty: next,
		})

		return nil
	})
}

// Bootstrap persists the configured owner of a fresh engine.
func (e *Engine) Bootstrap(ctx context.Context) error {
	return e.run(ctx, "bootstrap", func(ctx context.Context) error {
		e.setOwner(ctx, e.owner)
		return nil
	})
}
