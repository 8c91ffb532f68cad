package auction

import (
	"context"
	"fmt"

	"ReliefAuction/internal/events"
	"ReliefAuction/internal/types"
)

// Collectible is the ownership record of one minted collectible.
type Collectible struct {
	ID            uint64        `json:"id"`
	Holder        types.Address `json:"holder"`
	URI           string        `json:"uri"`
	TreasuryIndex uint32        `json:"treasuryIndex"`
	Approved      types.Address `json:"approved"` // zero when no single-token approval
}

// MintAndAuction mints one collectible per URI into custody and opens its
// auction with StartTime = now. treasuryTargets[i] is the treasury index
// recorded on the i-th collectible. Returns the new ids in order.
func (e *Engine) MintAndAuction(ctx context.Context, caller types.Address, uris []string, treasuryTargets []uint32) ([]uint64, error) {
	var ids []uint64

	err := e.run(ctx, "mint_and_auction", func(ctx context.Context) error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}

		if len(uris) == 0 {
			return ErrEmptyBatch
		}

		if len(uris) != len(treasuryTargets) {
			return fmt.Errorf("%w: %d uris, %d treasury targets", ErrLengthMismatch, len(uris), len(treasuryTargets))
		}

		for i, index := range treasuryTargets {
			if int(index) >= len(e.treasury) {
				return fmt.Errorf("%w: entry %d targets index %d, %d registered", ErrUnknownTreasury, i, index, len(e.treasury))
			}
		}

		start := e.now().Unix()
		minted := make([]uint64, 0, len(uris))

		for i, uri := range uris {
			id := e.nextID
			e.setNextID(ctx, id+1)

			e.putCollectible(ctx, Collectible{
				ID:            id,
				Holder:        Custody,
				URI:           uri,
				TreasuryIndex: treasuryTargets[i],
			})
			e.putAuction(ctx, Auction{ID: id, StartTime: start})

			e.emit(ctx, events.Event{
				Kind:        events.KindCollectibleMinted,
				Collectible: id,
				Index:       treasuryTargets[i],
				URI:         uri,
				Time:        start,
			})

			minted = append(minted, id)
		}

		ids = minted

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// TransferWithFee moves collectible id from from to to. The auction must have
// ended, caller must be authorized for the collectible, and fee (in the native
// coin, paid by caller) must be at least the flat fee. The whole fee goes to
// the treasury chosen by the route policy.
func (e *Engine) TransferWithFee(ctx context.Context, caller, from, to types.Address, id, fee uint64) error {
	return e.run(ctx, "transfer_with_fee", func(ctx context.Context) error {
		c, ok := e.collectibles[id]
		if !ok {
			return fmt.Errorf("%w: id %d", ErrUnknownCollectible, id)
		}

		if a, ok := e.auctions[id]; ok && !a.Ended {
			return fmt.Errorf("%w: id %d", ErrAuctionActive, id)
		}

		if to.IsZero() {
			return ErrZeroAddress
		}

		if c.Holder != from {
			return fmt.Errorf("%w: id %d", ErrNotHolder, id)
		}

		if !e.canTransfer(caller, c) {
			return fmt.Errorf("%w: id %d", ErrNotAuthorized, id)
		}

		if fee < e.flatFee {
			return fmt.Errorf("%w: attached %d, required %d", ErrFeeTooLow, fee, e.flatFee)
		}

		index, err := e.route.Route(c, e.treasury)
		if err != nil {
			return err
		}
		recipient := e.treasury[index]

		c.Holder = to
		c.Approved = types.ZeroAddress
		e.putCollectible(ctx, c)

		e.emit(ctx, events.Event{
			Kind:         events.KindCollectibleTransferred,
			Collectible:  id,
			Actor:        from,
			Counterparty: to,
			Amount:       fee,
			Index:        index,
		})

		if fee > 0 {
			if err := e.native.Transfer(ctx, caller, recipient, fee); err != nil {
				return tokenError("forward fee", err)
			}
		}

		return nil
	})
}

// canTransfer reports whether caller may move c. The owner acts for
// collectibles still held in custody.
func (e *Engine) canTransfer(caller types.Address, c Collectible) bool {
	switch {
	case caller.IsZero():
		return false
	case caller == c.Holder:
		return true
	case caller == c.Approved:
		return true
	case e.operators[operatorKey{c.Holder, caller}]:
		return true
	case c.Holder == Custody && caller == e.owner:
		return true
	default:
		return false
	}
}

// Approve lets to transfer collectible id once. Only the holder (or one of its
// operators) may approve; the zero address clears the approval.
func (e *Engine) Approve(ctx context.Context, caller, to types.Address, id uint64) error {
	return e.run(ctx, "approve", func(ctx context.Context) error {
		c, ok := e.collectibles[id]
		if !ok {
			return fmt.Errorf("%w: id %d", ErrUnknownCollectible, id)
		}

		if caller != c.Holder && !e.operators[operatorKey{c.Holder, caller}] {
			return fmt.Errorf("%w: id %d", ErrNotAuthorized, id)
		}

		c.Approved = to
		e.putCollectible(ctx, c)

		return nil
	})
}

// SetApprovalForAll lets operator transfer every collectible caller holds.
func (e *Engine) SetApprovalForAll(ctx context.Context, caller, operator types.Address, approved bool) error {
	return e.run(ctx, "set_approval_for_all", func(ctx context.Context) error {
		if caller.IsZero() || operator.IsZero() {
			return ErrZeroAddress
		}

		e.setOperator(ctx, operatorKey{caller, operator}, approved)

		return nil
	})
}

// IsApprovedForAll reports whether operator may act for holder.
func (e *Engine) IsApprovedForAll(ctx context.Context, holder, operator types.Address) bool {
	var ok bool
	e.x.View(ctx, func() { ok = e.operators[operatorKey{holder, operator}] })

	return ok
}

// Collectible returns the record of collectible id.
func (e *Engine) Collectible(ctx context.Context, id uint64) (Collectible, bool) {
	var (
		c  Collectible
		ok bool
	)
	e.x.View(ctx, func() { c, ok = e.collectibles[id] })

	return c, ok
}

// OwnerOf returns the holder of collectible id.
func (e *Engine) OwnerOf(ctx context.Context, id uint64) (types.Address, error) {
	c, ok := e.Collectible(ctx, id)
	if !ok {
		return types.ZeroAddress, fmt.Errorf("%w: id %d", ErrUnknownCollectible, id)
	}

	return c.Holder, nil
}
