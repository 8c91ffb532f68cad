package auction

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ReliefAuction/internal/events"
	"ReliefAuction/internal/types"
)

// Auction is the sale state of one collectible.
type Auction struct {
	ID            uint64           `json:"id"`
	HighestBidder types.Address    `json:"highestBidder"` // zero until the first bid
	HighestBid    uint64           `json:"highestBid"`
	StartTime     int64            `json:"startTime"` // unix seconds
	Ended         bool             `json:"ended"`
	EndMethod     events.EndMethod `json:"endMethod"`
}

// HasBid reports whether any bid was accepted.
func (a Auction) HasBid() bool {
	return !a.HighestBidder.IsZero()
}

// ClosesAt returns the unix time from which the auction can be finalized.
func (a Auction) ClosesAt() int64 {
	return a.StartTime + int64(AuctionWindow/time.Second)
}

// WindowElapsed reports whether now is at or past ClosesAt.
func (a Auction) WindowElapsed(now time.Time) bool {
	return now.Unix() >= a.ClosesAt()
}

// Bid places amount on auction id. The previous highest bid is credited to its
// bidder's refund balance, then amount is pulled from caller into custody as
// the last step, so a re-entrant call during the pull sees the new state.
// The caller must have approved Custody for at least amount.
func (e *Engine) Bid(ctx context.Context, caller types.Address, id, amount uint64) error {
	return e.run(ctx, "bid", func(ctx context.Context) error {
		if caller.IsZero() {
			return ErrZeroAddress
		}

		a, err := e.openAuction(id)
		if err != nil {
			return err
		}

		if amount <= a.HighestBid {
			return fmt.Errorf("%w: bid %d, highest %d", ErrBidTooLow, amount, a.HighestBid)
		}

		if a.HasBid() {
			if err := e.creditRefund(ctx, a.HighestBidder, a.HighestBid); err != nil {
				return err
			}
		}

		a.HighestBidder = caller
		a.HighestBid = amount
		e.putAuction(ctx, a)

		e.emit(ctx, events.Event{
			Kind:        events.KindBidPlaced,
			Collectible: id,
			Actor:       caller,
			Amount:      amount,
		})

		if err := e.reward.TransferFrom(ctx, Custody, caller, Custody, amount); err != nil {
			return tokenError("pull bid", err)
		}

		return nil
	})
}

// ClaimNFT finalizes auction id on behalf of its highest bidder once the
// window has elapsed: the collectible moves to caller and the winning bid is
// burned from custody.
func (e *Engine) ClaimNFT(ctx context.Context, caller types.Address, id uint64) error {
	return e.run(ctx, "claim", func(ctx context.Context) error {
		a, err := e.openAuction(id)
		if err != nil {
			return err
		}

		if !a.HasBid() || caller != a.HighestBidder {
			return ErrNotHighestBidder
		}

		if !a.WindowElapsed(e.now()) {
			return fmt.Errorf("%w: closes at %d", ErrWindowOpen, a.ClosesAt())
		}

		return e.finalize(ctx, a, events.EndClaim)
	})
}

// ForceEndAuction finalizes auction id on the owner's authority once the
// window has elapsed. Without any bid the collectible stays in custody and
// nothing is burned.
func (e *Engine) ForceEndAuction(ctx context.Context, caller types.Address, id uint64) error {
	return e.run(ctx, "force_end", func(ctx context.Context) error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}

		a, err := e.openAuction(id)
		if err != nil {
			return err
		}

		if !a.WindowElapsed(e.now()) {
			return fmt.Errorf("%w: closes at %d", ErrWindowOpen, a.ClosesAt())
		}

		return e.finalize(ctx, a, events.EndForce)
	})
}

// finalize ends a, hands the collectible to the winner and burns the winning
// bid. Internal state is updated before the burn.
func (e *Engine) finalize(ctx context.Context, a Auction, method events.EndMethod) error {
	a.Ended = true
	a.EndMethod = method
	e.putAuction(ctx, a)

	if a.HasBid() {
		c := e.collectibles[a.ID]
		c.Holder = a.HighestBidder
		c.Approved = types.ZeroAddress
		e.putCollectible(ctx, c)
	}

	e.emit(ctx, events.Event{
		Kind:        events.KindAuctionEnded,
		Collectible: a.ID,
		Actor:       a.HighestBidder,
		Amount:      a.HighestBid,
		Method:      method,
	})

	if a.HasBid() {
		if err := e.reward.Burn(ctx, Custody, a.HighestBid); err != nil {
			return tokenError("burn winning bid", err)
		}
	}

	return nil
}

// openAuction returns auction id if it exists and has not ended.
func (e *Engine) openAuction(id uint64) (Auction, error) {
	a, ok := e.auctions[id]
	if !ok {
		return Auction{}, fmt.Errorf("%w: id %d", ErrAuctionNotFound, id)
	}

	if a.Ended {
		return Auction{}, fmt.Errorf("%w: id %d", ErrAuctionEnded, id)
	}

	return a, nil
}

// AuctionDetails returns the state of auction id.
func (e *Engine) AuctionDetails(ctx context.Context, id uint64) (Auction, bool) {
	var (
		a  Auction
		ok bool
	)
	e.x.View(ctx, func() { a, ok = e.auctions[id] })

	return a, ok
}

// AuctionedNFTs returns the ids of every collectible ever auctioned, ascending.
func (e *Engine) AuctionedNFTs(ctx context.Context) []uint64 {
	var ids []uint64
	e.x.View(ctx, func() {
		ids = make([]uint64, 0, len(e.auctions))
		for id := range e.auctions {
			ids = append(ids, id)
		}
	})

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Auctions returns every auction state, ordered by id.
func (e *Engine) Auctions(ctx context.Context) []Auction {
	var out []Auction
	e.x.View(ctx, func() {
		out = make([]Auction, 0, len(e.auctions))
		for _, a := range e.auctions {
			out = append(out, a)
		}
	})

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

// EscrowBalance returns the reward tokens held in custody.
func (e *Engine) EscrowBalance(ctx context.Context) uint64 {
	return e.reward.BalanceOf(ctx, Custody)
}

// Liabilities returns what custody owes: every refund balance plus the highest
// bid of every active auction. It equals EscrowBalance unless tokens were
// sent to custody outside the engine.
func (e *Engine) Liabilities(ctx context.Context) uint64 {
	var total uint64
	e.x.View(ctx, func() {
		for _, v := range e.refunds {
			total += v
		}

		for _, a := range e.auctions {
			if !a.Ended {
				total += a.HighestBid
			}
		}
	})

	return total
}
