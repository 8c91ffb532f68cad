// Package auction implements the collectible auction engine: timed sales in
// the reward token, a pull-payment refund ledger, finalization by claim or
// force-end, a treasury registry and fee-bearing secondary transfers.
//
// The engine owns all of its registries. Every public method runs as one call
// of the shared txn.Executor, so a failing call (including a failed token
// movement) leaves engine state and token balances exactly as before.
package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ReliefAuction/internal/events"
	"ReliefAuction/internal/logger"
	"ReliefAuction/internal/token"
	"ReliefAuction/internal/txn"
	"ReliefAuction/internal/types"
)

// AuctionWindow is the time after StartTime before an auction can be finalized.
const AuctionWindow = 7 * 24 * time.Hour

// Custody is the engine's escrow account. Bids are pulled into it, refunds and
// burns are paid out of it, and freshly minted collectibles are held by it.
var Custody = types.DeriveAddress("relief-auction/custody")

// RewardToken is the settlement currency bidders escrow.
type RewardToken interface {
	TransferFrom(ctx context.Context, spender, from, to types.Address, amount uint64) error
	Transfer(ctx context.Context, from, to types.Address, amount uint64) error
	Burn(ctx context.Context, from types.Address, amount uint64) error
	BalanceOf(ctx context.Context, a types.Address) uint64
}

// NativeCoin carries the flat fee of secondary transfers.
type NativeCoin interface {
	Transfer(ctx context.Context, from, to types.Address, amount uint64) error
}

// Config holds the engine's construction parameters.
type Config struct {
	Owner   types.Address    // Owner holds the owner capability on a fresh engine
	FlatFee uint64           // FlatFee is the minimum native fee of TransferWithFee
	Route   RoutePolicy      // Route selects the fee recipient; nil means RouteByCollectible
	Now     func() time.Time // Now is the clock; nil means time.Now
}

// operatorKey identifies one holder->operator approval-for-all.
type operatorKey struct {
	holder   types.Address
	operator types.Address
}

// Engine is the auction and treasury-distribution engine.
type Engine struct {
	x       *txn.Executor // x serializes and journals every call
	reward  RewardToken
	native  NativeCoin
	bus     *events.Bus // bus receives events of committed calls
	flatFee uint64
	route   RoutePolicy
	now     func() time.Time

	owner        types.Address
	nextID       uint64
	collectibles map[uint64]Collectible
	auctions     map[uint64]Auction
	refunds      map[types.Address]uint64
	treasury     []types.Address
	operators    map[operatorKey]bool

	pending           []events.Event // pending are emitted by the current call
	dirtyAuctions     map[uint64]struct{}
	dirtyCollectibles map[uint64]struct{}
	dirtyRefunds      map[types.Address]struct{}
	dirtyOperators    map[operatorKey]struct{}
	dirtyTreasury     bool
	dirtyMeta         bool
}

// New creates an engine and registers it with x. The reward token and native
// coin must run on the same executor for their movements to roll back with
// engine calls.
func New(x *txn.Executor, reward RewardToken, native NativeCoin, bus *events.Bus, cfg Config) *Engine {
	if cfg.Route == nil {
		cfg.Route = RouteByCollectible{}
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	e := &Engine{
		x:                 x,
		reward:            reward,
		native:            native,
		bus:               bus,
		flatFee:           cfg.FlatFee,
		route:             cfg.Route,
		now:               cfg.Now,
		owner:             cfg.Owner,
		collectibles:      make(map[uint64]Collectible),
		auctions:          make(map[uint64]Auction),
		refunds:           make(map[types.Address]uint64),
		operators:         make(map[operatorKey]bool),
		dirtyAuctions:     make(map[uint64]struct{}),
		dirtyCollectibles: make(map[uint64]struct{}),
		dirtyRefunds:      make(map[types.Address]struct{}),
		dirtyOperators:    make(map[operatorKey]struct{}),
	}

	x.Register(e)

	return e
}

// FlatFee returns the minimum native fee of a secondary transfer.
func (e *Engine) FlatFee() uint64 {
	return e.flatFee
}

// RoutePolicy returns the fee routing policy in use.
func (e *Engine) RoutePolicy() RoutePolicy {
	return e.route
}

// run executes fn as one engine call and logs rejections.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := e.x.Run(ctx, fn)
	if err != nil {
		logger.Debug("call rejected", "op", op, "error", err)
	}

	return err
}

// emit queues ev for publication once the outermost call commits.
func (e *Engine) emit(ctx context.Context, ev events.Event) {
	if ev.Time == 0 {
		ev.Time = e.now().Unix()
	}

	n := len(e.pending)
	txn.Record(ctx, e.x, func() { e.pending = e.pending[:n] })

	e.pending = append(e.pending, ev)
}

// Committed publishes the events of the committed call.
func (e *Engine) Committed() {
	e.clearDirty()

	if len(e.pending) == 0 {
		return
	}

	evs := e.pending
	e.pending = nil

	for _, ev := range evs {
		logger.Debug("event",
			"kind", ev.Kind,
			"collectible", ev.Collectible,
			"actor", ev.Actor.Short(),
			"amount", ev.Amount,
		)
	}

	if e.bus != nil {
		e.bus.Publish(evs...)
	}
}

// Discarded drops everything the rolled-back call queued.
func (e *Engine) Discarded() {
	e.clearDirty()
	e.pending = nil
}

func (e *Engine) clearDirty() {
	clear(e.dirtyAuctions)
	clear(e.dirtyCollectibles)
	clear(e.dirtyRefunds)
	clear(e.dirtyOperators)
	e.dirtyTreasury = false
	e.dirtyMeta = false
}

// putAuction writes a journaled auction state.
func (e *Engine) putAuction(ctx context.Context, a Auction) {
	txn.Put(ctx, e.x, e.auctions, a.ID, a)
	txn.Mark(ctx, e.x, e.dirtyAuctions, a.ID)
}

// putCollectible writes a journaled collectible record.
func (e *Engine) putCollectible(ctx context.Context, c Collectible) {
	txn.Put(ctx, e.x, e.collectibles, c.ID, c)
	txn.Mark(ctx, e.x, e.dirtyCollectibles, c.ID)
}

// setRefund writes a journaled refund balance.
func (e *Engine) setRefund(ctx context.Context, a types.Address, v uint64) {
	txn.Put(ctx, e.x, e.refunds, a, v)
	txn.Mark(ctx, e.x, e.dirtyRefunds, a)
}

// setOperator writes a journaled approval-for-all flag.
func (e *Engine) setOperator(ctx context.Context, k operatorKey, v bool) {
	txn.Put(ctx, e.x, e.operators, k, v)
	txn.Mark(ctx, e.x, e.dirtyOperators, k)
}

// setTreasury replaces the journaled treasury list. The list is never
// mutated in place so the undo log can restore the old slice.
func (e *Engine) setTreasury(ctx context.Context, list []types.Address) {
	txn.Assign(ctx, e.x, &e.treasury, list)
	txn.Flag(ctx, e.x, &e.dirtyTreasury)
}

// setOwner re-points the journaled owner capability.
func (e *Engine) setOwner(ctx context.Context, a types.Address) {
	txn.Assign(ctx, e.x, &e.owner, a)
	txn.Flag(ctx, e.x, &e.dirtyMeta)
}

// setNextID advances the journaled collectible counter.
func (e *Engine) setNextID(ctx context.Context, id uint64) {
	txn.Assign(ctx, e.x, &e.nextID, id)
	txn.Flag(ctx, e.x, &e.dirtyMeta)
}

// tokenError reports a failed token movement. Balance, allowance and overflow
// failures are funds errors; anything else (a re-entrant call failing inside a
// transfer hook) keeps its own classification.
func tokenError(op string, err error) error {
	if errors.Is(err, token.ErrInsufficientBalance) ||
		errors.Is(err, token.ErrInsufficientAllowance) ||
		errors.Is(err, token.ErrOverflow) {
		return fmt.Errorf("%w: %s:\n%w", ErrFunds, op, err)
	}

	return fmt.Errorf("%s:\n%w", op, err)
}
