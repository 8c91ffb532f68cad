package auction

import (
	"context"
	"sync"
	"testing"
	"time"

	"ReliefAuction/internal/events"
	"ReliefAuction/internal/storage"
	"ReliefAuction/internal/token"
	"ReliefAuction/internal/txn"
	"ReliefAuction/internal/types"
)

const (
	testFlatFee = 50
	startFunds  = 10_000
)

var (
	owner     = types.DeriveAddress("test/owner")
	alice     = types.DeriveAddress("test/alice")
	bob       = types.DeriveAddress("test/bob")
	carol     = types.DeriveAddress("test/carol")
	treasuryX = types.DeriveAddress("test/treasury-x")
	treasuryY = types.DeriveAddress("test/treasury-y")
	minter    = types.DeriveAddress("test/minter")
)

// testClock is a settable clock.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// recorder collects published events.
type recorder struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recorder) add(ev events.Event) {
	r.mu.Lock()
	r.evs = append(r.evs, ev)
	r.mu.Unlock()
}

func (r *recorder) kinds(k events.Kind) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []events.Event
	for _, ev := range r.evs {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	ctx    context.Context
	x      *txn.Executor
	reward *token.Ledger
	native *token.Ledger
	engine *Engine
	clock  *testClock
	events *recorder
}

// newFixture builds an engine with treasuries X and Y registered, and alice,
// bob and carol funded with reward tokens (approved to custody) and native coin.
func newFixture(t *testing.T, db *storage.Storage) *fixture {
	t.Helper()

	f := &fixture{
		ctx:    context.Background(),
		x:      txn.New(db),
		clock:  &testClock{t: time.Unix(1_700_000_000, 0)},
		events: &recorder{},
	}

	bus := events.NewBus(0)
	bus.Subscribe(f.events.add)

	f.reward = token.New(f.x, "reward", minter)
	f.native = token.New(f.x, "native", minter)
	f.engine = New(f.x, f.reward, f.native, bus, Config{
		Owner:   owner,
		FlatFee: testFlatFee,
		Now:     f.clock.now,
	})

	if err := f.engine.Bootstrap(f.ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	for _, addr := range []types.Address{treasuryX, treasuryY} {
		if _, err := f.engine.AddTreasuryAddress(f.ctx, owner, addr); err != nil {
			t.Fatalf("add treasury: %v", err)
		}
	}

	for _, a := range []types.Address{alice, bob, carol} {
		if err := f.reward.Mint(f.ctx, minter, a, startFunds); err != nil {
			t.Fatalf("mint reward: %v", err)
		}
		if err := f.reward.Approve(f.ctx, a, Custody, startFunds); err != nil {
			t.Fatalf("approve: %v", err)
		}
		if err := f.native.Mint(f.ctx, minter, a, startFunds); err != nil {
			t.Fatalf("mint native: %v", err)
		}
	}

	return f
}

// mint opens n auctions routed to treasury 0 and returns their ids.
func (f *fixture) mint(t *testing.T, n int) []uint64 {
	t.Helper()

	uris := make([]string, n)
	targets := make([]uint32, n)
	for i := range uris {
		uris[i] = "ipfs://relief/" + string(rune('a'+i))
	}

	ids, err := f.engine.MintAndAuction(f.ctx, owner, uris, targets)
	if err != nil {
		t.Fatalf("mint and auction: %v", err)
	}

	return ids
}

func (f *fixture) bid(t *testing.T, who types.Address, id, amount uint64) {
	t.Helper()

	if err := f.engine.Bid(f.ctx, who, id, amount); err != nil {
		t.Fatalf("bid %d by %s: %v", amount, who.Short(), err)
	}
}

// checkConservation asserts custody holds exactly what the engine owes.
func (f *fixture) checkConservation(t *testing.T) {
	t.Helper()

	escrow := f.engine.EscrowBalance(f.ctx)
	owed := f.engine.Liabilities(f.ctx)
	if escrow != owed {
		t.Fatalf("conservation broken: escrow %d, liabilities %d", escrow, owed)
	}
}

func (f *fixture) closeWindow() {
	f.clock.advance(AuctionWindow + time.Second)
}
