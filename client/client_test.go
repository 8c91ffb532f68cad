package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ReliefAuction/internal/api"
	"ReliefAuction/internal/auction"
	"ReliefAuction/internal/calls"
	"ReliefAuction/internal/events"
	"ReliefAuction/internal/genesis"
	"ReliefAuction/internal/storage"
	"ReliefAuction/internal/token"
	"ReliefAuction/internal/txn"
	"ReliefAuction/internal/types"
)

var treasury = types.DeriveAddress("client-test/treasury")

// testClock is the engine clock, advanced by tests between requests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// startNode serves a fresh in-memory daemon owned by owner.
func startNode(t *testing.T, owner *Wallet, clock *testClock) *Client {
	t.Helper()

	db, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	x := txn.New(db)
	bus := events.NewBus(0)
	reward := token.New(x, "relief", genesis.Minter)
	native := token.New(x, "native", genesis.Minter)
	engine := auction.New(x, reward, native, bus, auction.Config{
		Owner:   owner.Address(),
		FlatFee: 25,
		Now:     clock.Now,
	})
	nonces := calls.NewNonces(x)
	ledgers := genesis.Ledgers{Engine: engine, Reward: reward, Native: native}

	if err := genesis.Apply(context.Background(), x, ledgers, genesis.Config{Treasuries: []types.Address{treasury}}); err != nil {
		t.Fatalf("genesis: %v", err)
	}

	srv := httptest.NewServer(api.New("", api.Deps{
		Engine:     engine,
		Reward:     reward,
		Native:     native,
		Dispatcher: calls.NewDispatcher(engine, reward, native, nonces),
		Nonces:     nonces,
		Bus:        bus,
		DB:         db,
		Faucet:     genesis.NewFaucet(x, ledgers, 10_000, 500, time.Hour),
	}).Handler())
	t.Cleanup(srv.Close)

	return NewClient(srv.URL)
}

func fund(t *testing.T, c *Client, w *Wallet) {
	t.Helper()

	if _, _, err := c.Faucet(w.Address()); err != nil {
		t.Fatalf("faucet: %v", err)
	}

	if err := w.ApproveReward(c, auction.Custody, 10_000); err != nil {
		t.Fatalf("approve custody: %v", err)
	}
}

func TestClient_AuctionLifecycle(t *testing.T) {
	clock := newClock()
	owner, alice, bob := NewWallet(), NewWallet(), NewWallet()
	c := startNode(t, owner, clock)

	fund(t, c, alice)
	fund(t, c, bob)

	ids, err := owner.MintAndAuction(c, []string{"ipfs://relief/a"}, []uint32{0})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if len(ids) != 1 || ids[0] != 0 {
		t.Fatalf("ids = %v, want [0]", ids)
	}

	if err := alice.Bid(c, 0, 1_000); err != nil {
		t.Fatalf("alice bid: %v", err)
	}

	if err := bob.Bid(c, 0, 1_500); err != nil {
		t.Fatalf("bob bid: %v", err)
	}

	refund, err := c.Refund(alice.Address())
	if err != nil || refund != 1_000 {
		t.Fatalf("alice refund = %d, %v", refund, err)
	}

	clock.advance(auction.AuctionWindow)

	if err := bob.Claim(c, 0); err != nil {
		t.Fatalf("claim: %v", err)
	}

	a, err := c.Auction(0)
	if err != nil {
		t.Fatalf("auction: %v", err)
	}

	if !a.Ended || a.EndMethod != events.EndClaim || a.HighestBidder != bob.Address() {
		t.Errorf("auction = %+v", a)
	}

	col, err := c.Collectible(0)
	if err != nil || col.Holder != bob.Address() {
		t.Errorf("collectible = %+v, %v", col, err)
	}

	paid, err := alice.Withdraw(c)
	if err != nil || paid != 1_000 {
		t.Fatalf("withdraw = %d, %v", paid, err)
	}

	b, err := c.Balances(alice.Address())
	if err != nil || b.Reward != 10_000 {
		t.Errorf("alice balances = %+v, %v", b, err)
	}

	s, err := c.Status()
	if err != nil || s.Escrow != 0 || s.Liabilities != 0 || s.Owner != owner.Address() {
		t.Errorf("status = %+v, %v", s, err)
	}
}

func TestClient_SecondaryTransfer(t *testing.T) {
	clock := newClock()
	owner, alice, carol := NewWallet(), NewWallet(), NewWallet()
	c := startNode(t, owner, clock)
	fund(t, c, alice)

	owner.MintAndAuction(c, []string{"ipfs://relief/a"}, []uint32{0})
	alice.Bid(c, 0, 300)
	clock.advance(auction.AuctionWindow)
	if err := alice.Claim(c, 0); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := alice.TransferWithFee(c, alice.Address(), carol.Address(), 0, 25); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	tr, err := c.Treasury()
	if err != nil || len(tr.Addresses) != 1 || tr.FlatFee != 25 {
		t.Fatalf("treasury = %+v, %v", tr, err)
	}

	b, err := c.Balances(tr.Addresses[0])
	if err != nil || b.Native != 25 {
		t.Errorf("treasury balances = %+v, %v", b, err)
	}
}

func TestClient_RejectedCallResyncsNonce(t *testing.T) {
	clock := newClock()
	owner, alice := NewWallet(), NewWallet()
	c := startNode(t, owner, clock)
	fund(t, c, alice)

	owner.MintAndAuction(c, []string{"ipfs://relief/a"}, []uint32{0})

	err := alice.ForceEnd(c, 0)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("err = %v, want 403", err)
	}

	// The rejected call consumed its nonce; the next one must still land.
	if err := alice.Bid(c, 0, 100); err != nil {
		t.Fatalf("bid after rejection: %v", err)
	}
}

func TestClient_Events(t *testing.T) {
	clock := newClock()
	owner := NewWallet()
	c := startNode(t, owner, clock)

	owner.MintAndAuction(c, []string{"ipfs://relief/a"}, []uint32{0})

	evs, err := c.Events(0)
	if err != nil {
		t.Fatalf("events: %v", err)
	}

	if len(evs) != 2 {
		t.Fatalf("events = %+v, want treasury update and mint", evs)
	}

	if evs[0].Kind != events.KindTreasuryUpdated || evs[1].Kind != events.KindCollectibleMinted {
		t.Errorf("kinds = %v, %v", evs[0].Kind, evs[1].Kind)
	}
}

func TestNewClient_AddsScheme(t *testing.T) {
	if c := NewClient("127.0.0.1:8080/"); c.baseURL != "http://127.0.0.1:8080" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
}
