package auction

import (
	"testing"

	"ReliefAuction/internal/events"
	"ReliefAuction/internal/storage"
	"ReliefAuction/internal/token"
	"ReliefAuction/internal/txn"
)

func TestEngine_PersistsAcrossRestart(t *testing.T) {
	db, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer db.Close()

	f := newFixture(t, db)
	f.mint(t, 2)
	f.bid(t, alice, 0, 1000)
	f.bid(t, bob, 0, 1500)
	f.bid(t, carol, 1, 40)

	if err := f.engine.SetApprovalForAll(f.ctx, carol, alice, true); err != nil {
		t.Fatalf("operator: %v", err)
	}

	f.closeWindow()
	if err := f.engine.ClaimNFT(f.ctx, bob, 0); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// A rejected call must not reach the store.
	_ = f.engine.Bid(f.ctx, alice, 1, 40)

	x := txn.New(db)
	reward := token.New(x, "reward", minter)
	native := token.New(x, "native", minter)
	restored := New(x, reward, native, events.NewBus(0), Config{FlatFee: testFlatFee, Now: f.clock.now})

	if err := reward.Load(db); err != nil {
		t.Fatalf("load reward: %v", err)
	}

	found, err := restored.Load(db)
	if err != nil || !found {
		t.Fatalf("load engine: found=%v err=%v", found, err)
	}

	if got := restored.Owner(f.ctx); got != owner {
		t.Errorf("owner = %s", got.Short())
	}

	if got := restored.TreasuryAddresses(f.ctx); len(got) != 2 || got[1] != treasuryY {
		t.Errorf("treasury = %v", got)
	}

	a0, _ := restored.AuctionDetails(f.ctx, 0)
	if !a0.Ended || a0.HighestBidder != bob || a0.EndMethod != events.EndClaim {
		t.Errorf("auction 0 = %+v", a0)
	}

	a1, _ := restored.AuctionDetails(f.ctx, 1)
	if a1.Ended || a1.HighestBidder != carol || a1.HighestBid != 40 {
		t.Errorf("auction 1 = %+v", a1)
	}

	c0, _ := restored.Collectible(f.ctx, 0)
	if c0.Holder != bob || c0.URI != "ipfs://relief/a" {
		t.Errorf("collectible 0 = %+v", c0)
	}

	if got := restored.WithdrawableAmount(f.ctx, alice); got != 1000 {
		t.Errorf("alice refund = %d", got)
	}

	if !restored.IsApprovedForAll(f.ctx, carol, alice) {
		t.Error("operator approval lost")
	}

	if got, want := restored.EscrowBalance(f.ctx), restored.Liabilities(f.ctx); got != want {
		t.Errorf("restored escrow %d != liabilities %d", got, want)
	}

	ids, err := restored.MintAndAuction(f.ctx, owner, []string{"next"}, []uint32{1})
	if err != nil {
		t.Fatalf("mint after restart: %v", err)
	}

	if ids[0] != 2 {
		t.Errorf("next id = %d, want 2", ids[0])
	}
}

func TestEngine_LoadEmptyStore(t *testing.T) {
	db, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer db.Close()

	x := txn.New(db)
	e := New(x, token.New(x, "reward", minter), token.New(x, "native", minter), nil, Config{Owner: owner})

	found, err := e.Load(db)
	if err != nil || found {
		t.Fatalf("load = %v, %v; want false, nil", found, err)
	}

	if e.owner != owner {
		t.Error("configured owner replaced on first boot")
	}
}

func TestDecodeCollectible_Truncated(t *testing.T) {
	data := encodeCollectible(Collectible{ID: 1, Holder: alice, URI: "ipfs://x"})

	if _, err := decodeCollectible(1, data[:len(data)-2]); err == nil {
		t.Fatal("expected error for truncated record")
	}
}

func TestLoadEventSeq_TracksPublishedEvents(t *testing.T) {
	db, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	defer db.Close()

	if seq, err := LoadEventSeq(db); err != nil || seq != 0 {
		t.Fatalf("fresh store seq = %d, %v", seq, err)
	}

	f := newFixture(t, db)
	f.mint(t, 3)
	f.bid(t, alice, 1, 500)

	// rejected calls publish nothing and must not move the stored sequence
	_ = f.engine.Bid(f.ctx, bob, 1, 500)

	f.events.mu.Lock()
	last := f.events.evs[len(f.events.evs)-1].Seq
	f.events.mu.Unlock()

	seq, err := LoadEventSeq(db)
	if err != nil {
		t.Fatalf("load seq: %v", err)
	}

	if seq != last {
		t.Errorf("stored seq = %d, want %d", seq, last)
	}
}
