package auction

import (
	"errors"
	"testing"

	"ReliefAuction/internal/events"
	"ReliefAuction/internal/types"
)

func TestTreasury_AddAndSet(t *testing.T) {
	f := newFixture(t, nil)
	treasuryZ := types.DeriveAddress("test/treasury-z")

	index, err := f.engine.AddTreasuryAddress(f.ctx, owner, treasuryZ)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if index != 2 {
		t.Errorf("index = %d, want 2", index)
	}

	if err := f.engine.SetTreasuryAddress(f.ctx, owner, 0, treasuryZ); err != nil {
		t.Fatalf("set: %v", err)
	}

	list := f.engine.TreasuryAddresses(f.ctx)
	if len(list) != 3 || list[0] != treasuryZ || list[1] != treasuryY || list[2] != treasuryZ {
		t.Errorf("registry = %v", list)
	}

	updates := f.events.kinds(events.KindTreasuryUpdated)
	last := updates[len(updates)-1]
	if last.Index != 0 || last.Counterparty != treasuryZ {
		t.Errorf("last update = %+v", last)
	}
}

func TestTreasury_Rejections(t *testing.T) {
	f := newFixture(t, nil)

	if _, err := f.engine.AddTreasuryAddress(f.ctx, alice, carol); !errors.Is(err, ErrNotOwner) {
		t.Errorf("add by non-owner: expected ErrNotOwner, got %v", err)
	}

	if err := f.engine.SetTreasuryAddress(f.ctx, alice, 0, carol); !errors.Is(err, ErrNotOwner) {
		t.Errorf("set by non-owner: expected ErrNotOwner, got %v", err)
	}

	if err := f.engine.SetTreasuryAddress(f.ctx, owner, 9, carol); !errors.Is(err, ErrUnknownTreasury) {
		t.Errorf("set out of range: expected ErrUnknownTreasury, got %v", err)
	}

	if _, err := f.engine.AddTreasuryAddress(f.ctx, owner, types.ZeroAddress); !errors.Is(err, ErrZeroAddress) {
		t.Errorf("add zero: expected ErrZeroAddress, got %v", err)
	}

	if got := len(f.engine.TreasuryAddresses(f.ctx)); got != 2 {
		t.Errorf("registry length = %d, want 2", got)
	}
}

func TestTreasuryAddresses_ReturnsCopy(t *testing.T) {
	f := newFixture(t, nil)

	list := f.engine.TreasuryAddresses(f.ctx)
	list[0] = carol

	if got := f.engine.TreasuryAddresses(f.ctx)[0]; got != treasuryX {
		t.Errorf("registry aliased by caller: %s", got.Short())
	}
}

func TestParseRoutePolicy(t *testing.T) {
	p, err := ParseRoutePolicy("collectible")
	if err != nil || p.String() != "collectible" {
		t.Errorf("collectible: %v, %v", p, err)
	}

	p, err = ParseRoutePolicy("fixed:3")
	if err != nil {
		t.Fatalf("fixed: %v", err)
	}

	if fixed, ok := p.(RouteFixed); !ok || fixed.Index != 3 || p.String() != "fixed:3" {
		t.Errorf("fixed:3 parsed as %v", p)
	}

	for _, bad := range []string{"fixed:", "fixed:-1", "round-robin"} {
		if _, err := ParseRoutePolicy(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t, nil)
	governor := types.DeriveAddress("test/governor")

	if err := f.engine.TransferOwnership(f.ctx, alice, governor); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("by non-owner: expected ErrNotOwner, got %v", err)
	}

	if err := f.engine.TransferOwnership(f.ctx, owner, types.ZeroAddress); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("to zero: expected ErrZeroAddress, got %v", err)
	}

	if err := f.engine.TransferOwnership(f.ctx, owner, governor); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if got := f.engine.Owner(f.ctx); got != governor {
		t.Errorf("owner = %s, want governor", got.Short())
	}

	if _, err := f.engine.MintAndAuction(f.ctx, owner, []string{"u"}, []uint32{0}); !errors.Is(err, ErrNotOwner) {
		t.Errorf("previous owner still mints: %v", err)
	}

	if _, err := f.engine.MintAndAuction(f.ctx, governor, []string{"u"}, []uint32{0}); err != nil {
		t.Errorf("governor mint: %v", err)
	}

	evs := f.events.kinds(events.KindOwnershipTransferred)
	if len(evs) != 1 || evs[0].Actor != owner || evs[0].Counterparty != governor {
		t.Errorf("unexpected ownership events: %+v", evs)
	}
}
