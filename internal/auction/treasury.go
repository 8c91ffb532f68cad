package auction

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ReliefAuction/internal/events"
	"ReliefAuction/internal/types"
)

// RoutePolicy selects which treasury receives the fee of a secondary transfer.
type RoutePolicy interface {
	// Route returns the index into treasury receiving the fee for c.
	Route(c Collectible, treasury []types.Address) (uint32, error)
	String() string
}

// RouteByCollectible routes to the treasury index recorded on the collectible at mint.
type RouteByCollectible struct{}

// Route returns c.TreasuryIndex.
func (RouteByCollectible) Route(c Collectible, treasury []types.Address) (uint32, error) {
	return checkIndex(c.TreasuryIndex, treasury)
}

func (RouteByCollectible) String() string {
	return "collectible"
}

// RouteFixed routes every fee to one treasury index.
type RouteFixed struct {
	Index uint32
}

// Route returns r.Index.
func (r RouteFixed) Route(_ Collectible, treasury []types.Address) (uint32, error) {
	return checkIndex(r.Index, treasury)
}

func (r RouteFixed) String() string {
	return "fixed:" + strconv.FormatUint(uint64(r.Index), 10)
}

// ParseRoutePolicy parses "collectible" or "fixed:<index>".
func ParseRoutePolicy(s string) (RoutePolicy, error) {
	s = strings.TrimSpace(s)

	if s == "" || s == "collectible" {
		return RouteByCollectible{}, nil
	}

	if raw, ok := strings.CutPrefix(s, "fixed:"); ok {
		index, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse fixed route index %q:\n%w", raw, err)
		}

		return RouteFixed{Index: uint32(index)}, nil
	}

	return nil, fmt.Errorf("unknown route policy %q", s)
}

// checkIndex fails when index does not name a registered treasury.
func checkIndex(index uint32, treasury []types.Address) (uint32, error) {
	if int(index) >= len(treasury) {
		return 0, fmt.Errorf("%w: index %d, %d registered", ErrNoTreasury, index, len(treasury))
	}

	return index, nil
}

// AddTreasuryAddress appends addr to the registry and returns its index.
func (e *Engine) AddTreasuryAddress(ctx context.Context, caller, addr types.Address) (uint32, error) {
	var index uint32

	err := e.run(ctx, "add_treasury", func(ctx context.Context) error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}

		if addr.IsZero() {
			return ErrZeroAddress
		}

		list := make([]types.Address, len(e.treasury), len(e.treasury)+1)
		copy(list, e.treasury)
		list = append(list, addr)

		index = uint32(len(list) - 1)
		e.setTreasury(ctx, list)

		e.emit(ctx, events.Event{
			Kind:         events.KindTreasuryUpdated,
			Index:        index,
			Counterparty: addr,
		})

		return nil
	})
	if err != nil {
		return 0, err
	}

	return index, nil
}

// SetTreasuryAddress overwrites the treasury at index.
func (e *Engine) SetTreasuryAddress(ctx context.Context, caller types.Address, index uint32, addr types.Address) error {
	return e.run(ctx, "set_treasury", func(ctx context.Context) error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}

		if int(index) >= len(e.treasury) {
			return fmt.Errorf("%w: index %d, %d registered", ErrUnknownTreasury, index, len(e.treasury))
		}

		if addr.IsZero() {
			return ErrZeroAddress
		}

		list := append([]types.Address(nil), e.treasury...)
		list[index] = addr
		e.setTreasury(ctx, list)

		e.emit(ctx, events.Event{
			Kind:         events.KindTreasuryUpdated,
			Index:        index,
			Counterparty: addr,
		})

		return nil
	})
}

// TreasuryAddresses returns a copy of the registry.
func (e *Engine) TreasuryAddresses(ctx context.Context) []types.Address {
	var list []types.Address
	e.x.View(ctx, func() { list = append([]types.Address{}, e.treasury...) })

	return list
}
