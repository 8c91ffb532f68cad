package auction

import (
	"encoding/binary"
	"fmt"

	"ReliefAuction/internal/borsh"
	"ReliefAuction/internal/events"
	"ReliefAuction/internal/storage"
	"ReliefAuction/internal/types"
)

// Storage key layout. Ids are big-endian so prefix scans return them in order.
//
//	a:<id>                 -> auction
//	c:<id>                 -> collectible
//	r:<addr>               -> u64 refund balance (absent when zero)
//	o:<holder><operator>   -> u8 1 (absent when not approved)
//	t:                     -> u32 count + addresses
//	m:owner                -> address
//	m:next                 -> u64 next collectible id
//	m:seq                  -> u64 sequence of the last published event
var (
	prefixAuction     = []byte("a:")
	prefixCollectible = []byte("c:")
	prefixRefund      = []byte("r:")
	prefixOperator    = []byte("o:")
	keyTreasury       = []byte("t:")
	keyOwner          = []byte("m:owner")
	keyNextID         = []byte("m:next")
	keyEventSeq       = []byte("m:seq")
)

func idKey(prefix []byte, id uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, prefix...), id)
}

func addrKey(prefix []byte, parts ...types.Address) []byte {
	key := append([]byte{}, prefix...)
	for _, a := range parts {
		key = append(key, a[:]...)
	}
	return key
}

func encodeAuction(a Auction) []byte {
	return borsh.NewWriter(64).
		Address(a.HighestBidder).
		U64(a.HighestBid).
		I64(a.StartTime).
		Bool(a.Ended).
		U8(uint8(a.EndMethod)).
		Bytes()
}

func decodeAuction(id uint64, data []byte) (Auction, error) {
	r := borsh.NewReader(data)
	a := Auction{
		ID:            id,
		HighestBidder: r.Address(),
		HighestBid:    r.U64(),
		StartTime:     r.I64(),
		Ended:         r.Bool(),
		EndMethod:     events.EndMethod(r.U8()),
	}

	return a, r.Finish()
}

func encodeCollectible(c Collectible) []byte {
	return borsh.NewWriter(100 + len(c.URI)).
		Address(c.Holder).
		Address(c.Approved).
		U32(c.TreasuryIndex).
		Text(c.URI).
		Bytes()
}

func decodeCollectible(id uint64, data []byte) (Collectible, error) {
	r := borsh.NewReader(data)
	c := Collectible{ID: id}
	c.Holder = r.Address()
	c.Approved = r.Address()
	c.TreasuryIndex = r.U32()
	c.URI = r.Text()

	return c, r.Finish()
}

func encodeTreasury(list []types.Address) []byte {
	w := borsh.NewWriter(4 + len(list)*types.AddressSize).U32(uint32(len(list)))
	for _, a := range list {
		w.Address(a)
	}
	return w.Bytes()
}

func decodeTreasury(data []byte) ([]types.Address, error) {
	r := borsh.NewReader(data)
	n := r.U32()

	if int(n)*types.AddressSize > len(data) {
		return nil, fmt.Errorf("treasury count %d exceeds data", n)
	}

	list := make([]types.Address, 0, n)
	for i := uint32(0); i < n; i++ {
		list = append(list, r.Address())
	}

	return list, r.Finish()
}

// Stage writes every record the current call touched.
func (e *Engine) Stage(b *storage.Batch) error {
	for id := range e.dirtyAuctions {
		a, ok := e.auctions[id]
		if !ok {
			if err := b.Delete(idKey(prefixAuction, id)); err != nil {
				return err
			}
			continue
		}

		if err := b.Set(idKey(prefixAuction, id), encodeAuction(a)); err != nil {
			return err
		}
	}

	for id := range e.dirtyCollectibles {
		c, ok := e.collectibles[id]
		if !ok {
			if err := b.Delete(idKey(prefixCollectible, id)); err != nil {
				return err
			}
			continue
		}

		if err := b.Set(idKey(prefixCollectible, id), encodeCollectible(c)); err != nil {
			return err
		}
	}

	for a := range e.dirtyRefunds {
		key := addrKey(prefixRefund, a)

		var err error
		if v := e.refunds[a]; v == 0 {
			err = b.Delete(key)
		} else {
			err = b.Set(key, borsh.NewWriter(8).U64(v).Bytes())
		}
		if err != nil {
			return err
		}
	}

	for k := range e.dirtyOperators {
		key := addrKey(prefixOperator, k.holder, k.operator)

		var err error
		if e.operators[k] {
			err = b.Set(key, []byte{1})
		} else {
			err = b.Delete(key)
		}
		if err != nil {
			return err
		}
	}

	if e.dirtyTreasury {
		if err := b.Set(keyTreasury, encodeTreasury(e.treasury)); err != nil {
			return err
		}
	}

	if e.dirtyMeta {
		if err := b.Set(keyOwner, e.owner[:]); err != nil {
			return err
		}

		if err := b.Set(keyNextID, borsh.NewWriter(8).U64(e.nextID).Bytes()); err != nil {
			return err
		}
	}

	// Calls are serialized and only the engine publishes, so the bus
	// sequence after this call's events is known before they are published.
	if len(e.pending) > 0 && e.bus != nil {
		seq := e.bus.Seq() + uint64(len(e.pending))
		if err := b.Set(keyEventSeq, borsh.NewWriter(8).U64(seq).Bytes()); err != nil {
			return err
		}
	}

	return nil
}

// LoadEventSeq returns the sequence of the last event published before
// shutdown, so a restarted bus continues numbering after it.
func LoadEventSeq(db *storage.Storage) (uint64, error) {
	data, err := db.Get(keyEventSeq)
	if err != nil {
		return 0, fmt.Errorf("load event sequence:\n%w", err)
	}

	if data == nil {
		return 0, nil
	}

	r := borsh.NewReader(data)
	seq := r.U64()

	return seq, r.Finish()
}

// Load replaces the in-memory engine state with the state stored in db.
// Returns false when db holds no engine state (first boot); the configured
// owner is kept in that case.
func (e *Engine) Load(db *storage.Storage) (bool, error) {
	owner, err := db.Get(keyOwner)
	if err != nil {
		return false, fmt.Errorf("load owner:\n%w", err)
	}

	if owner == nil {
		return false, nil
	}

	a, ok := types.AddressFromBytes(owner)
	if !ok {
		return false, fmt.Errorf("malformed owner entry")
	}

	clear(e.auctions)
	clear(e.collectibles)
	clear(e.refunds)
	clear(e.operators)
	e.owner = a
	e.nextID = 0
	e.treasury = nil

	if err := e.loadRecords(db); err != nil {
		return false, err
	}

	return true, nil
}

// loadRecords reads every engine key family.
func (e *Engine) loadRecords(db *storage.Storage) error {
	next, err := db.Get(keyNextID)
	if err != nil {
		return fmt.Errorf("load next id:\n%w", err)
	}
	if len(next) == 8 {
		e.nextID = binary.LittleEndian.Uint64(next)
	}

	treasury, err := db.Get(keyTreasury)
	if err != nil {
		return fmt.Errorf("load treasury:\n%w", err)
	}
	if treasury != nil {
		if e.treasury, err = decodeTreasury(treasury); err != nil {
			return fmt.Errorf("decode treasury:\n%w", err)
		}
	}

	err = db.IteratePrefix(prefixAuction, func(key, value []byte) error {
		id, err := idFromKey(key, prefixAuction)
		if err != nil {
			return err
		}

		a, err := decodeAuction(id, value)
		if err != nil {
			return fmt.Errorf("decode auction %d:\n%w", id, err)
		}

		e.auctions[id] = a

		return nil
	})
	if err != nil {
		return fmt.Errorf("load auctions:\n%w", err)
	}

	err = db.IteratePrefix(prefixCollectible, func(key, value []byte) error {
		id, err := idFromKey(key, prefixCollectible)
		if err != nil {
			return err
		}

		c, err := decodeCollectible(id, value)
		if err != nil {
			return fmt.Errorf("decode collectible %d:\n%w", id, err)
		}

		e.collectibles[id] = c

		return nil
	})
	if err != nil {
		return fmt.Errorf("load collectibles:\n%w", err)
	}

	err = db.IteratePrefix(prefixRefund, func(key, value []byte) error {
		a, ok := types.AddressFromBytes(key[len(prefixRefund):])
		if !ok || len(value) != 8 {
			return fmt.Errorf("malformed refund entry %x", key)
		}

		e.refunds[a] = binary.LittleEndian.Uint64(value)

		return nil
	})
	if err != nil {
		return fmt.Errorf("load refunds:\n%w", err)
	}

	err = db.IteratePrefix(prefixOperator, func(key, _ []byte) error {
		raw := key[len(prefixOperator):]
		if len(raw) != 2*types.AddressSize {
			return fmt.Errorf("malformed operator entry %x", key)
		}

		var k operatorKey
		copy(k.holder[:], raw[:types.AddressSize])
		copy(k.operator[:], raw[types.AddressSize:])
		e.operators[k] = true

		return nil
	})
	if err != nil {
		return fmt.Errorf("load operators:\n%w", err)
	}

	return nil
}

func idFromKey(key, prefix []byte) (uint64, error) {
	if len(key) != len(prefix)+8 {
		return 0, fmt.Errorf("malformed key %x", key)
	}

	return binary.BigEndian.Uint64(key[len(prefix):]), nil
}
