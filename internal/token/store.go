package token

import (
	"encoding/binary"
	"fmt"

	"ReliefAuction/internal/storage"
	"ReliefAuction/internal/types"
)

// Storage key layout, per ledger name:
//
//	b:<name>:<addr>            -> u64 balance
//	l:<name>:<owner><spender>  -> u64 allowance
//	s:<name>                   -> u64 total supply

func (l *Ledger) balanceKey(a types.Address) []byte {
	return append([]byte("b:"+l.name+":"), a[:]...)
}

func (l *Ledger) allowanceKey(k allowanceKey) []byte {
	key := append([]byte("l:"+l.name+":"), k.owner[:]...)
	return append(key, k.spender[:]...)
}

func (l *Ledger) supplyKey() []byte {
	return []byte("s:" + l.name)
}

// Stage writes dirty balances, allowances and supply. Zero values are deleted.
func (l *Ledger) Stage(b *storage.Batch) error {
	for a := range l.dirtyBalances {
		if err := stageAmount(b, l.balanceKey(a), l.balances[a]); err != nil {
			return err
		}
	}

	for k := range l.dirtyAllowances {
		if err := stageAmount(b, l.allowanceKey(k), l.allowances[k]); err != nil {
			return err
		}
	}

	if l.dirtySupply {
		return b.Set(l.supplyKey(), encodeAmount(l.supply))
	}

	return nil
}

// Committed clears the dirty sets.
func (l *Ledger) Committed() {
	l.clearDirty()
}

// Discarded clears the dirty sets; the values were already restored by the undo log.
func (l *Ledger) Discarded() {
	l.clearDirty()
}

func (l *Ledger) clearDirty() {
	clear(l.dirtyBalances)
	clear(l.dirtyAllowances)
	l.dirtySupply = false
}

// stageAmount sets key to v, or deletes it when v is zero.
func stageAmount(b *storage.Batch, key []byte, v uint64) error {
	if v == 0 {
		return b.Delete(key)
	}

	return b.Set(key, encodeAmount(v))
}

// Load replaces the in-memory ledger with the state stored in db.
func (l *Ledger) Load(db *storage.Storage) error {
	clear(l.balances)
	clear(l.allowances)
	l.supply = 0

	balancePrefix := []byte("b:" + l.name + ":")
	err := db.IteratePrefix(balancePrefix, func(key, value []byte) error {
		a, ok := types.AddressFromBytes(key[len(balancePrefix):])
		if !ok || len(value) != 8 {
			return fmt.Errorf("malformed balance entry %q", key)
		}

		l.balances[a] = binary.LittleEndian.Uint64(value)

		return nil
	})
	if err != nil {
		return fmt.Errorf("load balances:\n%w", err)
	}

	allowancePrefix := []byte("l:" + l.name + ":")
	err = db.IteratePrefix(allowancePrefix, func(key, value []byte) error {
		raw := key[len(allowancePrefix):]
		if len(raw) != 2*types.AddressSize || len(value) != 8 {
			return fmt.Errorf("malformed allowance entry %q", key)
		}

		var k allowanceKey
		copy(k.owner[:], raw[:types.AddressSize])
		copy(k.spender[:], raw[types.AddressSize:])
		l.allowances[k] = binary.LittleEndian.Uint64(value)

		return nil
	})
	if err != nil {
		return fmt.Errorf("load allowances:\n%w", err)
	}

	supply, err := db.Get(l.supplyKey())
	if err != nil {
		return fmt.Errorf("load supply:\n%w", err)
	}

	if len(supply) == 8 {
		l.supply = binary.LittleEndian.Uint64(supply)
	}

	return nil
}
