package calls

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"ReliefAuction/internal/storage"
	"ReliefAuction/internal/txn"
	"ReliefAuction/internal/types"
)

// ErrBadNonce is returned when a call's nonce is not the sender's next nonce.
var ErrBadNonce = errors.New("bad nonce")

// prefixNonce keys n:<sender> -> u64 last used nonce.
var prefixNonce = []byte("n:")

// Nonces tracks the last nonce used by each sender. Each signed call must
// carry exactly last+1, so an envelope can never be replayed.
type Nonces struct {
	x     *txn.Executor
	last  map[types.Address]uint64
	dirty map[types.Address]struct{}
}

// NewNonces creates an empty tracker and registers it with x.
func NewNonces(x *txn.Executor) *Nonces {
	n := &Nonces{
		x:     x,
		last:  make(map[types.Address]uint64),
		dirty: make(map[types.Address]struct{}),
	}

	x.Register(n)

	return n
}

// Next returns the nonce sender must use for its next call.
func (n *Nonces) Next(ctx context.Context, sender types.Address) uint64 {
	var next uint64
	n.x.View(ctx, func() { next = n.last[sender] + 1 })

	return next
}

// Use consumes nonce for sender.
func (n *Nonces) Use(ctx context.Context, sender types.Address, nonce uint64) error {
	return n.x.Run(ctx, func(ctx context.Context) error {
		if want := n.last[sender] + 1; nonce != want {
			return fmt.Errorf("%w: got %d, want %d", ErrBadNonce, nonce, want)
		}

		txn.Put(ctx, n.x, n.last, sender, nonce)
		txn.Mark(ctx, n.x, n.dirty, sender)

		return nil
	})
}

// Stage writes the nonces used by the current call.
func (n *Nonces) Stage(b *storage.Batch) error {
	for a := range n.dirty {
		key := append(append([]byte{}, prefixNonce...), a[:]...)
		if err := b.Set(key, binary.LittleEndian.AppendUint64(nil, n.last[a])); err != nil {
			return err
		}
	}

	return nil
}

// Committed clears the dirty set.
func (n *Nonces) Committed() {
	clear(n.dirty)
}

// Discarded clears the dirty set.
func (n *Nonces) Discarded() {
	clear(n.dirty)
}

// Load replaces the tracked nonces with those stored in db.
func (n *Nonces) Load(db *storage.Storage) error {
	clear(n.last)

	return db.IteratePrefix(prefixNonce, func(key, value []byte) error {
		a, ok := types.AddressFromBytes(key[len(prefixNonce):])
		if !ok || len(value) != 8 {
			return fmt.Errorf("malformed nonce entry %x", key)
		}

		n.last[a] = binary.LittleEndian.Uint64(value)

		return nil
	})
}
