// Package events carries the engine's committed change notifications to
// in-process consumers (metrics, logs) and to the indexer feed.
package events

import (
	"fmt"
	"sync"

	"ReliefAuction/internal/types"
)

// Kind identifies the notification type.
type Kind uint8

const (
	KindBidPlaced Kind = iota + 1
	KindAuctionEnded
	KindWithdrawal
	KindTreasuryUpdated
	KindCollectibleMinted
	KindCollectibleTransferred
	KindOwnershipTransferred
)

// String returns the snake_case event name used in logs, metrics and JSON.
func (k Kind) String() string {
	switch k {
	case KindBidPlaced:
		return "bid_placed"
	case KindAuctionEnded:
		return "auction_ended"
	case KindWithdrawal:
		return "withdrawal"
	case KindTreasuryUpdated:
		return "treasury_updated"
	case KindCollectibleMinted:
		return "collectible_minted"
	case KindCollectibleTransferred:
		return "collectible_transferred"
	case KindOwnershipTransferred:
		return "ownership_transferred"
	default:
		return fmt.Sprintf("unknown_%d", uint8(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for c := KindBidPlaced; c <= KindOwnershipTransferred; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}

	return fmt.Errorf("unknown event kind %q", text)
}

// EndMethod records how an auction was finalized.
type EndMethod uint8

const (
	EndNone EndMethod = iota
	EndClaim
	EndForce
)

// String returns "claim" or "forceEnd".
func (m EndMethod) String() string {
	switch m {
	case EndClaim:
		return "claim"
	case EndForce:
		return "forceEnd"
	default:
		return "none"
	}
}

// MarshalText encodes the method by name.
func (m EndMethod) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a method name.
func (m *EndMethod) UnmarshalText(text []byte) error {
	switch string(text) {
	case "claim":
		*m = EndClaim
	case "forceEnd":
		*m = EndForce
	case "none", "":
		*m = EndNone
	default:
		return fmt.Errorf("unknown end method %q", text)
	}

	return nil
}

// Event is one committed change. Field meaning depends on Kind:
//
//	BidPlaced              Collectible, Actor=bidder, Amount
//	AuctionEnded           Collectible, Actor=winner (zero if none), Amount, Method
//	Withdrawal             Actor=bidder, Amount
//	TreasuryUpdated        Index, Counterparty=treasury address
//	CollectibleMinted      Collectible, Index=treasury index, URI
//	CollectibleTransferred Collectible, Actor=from, Counterparty=to, Amount=fee, Index=treasury index
//	OwnershipTransferred   Actor=previous owner, Counterparty=new owner
type Event struct {
	Seq          uint64        `json:"seq"`
	Kind         Kind          `json:"kind"`
	Collectible  uint64        `json:"collectible"`
	Actor        types.Address `json:"actor"`
	Counterparty types.Address `json:"counterparty"`
	Amount       uint64        `json:"amount"`
	Index        uint32        `json:"index"`
	Method       EndMethod     `json:"method,omitempty"`
	Time         int64         `json:"time"`
	URI          string        `json:"uri,omitempty"`
}

const (
	// defaultHistory is how many recent events the bus retains.
	defaultHistory = 1024
)

// Bus assigns sequence numbers and fans events out to subscribers.
type Bus struct {
	mu      sync.RWMutex
	seq     uint64
	nextSub int
	subs    map[int]func(Event)
	history []Event // history is a bounded tail of published events
	limit   int
}

// NewBus creates a bus continuing after seq (0 for a fresh bus).
func NewBus(seq uint64) *Bus {
	return &Bus{
		seq:   seq,
		subs:  make(map[int]func(Event)),
		limit: defaultHistory,
	}
}

// Subscribe registers fn for every future event. Handlers run synchronously
// on the publishing goroutine and must not block.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish numbers evs in order and delivers them.
func (b *Bus) Publish(evs ...Event) {
	if len(evs) == 0 {
		return
	}

	b.mu.Lock()
	for i := range evs {
		b.seq++
		evs[i].Seq = b.seq
	}

	b.history = append(b.history, evs...)
	if over := len(b.history) - b.limit; over > 0 {
		b.history = append([]Event(nil), b.history[over:]...)
	}

	handlers := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()

	for _, ev := range evs {
		for _, fn := range handlers {
			fn(ev)
		}
	}
}

// Seq returns the sequence number of the last published event.
func (b *Bus) Seq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.seq
}

// Since returns retained events with Seq > after, oldest first.
func (b *Bus) Since(after uint64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, ev := range b.history {
		if ev.Seq > after {
			out = append(out, ev)
		}
	}

	return out
}
