package events

import (
	"encoding/json"
	"testing"

	"ReliefAuction/internal/types"
)

func TestEncodeDecode_AuctionEnded(t *testing.T) {
	ev := Event{
		Seq:         9,
		Kind:        KindAuctionEnded,
		Collectible: 3,
		Actor:       types.DeriveAddress("test", []byte("bob")),
		Amount:      1500,
		Method:      EndClaim,
		Time:        1_700_000_000,
	}

	got, err := Decode(Encode(ev))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got != ev {
		t.Errorf("got %+v, want %+v", got, ev)
	}
}

func TestEncodeDecode_KeepsURI(t *testing.T) {
	ev := Event{Kind: KindCollectibleMinted, Collectible: 1, URI: "ipfs://uri1", Index: 2}

	got, err := Decode(Encode(ev))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if got.URI != "ipfs://uri1" || got.Index != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestDecode_Garbage(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short data")
	}
}

func TestBus_NumbersAndDelivers(t *testing.T) {
	bus := NewBus(10)

	var got []Event
	unsubscribe := bus.Subscribe(func(ev Event) { got = append(got, ev) })

	bus.Publish(Event{Kind: KindBidPlaced}, Event{Kind: KindWithdrawal})

	if len(got) != 2 || got[0].Seq != 11 || got[1].Seq != 12 {
		t.Fatalf("got %+v", got)
	}

	unsubscribe()
	bus.Publish(Event{Kind: KindBidPlaced})

	if len(got) != 2 {
		t.Errorf("delivered after unsubscribe: %d events", len(got))
	}

	if bus.Seq() != 13 {
		t.Errorf("Seq = %d, want 13", bus.Seq())
	}
}

func TestBus_SinceIsBounded(t *testing.T) {
	bus := NewBus(0)
	bus.limit = 3

	for i := 0; i < 5; i++ {
		bus.Publish(Event{Kind: KindBidPlaced})
	}

	tail := bus.Since(0)
	if len(tail) != 3 || tail[0].Seq != 3 {
		t.Errorf("tail = %+v", tail)
	}

	if len(bus.Since(4)) != 1 {
		t.Errorf("Since(4) = %d events, want 1", len(bus.Since(4)))
	}
}

func TestKindAndMethodNames(t *testing.T) {
	if KindAuctionEnded.String() != "auction_ended" || EndForce.String() != "forceEnd" {
		t.Error("unexpected names")
	}
}

func TestEvent_JSONNames(t *testing.T) {
	in := Event{Seq: 4, Kind: KindAuctionEnded, Collectible: 2, Amount: 900, Method: EndClaim}

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var out Event
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}

	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}

	if err := json.Unmarshal([]byte(`{"kind":"bogus"}`), &out); err == nil {
		t.Error("expected error for unknown kind")
	}
}
