package events

import (
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/zeebo/blake3"

	"ReliefAuction/internal/types"
)

// Encode serializes ev as a FlatBuffers Event table.
func Encode(ev Event) []byte {
	builder := flatbuffers.NewBuilder(256)

	actorVec := builder.CreateByteVector(ev.Actor[:])
	counterpartyVec := builder.CreateByteVector(ev.Counterparty[:])

	var uriOff flatbuffers.UOffsetT
	if ev.URI != "" {
		uriOff = builder.CreateString(ev.URI)
	}

	types.EventStart(builder)
	types.EventAddSeq(builder, ev.Seq)
	types.EventAddKind(builder, byte(ev.Kind))
	types.EventAddCollectible(builder, ev.Collectible)
	types.EventAddActor(builder, actorVec)
	types.EventAddCounterparty(builder, counterpartyVec)
	types.EventAddAmount(builder, ev.Amount)
	types.EventAddIndex(builder, ev.Index)
	types.EventAddMethod(builder, byte(ev.Method))
	types.EventAddTime(builder, ev.Time)
	if ev.URI != "" {
		types.EventAddUri(builder, uriOff)
	}
	offset := types.EventEnd(builder)

	builder.Finish(offset)

	return builder.FinishedBytes()
}

// Decode parses an encoded Event table.
func Decode(data []byte) (ev Event, retErr error) {
	// FlatBuffers panics on malformed data
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("malformed event data")
		}
	}()

	if len(data) < 8 {
		return Event{}, fmt.Errorf("event data too short")
	}

	fb := types.GetRootAsEvent(data, 0)

	actor, ok := types.AddressFromBytes(fb.ActorBytes())
	if !ok {
		return Event{}, fmt.Errorf("invalid actor length: %d", len(fb.ActorBytes()))
	}

	counterparty, ok := types.AddressFromBytes(fb.CounterpartyBytes())
	if !ok {
		return Event{}, fmt.Errorf("invalid counterparty length: %d", len(fb.CounterpartyBytes()))
	}

	return Event{
		Seq:          fb.Seq(),
		Kind:         Kind(fb.Kind()),
		Collectible:  fb.Collectible(),
		Actor:        actor,
		Counterparty: counterparty,
		Amount:       fb.Amount(),
		Index:        fb.Index(),
		Method:       EndMethod(fb.Method()),
		Time:         fb.Time(),
		URI:          string(fb.Uri()),
	}, nil
}

// ID returns the blake3 hash of the encoded event.
func ID(data []byte) [32]byte {
	return blake3.Sum256(data)
}
