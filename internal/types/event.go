package types

import (
	flatbuffers "github.com/google/flatbuffers/go"
)

// Event is a committed change notification as pushed to indexers.
type Event struct {
	_tab flatbuffers.Table
}

// GetRootAsEvent reads the root Event table of buf.
func GetRootAsEvent(buf []byte, offset flatbuffers.UOffsetT) *Event {
	n := flatbuffers.GetUOffsetT(buf[offset:])
	x := &Event{}
	x.Init(buf, n+offset)
	return x
}

// Init points the accessor at position i of buf.
func (rcv *Event) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *Event) Seq() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(4))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Event) Kind() byte {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(6))
	if o != 0 {
		return rcv._tab.GetByte(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Event) Collectible() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(8))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Event) ActorBytes() []byte {
	return byteField(&rcv._tab, 10)
}

func (rcv *Event) CounterpartyBytes() []byte {
	return byteField(&rcv._tab, 12)
}

func (rcv *Event) Amount() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(14))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Event) Index() uint32 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(16))
	if o != 0 {
		return rcv._tab.GetUint32(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Event) Method() byte {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(18))
	if o != 0 {
		return rcv._tab.GetByte(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Event) Time() int64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(20))
	if o != 0 {
		return rcv._tab.GetInt64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Event) Uri() []byte {
	return byteField(&rcv._tab, 22)
}

func EventStart(builder *flatbuffers.Builder) {
	builder.StartObject(10)
}

func EventAddSeq(builder *flatbuffers.Builder, seq uint64) {
	builder.PrependUint64Slot(0, seq, 0)
}

func EventAddKind(builder *flatbuffers.Builder, kind byte) {
	builder.PrependByteSlot(1, kind, 0)
}

func EventAddCollectible(builder *flatbuffers.Builder, collectible uint64) {
	builder.PrependUint64Slot(2, collectible, 0)
}

func EventAddActor(builder *flatbuffers.Builder, actor flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(3, actor, 0)
}

func EventAddCounterparty(builder *flatbuffers.Builder, counterparty flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(4, counterparty, 0)
}

func EventAddAmount(builder *flatbuffers.Builder, amount uint64) {
	builder.PrependUint64Slot(5, amount, 0)
}

func EventAddIndex(builder *flatbuffers.Builder, index uint32) {
	builder.PrependUint32Slot(6, index, 0)
}

func EventAddMethod(builder *flatbuffers.Builder, method byte) {
	builder.PrependByteSlot(7, method, 0)
}

func EventAddTime(builder *flatbuffers.Builder, time int64) {
	builder.PrependInt64Slot(8, time, 0)
}

func EventAddUri(builder *flatbuffers.Builder, uri flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(9, uri, 0)
}

func EventEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}
