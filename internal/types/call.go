package types

import (
	flatbuffers "github.com/google/flatbuffers/go"
)

// Call is a signed request to execute one engine or token method.
type Call struct {
	_tab flatbuffers.Table
}

// GetRootAsCall reads the root Call table of buf.
func GetRootAsCall(buf []byte, offset flatbuffers.UOffsetT) *Call {
	n := flatbuffers.GetUOffsetT(buf[offset:])
	x := &Call{}
	x.Init(buf, n+offset)
	return x
}

// Init points the accessor at position i of buf.
func (rcv *Call) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

// Table returns the underlying table.
func (rcv *Call) Table() flatbuffers.Table {
	return rcv._tab
}

func (rcv *Call) HashBytes() []byte {
	return byteField(&rcv._tab, 4)
}

func (rcv *Call) SenderBytes() []byte {
	return byteField(&rcv._tab, 6)
}

func (rcv *Call) SignatureBytes() []byte {
	return byteField(&rcv._tab, 8)
}

func (rcv *Call) Nonce() uint64 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(10))
	if o != 0 {
		return rcv._tab.GetUint64(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Call) Method() []byte {
	return byteField(&rcv._tab, 12)
}

func (rcv *Call) ArgsBytes() []byte {
	return byteField(&rcv._tab, 14)
}

func CallStart(builder *flatbuffers.Builder) {
	builder.StartObject(6)
}

func CallAddHash(builder *flatbuffers.Builder, hash flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(0, hash, 0)
}

func CallAddSender(builder *flatbuffers.Builder, sender flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(1, sender, 0)
}

func CallAddSignature(builder *flatbuffers.Builder, signature flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(2, signature, 0)
}

func CallAddNonce(builder *flatbuffers.Builder, nonce uint64) {
	builder.PrependUint64Slot(3, nonce, 0)
}

func CallAddMethod(builder *flatbuffers.Builder, method flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(4, method, 0)
}

func CallAddArgs(builder *flatbuffers.Builder, args flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(5, args, 0)
}

func CallEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}

// byteField returns the byte vector (or string bytes) stored at vtable slot off.
func byteField(tab *flatbuffers.Table, off flatbuffers.VOffsetT) []byte {
	o := flatbuffers.UOffsetT(tab.Offset(off))
	if o != 0 {
		return tab.ByteVector(o + tab.Pos)
	}
	return nil
}
