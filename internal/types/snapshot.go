package types

import (
	flatbuffers "github.com/google/flatbuffers/go"
)

// Snapshot is a checksummed dump of every stored key.
type Snapshot struct {
	_tab flatbuffers.Table
}

// GetRootAsSnapshot reads the root Snapshot table of buf.
func GetRootAsSnapshot(buf []byte, offset flatbuffers.UOffsetT) *Snapshot {
	n := flatbuffers.GetUOffsetT(buf[offset:])
	x := &Snapshot{}
	x.Init(buf, n+offset)
	return x
}

// Init points the accessor at position i of buf.
func (rcv *Snapshot) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *Snapshot) Version() uint32 {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(4))
	if o != 0 {
		return rcv._tab.GetUint32(o + rcv._tab.Pos)
	}
	return 0
}

func (rcv *Snapshot) ChecksumBytes() []byte {
	return byteField(&rcv._tab, 6)
}

// Entries loads the j-th entry into obj.
func (rcv *Snapshot) Entries(obj *SnapshotEntry, j int) bool {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(8))
	if o != 0 {
		x := rcv._tab.Vector(o)
		x += flatbuffers.UOffsetT(j) * 4
		x = rcv._tab.Indirect(x)
		obj.Init(rcv._tab.Bytes, x)
		return true
	}
	return false
}

func (rcv *Snapshot) EntriesLength() int {
	o := flatbuffers.UOffsetT(rcv._tab.Offset(8))
	if o != 0 {
		return rcv._tab.VectorLen(o)
	}
	return 0
}

func SnapshotStart(builder *flatbuffers.Builder) {
	builder.StartObject(3)
}

func SnapshotAddVersion(builder *flatbuffers.Builder, version uint32) {
	builder.PrependUint32Slot(0, version, 0)
}

func SnapshotAddChecksum(builder *flatbuffers.Builder, checksum flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(1, checksum, 0)
}

func SnapshotAddEntries(builder *flatbuffers.Builder, entries flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(2, entries, 0)
}

func SnapshotStartEntriesVector(builder *flatbuffers.Builder, numElems int) flatbuffers.UOffsetT {
	return builder.StartVector(4, numElems, 4)
}

func SnapshotEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}

// SnapshotEntry is one stored key-value pair.
type SnapshotEntry struct {
	_tab flatbuffers.Table
}

// Init points the accessor at position i of buf.
func (rcv *SnapshotEntry) Init(buf []byte, i flatbuffers.UOffsetT) {
	rcv._tab.Bytes = buf
	rcv._tab.Pos = i
}

func (rcv *SnapshotEntry) KeyBytes() []byte {
	return byteField(&rcv._tab, 4)
}

func (rcv *SnapshotEntry) ValueBytes() []byte {
	return byteField(&rcv._tab, 6)
}

func SnapshotEntryStart(builder *flatbuffers.Builder) {
	builder.StartObject(2)
}

func SnapshotEntryAddKey(builder *flatbuffers.Builder, key flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(0, key, 0)
}

func SnapshotEntryAddValue(builder *flatbuffers.Builder, value flatbuffers.UOffsetT) {
	builder.PrependUOffsetTSlot(1, value, 0)
}

func SnapshotEntryEnd(builder *flatbuffers.Builder) flatbuffers.UOffsetT {
	return builder.EndObject()
}
