// Package snapshot exports and restores the complete ledger state: engine
// registries, token ledgers and call nonces. A snapshot is a FlatBuffers
// Snapshot table of sorted key/value entries with a blake3 checksum,
// compressed with zstd for transport.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"ReliefAuction/internal/storage"
	"ReliefAuction/internal/types"
)

const (
	// snapshotVersion is the current snapshot format version.
	snapshotVersion = 1
)

// entry is one stored key/value pair.
type entry struct {
	key   []byte
	value []byte
}

// Info summarizes a snapshot.
type Info struct {
	Version  uint32   `json:"version"`
	Entries  int      `json:"entries"`
	Checksum [32]byte `json:"-"`
}

// Create captures every key of db. Storage iterates in key order, so the
// entries are already sorted.
func Create(db *storage.Storage) ([]byte, error) {
	var entries []entry

	err := db.Iterate(func(key, value []byte) error {
		entries = append(entries, entry{
			key:   append([]byte{}, key...),
			value: append([]byte{}, value...),
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect entries:\n%w", err)
	}

	return build(entries), nil
}

// build creates the FlatBuffers snapshot with checksum.
func build(entries []entry) []byte {
	checksum := computeChecksum(snapshotVersion, entries)

	builder := flatbuffers.NewBuilder(1024)

	offsets := make([]flatbuffers.UOffsetT, len(entries))
	for i, e := range entries {
		keyOffset := builder.CreateByteVector(e.key)
		valueOffset := builder.CreateByteVector(e.value)

		types.SnapshotEntryStart(builder)
		types.SnapshotEntryAddKey(builder, keyOffset)
		types.SnapshotEntryAddValue(builder, valueOffset)
		offsets[i] = types.SnapshotEntryEnd(builder)
	}

	types.SnapshotStartEntriesVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	entriesVector := builder.EndVector(len(offsets))

	checksumOffset := builder.CreateByteVector(checksum[:])

	types.SnapshotStart(builder)
	types.SnapshotAddVersion(builder, snapshotVersion)
	types.SnapshotAddChecksum(builder, checksumOffset)
	types.SnapshotAddEntries(builder, entriesVector)
	builder.Finish(types.SnapshotEnd(builder))

	return builder.FinishedBytes()
}

// computeChecksum hashes version + each (u32 key len, key, u32 value len, value).
func computeChecksum(version uint32, entries []entry) [32]byte {
	hasher := blake3.New()

	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], version)
	hasher.Write(buf[:])

	for _, e := range entries {
		binary.BigEndian.PutUint32(buf[:], uint32(len(e.key)))
		hasher.Write(buf[:])
		hasher.Write(e.key)

		binary.BigEndian.PutUint32(buf[:], uint32(len(e.value)))
		hasher.Write(buf[:])
		hasher.Write(e.value)
	}

	var checksum [32]byte
	hasher.Sum(checksum[:0])

	return checksum
}

// Compress compresses snapshot data using zstd.
func Compress(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	return encoder.EncodeAll(data, nil), nil
}

// Decompress decompresses zstd-compressed snapshot data.
func Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	return decoder.DecodeAll(data, nil)
}

// Verify parses data and checks its checksum and ordering.
func Verify(data []byte) (Info, error) {
	_, info, err := read(data)

	return info, err
}

// Apply writes the snapshot into db in one batch. db must be empty: a
// snapshot replaces state, it never merges into it.
func Apply(db *storage.Storage, data []byte) (Info, error) {
	empty, err := db.IsEmpty()
	if err != nil {
		return Info{}, fmt.Errorf("check storage:\n%w", err)
	}

	if !empty {
		return Info{}, fmt.Errorf("storage is not empty")
	}

	entries, info, err := read(data)
	if err != nil {
		return Info{}, err
	}

	batch := db.NewBatch()
	for _, e := range entries {
		if err := batch.Set(e.key, e.value); err != nil {
			batch.Discard()
			return Info{}, fmt.Errorf("stage entry:\n%w", err)
		}
	}

	if err := batch.Commit(); err != nil {
		return Info{}, fmt.Errorf("write entries:\n%w", err)
	}

	return info, nil
}

// read decodes and verifies a snapshot.
func read(data []byte) (entries []entry, info Info, retErr error) {
	// FlatBuffers panics on malformed data, recover gracefully
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("malformed snapshot data")
		}
	}()

	if len(data) < 8 {
		return nil, Info{}, fmt.Errorf("snapshot data too short")
	}

	snap := types.GetRootAsSnapshot(data, 0)

	if v := snap.Version(); v != snapshotVersion {
		return nil, Info{}, fmt.Errorf("unsupported snapshot version %d", v)
	}

	stored := snap.ChecksumBytes()
	if len(stored) != 32 {
		return nil, Info{}, fmt.Errorf("invalid checksum length: %d", len(stored))
	}

	entries = make([]entry, snap.EntriesLength())
	var fb types.SnapshotEntry

	for i := range entries {
		if !snap.Entries(&fb, i) {
			return nil, Info{}, fmt.Errorf("read entry %d", i)
		}

		entries[i] = entry{
			key:   append([]byte{}, fb.KeyBytes()...),
			value: append([]byte{}, fb.ValueBytes()...),
		}

		if i > 0 && bytes.Compare(entries[i-1].key, entries[i].key) >= 0 {
			return nil, Info{}, fmt.Errorf("entries out of order at %d", i)
		}
	}

	computed := computeChecksum(snap.Version(), entries)
	if !bytes.Equal(computed[:], stored) {
		return nil, Info{}, fmt.Errorf("checksum mismatch")
	}

	return entries, Info{Version: snap.Version(), Entries: len(entries), Checksum: computed}, nil
}
