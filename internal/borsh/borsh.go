// Package borsh reads and writes the little-endian Borsh layout used for call
// arguments and stored records: fixed-width integers, u32-length-prefixed
// byte vectors and strings, and 32-byte addresses.
package borsh

import (
	"encoding/binary"
	"errors"
	"fmt"

	"ReliefAuction/internal/types"
)

// ErrShort is returned when the input ends before a field.
var ErrShort = errors.New("borsh: unexpected end of input")

// maxVecLen bounds decoded vector lengths.
const maxVecLen = 1 << 20

// Writer appends Borsh-encoded fields to a buffer.
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with capacity hint n.
func NewWriter(n int) *Writer {
	return &Writer{buf: make([]byte, 0, n)}
}

// Bytes returns the encoded buffer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) U8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.U8(1)
	}
	return w.U8(0)
}

func (w *Writer) U32(v uint32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

func (w *Writer) U64(v uint64) *Writer {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

func (w *Writer) I64(v int64) *Writer {
	return w.U64(uint64(v))
}

// Vec writes a u32 length prefix followed by b.
func (w *Writer) Vec(b []byte) *Writer {
	w.U32(uint32(len(b)))
	w.buf = append(w.buf, b...)
	return w
}

func (w *Writer) Text(s string) *Writer {
	return w.Vec([]byte(s))
}

// Address writes the 32 raw bytes of a.
func (w *Writer) Address(a types.Address) *Writer {
	w.buf = append(w.buf, a[:]...)
	return w
}

// Reader decodes Borsh fields in order. The first failure sticks: later reads
// return zero values and Err reports it.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader creates a reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first decoding error.
func (r *Reader) Err() error {
	return r.err
}

// Finish returns the first decoding error, or an error if input remains.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}

	if r.off != len(r.data) {
		return fmt.Errorf("borsh: %d trailing bytes", len(r.data)-r.off)
	}

	return nil
}

// take returns the next n bytes.
func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}

	if n < 0 || len(r.data)-r.off < n {
		r.err = ErrShort
		return nil
	}

	b := r.data[r.off : r.off+n]
	r.off += n

	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool {
	return r.U8() != 0
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) I64() int64 {
	return int64(r.U64())
}

// Vec reads a u32-length-prefixed byte vector. The result is a copy.
func (r *Reader) Vec() []byte {
	n := r.U32()
	if r.err != nil {
		return nil
	}

	if n > maxVecLen {
		r.err = fmt.Errorf("borsh: vector length %d exceeds limit", n)
		return nil
	}

	b := r.take(int(n))
	if b == nil {
		return nil
	}

	return append([]byte{}, b...)
}

func (r *Reader) Text() string {
	return string(r.Vec())
}

// Address reads 32 raw bytes.
func (r *Reader) Address() types.Address {
	var a types.Address
	copy(a[:], r.take(types.AddressSize))
	return a
}
