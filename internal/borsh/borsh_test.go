package borsh

import (
	"errors"
	"testing"

	"ReliefAuction/internal/types"
)

func TestWriter_Layout(t *testing.T) {
	got := NewWriter(16).U8(1).U32(2).Vec([]byte("ab")).Bytes()
	want := []byte{1, 2, 0, 0, 0, 2, 0, 0, 0, 'a', 'b'}

	if string(got) != string(want) {
		t.Fatalf("layout = %v, want %v", got, want)
	}
}

func TestReader_Fields(t *testing.T) {
	addr := types.DeriveAddress("borsh-test")
	data := NewWriter(64).U64(1500).Text("ipfs://uri").Address(addr).Bool(true).I64(-3).Bytes()

	r := NewReader(data)
	amount := r.U64()
	uri := r.Text()
	a := r.Address()
	flag := r.Bool()
	neg := r.I64()

	if err := r.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}

	if amount != 1500 || uri != "ipfs://uri" || a != addr || !flag || neg != -3 {
		t.Errorf("decoded %d %q %s %v %d", amount, uri, a.Short(), flag, neg)
	}
}

func TestReader_ShortInput(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	_ = r.U64()
	_ = r.U8()

	if !errors.Is(r.Err(), ErrShort) {
		t.Fatalf("expected ErrShort, got %v", r.Err())
	}
}

func TestReader_TrailingBytes(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_ = r.U8()

	if err := r.Finish(); err == nil {
		t.Fatal("expected trailing bytes error")
	}
}

func TestReader_VecLengthBeyondInput(t *testing.T) {
	data := NewWriter(8).U32(100).Bytes()

	r := NewReader(data)
	if b := r.Vec(); b != nil || r.Err() == nil {
		t.Fatalf("expected failure, got %v / %v", b, r.Err())
	}
}
