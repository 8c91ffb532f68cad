package types

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// AddressSize is the size of an account address in bytes.
const AddressSize = 32

// Address identifies an account. User accounts are Ed25519 public keys;
// protocol accounts (engine custody, governing body) are blake3-derived.
type Address [AddressSize]byte

// ZeroAddress is the empty address, used for "no bidder" and "no approval".
var ZeroAddress Address

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String returns the full hex encoding of the address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// Short returns the first 8 bytes in hex, for logs.
func (a Address) Short() string {
	return hex.EncodeToString(a[:8])
}

// MarshalText encodes the address as hex.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a hex address.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}

	*a = parsed

	return nil
}

// ParseAddress decodes a 64-character hex string.
func ParseAddress(s string) (Address, error) {
	var a Address

	raw, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("decode address: %w", err)
	}

	if len(raw) != AddressSize {
		return a, fmt.Errorf("invalid address length: got %d, want %d", len(raw), AddressSize)
	}

	copy(a[:], raw)

	return a, nil
}

// AddressFromBytes copies b into an Address. Returns false if b has the wrong length.
func AddressFromBytes(b []byte) (Address, bool) {
	var a Address
	if len(b) != AddressSize {
		return a, false
	}

	copy(a[:], b)

	return a, true
}

// DeriveAddress computes blake3(domain || parts...) as a protocol address.
func DeriveAddress(domain string, parts ...[]byte) Address {
	h := blake3.New()
	h.Write([]byte(domain))

	for _, p := range parts {
		h.Write(p)
	}

	var a Address
	h.Sum(a[:0])

	return a
}
