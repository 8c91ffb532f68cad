// Package calls turns signed call envelopes into engine and token operations.
//
// A call is a FlatBuffers Call table: sender (Ed25519 public key), nonce,
// method name and Borsh arguments, plus hash = blake3(unsigned call) and an
// Ed25519 signature over the hash.
package calls

import (
	"crypto/ed25519"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/zeebo/blake3"

	"ReliefAuction/internal/types"
)

const (
	// hashSize is the expected size of a call hash.
	hashSize = 32

	// signatureSize is the expected size of an Ed25519 signature.
	signatureSize = 64

	// maxMethodLen bounds method names.
	maxMethodLen = 64

	// MaxCallSize is the maximum encoded call size in bytes.
	MaxCallSize = 64 << 10
)

// Call is a validated call envelope.
type Call struct {
	Hash   [32]byte      // Hash is blake3 of the unsigned call
	Sender types.Address // Sender is the signer's Ed25519 public key
	Nonce  uint64        // Nonce must be the sender's last nonce + 1
	Method string        // Method names the operation
	Args   []byte        // Args are Borsh-encoded arguments
}

// UnsignedBytes builds the call without hash and signature. Both the signer
// and the validator derive the hash from these bytes, so the builder order
// must not change.
func UnsignedBytes(sender types.Address, nonce uint64, method string, args []byte) []byte {
	builder := flatbuffers.NewBuilder(128 + len(args))

	argsVec := builder.CreateByteVector(args)
	senderVec := builder.CreateByteVector(sender[:])
	methodOff := builder.CreateString(method)

	types.CallStart(builder)
	types.CallAddSender(builder, senderVec)
	types.CallAddNonce(builder, nonce)
	types.CallAddMethod(builder, methodOff)
	types.CallAddArgs(builder, argsVec)
	builder.Finish(types.CallEnd(builder))

	return builder.FinishedBytes()
}

// Build signs a call with priv and returns the encoded envelope and its hash.
func Build(priv ed25519.PrivateKey, nonce uint64, method string, args []byte) ([]byte, [32]byte) {
	var sender types.Address
	copy(sender[:], priv.Public().(ed25519.PublicKey))

	hash := blake3.Sum256(UnsignedBytes(sender, nonce, method, args))
	sig := ed25519.Sign(priv, hash[:])

	builder := flatbuffers.NewBuilder(256 + len(args))

	argsVec := builder.CreateByteVector(args)
	senderVec := builder.CreateByteVector(sender[:])
	hashVec := builder.CreateByteVector(hash[:])
	sigVec := builder.CreateByteVector(sig)
	methodOff := builder.CreateString(method)

	types.CallStart(builder)
	types.CallAddHash(builder, hashVec)
	types.CallAddSender(builder, senderVec)
	types.CallAddSignature(builder, sigVec)
	types.CallAddNonce(builder, nonce)
	types.CallAddMethod(builder, methodOff)
	types.CallAddArgs(builder, argsVec)
	builder.Finish(types.CallEnd(builder))

	return builder.FinishedBytes(), hash
}

// Parse validates an encoded call: field sizes, hash and signature.
func Parse(data []byte) (c Call, retErr error) {
	// FlatBuffers panics on malformed data, recover gracefully
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("malformed call data")
		}
	}()

	if len(data) < 8 {
		return Call{}, fmt.Errorf("call data too short")
	}

	if len(data) > MaxCallSize {
		return Call{}, fmt.Errorf("call too large: %d bytes", len(data))
	}

	fb := types.GetRootAsCall(data, 0)

	if err := validateFieldSizes(fb); err != nil {
		return Call{}, err
	}

	sender, _ := types.AddressFromBytes(fb.SenderBytes())
	c = Call{
		Sender: sender,
		Nonce:  fb.Nonce(),
		Method: string(fb.Method()),
		Args:   append([]byte{}, fb.ArgsBytes()...),
	}
	copy(c.Hash[:], fb.HashBytes())

	expected := blake3.Sum256(UnsignedBytes(c.Sender, c.Nonce, c.Method, c.Args))
	if expected != c.Hash {
		return Call{}, fmt.Errorf("hash mismatch")
	}

	if !ed25519.Verify(c.Sender[:], c.Hash[:], fb.SignatureBytes()) {
		return Call{}, fmt.Errorf("invalid signature")
	}

	return c, nil
}

// validateFieldSizes checks that all fixed-size fields have the correct length.
func validateFieldSizes(fb *types.Call) error {
	if len(fb.HashBytes()) != hashSize {
		return fmt.Errorf("invalid hash size: got %d, want %d", len(fb.HashBytes()), hashSize)
	}

	if len(fb.SenderBytes()) != types.AddressSize {
		return fmt.Errorf("invalid sender size: got %d, want %d", len(fb.SenderBytes()), types.AddressSize)
	}

	if len(fb.SignatureBytes()) != signatureSize {
		return fmt.Errorf("invalid signature size: got %d, want %d", len(fb.SignatureBytes()), signatureSize)
	}

	if n := len(fb.Method()); n == 0 || n > maxMethodLen {
		return fmt.Errorf("invalid method name length: %d", n)
	}

	return nil
}
