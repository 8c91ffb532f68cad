// Package governance lets the governing body drive owner-only operations.
//
// The body is a council of BLS keys. Its address (the value the engine's
// owner capability is pointed at) is derived from the member keys. A proposal
// executes when an aggregate signature over its digest verifies for a signer
// set of at least quorum members. Proposals carry a nonce tracked like any
// other sender's, so a certificate cannot be replayed.
package governance

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
	"github.com/zeebo/blake3"

	"ReliefAuction/internal/borsh"
	"ReliefAuction/internal/calls"
	"ReliefAuction/internal/logger"
	"ReliefAuction/internal/types"
)

var (
	// ErrQuorum is returned when too few members signed.
	ErrQuorum = errors.New("quorum not reached")

	// ErrCertificate is returned when the aggregate signature does not verify.
	ErrCertificate = errors.New("invalid certificate")
)

// Council is the set of member keys and the signing threshold.
type Council struct {
	raw     [][]byte         // raw are the compressed member keys, in order
	keys    []*blst.P1Affine // keys are the validated member keys
	quorum  int              // quorum is the minimum number of signers
	address types.Address    // address is the governor's owner address
}

// NewCouncil validates the member keys and the quorum.
func NewCouncil(pubkeys [][]byte, quorum int) (*Council, error) {
	if len(pubkeys) == 0 {
		return nil, fmt.Errorf("empty council")
	}

	if quorum < 1 || quorum > len(pubkeys) {
		return nil, fmt.Errorf("quorum %d out of range 1..%d", quorum, len(pubkeys))
	}

	c := &Council{quorum: quorum}

	for i, raw := range pubkeys {
		if len(raw) != PublicKeySize {
			return nil, fmt.Errorf("member %d: invalid key size %d", i, len(raw))
		}

		pk := new(blst.P1Affine).Uncompress(raw)
		if pk == nil || !pk.KeyValidate() {
			return nil, fmt.Errorf("member %d: invalid key", i)
		}

		for _, seen := range c.raw {
			if bytes.Equal(seen, raw) {
				return nil, fmt.Errorf("member %d: duplicate key", i)
			}
		}

		c.raw = append(c.raw, append([]byte{}, raw...))
		c.keys = append(c.keys, pk)
	}

	c.address = types.DeriveAddress("relief-governor", c.raw...)

	return c, nil
}

// Address returns the governor address.
func (c *Council) Address() types.Address {
	return c.address
}

// Size returns the number of members.
func (c *Council) Size() int {
	return len(c.keys)
}

// Quorum returns the signing threshold.
func (c *Council) Quorum() int {
	return c.quorum
}

// Verify checks that cert carries a quorum of valid signatures over message.
func (c *Council) Verify(message []byte, cert Certificate) error {
	if len(cert.Signers) != (len(c.keys)+7)/8 {
		return fmt.Errorf("%w: bitmap size %d", ErrCertificate, len(cert.Signers))
	}

	indices := ParseSignerBitmap(cert.Signers)

	pks := make([]*blst.P1Affine, 0, len(indices))
	for _, idx := range indices {
		if idx >= len(c.keys) {
			return fmt.Errorf("%w: signer %d outside council", ErrCertificate, idx)
		}

		pks = append(pks, c.keys[idx])
	}

	if len(pks) < c.quorum {
		return fmt.Errorf("%w: %d of %d signers", ErrQuorum, len(pks), c.quorum)
	}

	if !verifyAggregated(cert.Signature, message, pks) {
		return ErrCertificate
	}

	return nil
}

// Proposal is one owner operation approved by the council.
type Proposal struct {
	Nonce  uint64 `json:"nonce"`
	Method string `json:"method"`
	Args   []byte `json:"args"`
}

// Digest returns the message members sign for p.
func (p Proposal) Digest(governor types.Address) []byte {
	payload := borsh.NewWriter(64 + len(p.Args)).
		Address(governor).
		U64(p.Nonce).
		Text(p.Method).
		Vec(p.Args).
		Bytes()

	h := blake3.New()
	h.Write([]byte("relief-governance"))
	h.Write(payload)

	return h.Sum(nil)
}

// Certificate is the council's approval of a proposal.
type Certificate struct {
	Signers   []byte `json:"signers"`   // Signers is the member bitmap
	Signature []byte `json:"signature"` // Signature is the BLS aggregate
}

// Executor runs an operation on behalf of a caller.
type Executor interface {
	Execute(ctx context.Context, caller types.Address, method string, args []byte) (calls.Result, error)
}

// NonceTracker consumes per-sender nonces.
type NonceTracker interface {
	Use(ctx context.Context, sender types.Address, nonce uint64) error
	Next(ctx context.Context, sender types.Address) uint64
}

// Governor executes certified proposals with the council address as caller.
type Governor struct {
	council *Council
	nonces  NonceTracker
	exec    Executor
}

// NewGovernor creates a governor.
func NewGovernor(council *Council, nonces NonceTracker, exec Executor) *Governor {
	return &Governor{council: council, nonces: nonces, exec: exec}
}

// Council returns the governing council.
func (g *Governor) Council() *Council {
	return g.council
}

// NextNonce returns the nonce the next proposal must carry.
func (g *Governor) NextNonce(ctx context.Context) uint64 {
	return g.nonces.Next(ctx, g.council.Address())
}

// Execute verifies cert for p, consumes the proposal nonce and runs it.
func (g *Governor) Execute(ctx context.Context, p Proposal, cert Certificate) (calls.Result, error) {
	governor := g.council.Address()

	if err := g.council.Verify(p.Digest(governor), cert); err != nil {
		return calls.Result{}, err
	}

	if err := g.nonces.Use(ctx, governor, p.Nonce); err != nil {
		return calls.Result{}, err
	}

	logger.Info("governance proposal",
		"method", p.Method,
		"nonce", p.Nonce,
		"signers", len(ParseSignerBitmap(cert.Signers)),
	)

	return g.exec.Execute(ctx, governor, p.Method, p.Args)
}

// Certify signs p with each member key and aggregates the result. indices are
// the members' positions in the council.
func Certify(governor types.Address, p Proposal, members []*KeyPair, indices []int, total int) (Certificate, error) {
	digest := p.Digest(governor)

	sigs := make([][]byte, len(members))
	for i, k := range members {
		sigs[i] = k.Sign(digest)
	}

	agg, err := AggregateSignatures(sigs)
	if err != nil {
		return Certificate{}, err
	}

	return Certificate{
		Signers:   BuildSignerBitmap(indices, total),
		Signature: agg,
	}, nil
}
