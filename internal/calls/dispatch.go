package calls

import (
	"context"
	"errors"
	"fmt"

	"ReliefAuction/internal/auction"
	"ReliefAuction/internal/borsh"
	"ReliefAuction/internal/logger"
	"ReliefAuction/internal/metrics"
	"ReliefAuction/internal/token"
	"ReliefAuction/internal/types"
)

var (
	// ErrInvalidCall is returned for envelopes that fail validation.
	ErrInvalidCall = errors.New("invalid call")

	// ErrUnknownMethod is returned for unrecognized method names.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrBadArgs is returned when arguments do not decode for the method.
	ErrBadArgs = errors.New("malformed arguments")
)

// Result carries the return values of a call.
type Result struct {
	Method string   `json:"method"`
	IDs    []uint64 `json:"ids,omitempty"`    // IDs are the collectibles minted
	Amount uint64   `json:"amount,omitempty"` // Amount is the refund paid by withdraw
	Index  uint32   `json:"index"`            // Index is the treasury slot added
}

// Dispatcher executes calls against the engine and the token ledgers.
type Dispatcher struct {
	engine *auction.Engine
	reward *token.Ledger
	native *token.Ledger
	nonces *Nonces
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(engine *auction.Engine, reward, native *token.Ledger, nonces *Nonces) *Dispatcher {
	return &Dispatcher{
		engine: engine,
		reward: reward,
		native: native,
		nonces: nonces,
	}
}

// Submit validates an encoded call, consumes its nonce and executes it.
// The nonce stays consumed when the operation itself is rejected, so a
// failed call cannot be replayed later.
func (d *Dispatcher) Submit(ctx context.Context, data []byte) (Call, Result, error) {
	c, err := Parse(data)
	if err != nil {
		metrics.CallRejected("invalid")
		return Call{}, Result{}, fmt.Errorf("%w: %v", ErrInvalidCall, err)
	}

	if err := d.nonces.Use(ctx, c.Sender, c.Nonce); err != nil {
		metrics.CallRejected(c.Method)
		return c, Result{}, err
	}

	res, err := d.Execute(ctx, c.Sender, c.Method, c.Args)

	return c, res, err
}

// Execute runs method with args on caller's authority.
func (d *Dispatcher) Execute(ctx context.Context, caller types.Address, method string, args []byte) (Result, error) {
	res, err := d.execute(ctx, caller, method, args)
	if err != nil {
		metrics.CallRejected(method)
		return Result{}, err
	}

	metrics.CallAccepted(method)
	logger.Debug("call executed", "method", method, "caller", caller.Short())

	res.Method = method

	return res, nil
}

// execute decodes args and invokes the operation.
func (d *Dispatcher) execute(ctx context.Context, caller types.Address, method string, args []byte) (Result, error) {
	r := borsh.NewReader(args)
	var res Result

	var op func() error
	switch method {
	case MethodMintAndAuction:
		uris, targets, err := decodeMintAndAuction(r)
		if err != nil {
			return res, fmt.Errorf("%w: %v", ErrBadArgs, err)
		}
		op = func() (err error) {
			res.IDs, err = d.engine.MintAndAuction(ctx, caller, uris, targets)
			return err
		}

	case MethodBid:
		id, amount := r.U64(), r.U64()
		op = func() error { return d.engine.Bid(ctx, caller, id, amount) }

	case MethodWithdraw:
		op = func() (err error) {
			res.Amount, err = d.engine.Withdraw(ctx, caller)
			return err
		}

	case MethodClaim:
		id := r.U64()
		op = func() error { return d.engine.ClaimNFT(ctx, caller, id) }

	case MethodForceEnd:
		id := r.U64()
		op = func() error { return d.engine.ForceEndAuction(ctx, caller, id) }

	case MethodTransferWithFee:
		from, to, id, fee := r.Address(), r.Address(), r.U64(), r.U64()
		op = func() error { return d.engine.TransferWithFee(ctx, caller, from, to, id, fee) }

	case MethodApprove:
		to, id := r.Address(), r.U64()
		op = func() error { return d.engine.Approve(ctx, caller, to, id) }

	case MethodSetApprovalForAll:
		operator, approved := r.Address(), r.Bool()
		op = func() error { return d.engine.SetApprovalForAll(ctx, caller, operator, approved) }

	case MethodAddTreasury:
		addr := r.Address()
		op = func() (err error) {
			res.Index, err = d.engine.AddTreasuryAddress(ctx, caller, addr)
			return err
		}

	case MethodSetTreasury:
		index, addr := r.U32(), r.Address()
		op = func() error { return d.engine.SetTreasuryAddress(ctx, caller, index, addr) }

	case MethodTransferOwnership:
		next := r.Address()
		op = func() error { return d.engine.TransferOwnership(ctx, caller, next) }

	case MethodRewardApprove:
		spender, amount := r.Address(), r.U64()
		op = func() error { return d.reward.Approve(ctx, caller, spender, amount) }

	case MethodRewardTransfer:
		to, amount := r.Address(), r.U64()
		op = func() error { return d.reward.Transfer(ctx, caller, to, amount) }

	case MethodNativeTransfer:
		to, amount := r.Address(), r.U64()
		op = func() error { return d.native.Transfer(ctx, caller, to, amount) }

	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	if err := r.Finish(); err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrBadArgs, method, err)
	}

	if err := op(); err != nil {
		return Result{}, err
	}

	return res, nil
}
