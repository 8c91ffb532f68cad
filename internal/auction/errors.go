package auction

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the engine wraps exactly one of these,
// so callers classify failures with errors.Is.
var (
	// ErrUnauthorized: the caller lacks the capability the operation needs.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrState: the operation is not valid in the current phase.
	ErrState = errors.New("invalid state")

	// ErrValue: an argument is malformed or out of range.
	ErrValue = errors.New("invalid value")

	// ErrFunds: a balance, allowance or attached fee is too small.
	ErrFunds = errors.New("insufficient funds")
)

var (
	ErrNotOwner           = fmt.Errorf("%w: caller is not the owner", ErrUnauthorized)
	ErrNotHighestBidder   = fmt.Errorf("%w: caller is not the highest bidder", ErrUnauthorized)
	ErrNotAuthorized      = fmt.Errorf("%w: caller may not transfer this collectible", ErrUnauthorized)
	ErrAuctionNotFound    = fmt.Errorf("%w: auction not started", ErrState)
	ErrAuctionEnded       = fmt.Errorf("%w: auction already ended", ErrState)
	ErrAuctionActive      = fmt.Errorf("%w: auction still active", ErrState)
	ErrWindowOpen         = fmt.Errorf("%w: auction window not elapsed", ErrState)
	ErrNoTreasury         = fmt.Errorf("%w: no treasury address for fee routing", ErrState)
	ErrBidTooLow          = fmt.Errorf("%w: bid must exceed the highest bid", ErrValue)
	ErrLengthMismatch     = fmt.Errorf("%w: metadata and treasury lists differ in length", ErrValue)
	ErrEmptyBatch         = fmt.Errorf("%w: empty mint batch", ErrValue)
	ErrUnknownTreasury    = fmt.Errorf("%w: treasury index out of range", ErrValue)
	ErrUnknownCollectible = fmt.Errorf("%w: unknown collectible", ErrValue)
	ErrZeroAddress        = fmt.Errorf("%w: zero address", ErrValue)
	ErrNotHolder          = fmt.Errorf("%w: from is not the holder", ErrValue)
	ErrOverflow           = fmt.Errorf("%w: amount overflow", ErrValue)
	ErrFeeTooLow          = fmt.Errorf("%w: attached fee below the flat transfer fee", ErrFunds)
)
