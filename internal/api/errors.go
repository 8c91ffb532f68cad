package api

import (
	"errors"
	"net/http"

	"ReliefAuction/internal/auction"
	"ReliefAuction/internal/calls"
	"ReliefAuction/internal/genesis"
	"ReliefAuction/internal/governance"
	"ReliefAuction/internal/token"
)

// statusFor maps a call failure to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, calls.ErrInvalidCall),
		errors.Is(err, calls.ErrUnknownMethod),
		errors.Is(err, calls.ErrBadArgs),
		errors.Is(err, auction.ErrValue):
		return http.StatusBadRequest

	case errors.Is(err, auction.ErrUnauthorized),
		errors.Is(err, token.ErrNotMinter),
		errors.Is(err, governance.ErrQuorum),
		errors.Is(err, governance.ErrCertificate):
		return http.StatusForbidden

	case errors.Is(err, calls.ErrBadNonce),
		errors.Is(err, auction.ErrState):
		return http.StatusConflict

	case errors.Is(err, auction.ErrFunds),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance),
		errors.Is(err, token.ErrOverflow):
		return http.StatusUnprocessableEntity

	case errors.Is(err, genesis.ErrFaucetCooldown):
		return http.StatusTooManyRequests

	default:
		return http.StatusInternalServerError
	}
}

// writeFailure writes err with its mapped status.
func writeFailure(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}
