package auction

import (
	"context"
	"fmt"

	"ReliefAuction/internal/events"
	"ReliefAuction/internal/types"
)

// creditRefund adds amount to a's withdrawable balance. Refunds are never
// pushed; the bidder pulls them with Withdraw.
func (e *Engine) creditRefund(ctx context.Context, a types.Address, amount uint64) error {
	current := e.refunds[a]

	credited := current + amount
	if credited < current {
		return fmt.Errorf("%w: refund of %s", ErrOverflow, a.Short())
	}

	e.setRefund(ctx, a, credited)

	return nil
}

// Withdraw pays out caller's refund balance and returns the amount paid.
// The balance is zeroed before the transfer. A zero balance is a no-op.
func (e *Engine) Withdraw(ctx context.Context, caller types.Address) (uint64, error) {
	var paid uint64

	err := e.run(ctx, "withdraw", func(ctx context.Context) error {
		amount := e.refunds[caller]
		if amount == 0 {
			return nil
		}

		e.setRefund(ctx, caller, 0)

		e.emit(ctx, events.Event{
			Kind:   events.KindWithdrawal,
			Actor:  caller,
			Amount: amount,
		})

		if err := e.reward.Transfer(ctx, Custody, caller, amount); err != nil {
			return tokenError("pay refund", err)
		}

		paid = amount

		return nil
	})
	if err != nil {
		return 0, err
	}

	return paid, nil
}

// WithdrawableAmount returns a's refund balance.
func (e *Engine) WithdrawableAmount(ctx context.Context, a types.Address) uint64 {
	var amount uint64
	e.x.View(ctx, func() { amount = e.refunds[a] })

	return amount
}
