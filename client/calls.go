package client

import (
	"errors"
	"fmt"

	"ReliefAuction/internal/calls"
	"ReliefAuction/internal/governance"
	"ReliefAuction/internal/types"
)

// CallResult is the daemon's answer to an accepted call.
type CallResult struct {
	Hash   string       `json:"hash"`
	Nonce  uint64       `json:"nonce"`
	Result calls.Result `json:"result"`
}

// send signs method with the wallet's next nonce and submits it. The node
// consumes the nonce even when the operation is rejected, so after a failure
// the wallet resyncs instead of guessing.
func (w *Wallet) send(c *Client, method string, args []byte) (CallResult, error) {
	nonce := w.nonce + 1
	data, _ := calls.Build(w.privKey, nonce, method, args)

	var res CallResult
	err := c.post("/call", "application/octet-stream", data, &res)
	if err == nil {
		w.nonce = nonce
		return res, nil
	}

	if syncErr := w.Sync(c); syncErr != nil {
		return CallResult{}, errors.Join(fmt.Errorf("%s:\n%w", method, err), syncErr)
	}

	return CallResult{}, fmt.Errorf("%s:\n%w", method, err)
}

// MintAndAuction mints one collectible per URI and opens their auctions.
func (w *Wallet) MintAndAuction(c *Client, uris []string, treasuryTargets []uint32) ([]uint64, error) {
	res, err := w.send(c, calls.MethodMintAndAuction, calls.MintAndAuctionArgs(uris, treasuryTargets))
	return res.Result.IDs, err
}

// Bid places amount on auction id. The wallet must have approved custody.
func (w *Wallet) Bid(c *Client, id, amount uint64) error {
	_, err := w.send(c, calls.MethodBid, calls.BidArgs(id, amount))
	return err
}

// Withdraw collects the wallet's refund balance and returns the amount paid.
func (w *Wallet) Withdraw(c *Client) (uint64, error) {
	res, err := w.send(c, calls.MethodWithdraw, nil)
	return res.Result.Amount, err
}

// Claim finalizes auction id as its highest bidder.
func (w *Wallet) Claim(c *Client, id uint64) error {
	_, err := w.send(c, calls.MethodClaim, calls.IDArgs(id))
	return err
}

// ForceEnd finalizes auction id as the owner.
func (w *Wallet) ForceEnd(c *Client, id uint64) error {
	_, err := w.send(c, calls.MethodForceEnd, calls.IDArgs(id))
	return err
}

// TransferWithFee moves collectible id from from to to, paying fee in the native coin.
func (w *Wallet) TransferWithFee(c *Client, from, to types.Address, id, fee uint64) error {
	_, err := w.send(c, calls.MethodTransferWithFee, calls.TransferWithFeeArgs(from, to, id, fee))
	return err
}

// Approve lets to transfer collectible id.
func (w *Wallet) Approve(c *Client, to types.Address, id uint64) error {
	_, err := w.send(c, calls.MethodApprove, calls.ApproveArgs(to, id))
	return err
}

// SetApprovalForAll grants or revokes operator over all of the wallet's collectibles.
func (w *Wallet) SetApprovalForAll(c *Client, operator types.Address, approved bool) error {
	_, err := w.send(c, calls.MethodSetApprovalForAll, calls.ApprovalForAllArgs(operator, approved))
	return err
}

// AddTreasury appends addr to the registry and returns its index.
func (w *Wallet) AddTreasury(c *Client, addr types.Address) (uint32, error) {
	res, err := w.send(c, calls.MethodAddTreasury, calls.AddressArgs(addr))
	return res.Result.Index, err
}

// SetTreasury overwrites registry slot index.
func (w *Wallet) SetTreasury(c *Client, index uint32, addr types.Address) error {
	_, err := w.send(c, calls.MethodSetTreasury, calls.SetTreasuryArgs(index, addr))
	return err
}

// TransferOwnership hands the owner capability to next.
func (w *Wallet) TransferOwnership(c *Client, next types.Address) error {
	_, err := w.send(c, calls.MethodTransferOwnership, calls.AddressArgs(next))
	return err
}

// ApproveReward sets spender's reward-token allowance.
func (w *Wallet) ApproveReward(c *Client, spender types.Address, amount uint64) error {
	_, err := w.send(c, calls.MethodRewardApprove, calls.AmountArgs(spender, amount))
	return err
}

// TransferReward sends reward tokens.
func (w *Wallet) TransferReward(c *Client, to types.Address, amount uint64) error {
	_, err := w.send(c, calls.MethodRewardTransfer, calls.AmountArgs(to, amount))
	return err
}

// TransferNative sends native coins.
func (w *Wallet) TransferNative(c *Client, to types.Address, amount uint64) error {
	_, err := w.send(c, calls.MethodNativeTransfer, calls.AmountArgs(to, amount))
	return err
}

// Govern submits a council-certified proposal.
func (c *Client) Govern(p governance.Proposal, cert governance.Certificate) (calls.Result, error) {
	body := map[string]any{
		"proposal":    p,
		"certificate": cert,
	}

	var res calls.Result
	if err := c.postJSON("/governance/execute", body, &res); err != nil {
		return calls.Result{}, fmt.Errorf("governance:\n%w", err)
	}

	return res, nil
}
