package calls

import (
	"fmt"

	"ReliefAuction/internal/borsh"
	"ReliefAuction/internal/types"
)

// Method names.
const (
	MethodMintAndAuction    = "mint_and_auction"
	MethodBid               = "bid"
	MethodWithdraw          = "withdraw"
	MethodClaim             = "claim"
	MethodForceEnd          = "force_end"
	MethodTransferWithFee   = "transfer_with_fee"
	MethodApprove           = "approve"
	MethodSetApprovalForAll = "set_approval_for_all"
	MethodAddTreasury       = "add_treasury"
	MethodSetTreasury       = "set_treasury"
	MethodTransferOwnership = "transfer_ownership"
	MethodRewardApprove     = "reward_approve"
	MethodRewardTransfer    = "reward_transfer"
	MethodNativeTransfer    = "native_transfer"
)

// maxBatch bounds the entries of one mint_and_auction call.
const maxBatch = 256

// MintAndAuctionArgs encodes: u32 n + n × string uri + u32 m + m × u32 treasury index.
func MintAndAuctionArgs(uris []string, targets []uint32) []byte {
	w := borsh.NewWriter(64).U32(uint32(len(uris)))
	for _, uri := range uris {
		w.Text(uri)
	}

	w.U32(uint32(len(targets)))
	for _, index := range targets {
		w.U32(index)
	}

	return w.Bytes()
}

// BidArgs encodes: u64 id + u64 amount.
func BidArgs(id, amount uint64) []byte {
	return borsh.NewWriter(16).U64(id).U64(amount).Bytes()
}

// IDArgs encodes the u64 id of claim and force_end.
func IDArgs(id uint64) []byte {
	return borsh.NewWriter(8).U64(id).Bytes()
}

// TransferWithFeeArgs encodes: [u8; 32] from + [u8; 32] to + u64 id + u64 fee.
func TransferWithFeeArgs(from, to types.Address, id, fee uint64) []byte {
	return borsh.NewWriter(80).Address(from).Address(to).U64(id).U64(fee).Bytes()
}

// ApproveArgs encodes: [u8; 32] to + u64 id.
func ApproveArgs(to types.Address, id uint64) []byte {
	return borsh.NewWriter(40).Address(to).U64(id).Bytes()
}

// ApprovalForAllArgs encodes: [u8; 32] operator + bool approved.
func ApprovalForAllArgs(operator types.Address, approved bool) []byte {
	return borsh.NewWriter(33).Address(operator).Bool(approved).Bytes()
}

// AddressArgs encodes the single address of add_treasury and transfer_ownership.
func AddressArgs(a types.Address) []byte {
	return borsh.NewWriter(32).Address(a).Bytes()
}

// SetTreasuryArgs encodes: u32 index + [u8; 32] address.
func SetTreasuryArgs(index uint32, a types.Address) []byte {
	return borsh.NewWriter(36).U32(index).Address(a).Bytes()
}

// AmountArgs encodes: [u8; 32] counterparty + u64 amount, used by the token methods.
func AmountArgs(counterparty types.Address, amount uint64) []byte {
	return borsh.NewWriter(40).Address(counterparty).U64(amount).Bytes()
}

func decodeMintAndAuction(r *borsh.Reader) ([]string, []uint32, error) {
	n := r.U32()
	if n > maxBatch {
		return nil, nil, fmt.Errorf("batch of %d exceeds %d", n, maxBatch)
	}

	uris := make([]string, 0, n)
	for i := uint32(0); i < n && r.Err() == nil; i++ {
		uris = append(uris, r.Text())
	}

	m := r.U32()
	if m > maxBatch {
		return nil, nil, fmt.Errorf("batch of %d exceeds %d", m, maxBatch)
	}

	targets := make([]uint32, 0, m)
	for i := uint32(0); i < m && r.Err() == nil; i++ {
		targets = append(targets, r.U32())
	}

	return uris, targets, r.Err()
}
