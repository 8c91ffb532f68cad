// Package client is the Go SDK of the relief auction daemon: wallets that
// sign calls, and typed access to the HTTP views.
package client

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ReliefAuction/internal/events"
	"ReliefAuction/internal/types"
)

// Client connects to a daemon via HTTP.
type Client struct {
	baseURL string       // baseURL is the API root (e.g. "http://127.0.0.1:8080")
	http    *http.Client // http performs the requests
}

// Wallet holds a keypair and the next call nonce.
type Wallet struct {
	privKey ed25519.PrivateKey // privKey is the Ed25519 private key
	addr    types.Address      // addr is the public key as an address
	nonce   uint64             // nonce is the last nonce the node accepted
}

// AuctionInfo is an auction as served by GET /auctions/{id}.
type AuctionInfo struct {
	ID            uint64           `json:"id"`
	HighestBidder types.Address    `json:"highestBidder"`
	HighestBid    uint64           `json:"highestBid"`
	StartTime     int64            `json:"startTime"`
	Ended         bool             `json:"ended"`
	EndMethod     events.EndMethod `json:"endMethod"`
	ClosesAt      int64            `json:"closesAt"`
	WindowElapsed bool             `json:"windowElapsed"`
}

// CollectibleInfo is an ownership record.
type CollectibleInfo struct {
	ID            uint64        `json:"id"`
	Holder        types.Address `json:"holder"`
	URI           string        `json:"uri"`
	TreasuryIndex uint32        `json:"treasuryIndex"`
	Approved      types.Address `json:"approved"`
}

// Balances are an account's ledger positions.
type Balances struct {
	Address   types.Address `json:"address"`
	Reward    uint64        `json:"reward"`
	Native    uint64        `json:"native"`
	Allowance uint64        `json:"allowance"` // Allowance is the reward approval to custody
	NextNonce uint64        `json:"nextNonce"`
}

// TreasuryInfo is the registry and fee policy.
type TreasuryInfo struct {
	Addresses []types.Address `json:"addresses"`
	FlatFee   uint64          `json:"flatFee"`
	Route     string          `json:"route"`
}

// Status summarizes the daemon.
type Status struct {
	Owner       types.Address `json:"owner"`
	Auctions    int           `json:"auctions"`
	Escrow      uint64        `json:"escrow"`
	Liabilities uint64        `json:"liabilities"`
	EventSeq    uint64        `json:"eventSeq"`
	Governor    types.Address `json:"governor"`
	Quorum      string        `json:"quorum"`
	Faucet      bool          `json:"faucet"`
}

// NewClient creates a client for the daemon at addr ("host:port" or a URL).
func NewClient(addr string) *Client {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}

	return &Client{
		baseURL: strings.TrimRight(addr, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWallet creates a new wallet with a random Ed25519 keypair.
func NewWallet() *Wallet {
	_, priv, _ := ed25519.GenerateKey(rand.Reader)
	return WalletFromKey(priv)
}

// WalletFromKey wraps an existing private key.
func WalletFromKey(priv ed25519.PrivateKey) *Wallet {
	w := &Wallet{privKey: priv}
	copy(w.addr[:], priv.Public().(ed25519.PublicKey))

	return w
}

// Address returns the wallet's account address.
func (w *Wallet) Address() types.Address {
	return w.addr
}

// Sync loads the wallet's nonce from the node.
func (w *Wallet) Sync(c *Client) error {
	b, err := c.Balances(w.addr)
	if err != nil {
		return fmt.Errorf("sync nonce:\n%w", err)
	}

	w.nonce = b.NextNonce - 1

	return nil
}

// Status returns the daemon summary.
func (c *Client) Status() (Status, error) {
	var s Status
	if err := c.get("/status", &s); err != nil {
		return Status{}, fmt.Errorf("get status:\n%w", err)
	}

	return s, nil
}

// Auction returns the state of auction id.
func (c *Client) Auction(id uint64) (AuctionInfo, error) {
	var a AuctionInfo
	if err := c.get("/auctions/"+strconv.FormatUint(id, 10), &a); err != nil {
		return AuctionInfo{}, fmt.Errorf("get auction:\n%w", err)
	}

	return a, nil
}

// Auctions returns every auction ordered by id.
func (c *Client) Auctions() ([]AuctionInfo, error) {
	var list []AuctionInfo
	if err := c.get("/auctions", &list); err != nil {
		return nil, fmt.Errorf("list auctions:\n%w", err)
	}

	return list, nil
}

// Collectible returns the ownership record of id.
func (c *Client) Collectible(id uint64) (CollectibleInfo, error) {
	var info CollectibleInfo
	if err := c.get("/collectibles/"+strconv.FormatUint(id, 10), &info); err != nil {
		return CollectibleInfo{}, fmt.Errorf("get collectible:\n%w", err)
	}

	return info, nil
}

// Refund returns the amount a can withdraw.
func (c *Client) Refund(a types.Address) (uint64, error) {
	var resp struct {
		Amount uint64 `json:"amount"`
	}

	if err := c.get("/refunds/"+a.String(), &resp); err != nil {
		return 0, fmt.Errorf("get refund:\n%w", err)
	}

	return resp.Amount, nil
}

// Balances returns a's ledger positions and next nonce.
func (c *Client) Balances(a types.Address) (Balances, error) {
	var b Balances
	if err := c.get("/balances/"+a.String(), &b); err != nil {
		return Balances{}, fmt.Errorf("get balances:\n%w", err)
	}

	return b, nil
}

// Treasury returns the registry and fee policy.
func (c *Client) Treasury() (TreasuryInfo, error) {
	var t TreasuryInfo
	if err := c.get("/treasury", &t); err != nil {
		return TreasuryInfo{}, fmt.Errorf("get treasury:\n%w", err)
	}

	return t, nil
}

// Events returns retained events with Seq > after.
func (c *Client) Events(after uint64) ([]events.Event, error) {
	var resp struct {
		Events []events.Event `json:"events"`
	}

	if err := c.get("/events?after="+strconv.FormatUint(after, 10), &resp); err != nil {
		return nil, fmt.Errorf("get events:\n%w", err)
	}

	return resp.Events, nil
}

// Faucet asks the node to fund a. Returns the reward and native amounts.
func (c *Client) Faucet(a types.Address) (reward, native uint64, err error) {
	var resp struct {
		Reward uint64 `json:"reward"`
		Native uint64 `json:"native"`
	}

	if err := c.postJSON("/faucet", map[string]any{"address": a}, &resp); err != nil {
		return 0, 0, fmt.Errorf("faucet:\n%w", err)
	}

	return resp.Reward, resp.Native, nil
}
