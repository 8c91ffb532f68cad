package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ReliefAuction/internal/auction"
	"ReliefAuction/internal/calls"
	"ReliefAuction/internal/events"
	"ReliefAuction/internal/genesis"
	"ReliefAuction/internal/governance"
	"ReliefAuction/internal/snapshot"
	"ReliefAuction/internal/storage"
	"ReliefAuction/internal/token"
	"ReliefAuction/internal/txn"
	"ReliefAuction/internal/types"
)

type wallet struct {
	priv  ed25519.PrivateKey
	addr  types.Address
	nonce uint64
}

func newWallet(t *testing.T) *wallet {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	w := &wallet{priv: priv}
	copy(w.addr[:], pub)

	return w
}

func (w *wallet) sign(method string, args []byte) []byte {
	w.nonce++
	data, _ := calls.Build(w.priv, w.nonce, method, args)
	return data
}

type testNode struct {
	srv     *httptest.Server
	deps    Deps
	owner   *wallet
	members []*governance.KeyPair
	council *governance.Council
}

// newTestNode wires a full in-memory node. With council set, the governing
// body owns the engine instead of the owner wallet.
func newTestNode(t *testing.T, withCouncil bool) *testNode {
	t.Helper()

	db, err := storage.NewMemory()
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	n := &testNode{owner: newWallet(t)}
	ownerAddr := n.owner.addr

	if withCouncil {
		pubkeys := make([][]byte, 3)
		for i := range pubkeys {
			k, err := governance.GenerateKey()
			if err != nil {
				t.Fatalf("generate bls key: %v", err)
			}
			n.members = append(n.members, k)
			pubkeys[i] = k.PublicKeyBytes()
		}

		n.council, err = governance.NewCouncil(pubkeys, 2)
		if err != nil {
			t.Fatalf("council: %v", err)
		}
		ownerAddr = n.council.Address()
	}

	x := txn.New(db)
	bus := events.NewBus(0)
	reward := token.New(x, "relief", genesis.Minter)
	native := token.New(x, "native", genesis.Minter)
	engine := auction.New(x, reward, native, bus, auction.Config{Owner: ownerAddr, FlatFee: 10})
	nonces := calls.NewNonces(x)
	dispatcher := calls.NewDispatcher(engine, reward, native, nonces)
	ledgers := genesis.Ledgers{Engine: engine, Reward: reward, Native: native}

	err = genesis.Apply(context.Background(), x, ledgers, genesis.Config{
		Treasuries: []types.Address{types.DeriveAddress("api-test/treasury")},
	})
	if err != nil {
		t.Fatalf("genesis: %v", err)
	}

	n.deps = Deps{
		Engine:     engine,
		Reward:     reward,
		Native:     native,
		Dispatcher: dispatcher,
		Nonces:     nonces,
		Bus:        bus,
		DB:         db,
		Faucet:     genesis.NewFaucet(x, ledgers, 5_000, 100, time.Hour),
	}

	if withCouncil {
		n.deps.Governor = governance.NewGovernor(n.council, nonces, dispatcher)
	}

	n.srv = httptest.NewServer(New("", n.deps).Handler())
	t.Cleanup(n.srv.Close)

	return n
}

func (n *testNode) post(t *testing.T, path, contentType string, body []byte) (int, map[string]any) {
	t.Helper()

	resp, err := http.Post(n.srv.URL+path, contentType, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, decode(t, resp.Body)
}

func (n *testNode) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()

	resp, err := http.Get(n.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, decode(t, resp.Body)
}

func (n *testNode) call(t *testing.T, w *wallet, method string, args []byte) (int, map[string]any) {
	t.Helper()
	return n.post(t, "/call", "application/octet-stream", w.sign(method, args))
}

func (n *testNode) faucet(t *testing.T, w *wallet) {
	t.Helper()

	body, _ := json.Marshal(faucetRequest{Address: w.addr})
	if status, out := n.post(t, "/faucet", "application/json", body); status != http.StatusOK {
		t.Fatalf("faucet status %d: %v", status, out)
	}
}

func decode(t *testing.T, r io.Reader) map[string]any {
	t.Helper()

	out := map[string]any{}
	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %q: %v", raw, err)
		}
	}

	return out
}

func TestHealth(t *testing.T) {
	n := newTestNode(t, false)

	status, out := n.get(t, "/health")
	if status != http.StatusOK || out["status"] != "ok" {
		t.Errorf("health = %d %v", status, out)
	}
}

func TestCall_AuctionFlow(t *testing.T) {
	n := newTestNode(t, false)
	alice := newWallet(t)
	n.faucet(t, alice)

	status, out := n.call(t, n.owner, calls.MethodMintAndAuction, calls.MintAndAuctionArgs([]string{"ipfs://relief/a"}, []uint32{0}))
	if status != http.StatusOK {
		t.Fatalf("mint status %d: %v", status, out)
	}

	if status, out := n.call(t, alice, calls.MethodRewardApprove, calls.AmountArgs(auction.Custody, 1_000)); status != http.StatusOK {
		t.Fatalf("approve status %d: %v", status, out)
	}

	if status, out := n.call(t, alice, calls.MethodBid, calls.BidArgs(0, 700)); status != http.StatusOK {
		t.Fatalf("bid status %d: %v", status, out)
	}

	status, out = n.get(t, "/auctions/0")
	if status != http.StatusOK {
		t.Fatalf("auction status %d", status)
	}

	if out["highestBidder"] != alice.addr.String() || out["highestBid"] != float64(700) {
		t.Errorf("auction = %v", out)
	}

	if out["windowElapsed"] != false {
		t.Errorf("windowElapsed = %v, want false", out["windowElapsed"])
	}

	_, out = n.get(t, "/balances/"+alice.addr.String())
	if out["reward"] != float64(4_300) || out["allowance"] != float64(300) || out["nextNonce"] != float64(3) {
		t.Errorf("balances = %v", out)
	}

	_, out = n.get(t, "/status")
	if out["escrow"] != float64(700) || out["liabilities"] != float64(700) {
		t.Errorf("status = %v", out)
	}
}

func TestCall_ErrorStatuses(t *testing.T) {
	n := newTestNode(t, false)
	alice := newWallet(t)
	n.faucet(t, alice)

	n.call(t, n.owner, calls.MethodMintAndAuction, calls.MintAndAuctionArgs([]string{"ipfs://relief/a"}, []uint32{0}))

	// Unauthorized
	if status, _ := n.call(t, alice, calls.MethodForceEnd, calls.IDArgs(0)); status != http.StatusForbidden {
		t.Errorf("force_end by non-owner = %d, want 403", status)
	}

	// Funds: no allowance granted
	if status, _ := n.call(t, alice, calls.MethodBid, calls.BidArgs(0, 10)); status != http.StatusUnprocessableEntity {
		t.Errorf("bid without allowance = %d, want 422", status)
	}

	// State
	if status, _ := n.call(t, n.owner, calls.MethodForceEnd, calls.IDArgs(0)); status != http.StatusConflict {
		t.Errorf("force_end inside window = %d, want 409", status)
	}

	// Value
	if status, _ := n.call(t, alice, calls.MethodBid, calls.BidArgs(0, 0)); status != http.StatusBadRequest {
		t.Errorf("zero bid = %d, want 400", status)
	}

	// Replay of an already used nonce
	alice.nonce--
	if status, _ := n.call(t, alice, calls.MethodWithdraw, nil); status != http.StatusConflict {
		t.Errorf("replayed nonce = %d, want 409", status)
	}

	if status, _ := n.post(t, "/call", "application/octet-stream", []byte("garbage")); status != http.StatusBadRequest {
		t.Errorf("garbage call = %d, want 400", status)
	}

	if status, _ := n.post(t, "/call", "application/octet-stream", nil); status != http.StatusBadRequest {
		t.Errorf("empty call = %d, want 400", status)
	}
}

func TestViews_NotFoundAndBadInput(t *testing.T) {
	n := newTestNode(t, false)

	cases := map[string]int{
		"/auctions/9":       http.StatusNotFound,
		"/auctions/x":       http.StatusBadRequest,
		"/collectibles/9":   http.StatusNotFound,
		"/refunds/zz":       http.StatusBadRequest,
		"/balances/abcd":    http.StatusBadRequest,
		"/events?after=neg": http.StatusBadRequest,
	}

	for path, want := range cases {
		if status, _ := n.get(t, path); status != want {
			t.Errorf("GET %s = %d, want %d", path, status, want)
		}
	}
}

func TestTreasuryAndEvents(t *testing.T) {
	n := newTestNode(t, false)
	n.call(t, n.owner, calls.MethodMintAndAuction, calls.MintAndAuctionArgs([]string{"ipfs://relief/a", "ipfs://relief/b"}, []uint32{0, 0}))

	_, out := n.get(t, "/treasury")
	if list, ok := out["addresses"].([]any); !ok || len(list) != 1 {
		t.Errorf("treasury = %v", out)
	}

	if out["flatFee"] != float64(10) || out["route"] != "collectible" {
		t.Errorf("treasury = %v", out)
	}

	// genesis emitted one treasury event, the mint two more
	_, out = n.get(t, "/events?after=1")
	evs, ok := out["events"].([]any)
	if !ok || len(evs) != 2 {
		t.Fatalf("events = %v", out)
	}

	first := evs[0].(map[string]any)
	if first["kind"] != "collectible_minted" || first["uri"] != "ipfs://relief/a" {
		t.Errorf("first event = %v", first)
	}
}

func TestFaucet_Cooldown(t *testing.T) {
	n := newTestNode(t, false)
	alice := newWallet(t)
	n.faucet(t, alice)

	body, _ := json.Marshal(faucetRequest{Address: alice.addr})
	if status, _ := n.post(t, "/faucet", "application/json", body); status != http.StatusTooManyRequests {
		t.Errorf("second drip = %d, want 429", status)
	}

	if status, _ := n.post(t, "/faucet", "application/json", []byte(`{"address":"00"}`)); status != http.StatusBadRequest {
		t.Errorf("bad address = %d, want 400", status)
	}
}

func TestGovernance_Execute(t *testing.T) {
	n := newTestNode(t, true)
	governor := n.council.Address()
	next := types.DeriveAddress("api-test/treasury-2")

	p := governance.Proposal{Nonce: 1, Method: calls.MethodAddTreasury, Args: calls.AddressArgs(next)}

	cert, err := governance.Certify(governor, p, n.members[:2], []int{0, 1}, 3)
	if err != nil {
		t.Fatalf("certify: %v", err)
	}

	body, _ := json.Marshal(governanceRequest{Proposal: p, Certificate: cert})
	status, out := n.post(t, "/governance/execute", "application/json", body)
	if status != http.StatusOK || out["index"] != float64(1) {
		t.Fatalf("governance = %d %v", status, out)
	}

	// replay
	if status, _ := n.post(t, "/governance/execute", "application/json", body); status != http.StatusConflict {
		t.Errorf("replayed proposal = %d, want 409", status)
	}

	// single signer is below quorum
	p.Nonce = 2
	cert, err = governance.Certify(governor, p, n.members[:1], []int{0}, 3)
	if err != nil {
		t.Fatalf("certify: %v", err)
	}

	body, _ = json.Marshal(governanceRequest{Proposal: p, Certificate: cert})
	if status, _ := n.post(t, "/governance/execute", "application/json", body); status != http.StatusForbidden {
		t.Errorf("below quorum = %d, want 403", status)
	}

	_, out = n.get(t, "/status")
	if out["governor"] != governor.String() || out["quorum"] != "2/3" {
		t.Errorf("status = %v", out)
	}
}

func TestGovernance_Disabled(t *testing.T) {
	n := newTestNode(t, false)

	if status, _ := n.post(t, "/governance/execute", "application/json", []byte(`{}`)); status != http.StatusNotFound {
		t.Errorf("governance without council = %d, want 404", status)
	}
}

func TestSnapshot_Export(t *testing.T) {
	n := newTestNode(t, false)
	n.call(t, n.owner, calls.MethodMintAndAuction, calls.MintAndAuctionArgs([]string{"ipfs://relief/a"}, []uint32{0}))

	resp, err := http.Get(n.srv.URL + "/snapshot")
	if err != nil {
		t.Fatalf("GET /snapshot: %v", err)
	}
	defer resp.Body.Close()

	compressed, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	raw, err := snapshot.Decompress(compressed)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}

	info, err := snapshot.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if info.Entries == 0 {
		t.Error("snapshot has no entries")
	}
}

func TestMetrics_Exposed(t *testing.T) {
	n := newTestNode(t, false)
	n.call(t, n.owner, calls.MethodMintAndAuction, calls.MintAndAuctionArgs([]string{"ipfs://relief/a"}, []uint32{0}))

	resp, err := http.Get(n.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "relief_calls_total") {
		t.Error("calls counter missing from /metrics")
	}
}
