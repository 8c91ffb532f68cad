package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"ReliefAuction/internal/auction"
	"ReliefAuction/internal/calls"
	"ReliefAuction/internal/events"
	"ReliefAuction/internal/governance"
	"ReliefAuction/internal/logger"
	"ReliefAuction/internal/snapshot"
	"ReliefAuction/internal/types"
)

// callResponse is returned by POST /call.
type callResponse struct {
	Hash   string        `json:"hash"`
	Sender types.Address `json:"sender"`
	Nonce  uint64        `json:"nonce"`
	Result calls.Result  `json:"result"`
}

// governanceRequest is the body of POST /governance/execute.
type governanceRequest struct {
	Proposal    governance.Proposal    `json:"proposal"`
	Certificate governance.Certificate `json:"certificate"`
}

// faucetRequest is the body of POST /faucet.
type faucetRequest struct {
	Address types.Address `json:"address"`
}

// handleCall handles POST /call with a signed FlatBuffers call as body.
func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty call")
		return
	}

	c, res, err := s.deps.Dispatcher.Submit(r.Context(), body)
	if err != nil {
		writeFailure(w, err)
		return
	}

	logger.Debug("call submitted", "hash", hex.EncodeToString(c.Hash[:8]), "method", c.Method)

	writeJSON(w, http.StatusOK, callResponse{
		Hash:   hex.EncodeToString(c.Hash[:]),
		Sender: c.Sender,
		Nonce:  c.Nonce,
		Result: res,
	})
}

// handleGovernance handles POST /governance/execute.
func (s *Server) handleGovernance(w http.ResponseWriter, r *http.Request) {
	if s.deps.Governor == nil {
		writeError(w, http.StatusNotFound, "governance not configured")
		return
	}

	var req governanceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.deps.Governor.Execute(r.Context(), req.Proposal, req.Certificate)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleFaucet handles POST /faucet.
func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	if s.deps.Faucet == nil {
		writeError(w, http.StatusNotFound, "faucet disabled")
		return
	}

	var req faucetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Address.IsZero() {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	a, err := s.deps.Faucet.Drip(r.Context(), req.Address)
	if err != nil {
		writeFailure(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": a.To,
		"reward":  a.Reward,
		"native":  a.Native,
	})
}

// handleAuctions handles GET /auctions.
func (s *Server) handleAuctions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Engine.Auctions(r.Context()))
}

// auctionView adds derived fields to an auction state.
type auctionView struct {
	auction.Auction
	Closes      int64 `json:"closesAt"`
	Finalizable bool  `json:"windowElapsed"`
}

// handleAuction handles GET /auctions/{id}.
func (s *Server) handleAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	a, found := s.deps.Engine.AuctionDetails(r.Context(), id)
	if !found {
		writeError(w, http.StatusNotFound, "auction not found")
		return
	}

	writeJSON(w, http.StatusOK, auctionView{
		Auction:     a,
		Closes:      a.ClosesAt(),
		Finalizable: a.WindowElapsed(time.Now()),
	})
}

// handleCollectible handles GET /collectibles/{id}.
func (s *Server) handleCollectible(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	c, found := s.deps.Engine.Collectible(r.Context(), id)
	if !found {
		writeError(w, http.StatusNotFound, "collectible not found")
		return
	}

	writeJSON(w, http.StatusOK, c)
}

// handleRefund handles GET /refunds/{addr}.
func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr,
		"amount":  s.deps.Engine.WithdrawableAmount(r.Context(), addr),
	})
}

// handleTreasury handles GET /treasury.
func (s *Server) handleTreasury(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"addresses": s.deps.Engine.TreasuryAddresses(r.Context()),
		"flatFee":   s.deps.Engine.FlatFee(),
		"route":     s.deps.Engine.RoutePolicy().String(),
	})
}

// handleBalances handles GET /balances/{addr}.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}

	ctx := r.Context()

	writeJSON(w, http.StatusOK, map[string]any{
		"address":   addr,
		"reward":    s.deps.Reward.BalanceOf(ctx, addr),
		"native":    s.deps.Native.BalanceOf(ctx, addr),
		"allowance": s.deps.Reward.Allowance(ctx, addr, auction.Custody),
		"nextNonce": s.deps.Nonces.Next(ctx, addr),
	})
}

// handleEvents handles GET /events?after=N.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var after uint64

	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after parameter")
			return
		}
		after = n
	}

	evs := s.deps.Bus.Since(after)
	if evs == nil {
		evs = []events.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"seq":    s.deps.Bus.Seq(),
		"events": evs,
	})
}

// handleStatus handles GET /status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]any{
		"owner":       s.deps.Engine.Owner(ctx),
		"auctions":    len(s.deps.Engine.AuctionedNFTs(ctx)),
		"escrow":      s.deps.Engine.EscrowBalance(ctx),
		"liabilities": s.deps.Engine.Liabilities(ctx),
		"eventSeq":    s.deps.Bus.Seq(),
		"uptime":      time.Since(s.started).Round(time.Second).String(),
		"faucet":      s.deps.Faucet != nil,
	}

	if s.deps.Governor != nil {
		council := s.deps.Governor.Council()
		status["governor"] = council.Address()
		status["quorum"] = fmt.Sprintf("%d/%d", council.Quorum(), council.Size())
	}

	writeJSON(w, http.StatusOK, status)
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleSnapshot handles GET /snapshot, streaming the zstd-compressed state.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.deps.DB == nil {
		writeError(w, http.StatusNotFound, "snapshots not available")
		return
	}

	start := time.Now()

	data, err := snapshot.Create(s.deps.DB)
	if err != nil {
		logger.Error("snapshot export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}

	compressed, err := snapshot.Compress(data)
	if err != nil {
		logger.Error("snapshot compression failed", "error", err)
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}

	logger.Info("snapshot exported", "raw", len(data), "compressed", len(compressed), logger.Timed(start))

	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Length", strconv.Itoa(len(compressed)))
	w.WriteHeader(http.StatusOK)
	w.Write(compressed)
}

// decodeBody decodes a bounded JSON body into v.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}

	return nil
}

// pathID parses the {id} path value, writing 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}

	return id, true
}

// pathAddress parses the {addr} path value, writing 400 on failure.
func pathAddress(w http.ResponseWriter, r *http.Request) (types.Address, bool) {
	addr, err := types.ParseAddress(r.PathValue("addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return types.Address{}, false
	}

	return addr, true
}
