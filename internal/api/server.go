// Package api serves the daemon's HTTP interface: signed call submission,
// governance execution, read-only views, snapshot export and metrics.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ReliefAuction/internal/auction"
	"ReliefAuction/internal/calls"
	"ReliefAuction/internal/events"
	"ReliefAuction/internal/genesis"
	"ReliefAuction/internal/governance"
	"ReliefAuction/internal/logger"
	"ReliefAuction/internal/storage"
	"ReliefAuction/internal/token"
)

const (
	// maxBodySize bounds request bodies.
	maxBodySize = 1 << 20
)

// Deps are the components the API reads from and writes to.
type Deps struct {
	Engine     *auction.Engine
	Reward     *token.Ledger
	Native     *token.Ledger
	Dispatcher *calls.Dispatcher
	Nonces     *calls.Nonces
	Bus        *events.Bus
	DB         *storage.Storage     // DB is exported by GET /snapshot; nil disables it
	Governor   *governance.Governor // Governor runs certified proposals; nil disables them
	Faucet     *genesis.Faucet      // Faucet mints test funds; nil disables it
}

// Server is the HTTP API server.
type Server struct {
	addr    string       // addr is the HTTP listen address
	deps    Deps         // deps are the served components
	started time.Time    // started is reported by /status
	server  *http.Server // server is the underlying HTTP server
}

// New creates a new HTTP API server.
func New(addr string, deps Deps) *Server {
	return &Server{
		addr:    addr,
		deps:    deps,
		started: time.Now(),
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /call", s.handleCall)
	mux.HandleFunc("POST /governance/execute", s.handleGovernance)
	mux.HandleFunc("POST /faucet", s.handleFaucet)

	mux.HandleFunc("GET /auctions", s.handleAuctions)
	mux.HandleFunc("GET /auctions/{id}", s.handleAuction)
	mux.HandleFunc("GET /collectibles/{id}", s.handleCollectible)
	mux.HandleFunc("GET /refunds/{addr}", s.handleRefund)
	mux.HandleFunc("GET /treasury", s.handleTreasury)
	mux.HandleFunc("GET /balances/{addr}", s.handleBalances)
	mux.HandleFunc("GET /events", s.handleEvents)

	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("http api started", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
