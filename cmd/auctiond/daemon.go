package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ReliefAuction/internal/api"
	"ReliefAuction/internal/auction"
	"ReliefAuction/internal/calls"
	"ReliefAuction/internal/events"
	"ReliefAuction/internal/feed"
	"ReliefAuction/internal/genesis"
	"ReliefAuction/internal/governance"
	"ReliefAuction/internal/logger"
	"ReliefAuction/internal/metrics"
	"ReliefAuction/internal/snapshot"
	"ReliefAuction/internal/storage"
	"ReliefAuction/internal/token"
	"ReliefAuction/internal/txn"
	"ReliefAuction/internal/types"
)

// Daemon is a running relief auction node.
type Daemon struct {
	cfg        *Config
	storage    *storage.Storage
	executor   *txn.Executor
	bus        *events.Bus
	reward     *token.Ledger
	native     *token.Ledger
	engine     *auction.Engine
	nonces     *calls.Nonces
	dispatcher *calls.Dispatcher
	governor   *governance.Governor // governor is nil without a council
	faucet     *genesis.Faucet      // faucet is nil unless enabled
	feed       *feed.Server         // feed is nil when no feed address is set
	api        *api.Server
}

// NewDaemon opens storage, restores state and wires every component.
func NewDaemon(cfg *Config) (*Daemon, error) {
	d := &Daemon{cfg: cfg}

	if err := d.initStorage(); err != nil {
		return nil, err
	}

	steps := []func() error{
		d.restoreSnapshot,
		d.initLedgers,
		d.initGovernance,
		d.loadState,
		d.initFaucet,
		d.initFeed,
	}

	for _, step := range steps {
		if err := step(); err != nil {
			d.Close()
			return nil, err
		}
	}

	d.initMetrics()

	d.api = api.New(cfg.HTTPAddress, api.Deps{
		Engine:     d.engine,
		Reward:     d.reward,
		Native:     d.native,
		Dispatcher: d.dispatcher,
		Nonces:     d.nonces,
		Bus:        d.bus,
		DB:         d.storage,
		Governor:   d.governor,
		Faucet:     d.faucet,
	})

	return d, nil
}

// initStorage initializes the Pebble storage.
func (d *Daemon) initStorage() error {
	if err := os.MkdirAll(d.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := storage.New(d.cfg.DataPath + "/db")
	if err != nil {
		return fmt.Errorf("init storage:\n%w", err)
	}

	d.storage = db

	return nil
}

// restoreSnapshot imports the configured snapshot into an empty store.
func (d *Daemon) restoreSnapshot() error {
	if d.cfg.RestorePath == "" {
		return nil
	}

	start := time.Now()

	compressed, err := os.ReadFile(d.cfg.RestorePath)
	if err != nil {
		return fmt.Errorf("read snapshot:\n%w", err)
	}

	data, err := snapshot.Decompress(compressed)
	if err != nil {
		return fmt.Errorf("decompress snapshot:\n%w", err)
	}

	info, err := snapshot.Apply(d.storage, data)
	if err != nil {
		return fmt.Errorf("apply snapshot:\n%w", err)
	}

	logger.Info("snapshot restored", "path", d.cfg.RestorePath, "entries", info.Entries, logger.Timed(start))

	return nil
}

// initLedgers creates the executor, the event bus and every participant.
func (d *Daemon) initLedgers() error {
	seq, err := auction.LoadEventSeq(d.storage)
	if err != nil {
		return err
	}

	route, err := auction.ParseRoutePolicy(d.cfg.FeeRoute)
	if err != nil {
		return err
	}

	owner, err := d.firstBootOwner()
	if err != nil {
		return err
	}

	d.executor = txn.New(d.storage)
	d.bus = events.NewBus(seq)
	d.reward = token.New(d.executor, "relief", genesis.Minter)
	d.native = token.New(d.executor, "native", genesis.Minter)
	d.engine = auction.New(d.executor, d.reward, d.native, d.bus, auction.Config{
		Owner:   owner,
		FlatFee: d.cfg.FlatFee,
		Route:   route,
	})
	d.nonces = calls.NewNonces(d.executor)
	d.dispatcher = calls.NewDispatcher(d.engine, d.reward, d.native, d.nonces)

	return nil
}

// firstBootOwner resolves the owner used when the store is fresh.
func (d *Daemon) firstBootOwner() (types.Address, error) {
	if d.cfg.Owner != "" {
		return types.ParseAddress(d.cfg.Owner)
	}

	council, err := d.cfg.council()
	if err != nil {
		return types.Address{}, err
	}

	if council != nil {
		return council.Address(), nil
	}

	return d.cfg.nodeAddress(), nil
}

// initGovernance wires the council, if configured, to the dispatcher.
func (d *Daemon) initGovernance() error {
	council, err := d.cfg.council()
	if err != nil {
		return fmt.Errorf("init council:\n%w", err)
	}

	if council == nil {
		return nil
	}

	d.governor = governance.NewGovernor(council, d.nonces, d.dispatcher)

	logger.Info("governor address", "address", council.Address().String())

	return nil
}

// loadState reads every ledger from storage, or applies genesis on first boot.
func (d *Daemon) loadState() error {
	for _, l := range []*token.Ledger{d.reward, d.native} {
		if err := l.Load(d.storage); err != nil {
			return fmt.Errorf("load %s ledger:\n%w", l.Name(), err)
		}
	}

	if err := d.nonces.Load(d.storage); err != nil {
		return fmt.Errorf("load nonces:\n%w", err)
	}

	found, err := d.engine.Load(d.storage)
	if err != nil {
		return fmt.Errorf("load engine:\n%w", err)
	}

	ctx := context.Background()

	if found {
		logger.Info("state loaded",
			"owner", d.engine.Owner(ctx).Short(),
			"auctions", len(d.engine.AuctionedNFTs(ctx)),
			"eventSeq", d.bus.Seq(),
		)
		return nil
	}

	treasuries, err := d.cfg.treasuryAddresses()
	if err != nil {
		return err
	}

	gen := genesis.Config{Treasuries: treasuries}
	if d.cfg.GenesisMint > 0 {
		gen.Allocations = []genesis.Allocation{{
			To:     d.cfg.nodeAddress(),
			Reward: d.cfg.GenesisMint,
			Native: d.cfg.GenesisMint,
		}}
	}

	return genesis.Apply(ctx, d.executor, d.ledgers(), gen)
}

// initFaucet enables the faucet when configured.
func (d *Daemon) initFaucet() error {
	if !d.cfg.Faucet {
		return nil
	}

	d.faucet = genesis.NewFaucet(d.executor, d.ledgers(), d.cfg.FaucetReward, d.cfg.FaucetNative, d.cfg.FaucetCooldown)
	logger.Warn("faucet enabled", "reward", d.cfg.FaucetReward, "native", d.cfg.FaucetNative)

	return nil
}

// initFeed creates the QUIC event feed.
func (d *Daemon) initFeed() error {
	if d.cfg.FeedAddress == "" {
		return nil
	}

	srv, err := feed.NewServer(feed.Config{
		PrivateKey: d.cfg.PrivateKey,
		ListenAddr: d.cfg.FeedAddress,
	}, d.bus)
	if err != nil {
		return fmt.Errorf("init feed:\n%w", err)
	}

	d.feed = srv

	return nil
}

// initMetrics exports event counters and the escrow gauge.
func (d *Daemon) initMetrics() {
	d.bus.Subscribe(metrics.EventCommitted)

	metrics.RegisterEscrowGauge(func() float64 {
		return float64(d.engine.EscrowBalance(context.Background()))
	})
}

func (d *Daemon) ledgers() genesis.Ledgers {
	return genesis.Ledgers{Engine: d.engine, Reward: d.reward, Native: d.native}
}

// Run starts the feed and the API, then blocks until a shutdown signal.
func (d *Daemon) Run() error {
	if d.feed != nil {
		if err := d.feed.Start(); err != nil {
			d.Close()
			return fmt.Errorf("start feed:\n%w", err)
		}
	}

	if err := d.api.Start(); err != nil {
		d.Close()
		return fmt.Errorf("start api:\n%w", err)
	}

	return d.waitForShutdown()
}

// waitForShutdown blocks until SIGINT or SIGTERM.
func (d *Daemon) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return d.Close()
}

// Close shuts down all components gracefully.
func (d *Daemon) Close() error {
	if d.api != nil {
		d.api.Stop()
	}

	if d.feed != nil {
		d.feed.Close()
	}

	if d.storage != nil {
		return d.storage.Close()
	}

	return nil
}
