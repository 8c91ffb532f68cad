package main

import (
	"flag"
	"fmt"
	"os"

	"ReliefAuction/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run(args []string) error {
	cfg, err := parseConfig(flag.NewFlagSet("auctiond", flag.ContinueOnError), args)
	if err != nil {
		return err
	}

	logger.Init(cfg.LogLevel)

	cfg.PrivateKey, err = loadOrGenerateKey(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("load key:\n%w", err)
	}

	d, err := NewDaemon(cfg)
	if err != nil {
		return fmt.Errorf("create daemon:\n%w", err)
	}

	printStartupInfo(cfg)

	return d.Run()
}

// printStartupInfo displays the daemon configuration at startup.
func printStartupInfo(cfg *Config) {
	logger.Info("starting relief auction daemon",
		"node", cfg.nodeAddress().String(),
		"http", cfg.HTTPAddress,
		"feed", cfg.FeedAddress,
		"data", cfg.DataPath,
		"flatFee", cfg.FlatFee,
		"feeRoute", cfg.FeeRoute,
		"faucet", cfg.Faucet,
	)

	if len(cfg.Council) > 0 {
		logger.Info("governing council configured", "members", len(cfg.Council), "quorum", cfg.Quorum)
	}
}
