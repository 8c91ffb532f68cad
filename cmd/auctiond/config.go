package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"ReliefAuction/internal/auction"
	"ReliefAuction/internal/governance"
	"ReliefAuction/internal/types"
)

// Config holds the daemon configuration. Values come from AUCTIOND_*
// environment variables and are overridden by command-line flags.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string `env:"AUCTIOND_DATA" envDefault:"./data"`

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string `env:"AUCTIOND_HTTP" envDefault:":8080"`

	// FeedAddress is the QUIC event feed listen address. Empty disables the feed.
	FeedAddress string `env:"AUCTIOND_FEED" envDefault:":9000"`

	// KeyPath is the path to the Ed25519 private key file.
	KeyPath string `env:"AUCTIOND_KEY"`

	// LogLevel is the minimum log level.
	LogLevel string `env:"AUCTIOND_LOG_LEVEL" envDefault:"info"`

	// FlatFee is the minimum native fee of a secondary transfer.
	FlatFee uint64 `env:"AUCTIOND_FLAT_FEE" envDefault:"10"`

	// FeeRoute selects the fee recipient: "collectible" or "fixed:<index>".
	FeeRoute string `env:"AUCTIOND_FEE_ROUTE" envDefault:"collectible"`

	// Owner is the hex address holding the owner capability on first boot.
	// Defaults to the governing council when configured, else the node key.
	Owner string `env:"AUCTIOND_OWNER"`

	// Treasuries are the hex addresses registered on first boot.
	Treasuries []string `env:"AUCTIOND_TREASURIES" envSeparator:","`

	// GenesisMint is minted on first boot to the node key, on both ledgers.
	GenesisMint uint64 `env:"AUCTIOND_GENESIS_MINT"`

	// Council are the hex BLS public keys of the governing body.
	Council []string `env:"AUCTIOND_COUNCIL" envSeparator:","`

	// Quorum is the number of council signatures an owner call needs.
	Quorum int `env:"AUCTIOND_QUORUM"`

	// Faucet enables POST /faucet.
	Faucet bool `env:"AUCTIOND_FAUCET"`

	// FaucetReward and FaucetNative are paid per drip.
	FaucetReward uint64 `env:"AUCTIOND_FAUCET_REWARD" envDefault:"10000"`
	FaucetNative uint64 `env:"AUCTIOND_FAUCET_NATIVE" envDefault:"1000"`

	// FaucetCooldown is the minimum time between drips to one address.
	FaucetCooldown time.Duration `env:"AUCTIOND_FAUCET_COOLDOWN" envDefault:"1h"`

	// RestorePath is a compressed snapshot imported into an empty store at startup.
	RestorePath string `env:"AUCTIOND_RESTORE"`

	// PrivateKey is the node's Ed25519 key, loaded from KeyPath.
	PrivateKey ed25519.PrivateKey
}

// parseConfig reads the environment, then applies flag overrides from args.
func parseConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env:\n%w", err)
	}

	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "Data directory path")
	fs.StringVar(&cfg.HTTPAddress, "http", cfg.HTTPAddress, "HTTP API address")
	fs.StringVar(&cfg.FeedAddress, "feed", cfg.FeedAddress, "QUIC event feed address (empty disables)")
	fs.StringVar(&cfg.KeyPath, "key", cfg.KeyPath, "Ed25519 private key path (generates new if missing)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.Uint64Var(&cfg.FlatFee, "flat-fee", cfg.FlatFee, "Minimum native fee of a secondary transfer")
	fs.StringVar(&cfg.FeeRoute, "fee-route", cfg.FeeRoute, `Fee route: "collectible" or "fixed:<index>"`)
	fs.StringVar(&cfg.Owner, "owner", cfg.Owner, "Owner address on first boot (hex)")
	fs.Func("treasuries", "Comma-separated treasury addresses registered on first boot", listSetter(&cfg.Treasuries))
	fs.Uint64Var(&cfg.GenesisMint, "genesis-mint", cfg.GenesisMint, "Amount minted to the node key on first boot")
	fs.Func("council", "Comma-separated BLS public keys of the governing council", listSetter(&cfg.Council))
	fs.IntVar(&cfg.Quorum, "quorum", cfg.Quorum, "Council signatures required per owner call")
	fs.BoolVar(&cfg.Faucet, "faucet", cfg.Faucet, "Enable the test faucet")
	fs.Uint64Var(&cfg.FaucetReward, "faucet-reward", cfg.FaucetReward, "Reward tokens per faucet drip")
	fs.Uint64Var(&cfg.FaucetNative, "faucet-native", cfg.FaucetNative, "Native coins per faucet drip")
	fs.DurationVar(&cfg.FaucetCooldown, "faucet-cooldown", cfg.FaucetCooldown, "Minimum time between drips to one address")
	fs.StringVar(&cfg.RestorePath, "restore", cfg.RestorePath, "Snapshot file imported into an empty store")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if _, err := auction.ParseRoutePolicy(cfg.FeeRoute); err != nil {
		return nil, err
	}

	if len(cfg.Council) > 0 && (cfg.Quorum < 1 || cfg.Quorum > len(cfg.Council)) {
		return nil, fmt.Errorf("quorum %d out of range for %d council keys", cfg.Quorum, len(cfg.Council))
	}

	return cfg, nil
}

// listSetter parses a comma-separated flag value into dst.
func listSetter(dst *[]string) func(string) error {
	return func(v string) error {
		*dst = nil
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*dst = append(*dst, part)
			}
		}
		return nil
	}
}

// treasuryAddresses decodes the configured treasuries.
func (c *Config) treasuryAddresses() ([]types.Address, error) {
	out := make([]types.Address, 0, len(c.Treasuries))
	for _, s := range c.Treasuries {
		a, err := types.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("treasury %q:\n%w", s, err)
		}
		out = append(out, a)
	}

	return out, nil
}

// council builds the governing council, or nil when none is configured.
func (c *Config) council() (*governance.Council, error) {
	if len(c.Council) == 0 {
		return nil, nil
	}

	keys := make([][]byte, len(c.Council))
	for i, s := range c.Council {
		raw, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("council key %d:\n%w", i, err)
		}
		keys[i] = raw
	}

	return governance.NewCouncil(keys, c.Quorum)
}

// nodeAddress returns the address of the node key.
func (c *Config) nodeAddress() types.Address {
	var a types.Address
	copy(a[:], c.PrivateKey.Public().(ed25519.PublicKey))

	return a
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
