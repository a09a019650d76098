// Package config loads and validates node configuration from defaults,
// an optional TOML file, and TOLLD_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAccount   = errors.New("required account not configured")
	ErrInvalidRate      = errors.New("fee rate above maximum")
	ErrInvalidBps       = errors.New("basis-point value out of range")
	ErrUnknownBackend   = errors.New("unknown storage backend")
	ErrUnknownPolicy    = errors.New("unknown policy name")
	ErrMissingDataDir   = errors.New("persistent backend requires data_dir")
	ErrInvalidSupply    = errors.New("genesis supply must be positive")
	ErrInvalidCacheSize = errors.New("cache size must be positive")
)

// Config is the full node configuration.
type Config struct {
	NodeName string `mapstructure:"node_name"`
	DataDir  string `mapstructure:"data_dir"`

	Genesis  GenesisConfig  `mapstructure:"genesis"`
	Accounts AccountsConfig `mapstructure:"accounts"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Storage  StorageConfig  `mapstructure:"storage"`
	History  HistoryConfig  `mapstructure:"history"`
	RPC      RPCConfig      `mapstructure:"rpc"`
	WS       WSConfig       `mapstructure:"ws"`

	configPath string
}

// GenesisConfig describes the initial ledger state minted at first
// boot. Ignored when a snapshot exists.
type GenesisConfig struct {
	Holder string `mapstructure:"holder"`
	// Supply is the total issued supply in base units.
	Supply uint64 `mapstructure:"supply"`
	// Currency is the settlement currency credited to the holder for
	// the launch seed.
	Currency uint64 `mapstructure:"currency"`
}

// AccountsConfig names the system accounts.
type AccountsConfig struct {
	Custody    string `mapstructure:"custody"`
	Operations string `mapstructure:"operations"`
	Treasury   string `mapstructure:"treasury"`
	// Pool is the ledger address the liquidity pool is placed at
	// when launch creates it.
	Pool string `mapstructure:"pool"`
}

// PolicyConfig is the initial policy installed at first boot. Limits
// and the swap threshold are expressed in basis points of total supply
// so a config is portable across supplies.
type PolicyConfig struct {
	BuyFeeBps      uint64 `mapstructure:"buy_fee_bps"`
	SellFeeBps     uint64 `mapstructure:"sell_fee_bps"`
	TransferFeeBps uint64 `mapstructure:"transfer_fee_bps"`

	MaxBuyBps        uint64 `mapstructure:"max_buy_bps"`
	MaxSellBps       uint64 `mapstructure:"max_sell_bps"`
	MaxWalletBps     uint64 `mapstructure:"max_wallet_bps"`
	SwapThresholdBps uint64 `mapstructure:"swap_threshold_bps"`

	LimitsEnabled bool `mapstructure:"limits_enabled"`
	TaxesEnabled  bool `mapstructure:"taxes_enabled"`
}

// EngineConfig tunes the transfer engine.
type EngineConfig struct {
	// ReceiptPolicy is "custody" or "treasury".
	ReceiptPolicy string `mapstructure:"receipt_policy"`
	// ForwardPolicy is "abort" or "retain".
	ForwardPolicy     string `mapstructure:"forward_policy"`
	SwapCapMultiplier uint64 `mapstructure:"swap_cap_multiplier"`
	MinSwapInterval   uint64 `mapstructure:"min_swap_interval"`
	QuoteHaircutBps   uint64 `mapstructure:"quote_haircut_bps"`
}

// StorageConfig selects the snapshot backend.
type StorageConfig struct {
	// Backend is "memory", "pebble" or "leveldb".
	Backend   string `mapstructure:"backend"`
	CacheSize int    `mapstructure:"cache_size"`
}

// HistoryConfig selects the transfer journal.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Driver  string `mapstructure:"driver"`
	DSN     string `mapstructure:"dsn"`
}

// RPCConfig configures the JSON-RPC listener.
type RPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// WSConfig configures the websocket event publisher.
type WSConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Addr          string `mapstructure:"addr"`
	SendQueueSize int    `mapstructure:"send_queue_size"`
}

// Path returns the config file the node was loaded from, if any.
func (c *Config) Path() string { return c.configPath }

// maxFeeRateBps caps every configurable fee rate at 10%.
const maxFeeRateBps = 1000

// Validate checks the configuration for errors a running node could
// not recover from.
func Validate(c *Config) error {
	if c.Genesis.Supply == 0 {
		return ErrInvalidSupply
	}
	if c.Genesis.Holder == "" {
		return fmt.Errorf("genesis holder: %w", ErrMissingAccount)
	}
	if c.Accounts.Custody == "" {
		return fmt.Errorf("custody: %w", ErrMissingAccount)
	}
	if c.Accounts.Operations == "" {
		return fmt.Errorf("operations: %w", ErrMissingAccount)
	}
	if c.Accounts.Treasury == "" {
		return fmt.Errorf("treasury: %w", ErrMissingAccount)
	}
	if c.Accounts.Pool == "" {
		return fmt.Errorf("pool: %w", ErrMissingAccount)
	}

	for name, rate := range map[string]uint64{
		"buy_fee_bps":      c.Policy.BuyFeeBps,
		"sell_fee_bps":     c.Policy.SellFeeBps,
		"transfer_fee_bps": c.Policy.TransferFeeBps,
	} {
		if rate > maxFeeRateBps {
			return fmt.Errorf("%s %d (max %d): %w", name, rate, maxFeeRateBps, ErrInvalidRate)
		}
	}

	for name, bps := range map[string]uint64{
		"max_buy_bps":        c.Policy.MaxBuyBps,
		"max_sell_bps":       c.Policy.MaxSellBps,
		"max_wallet_bps":     c.Policy.MaxWalletBps,
		"swap_threshold_bps": c.Policy.SwapThresholdBps,
		"quote_haircut_bps":  c.Engine.QuoteHaircutBps,
	} {
		if bps > 10_000 {
			return fmt.Errorf("%s %d: %w", name, bps, ErrInvalidBps)
		}
	}

	switch c.Engine.ReceiptPolicy {
	case "custody", "treasury":
	default:
		return fmt.Errorf("receipt_policy %q: %w", c.Engine.ReceiptPolicy, ErrUnknownPolicy)
	}
	switch c.Engine.ForwardPolicy {
	case "abort", "retain":
	default:
		return fmt.Errorf("forward_policy %q: %w", c.Engine.ForwardPolicy, ErrUnknownPolicy)
	}

	switch c.Storage.Backend {
	case "memory":
	case "pebble", "leveldb":
		if c.DataDir == "" {
			return fmt.Errorf("backend %q: %w", c.Storage.Backend, ErrMissingDataDir)
		}
	default:
		return fmt.Errorf("%q: %w", c.Storage.Backend, ErrUnknownBackend)
	}
	if c.Storage.CacheSize <= 0 {
		return ErrInvalidCacheSize
	}

	if c.History.Enabled {
		switch c.History.Driver {
		case "sqlite", "postgres", "postgresql":
		default:
			return fmt.Errorf("history driver %q: %w", c.History.Driver, ErrUnknownBackend)
		}
	}

	return nil
}
