package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, "tolld", cfg.NodeName)
	assert.Equal(t, uint64(1_000_000_000_000_000), cfg.Genesis.Supply)
	assert.Equal(t, uint64(300), cfg.Policy.BuyFeeBps)
	assert.True(t, cfg.Policy.LimitsEnabled)
	assert.Equal(t, "abort", cfg.Engine.ForwardPolicy)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tolld.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
node_name = "testnode"
data_dir = "`+dir+`"

[policy]
buy_fee_bps = 500
transfer_fee_bps = 100

[storage]
backend = "pebble"

[history]
enabled = true
driver = "sqlite"
dsn = "`+dir+`/history.db"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "testnode", cfg.NodeName)
	assert.Equal(t, uint64(500), cfg.Policy.BuyFeeBps)
	assert.Equal(t, uint64(100), cfg.Policy.TransferFeeBps)
	// Untouched keys keep their defaults.
	assert.Equal(t, uint64(300), cfg.Policy.SellFeeBps)
	assert.Equal(t, "pebble", cfg.Storage.Backend)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, path, cfg.Path())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"fee too high", func(c *Config) { c.Policy.BuyFeeBps = 1001 }, ErrInvalidRate},
		{"bps too high", func(c *Config) { c.Policy.MaxWalletBps = 10_001 }, ErrInvalidBps},
		{"zero supply", func(c *Config) { c.Genesis.Supply = 0 }, ErrInvalidSupply},
		{"missing custody", func(c *Config) { c.Accounts.Custody = "" }, ErrMissingAccount},
		{"missing pool", func(c *Config) { c.Accounts.Pool = "" }, ErrMissingAccount},
		{"bad backend", func(c *Config) { c.Storage.Backend = "rocksdb" }, ErrUnknownBackend},
		{"pebble without dir", func(c *Config) { c.Storage.Backend = "pebble" }, ErrMissingDataDir},
		{"bad receipt policy", func(c *Config) { c.Engine.ReceiptPolicy = "burn" }, ErrUnknownPolicy},
		{"bad forward policy", func(c *Config) { c.Engine.ForwardPolicy = "drop" }, ErrUnknownPolicy},
		{"zero cache", func(c *Config) { c.Storage.CacheSize = 0 }, ErrInvalidCacheSize},
		{"bad history driver", func(c *Config) {
			c.History.Enabled = true
			c.History.Driver = "oracle"
		}, ErrUnknownBackend},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.ErrorIs(t, Validate(cfg), tc.want)
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TOLLD_NODE_NAME", "env-node")
	t.Setenv("TOLLD_POLICY_SELL_FEE_BPS", "700")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-node", cfg.NodeName)
	assert.Equal(t, uint64(700), cfg.Policy.SellFeeBps)
}
