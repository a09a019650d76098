package config

import "github.com/spf13/viper"

// setDefaults installs the defaults for a single-node deployment: one
// billion whole tokens at six decimals, 3% buy and sell fees, no peer
// fee, limits at 1% of supply and a 0.05% swap threshold.
func setDefaults(v *viper.Viper) {
	v.SetDefault("node_name", "tolld")
	v.SetDefault("data_dir", "")

	v.SetDefault("genesis.holder", "issuer")
	v.SetDefault("genesis.supply", uint64(1_000_000_000_000_000))
	v.SetDefault("genesis.currency", uint64(0))

	v.SetDefault("accounts.custody", "custody")
	v.SetDefault("accounts.operations", "operations")
	v.SetDefault("accounts.treasury", "treasury")
	v.SetDefault("accounts.pool", "pool")

	v.SetDefault("policy.buy_fee_bps", 300)
	v.SetDefault("policy.sell_fee_bps", 300)
	v.SetDefault("policy.transfer_fee_bps", 0)
	v.SetDefault("policy.max_buy_bps", 100)
	v.SetDefault("policy.max_sell_bps", 100)
	v.SetDefault("policy.max_wallet_bps", 200)
	v.SetDefault("policy.swap_threshold_bps", 5)
	v.SetDefault("policy.limits_enabled", true)
	v.SetDefault("policy.taxes_enabled", true)

	v.SetDefault("engine.receipt_policy", "custody")
	v.SetDefault("engine.forward_policy", "abort")
	v.SetDefault("engine.swap_cap_multiplier", 1)
	v.SetDefault("engine.min_swap_interval", 1)
	v.SetDefault("engine.quote_haircut_bps", 0)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.cache_size", 1024)

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.dsn", "")

	v.SetDefault("rpc.enabled", true)
	v.SetDefault("rpc.addr", "127.0.0.1:5005")

	v.SetDefault("ws.enabled", true)
	v.SetDefault("ws.addr", "127.0.0.1:6006")
	v.SetDefault("ws.send_queue_size", 100)
}
