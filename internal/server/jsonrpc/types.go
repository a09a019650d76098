package jsonrpc

import (
	"encoding/json"

	"github.com/tollhouse/tolld/internal/storage/history"
)

const defaultHistoryLimit = 50

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ServerInfoResult reports node identity and ledger position.
type ServerInfoResult struct {
	NodeName string `json:"node_name"`
	Tick     uint64 `json:"tick"`
	Launched bool   `json:"launched"`
}

// BalanceParams selects an account.
type BalanceParams struct {
	Account string `json:"account"`
}

// BalanceResult reports token and settlement currency holdings.
type BalanceResult struct {
	Account  string `json:"account"`
	Balance  uint64 `json:"balance"`
	Currency uint64 `json:"currency"`
}

// TransferParams describes a transfer submission.
type TransferParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// TransferResult reports the outcome of an applied or rejected transfer.
type TransferResult struct {
	Result         string `json:"result"`
	Message        string `json:"message"`
	Applied        bool   `json:"applied"`
	Classification string `json:"classification"`
	Fee            uint64 `json:"fee"`
	Net            uint64 `json:"net"`
	SwapTriggered  bool   `json:"swap_triggered"`
	SwapResult     string `json:"swap_result,omitempty"`
}

// LaunchParams seeds the liquidity pool and opens trading.
type LaunchParams struct {
	Caller       string `json:"caller"`
	SeedTokens   uint64 `json:"seed_tokens"`
	SeedCurrency uint64 `json:"seed_currency"`
}

// SwapBackParams caps how much accumulated fee custody to convert.
// Zero means the full custody balance.
type SwapBackParams struct {
	Amount uint64 `json:"amount"`
}

// ResultStatus reports an engine result code.
type ResultStatus struct {
	Result  string `json:"result"`
	Message string `json:"message"`
	Applied bool   `json:"applied"`
}

// HistoryParams selects journal rows.
type HistoryParams struct {
	Account string `json:"account,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// HistoryResult carries journal rows, newest first.
type HistoryResult struct {
	Transfers []history.Record `json:"transfers"`
}
