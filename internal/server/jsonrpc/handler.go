package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tollhouse/tolld/internal/core/engine"
	"github.com/tollhouse/tolld/internal/core/policy"
	"github.com/tollhouse/tolld/internal/storage/history"
)

// Backend is the node surface the RPC methods call into. The node
// serializes access; handlers never touch engine internals directly.
type Backend interface {
	NodeName() string
	Tick() uint64
	Launched() bool
	Balance(account string) uint64
	CurrencyBalance(account string) uint64
	PolicySnapshot() policy.Snapshot
	SubmitTransfer(from, to string, amount uint64) engine.Receipt
	Launch(caller string, seedTokens, seedCurrency uint64) engine.Result
	SwapBack(amount uint64) engine.Result
	AccountHistory(ctx context.Context, account string, limit int) ([]history.Record, error)
	RecentHistory(ctx context.Context, limit int) ([]history.Record, error)
}

type methodFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Handler dispatches JSON-RPC methods.
type Handler struct {
	backend Backend
	methods map[string]methodFunc
}

// NewHandler registers the full method set over a backend.
func NewHandler(backend Backend) *Handler {
	h := &Handler{
		backend: backend,
		methods: make(map[string]methodFunc),
	}

	h.methods["server_info"] = h.serverInfo
	h.methods["balance"] = h.balance
	h.methods["policy_info"] = h.policyInfo
	h.methods["submit_transfer"] = h.submitTransfer
	h.methods["launch"] = h.launch
	h.methods["swap_back"] = h.swapBack
	h.methods["account_history"] = h.accountHistory
	h.methods["recent_history"] = h.recentHistory

	return h
}

// Handle dispatches a method by name.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	fn, ok := h.methods[method]
	if !ok {
		return nil, fmt.Errorf("method %s not found", method)
	}
	return fn(ctx, params)
}

func decodeParams(params json.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return nil
	}
	return json.Unmarshal(params, v)
}

func (h *Handler) serverInfo(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return ServerInfoResult{
		NodeName: h.backend.NodeName(),
		Tick:     h.backend.Tick(),
		Launched: h.backend.Launched(),
	}, nil
}

func (h *Handler) balance(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req BalanceParams
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if req.Account == "" {
		return nil, fmt.Errorf("account is required")
	}
	return BalanceResult{
		Account:  req.Account,
		Balance:  h.backend.Balance(req.Account),
		Currency: h.backend.CurrencyBalance(req.Account),
	}, nil
}

func (h *Handler) policyInfo(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return h.backend.PolicySnapshot(), nil
}

func (h *Handler) submitTransfer(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req TransferParams
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if req.From == "" || req.To == "" {
		return nil, fmt.Errorf("from and to are required")
	}

	receipt := h.backend.SubmitTransfer(req.From, req.To, req.Amount)
	res := TransferResult{
		Result:         receipt.Result.String(),
		Message:        receipt.Result.Message(),
		Applied:        receipt.Result.IsSuccess(),
		Classification: receipt.Classification.String(),
		Fee:            receipt.Fee.Units(),
		Net:            receipt.Net.Units(),
		SwapTriggered:  receipt.SwapTriggered,
	}
	if receipt.SwapTriggered {
		res.SwapResult = receipt.SwapResult.String()
	}
	return res, nil
}

func (h *Handler) launch(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req LaunchParams
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if req.Caller == "" {
		return nil, fmt.Errorf("caller is required")
	}

	result := h.backend.Launch(req.Caller, req.SeedTokens, req.SeedCurrency)
	return ResultStatus{
		Result:  result.String(),
		Message: result.Message(),
		Applied: result.IsSuccess(),
	}, nil
}

func (h *Handler) swapBack(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req SwapBackParams
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}

	result := h.backend.SwapBack(req.Amount)
	return ResultStatus{
		Result:  result.String(),
		Message: result.Message(),
		Applied: result.IsSuccess(),
	}, nil
}

func (h *Handler) accountHistory(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req HistoryParams
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if req.Account == "" {
		return nil, fmt.Errorf("account is required")
	}
	if req.Limit <= 0 {
		req.Limit = defaultHistoryLimit
	}

	recs, err := h.backend.AccountHistory(ctx, req.Account, req.Limit)
	if err != nil {
		return nil, err
	}
	return HistoryResult{Transfers: recs}, nil
}

func (h *Handler) recentHistory(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req HistoryParams
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = defaultHistoryLimit
	}

	recs, err := h.backend.RecentHistory(ctx, req.Limit)
	if err != nil {
		return nil, err
	}
	return HistoryResult{Transfers: recs}, nil
}
