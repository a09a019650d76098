package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tollhouse/tolld/internal/core/engine"
	"github.com/tollhouse/tolld/internal/core/policy"
	"github.com/tollhouse/tolld/internal/storage/history"
)

type fakeBackend struct {
	balances map[string]uint64
	currency map[string]uint64
	records  []history.Record

	lastTransfer TransferParams
	lastLaunch   LaunchParams
	lastSwapCap  uint64

	transferReceipt engine.Receipt
	launchResult    engine.Result
	swapResult      engine.Result
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		balances: map[string]uint64{"alice": 1000},
		currency: map[string]uint64{"alice": 50},
	}
}

func (b *fakeBackend) NodeName() string { return "test-node" }
func (b *fakeBackend) Tick() uint64     { return 7 }
func (b *fakeBackend) Launched() bool   { return true }

func (b *fakeBackend) Balance(account string) uint64         { return b.balances[account] }
func (b *fakeBackend) CurrencyBalance(account string) uint64 { return b.currency[account] }

func (b *fakeBackend) PolicySnapshot() policy.Snapshot {
	return policy.Snapshot{
		Rates:         policy.Rates{Buy: 300, Sell: 500, Transfer: 100},
		SwapThreshold: 500_000,
		TaxesEnabled:  true,
	}
}

func (b *fakeBackend) SubmitTransfer(from, to string, amt uint64) engine.Receipt {
	b.lastTransfer = TransferParams{From: from, To: to, Amount: amt}
	return b.transferReceipt
}

func (b *fakeBackend) Launch(caller string, seedTokens, seedCurrency uint64) engine.Result {
	b.lastLaunch = LaunchParams{Caller: caller, SeedTokens: seedTokens, SeedCurrency: seedCurrency}
	return b.launchResult
}

func (b *fakeBackend) SwapBack(amt uint64) engine.Result {
	b.lastSwapCap = amt
	return b.swapResult
}

func (b *fakeBackend) AccountHistory(ctx context.Context, account string, limit int) ([]history.Record, error) {
	return b.records, nil
}

func (b *fakeBackend) RecentHistory(ctx context.Context, limit int) ([]history.Record, error) {
	return b.records, nil
}

func call(t *testing.T, srv *Server, method string, params interface{}) Response {
	t.Helper()

	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"id":      1,
	}
	if params != nil {
		body["params"] = params
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func resultMap(t *testing.T, resp Response) map[string]interface{} {
	t.Helper()
	require.Nil(t, resp.Error)
	m, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	return m
}

func TestServerInfo(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewHandler(newFakeBackend()))

	m := resultMap(t, call(t, srv, "server_info", nil))
	assert.Equal(t, "test-node", m["node_name"])
	assert.Equal(t, float64(7), m["tick"])
	assert.Equal(t, true, m["launched"])
}

func TestBalance(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewHandler(newFakeBackend()))

	m := resultMap(t, call(t, srv, "balance", BalanceParams{Account: "alice"}))
	assert.Equal(t, float64(1000), m["balance"])
	assert.Equal(t, float64(50), m["currency"])

	resp := call(t, srv, "balance", BalanceParams{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32603, resp.Error.Code)
}

func TestSubmitTransfer(t *testing.T) {
	backend := newFakeBackend()
	backend.transferReceipt = engine.Receipt{
		Result:         engine.Success,
		Classification: engine.Peer,
		Fee:            10,
		Net:            990,
	}
	srv := NewServer("127.0.0.1:0", NewHandler(backend))

	m := resultMap(t, call(t, srv, "submit_transfer", TransferParams{
		From: "alice", To: "bob", Amount: 1000,
	}))
	assert.Equal(t, true, m["applied"])
	assert.Equal(t, "peer", m["classification"])
	assert.Equal(t, float64(10), m["fee"])
	assert.Equal(t, float64(990), m["net"])
	assert.Equal(t, TransferParams{From: "alice", To: "bob", Amount: 1000}, backend.lastTransfer)
}

func TestSubmitTransferRejected(t *testing.T) {
	backend := newFakeBackend()
	backend.transferReceipt = engine.Receipt{
		Result:         engine.AccountBlocked,
		Classification: engine.Peer,
	}
	srv := NewServer("127.0.0.1:0", NewHandler(backend))

	m := resultMap(t, call(t, srv, "submit_transfer", TransferParams{
		From: "alice", To: "bob", Amount: 1,
	}))
	assert.Equal(t, false, m["applied"])
	assert.Equal(t, engine.AccountBlocked.String(), m["result"])
}

func TestLaunch(t *testing.T) {
	backend := newFakeBackend()
	backend.launchResult = engine.Success
	srv := NewServer("127.0.0.1:0", NewHandler(backend))

	m := resultMap(t, call(t, srv, "launch", LaunchParams{
		Caller: "issuer", SeedTokens: 400, SeedCurrency: 100,
	}))
	assert.Equal(t, true, m["applied"])
	assert.Equal(t, uint64(400), backend.lastLaunch.SeedTokens)
}

func TestSwapBack(t *testing.T) {
	backend := newFakeBackend()
	backend.swapResult = engine.Success
	srv := NewServer("127.0.0.1:0", NewHandler(backend))

	m := resultMap(t, call(t, srv, "swap_back", SwapBackParams{Amount: 2_000_000}))
	assert.Equal(t, true, m["applied"])
	assert.Equal(t, uint64(2_000_000), backend.lastSwapCap)
}

func TestHistoryMethods(t *testing.T) {
	backend := newFakeBackend()
	backend.records = []history.Record{
		{Seq: 1, Tick: 3, From: "alice", To: "bob", Amount: 100, Fee: 1, Classification: "peer"},
	}
	srv := NewServer("127.0.0.1:0", NewHandler(backend))

	m := resultMap(t, call(t, srv, "recent_history", nil))
	transfers, ok := m["transfers"].([]interface{})
	require.True(t, ok)
	assert.Len(t, transfers, 1)

	m = resultMap(t, call(t, srv, "account_history", HistoryParams{Account: "alice"}))
	transfers, ok = m["transfers"].([]interface{})
	require.True(t, ok)
	assert.Len(t, transfers, 1)

	resp := call(t, srv, "account_history", HistoryParams{})
	require.NotNil(t, resp.Error)
}

func TestUnknownMethod(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewHandler(newFakeBackend()))

	resp := call(t, srv, "no_such_method", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32603, resp.Error.Code)
}

func TestParseError(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewHandler(newFakeBackend()))

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32700, resp.Error.Code)
}

func TestRejectsGET(t *testing.T) {
	srv := NewServer("127.0.0.1:0", NewHandler(newFakeBackend()))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
