package node

import (
	"context"
	"log"

	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/engine"
	"github.com/tollhouse/tolld/internal/core/ledger"
	"github.com/tollhouse/tolld/internal/core/policy"
	"github.com/tollhouse/tolld/internal/storage/history"
)

// The methods below are the RPC surface. The engine is single-threaded
// per transfer, so every entry point takes the node mutex.

func (n *Node) NodeName() string { return n.cfg.NodeName }

func (n *Node) Tick() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Tick()
}

func (n *Node) Launched() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Launched()
}

func (n *Node) Balance(account string) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.Balance(ledger.Address(account)).Units()
}

func (n *Node) CurrencyBalance(account string) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.bank.CurrencyBalance(ledger.Address(account)).Units()
}

func (n *Node) PolicySnapshot() policy.Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.registry.Export()
}

// SubmitTransfer runs one transfer and journals it when applied.
func (n *Node) SubmitTransfer(from, to string, amt uint64) engine.Receipt {
	n.mu.Lock()
	receipt := n.engine.Transfer(ledger.Address(from), ledger.Address(to), amount.New(amt))
	tick := n.engine.Tick()
	n.mu.Unlock()

	if receipt.Result.IsSuccess() && n.journal != nil {
		_, err := n.journal.Append(context.Background(), history.Record{
			Tick:           tick,
			From:           from,
			To:             to,
			Amount:         amt,
			Fee:            receipt.Fee.Units(),
			Classification: receipt.Classification.String(),
		})
		if err != nil {
			log.Printf("history append failed: %v", err)
		}
	}
	return receipt
}

func (n *Node) Launch(caller string, seedTokens, seedCurrency uint64) engine.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.Launch(ledger.Address(caller), amount.New(seedTokens), amount.New(seedCurrency))
}

func (n *Node) SwapBack(amt uint64) engine.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.engine.SwapBack(amount.New(amt))
}

func (n *Node) AccountHistory(ctx context.Context, account string, limit int) ([]history.Record, error) {
	if n.journal == nil {
		return nil, nil
	}
	return n.journal.ByAccount(ctx, account, limit)
}

func (n *Node) RecentHistory(ctx context.Context, limit int) ([]history.Record, error) {
	if n.journal == nil {
		return nil, nil
	}
	return n.journal.Recent(ctx, limit)
}
