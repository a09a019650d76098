// Package node assembles the ledger, policy registry, transfer engine,
// persistence and network surfaces into one runnable process.
package node

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tollhouse/tolld/internal/config"
	"github.com/tollhouse/tolld/internal/core/amount"
	"github.com/tollhouse/tolld/internal/core/engine"
	"github.com/tollhouse/tolld/internal/core/ledger"
	"github.com/tollhouse/tolld/internal/core/policy"
	"github.com/tollhouse/tolld/internal/core/pool"
	"github.com/tollhouse/tolld/internal/server/jsonrpc"
	"github.com/tollhouse/tolld/internal/server/ws"
	"github.com/tollhouse/tolld/internal/storage/history"
	"github.com/tollhouse/tolld/internal/storage/keyvalue"
	"github.com/tollhouse/tolld/internal/storage/snapshot"
)

const (
	// tickInterval is the wall-clock length of one engine tick.
	tickInterval = time.Second

	// snapshotEvery is the tick period between background snapshot
	// writes. A snapshot is always written on shutdown.
	snapshotEvery = 60
)

// Node owns the single-threaded engine and serializes every state
// access behind one mutex.
type Node struct {
	cfg *config.Config

	mu       sync.Mutex
	ledger   *ledger.Ledger
	registry *policy.Registry
	bank     *pool.MemoryBank
	factory  *pool.MemoryFactory
	engine   *engine.Engine

	db        keyvalue.DB
	snapshots *snapshot.Store
	journal   history.Store

	rpcSrv *jsonrpc.Server
	wsPub  *ws.Publisher
}

// New builds a node from configuration, restoring the latest snapshot
// when one exists and minting genesis state otherwise.
func New(ctx context.Context, cfg *config.Config) (*Node, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	n := &Node{cfg: cfg}

	db, err := openBackend(cfg)
	if err != nil {
		return nil, err
	}
	n.db = db
	n.snapshots = snapshot.NewStore(db)

	if err := n.buildState(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.History.Enabled {
		journal, err := openJournal(cfg)
		if err != nil {
			db.Close()
			return nil, err
		}
		n.journal = journal
	}

	if cfg.RPC.Enabled {
		n.rpcSrv = jsonrpc.NewServer(cfg.RPC.Addr, jsonrpc.NewHandler(n))
	}
	if cfg.WS.Enabled {
		n.wsPub = ws.NewPublisher(cfg.WS.Addr, cfg.WS.SendQueueSize)
		n.engine.SetEvents(n.wsPub)
	}

	return n, nil
}

func openBackend(cfg *config.Config) (keyvalue.DB, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return keyvalue.NewMemory(), nil
	case "pebble":
		db, err := keyvalue.OpenPebble(filepath.Join(cfg.DataDir, "state"))
		if err != nil {
			return nil, err
		}
		return keyvalue.NewCached(db, cfg.Storage.CacheSize)
	case "leveldb":
		db, err := keyvalue.OpenLevelDB(filepath.Join(cfg.DataDir, "state"))
		if err != nil {
			return nil, err
		}
		return keyvalue.NewCached(db, cfg.Storage.CacheSize)
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Storage.Backend, config.ErrUnknownBackend)
	}
}

func openJournal(cfg *config.Config) (history.Store, error) {
	hc := history.Config{Driver: cfg.History.Driver, DSN: cfg.History.DSN}
	if hc.DSN == "" && hc.Driver == "sqlite" && cfg.DataDir != "" {
		hc.DSN = filepath.Join(cfg.DataDir, "history.db")
	}
	return history.Open(hc)
}

// buildState restores from the latest snapshot, or mints genesis when
// none exists.
func (n *Node) buildState(ctx context.Context) error {
	snap, err := n.snapshots.Load(ctx)
	fresh := errors.Is(err, snapshot.ErrNoSnapshot)
	if err != nil && !fresh {
		return err
	}

	accounts := n.cfg.Accounts
	n.bank = pool.NewMemoryBank()

	if fresh {
		n.ledger = ledger.NewWithGenesis(
			ledger.Address(n.cfg.Genesis.Holder),
			amount.New(n.cfg.Genesis.Supply),
		)
		if n.cfg.Genesis.Currency > 0 {
			if err := n.bank.CreditCurrency(
				ledger.Address(n.cfg.Genesis.Holder),
				amount.New(n.cfg.Genesis.Currency),
			); err != nil {
				return err
			}
		}
		n.registry = policy.NewRegistry(policy.DefaultBounds(), amount.New(n.cfg.Genesis.Supply))
		if err := installPolicy(n.registry, n.cfg); err != nil {
			return err
		}
	} else {
		n.ledger = ledger.New()
		n.registry = policy.NewRegistry(policy.DefaultBounds(), amount.New(snap.TotalSupply))
	}

	n.factory = pool.NewMemoryFactory(
		ledger.Address(accounts.Pool),
		n.ledger,
		n.bank,
		func() uint64 { return n.engine.Tick() },
	)

	// A launched snapshot needs the pool back before the engine is
	// built so the swap path finds it.
	if !fresh && snap.Engine.Launched {
		if _, err := n.factory.CreatePool(); err != nil {
			return err
		}
	}

	n.engine = engine.New(n.ledger, n.registry, n.factory, n.bank, engineConfig(n.cfg))

	if !fresh {
		snapshot.Apply(snap, n.ledger, n.registry, n.engine, n.bank, n.factory.Concrete())
	}
	return nil
}

// installPolicy converts the basis-point configuration to absolute
// amounts against the genesis supply and installs it.
func installPolicy(reg *policy.Registry, cfg *config.Config) error {
	supply := cfg.Genesis.Supply

	if err := reg.SetRates(policy.Rates{
		Buy:      cfg.Policy.BuyFeeBps,
		Sell:     cfg.Policy.SellFeeBps,
		Transfer: cfg.Policy.TransferFeeBps,
	}); err != nil {
		return err
	}
	if err := reg.SetLimits(policy.Limits{
		MaxBuy:    bpsOf(supply, cfg.Policy.MaxBuyBps),
		MaxSell:   bpsOf(supply, cfg.Policy.MaxSellBps),
		MaxWallet: bpsOf(supply, cfg.Policy.MaxWalletBps),
	}); err != nil {
		return err
	}
	if err := reg.SetSwapThreshold(bpsOf(supply, cfg.Policy.SwapThresholdBps)); err != nil {
		return err
	}
	reg.SetLimitsEnabled(cfg.Policy.LimitsEnabled)
	reg.SetTaxesEnabled(cfg.Policy.TaxesEnabled)

	// System accounts and the genesis holder move funds outside the
	// fee and limit regime.
	for _, addr := range []string{
		cfg.Accounts.Custody,
		cfg.Accounts.Operations,
		cfg.Accounts.Treasury,
		cfg.Genesis.Holder,
	} {
		reg.SetFeeExempt(ledger.Address(addr), true)
		reg.SetLimitExempt(ledger.Address(addr), true)
	}
	return nil
}

func bpsOf(supply, bps uint64) amount.Amount {
	return amount.New(supply / 10_000 * bps)
}

func engineConfig(cfg *config.Config) engine.Config {
	ec := engine.Config{
		CustodyAccount:    ledger.Address(cfg.Accounts.Custody),
		OperationsAccount: ledger.Address(cfg.Accounts.Operations),
		TreasuryAccount:   ledger.Address(cfg.Accounts.Treasury),
		SwapCapMultiplier: cfg.Engine.SwapCapMultiplier,
		MinSwapInterval:   cfg.Engine.MinSwapInterval,
		QuoteHaircutBps:   cfg.Engine.QuoteHaircutBps,
	}
	if cfg.Engine.ReceiptPolicy == "treasury" {
		ec.ReceiptPolicy = engine.ReceiptTreasury
	}
	if cfg.Engine.ForwardPolicy == "retain" {
		ec.ForwardPolicy = engine.ForwardRetain
	}
	return ec
}

// Run serves until the context is canceled, then drains, snapshots and
// closes every component.
func (n *Node) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if n.rpcSrv != nil {
		g.Go(n.rpcSrv.Start)
		log.Printf("json-rpc listening on %s", n.cfg.RPC.Addr)
	}
	if n.wsPub != nil {
		g.Go(n.wsPub.Start)
		log.Printf("websocket listening on %s", n.cfg.WS.Addr)
	}

	g.Go(func() error {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n.mu.Lock()
				n.engine.AdvanceTick()
				tick := n.engine.Tick()
				n.mu.Unlock()
				if tick%snapshotEvery == 0 {
					if err := n.saveSnapshot(context.Background()); err != nil {
						log.Printf("background snapshot failed: %v", err)
					}
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var firstErr error
		if n.rpcSrv != nil {
			firstErr = n.rpcSrv.Shutdown(shutdownCtx)
		}
		if n.wsPub != nil {
			if err := n.wsPub.Shutdown(shutdownCtx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	})

	err := g.Wait()

	if saveErr := n.saveSnapshot(context.Background()); saveErr != nil && err == nil {
		err = saveErr
	}
	if closeErr := n.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func (n *Node) saveSnapshot(ctx context.Context) error {
	n.mu.Lock()
	snap := snapshot.Capture(n.ledger, n.registry, n.engine, n.bank, n.factory.Concrete())
	n.mu.Unlock()
	return n.snapshots.Save(ctx, snap)
}

// Close releases storage handles. Run calls it on the way out; it is
// exported for callers that never Run.
func (n *Node) Close() error {
	var firstErr error
	if n.journal != nil {
		if err := n.journal.Close(); err != nil {
			firstErr = err
		}
	}
	if err := n.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
