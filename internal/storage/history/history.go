// Package history journals applied transfers to a relational database
// so past activity survives restarts and can be queried per account.
// SQLite backs the single-node default; postgres is available for
// shared deployments.
package history

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrClosed        = errors.New("history store is closed")
	ErrUnknownDriver = errors.New("unknown history driver")
	ErrMissingDSN    = errors.New("history driver requires a dsn")
)

// Record is one journaled transfer attempt. Only applied transfers are
// journaled; rejected ones never mutate state and are not history.
type Record struct {
	Seq            int64  `json:"seq"`
	Tick           uint64 `json:"tick"`
	From           string `json:"from"`
	To             string `json:"to"`
	Amount         uint64 `json:"amount"`
	Fee            uint64 `json:"fee"`
	Classification string `json:"classification"`
}

// Store is the journal surface the node writes to and the query
// handlers read from.
type Store interface {
	// Append journals one applied transfer and returns its sequence
	// number.
	Append(ctx context.Context, rec Record) (int64, error)

	// Recent returns the newest records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)

	// ByAccount returns the newest records touching an account as
	// sender or receiver, newest first.
	ByAccount(ctx context.Context, account string, limit int) ([]Record, error)

	// Count returns the total number of journaled transfers.
	Count(ctx context.Context) (int64, error)

	Close() error
}

// Config selects and parameterizes the journal backend.
type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver string

	// DSN is the database path (sqlite) or connection string
	// (postgres).
	DSN string
}

// Open creates the store for the configured driver.
func Open(cfg Config) (Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("driver %q: %w", cfg.Driver, ErrMissingDSN)
	}
	switch cfg.Driver {
	case "sqlite":
		return openSQL("sqlite", cfg.DSN)
	case "postgres", "postgresql":
		return openSQL("postgres", cfg.DSN)
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Driver, ErrUnknownDriver)
	}
}
