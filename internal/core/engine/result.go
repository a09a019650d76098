package engine

import "fmt"

// Result is the outcome code of an engine operation. Every failure is
// a typed, synchronous rejection of the whole attempted operation with
// no partial state change.
type Result int

// Result codes, grouped by category. The numeric bands mirror the
// error taxonomy: gate failures, limit failures, funding failures,
// launch failures, external-call failures.
const (
	Success Result = 0

	// Gate failures (100-199): rejected before any mutation,
	// recoverable by retrying after the precondition changes.
	NotLaunched    Result = 100
	AccountBlocked Result = 101
	Paused         Result = 102

	// Limit failures (200-299): recoverable by resizing the request.
	BuyLimitExceeded    Result = 200
	SellLimitExceeded   Result = 201
	WalletLimitExceeded Result = 202

	// Funding failures (300-399).
	InsufficientFunds Result = 300

	// Launch failures (400-499).
	AlreadyLaunched  Result = 400
	ZeroSeedAmount   Result = 401
	ZeroSeedCurrency Result = 402

	// External-call failures (500-599): raised during launch or
	// swap-back, always aborting the enclosing operation.
	PoolCallFailed        Result = 500
	ForwardTransferFailed Result = 501
	SwapLocked            Result = 502

	// Internal errors (900+): invariant violations, never expected.
	Internal Result = 900
)

// Class groups result codes by failure category.
type Class int

const (
	ClassSuccess Class = iota
	ClassGate
	ClassLimit
	ClassFunds
	ClassLaunch
	ClassExternal
	ClassInternal
)

func (r Result) IsSuccess() bool {
	return r == Success
}

func (r Result) Class() Class {
	switch {
	case r == Success:
		return ClassSuccess
	case r >= 100 && r < 200:
		return ClassGate
	case r >= 200 && r < 300:
		return ClassLimit
	case r >= 300 && r < 400:
		return ClassFunds
	case r >= 400 && r < 500:
		return ClassLaunch
	case r >= 500 && r < 600:
		return ClassExternal
	default:
		return ClassInternal
	}
}

var resultNames = map[Result]string{
	Success:               "Success",
	NotLaunched:           "NotLaunched",
	AccountBlocked:        "AccountBlocked",
	Paused:                "Paused",
	BuyLimitExceeded:      "BuyLimitExceeded",
	SellLimitExceeded:     "SellLimitExceeded",
	WalletLimitExceeded:   "WalletLimitExceeded",
	InsufficientFunds:     "InsufficientFunds",
	AlreadyLaunched:       "AlreadyLaunched",
	ZeroSeedAmount:        "ZeroSeedAmount",
	ZeroSeedCurrency:      "ZeroSeedCurrency",
	PoolCallFailed:        "PoolCallFailed",
	ForwardTransferFailed: "ForwardTransferFailed",
	SwapLocked:            "SwapLocked",
	Internal:              "Internal",
}

var resultMessages = map[Result]string{
	Success:               "operation applied",
	NotLaunched:           "trading has not launched",
	AccountBlocked:        "account is blocked",
	Paused:                "transfers are paused",
	BuyLimitExceeded:      "amount exceeds the maximum acquisition size",
	SellLimitExceeded:     "amount exceeds the maximum disposal size",
	WalletLimitExceeded:   "recipient balance would exceed the wallet limit",
	InsufficientFunds:     "account balance is too low",
	AlreadyLaunched:       "launch has already happened",
	ZeroSeedAmount:        "seed token amount is zero",
	ZeroSeedCurrency:      "seed currency amount is zero",
	PoolCallFailed:        "liquidity pool call failed",
	ForwardTransferFailed: "forwarding settlement currency failed",
	SwapLocked:            "swap-back already in progress",
	Internal:              "internal error",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// Message returns a human-readable description of the result.
func (r Result) Message() string {
	if msg, ok := resultMessages[r]; ok {
		return msg
	}
	return "unknown result"
}
