package susu

import "github.com/pkg/errors"

var (
	// ErrWalletNotConnected is a precondition failure; nothing was
	// recorded or broadcast.
	ErrWalletNotConnected = errors.New("wallet not connected")

	// ErrMalformedLedgerData means a read succeeded but its shape is
	// unusable. The subject is treated as absent, never cached.
	ErrMalformedLedgerData = errors.New("malformed ledger data")

	// ErrBroadcastFailed wraps wallet or transport failures during submit.
	ErrBroadcastFailed = errors.New("broadcast failed")

	// ErrInsufficientEscrow is the advisory pre-claim solvency failure.
	ErrInsufficientEscrow = errors.New("insufficient escrow")

	// ErrDuplicateInFlight rejects a second submission for a
	// (circle, action) pair whose first submission is still live.
	ErrDuplicateInFlight = errors.New("duplicate transaction in flight")
)
