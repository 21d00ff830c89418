// Package wallet declares the wallet-extension capability consumed by the
// engine. The engine never inspects wallet-internal state; key material and
// signing stay behind this boundary.
package wallet

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrUnavailable means no wallet extension is installed or reachable.
	ErrUnavailable = errors.New("wallet unavailable")

	// ErrRejected means the user declined the connect or signing prompt.
	ErrRejected = errors.New("rejected by user")
)

// SignRequest describes one contract call for the wallet to sign. Amount
// is in minor units; zero for calls that do not attach funds.
type SignRequest struct {
	Function string
	Args     []string
	Amount   uint64
}

type Wallet interface {
	// Available reports whether a wallet extension can be reached at all.
	Available() bool

	// Connect prompts for a session and returns the principal address.
	Connect(ctx context.Context) (string, error)

	Disconnect()

	Connected() bool

	// Address returns the connected principal, or "" when disconnected.
	Address() string

	// SignTransaction produces a signed transaction in hex, ready for
	// broadcast. The wallet assigns the nonce.
	SignTransaction(ctx context.Context, req SignRequest) (string, error)
}
