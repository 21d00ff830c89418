package susu

import (
	"context"

	"github.com/susuprotocol/susu-go/gateway"
)

// Ledger is the read/write surface of the remote ledger the engine
// consumes. *gateway.Client satisfies it; tests substitute doubles.
type Ledger interface {
	AccountBalance(ctx context.Context, address string) (*gateway.Balance, error)
	CallReadOnly(ctx context.Context, fn string, args []string, sender string) (*gateway.Value, error)
	BroadcastTransaction(ctx context.Context, txHex string) (string, error)
	BlockHeight(ctx context.Context) (uint64, error)
	TransactionStatus(ctx context.Context, txid string) (*gateway.TxInfo, error)
}

var _ Ledger = (*gateway.Client)(nil)
