package susu

import (
	"context"
	"fmt"
	"time"

	"github.com/susuprotocol/susu-go/cache"
	"github.com/susuprotocol/susu-go/conf"
	"github.com/susuprotocol/susu-go/gateway"
	"github.com/susuprotocol/susu-go/log"
)

// Payout is the split of one round's pooled contribution.
type Payout struct {
	Gross uint64
	Fee   uint64
	Net   uint64
}

// ExpectedPayout computes the gross pool, platform fee and net payout for
// one round. The fee is a protocol constant in basis points, rounded half
// up.
func ExpectedPayout(contribution, memberCount uint64) Payout {
	gross := contribution * memberCount
	fee := (gross*conf.GetFeeBasisPoints() + 5000) / 10000

	return Payout{
		Gross: gross,
		Fee:   fee,
		Net:   gross - fee,
	}
}

// EscrowSnapshot is an on-demand aggregate over ledger state. Never
// persisted; cached briefly because it is expensive to recompute.
type EscrowSnapshot struct {
	CircleID      uint64
	Balance       uint64
	TotalDeposits uint64
	ComputedAt    time.Time
}

// Solvency is the advisory result of a pre-claim balance check.
type Solvency struct {
	Sufficient bool
	Balance    uint64
	Shortfall  uint64
}

func escrowKey(id uint64) string {
	return fmt.Sprintf("escrow:%d", id)
}

// Reconciler verifies escrow solvency before a claim is attempted.
type Reconciler struct {
	ledger Ledger
	cache  *cache.Cache
	sender string
}

func NewReconciler(ledger Ledger, c *cache.Cache, sender string) *Reconciler {
	return &Reconciler{ledger: ledger, cache: c, sender: sender}
}

// Snapshot reads the circle's escrow balance and deposit total, serving a
// cached snapshot within its short TTL.
func (r *Reconciler) Snapshot(ctx context.Context, circleID uint64) (*EscrowSnapshot, error) {
	val, err := r.cache.GetOrSet(escrowKey(circleID), func() (interface{}, error) {
		raw, err := r.ledger.CallReadOnly(ctx, "get-escrow", []string{uintArg(circleID)}, r.sender)
		if err != nil {
			return nil, err
		}

		tuple, ok := raw.Unwrap()
		if !ok || tuple == nil || tuple.Type != gateway.TypeTuple {
			return nil, ErrMalformedLedgerData
		}

		balance, ok := tuple.TupleUint("balance")
		if !ok {
			return nil, ErrMalformedLedgerData
		}

		deposits, _ := tuple.TupleUint("total-deposits")

		return &EscrowSnapshot{
			CircleID:      circleID,
			Balance:       balance,
			TotalDeposits: deposits,
			ComputedAt:    time.Now(),
		}, nil
	}, cache.TTL(conf.GetEscrowTTL()))

	if err != nil {
		return nil, err
	}

	return val.(*EscrowSnapshot), nil
}

// VerifySolvency checks that the live escrow balance covers the expected
// net payout. Advisory only: the balance can change before the claim
// executes and the ledger remains the final arbiter. When the balance
// read itself fails, the check fails closed, reporting insufficiency
// together with the error so the caller does not submit a doomed claim.
func (r *Reconciler) VerifySolvency(ctx context.Context, circleID, expectedNet uint64) (Solvency, error) {
	snap, err := r.Snapshot(ctx, circleID)
	if err != nil {
		logger := log.Escrow("solvency")
		logger.Warn().Err(err).Uint64("circle_id", circleID).
			Msg("Escrow read failed; failing closed.")

		return Solvency{Sufficient: false, Shortfall: expectedNet}, err
	}

	if snap.Balance >= expectedNet {
		return Solvency{Sufficient: true, Balance: snap.Balance}, nil
	}

	return Solvency{
		Sufficient: false,
		Balance:    snap.Balance,
		Shortfall:  expectedNet - snap.Balance,
	}, ErrInsufficientEscrow
}
