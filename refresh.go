package susu

import (
	"context"
	"sync"
	"time"

	"github.com/susuprotocol/susu-go/conf"
	"github.com/susuprotocol/susu-go/log"
	"github.com/susuprotocol/susu-go/wallet"
)

// Refresher polls the connected wallet's balance at a fixed interval, one
// timer per session. The loop stops on disconnect or teardown. In-flight
// reads are never forcibly cancelled; a completed read checks that its
// session is still the live one before touching shared state, so a late
// reply from a dead session is discarded.
type Refresher struct {
	mu sync.Mutex

	ledger Ledger
	wallet wallet.Wallet
	events *Events

	// Fires on every observed balance change.
	OnBalance func(address string, balance uint64)

	session uint64
	cancel  context.CancelFunc

	lastBalance uint64
	hasBalance  bool
}

func NewRefresher(ledger Ledger, w wallet.Wallet, events *Events) *Refresher {
	return &Refresher{ledger: ledger, wallet: w, events: events}
}

// Start begins the polling loop for the current wallet session. A prior
// loop, if any, is cancelled first.
func (r *Refresher) Start() {
	r.mu.Lock()

	if r.cancel != nil {
		r.cancel()
	}

	r.session++
	session := r.session
	r.hasBalance = false

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	r.mu.Unlock()

	go r.loop(ctx, session)
}

// Stop cancels the polling loop. Idempotent.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}

	r.session++
}

func (r *Refresher) loop(ctx context.Context, session uint64) {
	ticker := time.NewTicker(conf.GetRefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if !r.wallet.Connected() {
				r.Stop()
				return
			}

			r.tick(ctx, session)
		}
	}
}

func (r *Refresher) tick(ctx context.Context, session uint64) {
	address := r.wallet.Address()

	balance, err := r.ledger.AccountBalance(ctx, address)
	if err != nil {
		logger := log.Wallet("refresh")
		logger.Debug().Err(err).
			Msg("Balance refresh failed; will retry next tick.")
		return
	}

	r.mu.Lock()

	if r.session != session {
		// A newer session started while this read was in flight.
		r.mu.Unlock()
		return
	}

	changed := !r.hasBalance || r.lastBalance != balance.Balance
	r.lastBalance = balance.Balance
	r.hasBalance = true

	onBalance := r.OnBalance
	r.mu.Unlock()

	if changed && onBalance != nil {
		onBalance(address, balance.Balance)
	}
}
