// Copyright (c) 2026 Susu Protocol
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package susu

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minio/highwayhash"
	"github.com/pkg/errors"

	"github.com/susuprotocol/susu-go/conf"
	"github.com/susuprotocol/susu-go/gateway"
	"github.com/susuprotocol/susu-go/log"
	"github.com/susuprotocol/susu-go/wallet"
)

type TxAction string

const (
	ActionCreateCircle      TxAction = "create-circle"
	ActionJoin              TxAction = "join-circle"
	ActionDeposit           TxAction = "deposit"
	ActionClaimPayout       TxAction = "claim-payout"
	ActionLeave             TxAction = "leave-circle"
	ActionEmergencyWithdraw TxAction = "emergency-withdraw"
	ActionMintNFT           TxAction = "mint-slot-nft"
	ActionListNFT           TxAction = "list-slot-nft"
	ActionUnlistNFT         TxAction = "unlist-slot-nft"
	ActionBuyNFT            TxAction = "buy-slot-nft"
)

type TxStatus int

const (
	TxPending TxStatus = iota
	TxSubmitted
	TxSuccess
	TxFailed
)

func (s TxStatus) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxSubmitted:
		return "submitted"
	case TxSuccess:
		return "success"
	case TxFailed:
		return "failed"
	}

	return "unknown"
}

func (s TxStatus) Terminal() bool {
	return s == TxSuccess || s == TxFailed
}

// PendingTx tracks one user-initiated write from submission through its
// terminal state. Entries are removed only by an explicit clear so the UI
// can keep showing history.
type PendingTx struct {
	ID       string
	Action   TxAction
	CircleID uint64
	Amount   uint64

	TxID      string
	Status    TxStatus
	Error     string
	CreatedAt time.Time
}

type SubmitParams struct {
	CircleID uint64
	Amount   uint64
	Args     []string
}

type TxResult struct {
	EntryID string
	TxID    string
}

type fingerprint struct {
	circleID uint64
	action   TxAction
}

// Key for entry-id hashing. Ids only need to be unique within one
// process, not unguessable.
var idHashKey = func() []byte {
	key := make([]byte, 32)
	copy(key, "susu-go/txledger")
	return key
}()

// TxLedger tracks locally-submitted transactions through the
// optimistic-to-confirmed lifecycle. At most one non-terminal entry may
// exist per (circle, action) fingerprint; duplicates are rejected at this
// boundary because the ledger itself would happily accept a competing
// resubmission under a fresh nonce.
type TxLedger struct {
	mu sync.Mutex

	entries  map[string]*PendingTx
	order    []string
	inflight map[fingerprint]string

	seq uint64

	ledger  Ledger
	wallet  wallet.Wallet
	circles *Circles
	events  *Events

	// When set, confirmed writes notify through this instead of the raw
	// OnCircleRefresh callback, letting the engine coalesce bursts.
	refresh func(circleID uint64)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTxLedger(ledger Ledger, w wallet.Wallet, circles *Circles, events *Events) *TxLedger {
	ctx, cancel := context.WithCancel(context.Background())

	return &TxLedger{
		entries:  make(map[string]*PendingTx),
		order:    make([]string, 0),
		inflight: make(map[fingerprint]string),
		ledger:   ledger,
		wallet:   w,
		circles:  circles,
		events:   events,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Close stops every confirmation tracker and waits for them to exit.
func (t *TxLedger) Close() {
	t.cancel()
	t.wg.Wait()
}

// Submit signs and broadcasts one contract call. Preconditions are checked
// before any entry is created: the wallet must be connected, and no live
// entry may exist for the same (circle, action) pair. On broadcast the
// entry records the ledger-assigned txid and a confirmation tracker drives
// it to a terminal state.
func (t *TxLedger) Submit(ctx context.Context, action TxAction, params SubmitParams) (*TxResult, error) {
	if !t.wallet.Connected() {
		t.events.emitError(ErrWalletNotConnected)
		return nil, ErrWalletNotConnected
	}

	fp := fingerprint{circleID: params.CircleID, action: action}

	t.mu.Lock()

	if id, ok := t.inflight[fp]; ok {
		if entry := t.entries[id]; entry != nil && !entry.Status.Terminal() {
			t.mu.Unlock()
			return nil, ErrDuplicateInFlight
		}
	}

	entry := &PendingTx{
		ID:        t.nextID(action, params.CircleID),
		Action:    action,
		CircleID:  params.CircleID,
		Amount:    params.Amount,
		Status:    TxPending,
		CreatedAt: time.Now(),
	}

	t.entries[entry.ID] = entry
	t.order = append(t.order, entry.ID)
	t.inflight[fp] = entry.ID

	t.mu.Unlock()

	txHex, err := t.wallet.SignTransaction(ctx, wallet.SignRequest{
		Function: string(action),
		Args:     params.Args,
		Amount:   params.Amount,
	})
	if err != nil {
		// Pre-broadcast failure: wallet absent or user cancelled.
		t.fail(entry.ID, err.Error())
		return nil, errors.Wrap(ErrBroadcastFailed, err.Error())
	}

	txid, err := t.ledger.BroadcastTransaction(ctx, txHex)
	if err != nil {
		t.fail(entry.ID, err.Error())
		return nil, errors.Wrap(ErrBroadcastFailed, err.Error())
	}

	t.mu.Lock()
	entry.TxID = txid
	entry.Status = TxSubmitted
	t.mu.Unlock()

	logger := log.TX("submitted")
	logger.Info().
		Str("entry_id", entry.ID).
		Str("txid", txid).
		Str("action", string(action)).
		Uint64("circle_id", params.CircleID).
		Msg("Transaction broadcast.")

	t.events.emitTxStatus(TxStatusEvent{
		ID:       entry.ID,
		Action:   action,
		CircleID: params.CircleID,
		Status:   TxSubmitted,
		TxID:     txid,
		Message:  "Transaction submitted.",
	})

	t.wg.Add(1)
	go t.trackConfirmation(entry.ID, txid, action, params.CircleID)

	return &TxResult{EntryID: entry.ID, TxID: txid}, nil
}

// trackConfirmation polls the ledger until the broadcast transaction
// reaches a terminal state or the confirmation window lapses. Read errors
// during polling are transient and retried on the next tick.
func (t *TxLedger) trackConfirmation(entryID, txid string, action TxAction, circleID uint64) {
	defer t.wg.Done()

	ticker := time.NewTicker(conf.GetConfirmPollInterval())
	defer ticker.Stop()

	deadline := time.NewTimer(conf.GetConfirmTimeout())
	defer deadline.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return

		case <-deadline.C:
			t.fail(entryID, "confirmation timed out")
			return

		case <-ticker.C:
			info, err := t.ledger.TransactionStatus(t.ctx, txid)
			if err != nil {
				logger := log.TX("confirm")
				logger.Debug().Err(err).Str("txid", txid).
					Msg("Status poll failed; will retry.")
				continue
			}

			switch info.State {
			case gateway.TxStateConfirmed:
				t.succeed(entryID, action, circleID)
				return

			case gateway.TxStateAborted:
				msg := info.Reason
				if code, ok := abortCode(info.Reason); ok {
					msg = AbortMessage(code)
				}

				t.fail(entryID, msg)
				return

			case gateway.TxStateDropped:
				t.fail(entryID, "transaction dropped from mempool: "+info.Reason)
				return
			}
		}
	}
}

func (t *TxLedger) succeed(entryID string, action TxAction, circleID uint64) {
	t.mu.Lock()
	entry, ok := t.entries[entryID]
	if !ok || entry.Status.Terminal() {
		t.mu.Unlock()
		return
	}

	entry.Status = TxSuccess
	txid := entry.TxID
	t.mu.Unlock()

	if t.circles != nil {
		t.circles.Invalidate(circleID)

		// A confirmed marketplace write changes listings, so every cached
		// floor price is stale, not just this circle's.
		switch action {
		case ActionMintNFT, ActionListNFT, ActionUnlistNFT, ActionBuyNFT:
			t.circles.cache.InvalidatePrefix("floor:")
		}
	}

	logger := log.TX("confirmed")
	logger.Info().
		Str("entry_id", entryID).
		Uint64("circle_id", circleID).
		Msg("Transaction confirmed.")

	t.events.emitTxStatus(TxStatusEvent{
		ID:       entryID,
		Action:   action,
		CircleID: circleID,
		Status:   TxSuccess,
		TxID:     txid,
		Message:  "Transaction confirmed.",
	})

	if t.refresh != nil {
		t.refresh(circleID)
	} else {
		t.events.emitCircleRefresh([]uint64{circleID})
	}
}

// RouteRefresh redirects confirmed-write refresh notices, typically into a
// debouncer.
func (t *TxLedger) RouteRefresh(fn func(circleID uint64)) {
	t.refresh = fn
}

func (t *TxLedger) fail(entryID, msg string) {
	t.mu.Lock()
	entry, ok := t.entries[entryID]
	if !ok || entry.Status.Terminal() {
		t.mu.Unlock()
		return
	}

	entry.Status = TxFailed
	entry.Error = msg
	action, circleID, txid := entry.Action, entry.CircleID, entry.TxID
	t.mu.Unlock()

	logger := log.TX("failed")
	logger.Warn().
		Str("entry_id", entryID).
		Str("reason", msg).
		Msg("Transaction failed.")

	t.events.emitTxStatus(TxStatusEvent{
		ID:       entryID,
		Action:   action,
		CircleID: circleID,
		Status:   TxFailed,
		TxID:     txid,
		Message:  msg,
	})
}

// Entries returns a snapshot of all tracked transactions in submission
// order.
func (t *TxLedger) Entries() []PendingTx {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]PendingTx, 0, len(t.order))
	for _, id := range t.order {
		if entry, ok := t.entries[id]; ok {
			out = append(out, *entry)
		}
	}

	return out
}

// Entry returns a copy of one tracked transaction.
func (t *TxLedger) Entry(id string) (PendingTx, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[id]
	if !ok {
		return PendingTx{}, false
	}

	return *entry, true
}

// Clear removes one entry regardless of state.
func (t *TxLedger) Clear(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[id]
	if !ok {
		return
	}

	delete(t.entries, id)
	t.removeOrdered(id)

	fp := fingerprint{circleID: entry.CircleID, action: entry.Action}
	if t.inflight[fp] == id {
		delete(t.inflight, fp)
	}
}

// ClearTerminal removes every entry that has reached Success or Failed.
func (t *TxLedger) ClearTerminal() int {
	t.mu.Lock()

	// Copy before mutating: removal edits both maps and the order slice.
	var terminal []string
	for id, entry := range t.entries {
		if entry.Status.Terminal() {
			terminal = append(terminal, id)
		}
	}

	t.mu.Unlock()

	for _, id := range terminal {
		t.Clear(id)
	}

	return len(terminal)
}

func (t *TxLedger) removeOrdered(id string) {
	for i, other := range t.order {
		if other == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			return
		}
	}
}

func (t *TxLedger) nextID(action TxAction, circleID uint64) string {
	seq := atomic.AddUint64(&t.seq, 1)

	buf := make([]byte, 0, len(action)+16)
	buf = append(buf, action...)

	var scratch [16]byte
	binary.BigEndian.PutUint64(scratch[:8], circleID)
	binary.BigEndian.PutUint64(scratch[8:], seq)
	buf = append(buf, scratch[:]...)

	sum := highwayhash.Sum128(buf, idHashKey)
	return hex.EncodeToString(sum[:])
}

// abortCode extracts the numeric code from an abort repr such as
// "(err u107)".
func abortCode(reason string) (uint64, bool) {
	i := strings.Index(reason, "u")
	if i < 0 || i+1 >= len(reason) {
		return 0, false
	}

	j := i + 1
	for j < len(reason) && reason[j] >= '0' && reason[j] <= '9' {
		j++
	}

	if j == i+1 {
		return 0, false
	}

	code, err := strconv.ParseUint(reason[i+1:j], 10, 64)
	if err != nil {
		return 0, false
	}

	return code, true
}
