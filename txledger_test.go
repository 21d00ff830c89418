package susu

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/susuprotocol/susu-go/conf"
	"github.com/susuprotocol/susu-go/gateway"
	"github.com/susuprotocol/susu-go/wallet"
)

func fastConfirm() {
	conf.Update(
		conf.WithConfirmPollInterval(5*time.Millisecond),
		conf.WithConfirmTimeout(500*time.Millisecond),
	)
}

func broadcastOK(ledger *stubLedger, txid string) {
	ledger.broadcast = func(txHex string) (string, error) {
		return txid, nil
	}
}

func waitForStatus(t *testing.T, ledger *TxLedger, entryID string, want TxStatus) PendingTx {
	deadline := time.Now().Add(2 * time.Second)

	for time.Now().Before(deadline) {
		entry, ok := ledger.Entry(entryID)
		if ok && entry.Status == want {
			return entry
		}

		time.Sleep(2 * time.Millisecond)
	}

	entry, _ := ledger.Entry(entryID)
	t.Fatalf("entry %s never reached %s (last: %s)", entryID, want, entry.Status)
	return PendingTx{}
}

func TestSubmitRequiresWallet(t *testing.T) {
	w := newStubWallet("SP000AAA")

	tl := NewTxLedger(newStubLedger(), w, nil, &Events{})
	defer tl.Close()

	res, err := tl.Submit(context.Background(), ActionDeposit, SubmitParams{CircleID: 1})
	assert.Equal(t, ErrWalletNotConnected, err)
	assert.Nil(t, res)

	// No entry was created.
	assert.Empty(t, tl.Entries())
}

func TestSubmitRejectsDuplicateFingerprint(t *testing.T) {
	defer conf.Reset()
	fastConfirm()

	ledger := newStubLedger()
	broadcastOK(ledger, "tx1")
	ledger.setTxState("tx1", gateway.TxStateMempool, "")

	w := newStubWallet("SP000AAA")
	_, _ = w.Connect(context.Background())

	tl := NewTxLedger(ledger, w, nil, &Events{})
	defer tl.Close()

	res, err := tl.Submit(context.Background(), ActionDeposit, SubmitParams{CircleID: 1})
	assert.NoError(t, err)
	assert.NotNil(t, res)

	// Same (circle, action) while the first is live.
	_, err = tl.Submit(context.Background(), ActionDeposit, SubmitParams{CircleID: 1})
	assert.Equal(t, ErrDuplicateInFlight, err)

	// A different circle or action is an independent fingerprint.
	_, err = tl.Submit(context.Background(), ActionDeposit, SubmitParams{CircleID: 2})
	assert.NoError(t, err)
	_, err = tl.Submit(context.Background(), ActionClaimPayout, SubmitParams{CircleID: 1})
	assert.NoError(t, err)

	nonTerminal := 0
	for _, e := range tl.Entries() {
		if e.CircleID == 1 && e.Action == ActionDeposit && !e.Status.Terminal() {
			nonTerminal++
		}
	}
	assert.Equal(t, 1, nonTerminal)
}

func TestSubmitPreBroadcastFailure(t *testing.T) {
	w := newStubWallet("SP000AAA")
	_, _ = w.Connect(context.Background())
	w.signErr = wallet.ErrRejected

	var mu sync.Mutex
	var events []TxStatusEvent

	tl := NewTxLedger(newStubLedger(), w, nil, &Events{
		OnTxStatus: func(ev TxStatusEvent) {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		},
	})
	defer tl.Close()

	res, err := tl.Submit(context.Background(), ActionJoin, SubmitParams{CircleID: 3})
	assert.Nil(t, res)
	assert.Equal(t, ErrBroadcastFailed, errors.Cause(err))

	// The entry went Pending -> Failed without ever being Submitted.
	entries := tl.Entries()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, TxFailed, entries[0].Status)
		assert.Empty(t, entries[0].TxID)
		assert.Contains(t, entries[0].Error, "rejected")
	}

	mu.Lock()
	defer mu.Unlock()
	if assert.Len(t, events, 1) {
		assert.Equal(t, TxFailed, events[0].Status)
	}
}

func TestSubmitConfirmSuccess(t *testing.T) {
	defer conf.Reset()
	fastConfirm()

	ledger := newStubLedger()
	broadcastOK(ledger, "tx9")
	ledger.setTxState("tx9", gateway.TxStateMempool, "")

	w := newStubWallet("SP000AAA")
	_, _ = w.Connect(context.Background())

	var mu sync.Mutex
	var statuses []TxStatus
	var refreshed []uint64

	tl := NewTxLedger(ledger, w, nil, &Events{
		OnTxStatus: func(ev TxStatusEvent) {
			mu.Lock()
			statuses = append(statuses, ev.Status)
			mu.Unlock()
		},
		OnCircleRefresh: func(ids []uint64) {
			mu.Lock()
			refreshed = append(refreshed, ids...)
			mu.Unlock()
		},
	})
	defer tl.Close()

	res, err := tl.Submit(context.Background(), ActionDeposit, SubmitParams{CircleID: 5, Amount: 10_000_000})
	assert.NoError(t, err)
	assert.Equal(t, "tx9", res.TxID)

	entry, _ := tl.Entry(res.EntryID)
	assert.Equal(t, TxSubmitted, entry.Status)

	ledger.setTxState("tx9", gateway.TxStateConfirmed, "")

	entry = waitForStatus(t, tl, res.EntryID, TxSuccess)
	assert.Equal(t, "tx9", entry.TxID)

	mu.Lock()
	defer mu.Unlock()

	// Submitted is observed before Success, never after.
	assert.Equal(t, []TxStatus{TxSubmitted, TxSuccess}, statuses)
	assert.Equal(t, []uint64{5}, refreshed)
}

func TestSubmitConfirmAbort(t *testing.T) {
	defer conf.Reset()
	fastConfirm()

	ledger := newStubLedger()
	broadcastOK(ledger, "tx2")
	ledger.setTxState("tx2", gateway.TxStateAborted, "(err u107)")

	w := newStubWallet("SP000AAA")
	_, _ = w.Connect(context.Background())

	tl := NewTxLedger(ledger, w, nil, &Events{})
	defer tl.Close()

	res, err := tl.Submit(context.Background(), ActionClaimPayout, SubmitParams{CircleID: 5})
	assert.NoError(t, err)

	entry := waitForStatus(t, tl, res.EntryID, TxFailed)

	// The abort code is mapped to a human-readable message.
	assert.Equal(t, AbortMessage(107), entry.Error)
}

func TestSubmitConfirmTimeout(t *testing.T) {
	defer conf.Reset()
	conf.Update(
		conf.WithConfirmPollInterval(5*time.Millisecond),
		conf.WithConfirmTimeout(30*time.Millisecond),
	)

	ledger := newStubLedger()
	broadcastOK(ledger, "tx3")
	ledger.setTxState("tx3", gateway.TxStateMempool, "")

	w := newStubWallet("SP000AAA")
	_, _ = w.Connect(context.Background())

	tl := NewTxLedger(ledger, w, nil, &Events{})
	defer tl.Close()

	res, err := tl.Submit(context.Background(), ActionLeave, SubmitParams{CircleID: 5})
	assert.NoError(t, err)

	entry := waitForStatus(t, tl, res.EntryID, TxFailed)
	assert.Contains(t, entry.Error, "timed out")
}

func TestTerminalEntriesPersistUntilCleared(t *testing.T) {
	defer conf.Reset()
	fastConfirm()

	ledger := newStubLedger()
	broadcastOK(ledger, "tx4")
	ledger.setTxState("tx4", gateway.TxStateConfirmed, "")

	w := newStubWallet("SP000AAA")
	_, _ = w.Connect(context.Background())

	tl := NewTxLedger(ledger, w, nil, &Events{})
	defer tl.Close()

	res, err := tl.Submit(context.Background(), ActionDeposit, SubmitParams{CircleID: 1})
	assert.NoError(t, err)

	waitForStatus(t, tl, res.EntryID, TxSuccess)

	// Terminal entries stay visible as history.
	assert.Len(t, tl.Entries(), 1)

	// A fresh submission for the same fingerprint is allowed now.
	broadcastOK(ledger, "tx5")
	ledger.setTxState("tx5", gateway.TxStateMempool, "")

	_, err = tl.Submit(context.Background(), ActionDeposit, SubmitParams{CircleID: 1})
	assert.NoError(t, err)
	assert.Len(t, tl.Entries(), 2)

	assert.Equal(t, 1, tl.ClearTerminal())
	assert.Len(t, tl.Entries(), 1)
}

func TestAbortCode(t *testing.T) {
	code, ok := abortCode("(err u107)")
	assert.True(t, ok)
	assert.EqualValues(t, 107, code)

	code, ok = abortCode("(err u4)")
	assert.True(t, ok)
	assert.EqualValues(t, 4, code)

	_, ok = abortCode("runtime failure")
	assert.False(t, ok)

	_, ok = abortCode("")
	assert.False(t, ok)
}
