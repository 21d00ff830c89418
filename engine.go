package susu

import (
	"context"

	"github.com/susuprotocol/susu-go/cache"
	"github.com/susuprotocol/susu-go/debounce"
	"github.com/susuprotocol/susu-go/store"
	"github.com/susuprotocol/susu-go/wallet"
)

// Engine is the composition root: every service is explicitly constructed
// and shares one cache, one ledger and one event surface. No package-level
// singletons, so tests build isolated instances.
type Engine struct {
	Ledger Ledger
	Wallet wallet.Wallet
	Cache  *cache.Cache
	Events *Events

	Circles    *Circles
	Reconciler *Reconciler
	TxLedger   *TxLedger
	Scanner    *Scanner
	Refresher  *Refresher

	cancel context.CancelFunc
}

type EngineConfig struct {
	Ledger Ledger
	Wallet wallet.Wallet
	Events *Events

	// Optional durable tier for the cache. Nil keeps the cache
	// memory-only.
	Durable store.KV

	// Sender principal for read-only calls; a read-only context does not
	// require a connected wallet.
	Sender string
}

func NewEngine(cfg EngineConfig) *Engine {
	ctx, cancel := context.WithCancel(context.Background())

	var opts []cache.Option
	if cfg.Durable != nil {
		opts = append(opts, cache.WithDurable(cfg.Durable))
	}

	c := cache.New(opts...)

	events := cfg.Events
	if events == nil {
		events = &Events{}
	}

	e := &Engine{
		Ledger: cfg.Ledger,
		Wallet: cfg.Wallet,
		Cache:  c,
		Events: events,
		cancel: cancel,
	}

	e.Circles = NewCircles(cfg.Ledger, c, cfg.Sender)
	e.Reconciler = NewReconciler(cfg.Ledger, c, cfg.Sender)
	e.TxLedger = NewTxLedger(cfg.Ledger, cfg.Wallet, e.Circles, events)
	e.Scanner = NewScanner(cfg.Ledger, c, cfg.Sender)
	e.Refresher = NewRefresher(cfg.Ledger, cfg.Wallet, events)

	// Bursts of confirmations against the same circle collapse into one
	// refresh notice.
	deduper := debounce.NewDeduper(ctx, debounce.WithAction(events.emitCircleRefresh))
	e.TxLedger.RouteRefresh(deduper.Add)

	return e
}

// Connect establishes a wallet session and starts the periodic refresh
// loop for it.
func (e *Engine) Connect(ctx context.Context) (string, error) {
	address, err := e.Wallet.Connect(ctx)
	if err != nil {
		return "", err
	}

	e.Refresher.Start()

	return address, nil
}

// Disconnect ends the wallet session and its refresh loop.
func (e *Engine) Disconnect() {
	e.Refresher.Stop()
	e.Wallet.Disconnect()
}

// Close tears the engine down: confirmation trackers, refresh loop and
// the debouncer all stop.
func (e *Engine) Close() {
	e.Refresher.Stop()
	e.TxLedger.Close()
	e.cancel()
}
