package susu

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/susuprotocol/susu-go/gateway"
	"github.com/susuprotocol/susu-go/wallet"
)

// Test doubles for the ledger and wallet boundaries. Kept in the main
// package so example code can use them too.

type readOnlyCall struct {
	Fn   string
	Args []string
}

type stubLedger struct {
	mu sync.Mutex

	balances  map[string]uint64
	height    uint64
	txStates  map[string]gateway.TxInfo
	broadcast func(txHex string) (string, error)
	readOnly  func(fn string, args []string) (*gateway.Value, error)

	readOnlyCalls []readOnlyCall
}

func newStubLedger() *stubLedger {
	return &stubLedger{
		balances: make(map[string]uint64),
		txStates: make(map[string]gateway.TxInfo),
	}
}

func (s *stubLedger) AccountBalance(ctx context.Context, address string) (*gateway.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, ok := s.balances[address]
	if !ok {
		return nil, errors.New("no such account")
	}

	return &gateway.Balance{Address: address, Balance: balance}, nil
}

func (s *stubLedger) CallReadOnly(ctx context.Context, fn string, args []string, sender string) (*gateway.Value, error) {
	s.mu.Lock()
	s.readOnlyCalls = append(s.readOnlyCalls, readOnlyCall{Fn: fn, Args: args})
	handler := s.readOnly
	s.mu.Unlock()

	if handler == nil {
		return nil, errors.New("no read-only handler")
	}

	return handler(fn, args)
}

func (s *stubLedger) BroadcastTransaction(ctx context.Context, txHex string) (string, error) {
	s.mu.Lock()
	handler := s.broadcast
	s.mu.Unlock()

	if handler == nil {
		return "", errors.New("no broadcast handler")
	}

	return handler(txHex)
}

func (s *stubLedger) BlockHeight(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.height, nil
}

func (s *stubLedger) TransactionStatus(ctx context.Context, txid string) (*gateway.TxInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.txStates[txid]
	if !ok {
		return nil, errors.New("unknown transaction")
	}

	return &info, nil
}

func (s *stubLedger) setTxState(txid string, state gateway.TxState, reason string) {
	s.mu.Lock()
	s.txStates[txid] = gateway.TxInfo{TxID: txid, State: state, Reason: reason}
	s.mu.Unlock()
}

func (s *stubLedger) calls() []readOnlyCall {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]readOnlyCall, len(s.readOnlyCalls))
	copy(out, s.readOnlyCalls)

	return out
}

type stubWallet struct {
	mu sync.Mutex

	available bool
	connected bool
	address   string

	signErr error
	signed  int
}

func newStubWallet(address string) *stubWallet {
	return &stubWallet{available: true, address: address}
}

func (w *stubWallet) Available() bool {
	return w.available
}

func (w *stubWallet) Connect(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.available {
		return "", wallet.ErrUnavailable
	}

	w.connected = true
	return w.address, nil
}

func (w *stubWallet) Disconnect() {
	w.mu.Lock()
	w.connected = false
	w.mu.Unlock()
}

func (w *stubWallet) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.connected
}

func (w *stubWallet) Address() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.connected {
		return ""
	}

	return w.address
}

func (w *stubWallet) SignTransaction(ctx context.Context, req wallet.SignRequest) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.signErr != nil {
		return "", w.signErr
	}

	w.signed++
	return "deadbeef", nil
}

// Value builders for read-only responses.

func uintVal(u uint64) *gateway.Value {
	return &gateway.Value{Type: gateway.TypeUint, Uint: u}
}

func boolVal(b bool) *gateway.Value {
	return &gateway.Value{Type: gateway.TypeBool, Bool: b}
}

func strVal(s string) *gateway.Value {
	return &gateway.Value{Type: gateway.TypeString, Str: s}
}

func principalVal(p string) *gateway.Value {
	return &gateway.Value{Type: gateway.TypePrincipal, Principal: p}
}

func tupleVal(fields map[string]*gateway.Value) *gateway.Value {
	return &gateway.Value{Type: gateway.TypeTuple, Tuple: fields}
}

func someVal(inner *gateway.Value) *gateway.Value {
	return &gateway.Value{Type: gateway.TypeSome, Inner: inner}
}

func noneVal() *gateway.Value {
	return &gateway.Value{Type: gateway.TypeNone}
}

func listVal(items ...*gateway.Value) *gateway.Value {
	return &gateway.Value{Type: gateway.TypeList, List: items}
}

func circleTuple(maxMembers, memberCount, round, status uint64) *gateway.Value {
	return someVal(tupleVal(map[string]*gateway.Value{
		"name":            strVal("lunch club"),
		"creator":         principalVal("SP000CREATOR"),
		"contribution":    uintVal(10_000_000),
		"max-members":     uintVal(maxMembers),
		"member-count":    uintVal(memberCount),
		"current-round":   uintVal(round),
		"payout-interval": uintVal(1008),
		"start-block":     uintVal(1000),
		"status":          uintVal(status),
		"trading-enabled": boolVal(true),
	}))
}
