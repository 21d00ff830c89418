package gateway

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
)

type Balance struct {
	Address string
	Balance uint64
	Nonce   uint64
}

// AccountBalance reads the spendable balance of an address.
func (c *Client) AccountBalance(ctx context.Context, address string) (*Balance, error) {
	path := fmt.Sprintf("%s/%s", RouteBalance, address)

	body, err := c.Request(ctx, path, ReqGet, nil)
	if err != nil {
		return nil, err
	}

	p := c.parsers.Get()
	defer c.parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedValue, err.Error())
	}

	return &Balance{
		Address: address,
		Balance: v.GetUint64("balance"),
		Nonce:   v.GetUint64("nonce"),
	}, nil
}

// CallReadOnly invokes a read-only function on the circle contract and
// decodes its return value. A ledger-side evaluation failure (okay=false)
// is an error; the cause string from the response is attached.
func (c *Client) CallReadOnly(ctx context.Context, fn string, args []string, sender string) (*Value, error) {
	path := fmt.Sprintf("%s/%s/%s/%s", RouteReadOnly, c.ContractPrincipal, c.ContractName, fn)

	a := c.arenas.Get()
	defer func() {
		a.Reset()
		c.arenas.Put(a)
	}()

	req := a.NewObject()
	req.Set("sender", a.NewString(sender))

	arr := a.NewArray()
	for i, arg := range args {
		arr.SetArrayItem(i, a.NewString(arg))
	}
	req.Set("arguments", arr)

	body, err := c.Request(ctx, path, ReqPost, req.MarshalTo(nil))
	if err != nil {
		return nil, err
	}

	p := c.parsers.Get()
	defer c.parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedValue, err.Error())
	}

	if !v.GetBool("okay") {
		cause := string(v.GetStringBytes("cause"))
		return nil, errors.Errorf("read-only call %q failed: %s", fn, cause)
	}

	return DecodeValue(v.Get("result"))
}

// BroadcastTransaction submits a signed transaction and returns the
// ledger-assigned transaction id.
func (c *Client) BroadcastTransaction(ctx context.Context, txHex string) (string, error) {
	a := c.arenas.Get()
	defer func() {
		a.Reset()
		c.arenas.Put(a)
	}()

	req := a.NewObject()
	req.Set("tx", a.NewString(txHex))

	body, err := c.Request(ctx, RouteBroadcast, ReqPost, req.MarshalTo(nil))
	if err != nil {
		return "", err
	}

	p := c.parsers.Get()
	defer c.parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return "", errors.Wrap(ErrMalformedValue, err.Error())
	}

	txid := string(v.GetStringBytes("txid"))
	if txid == "" {
		return "", errors.Errorf("broadcast rejected: %s", string(v.GetStringBytes("error")))
	}

	return txid, nil
}

// BlockHeight reads the ledger's current block height.
func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	body, err := c.Request(ctx, RouteInfo, ReqGet, nil)
	if err != nil {
		return 0, err
	}

	height := fastjson.GetInt(body, "stacks_tip_height")
	if height <= 0 {
		return 0, ErrMalformedValue
	}

	return uint64(height), nil
}

type TxState int

const (
	TxStateUnknown TxState = iota
	TxStateMempool
	TxStateConfirmed
	TxStateAborted
	TxStateDropped
)

type TxInfo struct {
	TxID   string
	State  TxState
	Reason string
}

// TransactionStatus reads the confirmation status of a broadcast
// transaction. Used by the local transaction ledger's confirmation poll.
func (c *Client) TransactionStatus(ctx context.Context, txid string) (*TxInfo, error) {
	path := fmt.Sprintf("%s/%s", RouteTx, txid)

	body, err := c.Request(ctx, path, ReqGet, nil)
	if err != nil {
		return nil, err
	}

	p := c.parsers.Get()
	defer c.parsers.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedValue, err.Error())
	}

	info := &TxInfo{TxID: txid}

	switch status := string(v.GetStringBytes("tx_status")); status {
	case "pending":
		info.State = TxStateMempool
	case "success":
		info.State = TxStateConfirmed
	case "abort_by_response", "abort_by_post_condition":
		info.State = TxStateAborted
		info.Reason = string(v.GetStringBytes("tx_result", "repr"))
	case "dropped_replace_by_fee", "dropped_stale_garbage_collect", "dropped_too_expensive":
		info.State = TxStateDropped
		info.Reason = status
	default:
		return nil, ErrMalformedValue
	}

	return info, nil
}
