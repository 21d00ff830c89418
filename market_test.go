package susu

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/susuprotocol/susu-go/cache"
	"github.com/susuprotocol/susu-go/conf"
	"github.com/susuprotocol/susu-go/gateway"
)

// marketLedger serves listings for the given token ids. Listing price is
// id*100; every token belongs to circleID.
func marketLedger(circleID uint64, listed ...uint64) *stubLedger {
	set := make(map[uint64]bool, len(listed))
	for _, id := range listed {
		set[id] = true
	}

	ledger := newStubLedger()
	ledger.readOnly = func(fn string, args []string) (*gateway.Value, error) {
		switch fn {
		case "get-last-token-id":
			var max uint64
			for id := range set {
				if id > max {
					max = id
				}
			}
			return uintVal(max), nil

		case "get-listing":
			id := parseArg(args[0])
			if !set[id] {
				return noneVal(), nil
			}

			return someVal(tupleVal(map[string]*gateway.Value{
				"price":  uintVal(id * 100),
				"seller": principalVal("SP000SELLER"),
			})), nil

		case "get-token-info":
			id := parseArg(args[0])
			return someVal(tupleVal(map[string]*gateway.Value{
				"circle-id": uintVal(circleID),
				"slot":      uintVal(id % 5),
				"owner":     principalVal("SP000OWNER"),
			})), nil
		}

		return noneVal(), nil
	}

	return ledger
}

func parseArg(arg string) uint64 {
	v, _ := strconv.ParseUint(arg[1:], 10, 64) // strip the "u" prefix
	return v
}

func TestScanRangeBound(t *testing.T) {
	ledger := marketLedger(1)
	s := NewScanner(ledger, cache.New(), "SP000SENDER")

	_, err := s.ScanListings(context.Background(), 100, 20)
	assert.NoError(t, err)

	// Lookups cover exactly ids 81..100, never below 81.
	seen := make(map[uint64]bool)
	for _, call := range ledger.calls() {
		assert.Equal(t, "get-listing", call.Fn)

		id := parseArg(call.Args[0])
		assert.True(t, id >= 81 && id <= 100, "id %d out of range", id)
		seen[id] = true
	}

	assert.Len(t, seen, 20)
}

func TestScanClampsAtOne(t *testing.T) {
	ledger := marketLedger(1)
	s := NewScanner(ledger, cache.New(), "SP000SENDER")

	_, err := s.ScanListings(context.Background(), 5, 20)
	assert.NoError(t, err)

	for _, call := range ledger.calls() {
		id := parseArg(call.Args[0])
		assert.True(t, id >= 1 && id <= 5)
	}
}

func TestScanAssemblesListings(t *testing.T) {
	ledger := marketLedger(7, 82, 90, 95)
	s := NewScanner(ledger, cache.New(), "SP000SENDER")

	tokens, err := s.ScanListings(context.Background(), 100, 20)
	assert.NoError(t, err)

	if !assert.Len(t, tokens, 3) {
		return
	}

	// Ordered by token id, with metadata attached.
	assert.EqualValues(t, 82, tokens[0].ID)
	assert.EqualValues(t, 8200, tokens[0].Price)
	assert.EqualValues(t, 7, tokens[0].CircleID)
	assert.Equal(t, "SP000SELLER", tokens[0].Seller)
	assert.EqualValues(t, 95, tokens[2].ID)
}

func TestScanEmpty(t *testing.T) {
	s := NewScanner(marketLedger(1), cache.New(), "SP000SENDER")

	tokens, err := s.ScanListings(context.Background(), 0, 20)
	assert.NoError(t, err)
	assert.Empty(t, tokens)

	tokens, err = s.ScanListings(context.Background(), 100, 0)
	assert.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestFloorPrice(t *testing.T) {
	ledger := marketLedger(7, 3, 9, 5)
	s := NewScanner(ledger, cache.New(), "SP000SENDER")

	price, listed, err := s.FloorPrice(context.Background(), 7)
	assert.NoError(t, err)
	assert.True(t, listed)
	assert.EqualValues(t, 300, price)

	// No listings for an unrelated circle.
	_, listed, err = s.FloorPrice(context.Background(), 99)
	assert.NoError(t, err)
	assert.False(t, listed)
}

func TestConfirmedBuyInvalidatesFloors(t *testing.T) {
	defer conf.Reset()
	fastConfirm()

	ledger := marketLedger(7, 3, 9, 5)
	broadcastOK(ledger, "tx1")
	ledger.setTxState("tx1", gateway.TxStateConfirmed, "")

	c := cache.New()
	s := NewScanner(ledger, c, "SP000SENDER")

	_, _, err := s.FloorPrice(context.Background(), 7)
	assert.NoError(t, err)

	w := newStubWallet("SP000AAA")
	_, _ = w.Connect(context.Background())

	tl := NewTxLedger(ledger, w, NewCircles(ledger, c, "SP000SENDER"), &Events{})
	defer tl.Close()

	res, err := tl.Submit(context.Background(), ActionBuyNFT, SubmitParams{CircleID: 7})
	assert.NoError(t, err)

	waitForStatus(t, tl, res.EntryID, TxSuccess)

	before := len(ledger.calls())

	// The cached floor was dropped; the next read rescans.
	_, _, err = s.FloorPrice(context.Background(), 7)
	assert.NoError(t, err)
	assert.True(t, len(ledger.calls()) > before)
}

func TestFloorPriceCached(t *testing.T) {
	ledger := marketLedger(7, 3, 9, 5)
	s := NewScanner(ledger, cache.New(), "SP000SENDER")

	_, _, err := s.FloorPrice(context.Background(), 7)
	assert.NoError(t, err)

	before := len(ledger.calls())

	_, _, err = s.FloorPrice(context.Background(), 7)
	assert.NoError(t, err)

	// The full-range scan must not re-run inside the TTL.
	assert.Equal(t, before, len(ledger.calls()))
}
