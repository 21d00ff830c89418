package susu

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/susuprotocol/susu-go/cache"
	"github.com/susuprotocol/susu-go/conf"
	"github.com/susuprotocol/susu-go/gateway"
	"github.com/susuprotocol/susu-go/store"
)

func TestNormalize(t *testing.T) {
	defer conf.Reset()

	c, err := Normalize(7, circleTuple(5, 3, 0, 1))
	assert.NoError(t, err)

	assert.EqualValues(t, 7, c.ID)
	assert.Equal(t, "lunch club", c.Name)
	assert.Equal(t, "SP000CREATOR", c.Creator)
	assert.EqualValues(t, 10_000_000, c.Contribution)
	assert.EqualValues(t, 5, c.MaxMembers)
	assert.EqualValues(t, 3, c.CurrentMembers)
	assert.Equal(t, StatusActive, c.Status)
	assert.True(t, c.TradingEnabled)

	// 1008 blocks at 144/day is a weekly cadence.
	assert.Equal(t, FrequencyWeekly, c.Frequency)
}

func TestNormalizeInvariants(t *testing.T) {
	// Counters above max-members are malformed, not clamped.
	_, err := Normalize(1, circleTuple(5, 6, 0, 0))
	assert.Equal(t, ErrMalformedLedgerData, err)

	_, err = Normalize(1, circleTuple(5, 5, 6, 1))
	assert.Equal(t, ErrMalformedLedgerData, err)

	// Valid circles always satisfy the bounds.
	c, err := Normalize(1, circleTuple(5, 5, 5, 2))
	assert.NoError(t, err)
	assert.True(t, c.CurrentMembers <= c.MaxMembers)
	assert.True(t, c.CurrentRound <= c.MaxMembers)
}

func TestNormalizeOptimisticUpgrade(t *testing.T) {
	// A full circle still reported as Forming by the ledger renders as
	// Active ahead of the round-advance transaction.
	c, err := Normalize(1, circleTuple(5, 5, 0, 0))
	assert.NoError(t, err)
	assert.Equal(t, StatusActive, c.Status)

	c, err = Normalize(1, circleTuple(5, 4, 0, 0))
	assert.NoError(t, err)
	assert.Equal(t, StatusForming, c.Status)
}

func TestNormalizeMalformed(t *testing.T) {
	_, err := Normalize(1, noneVal())
	assert.Equal(t, ErrMalformedLedgerData, err)

	_, err = Normalize(1, uintVal(3))
	assert.Equal(t, ErrMalformedLedgerData, err)

	// Missing required field.
	_, err = Normalize(1, someVal(tupleVal(map[string]*gateway.Value{
		"name": strVal("x"),
	})))
	assert.Equal(t, ErrMalformedLedgerData, err)

	// Unknown status code lands on the default arm.
	_, err = Normalize(1, circleTuple(5, 3, 0, 9))
	assert.Equal(t, ErrMalformedLedgerData, err)
}

func TestFrequencyLabels(t *testing.T) {
	defer conf.Reset()

	// 144 blocks/day: 4032 blocks = 28 days, 2016 = 14 days, 1008 = 7.
	assert.Equal(t, FrequencyMonthly, frequencyLabel(4032))
	assert.Equal(t, FrequencyBiweekly, frequencyLabel(2016))
	assert.Equal(t, FrequencyWeekly, frequencyLabel(1008))
}

func TestCirclesGetCaches(t *testing.T) {
	ledger := newStubLedger()
	ledger.readOnly = func(fn string, args []string) (*gateway.Value, error) {
		return circleTuple(5, 3, 0, 1), nil
	}

	circles := NewCircles(ledger, cache.New(), "SP000SENDER")

	c, err := circles.Get(context.Background(), 7, false)
	assert.NoError(t, err)
	assert.NotNil(t, c)

	// Second read within the TTL is served from cache.
	_, err = circles.Get(context.Background(), 7, false)
	assert.NoError(t, err)
	assert.Len(t, ledger.calls(), 1)

	// force bypasses the cache.
	_, err = circles.Get(context.Background(), 7, true)
	assert.NoError(t, err)
	assert.Len(t, ledger.calls(), 2)
}

func TestCirclesGetSurvivesRestart(t *testing.T) {
	kv := store.NewInmem()
	defer kv.Close()

	ledger := newStubLedger()
	ledger.readOnly = func(fn string, args []string) (*gateway.Value, error) {
		return circleTuple(5, 3, 0, 1), nil
	}

	circles := NewCircles(ledger, cache.New(cache.WithDurable(kv)), "SP000SENDER")

	_, err := circles.Get(context.Background(), 7, false)
	assert.NoError(t, err)

	// A fresh cache over the same KV simulates a restart; the ledger is
	// unreachable, so the persisted mirror must serve the read.
	down := newStubLedger()
	down.readOnly = func(fn string, args []string) (*gateway.Value, error) {
		return nil, errors.New("network down")
	}

	restarted := NewCircles(down, cache.New(cache.WithDurable(kv)), "SP000SENDER")

	c, err := restarted.Get(context.Background(), 7, false)
	assert.NoError(t, err)

	if assert.NotNil(t, c) {
		assert.Equal(t, "lunch club", c.Name)
		assert.EqualValues(t, 5, c.MaxMembers)
		assert.Equal(t, StatusActive, c.Status)
	}

	assert.Empty(t, down.calls())
}

func TestCirclesGetMalformedNotCached(t *testing.T) {
	ledger := newStubLedger()
	ledger.readOnly = func(fn string, args []string) (*gateway.Value, error) {
		return noneVal(), nil
	}

	store := cache.New()
	circles := NewCircles(ledger, store, "SP000SENDER")

	c, err := circles.Get(context.Background(), 7, false)
	assert.NoError(t, err)
	assert.Nil(t, c)

	// Absent circles are re-fetched, never cached.
	_, _ = circles.Get(context.Background(), 7, false)
	assert.Len(t, ledger.calls(), 2)
}

func TestCirclesGetReadFailure(t *testing.T) {
	ledger := newStubLedger()
	ledger.readOnly = func(fn string, args []string) (*gateway.Value, error) {
		return nil, errors.New("connection refused")
	}

	circles := NewCircles(ledger, cache.New(), "SP000SENDER")

	c, err := circles.Get(context.Background(), 7, false)
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestCirclesMembers(t *testing.T) {
	ledger := newStubLedger()
	ledger.readOnly = func(fn string, args []string) (*gateway.Value, error) {
		return listVal(
			tupleVal(map[string]*gateway.Value{
				"slot":      uintVal(0),
				"member":    principalVal("SP000AAA"),
				"deposited": boolVal(true),
			}),
			tupleVal(map[string]*gateway.Value{
				"slot":   uintVal(1),
				"member": principalVal("SP000BBB"),
			}),
		), nil
	}

	circles := NewCircles(ledger, cache.New(), "SP000SENDER")

	members, err := circles.Members(context.Background(), 7)
	assert.NoError(t, err)

	if assert.Len(t, members, 2) {
		assert.Equal(t, "SP000AAA", members[0].Address)
		assert.True(t, members[0].Deposited)
		assert.EqualValues(t, 1, members[1].Slot)
	}
}
