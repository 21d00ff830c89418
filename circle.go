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

// Package susu implements the client-side lifecycle and reconciliation
// engine for the susu rotating-savings-circle protocol: circle state
// normalization, payout scheduling, escrow reconciliation, local
// transaction tracking and marketplace scanning.
package susu

import (
	"context"
	"fmt"
	"strconv"

	"github.com/susuprotocol/susu-go/cache"
	"github.com/susuprotocol/susu-go/conf"
	"github.com/susuprotocol/susu-go/gateway"
	"github.com/susuprotocol/susu-go/log"
)

type CircleStatus int

const (
	StatusForming CircleStatus = iota
	StatusActive
	StatusCompleted
	StatusCancelled
)

func (s CircleStatus) String() string {
	switch s {
	case StatusForming:
		return "forming"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	}

	return "unknown"
}

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

type Circle struct {
	ID             uint64
	Name           string
	Creator        string
	Contribution   uint64
	MaxMembers     uint64
	CurrentMembers uint64
	CurrentRound   uint64
	PayoutInterval uint64
	StartBlock     uint64
	Status         CircleStatus
	TradingEnabled bool

	// Derived.
	Frequency     Frequency
	EscrowBalance uint64
}

// MemberSlot is one member's fixed position in a circle's rotation.
type MemberSlot struct {
	CircleID uint64
	Slot     uint64
	Address  string

	Deposited        bool
	Contributions    uint64
	LastContribution uint64
	PayoutReceived   bool
}

func circleKey(id uint64) string {
	return fmt.Sprintf("circle:%d", id)
}

// Normalize converts a raw circle tuple read from the ledger into a
// Circle. Missing or malformed fields fail with ErrMalformedLedgerData;
// the caller must treat the circle as absent and not cache it.
//
// Status code 0 maps to Forming unless the circle is already full, in
// which case the model reports Active ahead of the on-chain round-advance
// transaction being observed. Deliberate smoothing: a full circle can
// only activate next.
func Normalize(id uint64, v *gateway.Value) (*Circle, error) {
	tuple, ok := v.Unwrap()
	if !ok || tuple == nil || tuple.Type != gateway.TypeTuple {
		return nil, ErrMalformedLedgerData
	}

	name, ok := tuple.TupleString("name")
	if !ok {
		return nil, ErrMalformedLedgerData
	}

	creator, ok := tuple.TupleString("creator")
	if !ok {
		return nil, ErrMalformedLedgerData
	}

	contribution, ok := tuple.TupleUint("contribution")
	if !ok {
		return nil, ErrMalformedLedgerData
	}

	maxMembers, ok := tuple.TupleUint("max-members")
	if !ok || maxMembers == 0 {
		return nil, ErrMalformedLedgerData
	}

	currentMembers, ok := tuple.TupleUint("member-count")
	if !ok {
		return nil, ErrMalformedLedgerData
	}

	currentRound, ok := tuple.TupleUint("current-round")
	if !ok {
		return nil, ErrMalformedLedgerData
	}

	interval, ok := tuple.TupleUint("payout-interval")
	if !ok || interval == 0 {
		return nil, ErrMalformedLedgerData
	}

	statusCode, ok := tuple.TupleUint("status")
	if !ok {
		return nil, ErrMalformedLedgerData
	}

	if currentMembers > maxMembers || currentRound > maxMembers {
		return nil, ErrMalformedLedgerData
	}

	startBlock, _ := tuple.TupleUint("start-block")
	trading, _ := tuple.TupleBool("trading-enabled")

	c := &Circle{
		ID:             id,
		Name:           name,
		Creator:        creator,
		Contribution:   contribution,
		MaxMembers:     maxMembers,
		CurrentMembers: currentMembers,
		CurrentRound:   currentRound,
		PayoutInterval: interval,
		StartBlock:     startBlock,
		TradingEnabled: trading,
	}

	switch statusCode {
	case 0:
		c.Status = StatusForming
		if currentMembers >= maxMembers {
			c.Status = StatusActive
		}
	case 1:
		c.Status = StatusActive
	case 2:
		c.Status = StatusCompleted
	case 3:
		c.Status = StatusCancelled
	default:
		return nil, ErrMalformedLedgerData
	}

	c.Frequency = frequencyLabel(interval)

	return c, nil
}

func frequencyLabel(interval uint64) Frequency {
	days := interval / conf.GetBlocksPerDay()

	switch {
	case days >= conf.GetMonthlyMinDays():
		return FrequencyMonthly
	case days >= conf.GetBiweeklyMinDays():
		return FrequencyBiweekly
	default:
		return FrequencyWeekly
	}
}

// Circles reads and normalizes circle state, write-through caching every
// successful read.
type Circles struct {
	ledger Ledger
	cache  *cache.Cache
	sender string
}

func NewCircles(ledger Ledger, c *cache.Cache, sender string) *Circles {
	return &Circles{ledger: ledger, cache: c, sender: sender}
}

// Get returns the circle with the given id, serving from cache within the
// TTL unless force is set. A memory miss consults the durable tier before
// going to the ledger, so persisted circles survive a restart. A fresh
// read is normalized and cached; an absent or malformed circle returns nil
// without error so the UI degrades to empty state.
func (m *Circles) Get(ctx context.Context, id uint64, force bool) (*Circle, error) {
	key := circleKey(id)

	if !force {
		var cached *Circle
		if m.cache.Load(key, &cached) {
			return cached, nil
		}
	}

	raw, err := m.ledger.CallReadOnly(ctx, "get-circle", []string{uintArg(id)}, m.sender)
	if err != nil {
		logger := log.Circle("read")
		logger.Warn().Err(err).Uint64("circle_id", id).
			Msg("Circle read failed.")
		return nil, err
	}

	c, err := Normalize(id, raw)
	if err != nil {
		logger := log.Circle("normalize")
		logger.Warn().Err(err).Uint64("circle_id", id).
			Msg("Circle tuple was malformed; treating as absent.")
		return nil, nil
	}

	m.cache.Set(key, c, cache.TTL(conf.GetCircleTTL()), cache.Persist())

	return c, nil
}

// Members reads the member slots of a circle. Read failures degrade to an
// empty slice; slot indices are trusted to be unique per the ledger
// invariant.
func (m *Circles) Members(ctx context.Context, id uint64) ([]MemberSlot, error) {
	raw, err := m.ledger.CallReadOnly(ctx, "get-members", []string{uintArg(id)}, m.sender)
	if err != nil {
		logger := log.Circle("members")
		logger.Warn().Err(err).Uint64("circle_id", id).
			Msg("Member read failed.")
		return nil, err
	}

	list, ok := raw.Unwrap()
	if !ok || list == nil || list.Type != gateway.TypeList {
		return nil, nil
	}

	members := make([]MemberSlot, 0, len(list.List))

	for _, item := range list.List {
		if item.Type != gateway.TypeTuple {
			continue
		}

		slot, ok := item.TupleUint("slot")
		if !ok {
			continue
		}

		address, ok := item.TupleString("member")
		if !ok {
			continue
		}

		ms := MemberSlot{
			CircleID: id,
			Slot:     slot,
			Address:  address,
		}

		ms.Deposited, _ = item.TupleBool("deposited")
		ms.Contributions, _ = item.TupleUint("contributions")
		ms.LastContribution, _ = item.TupleUint("last-contribution-round")
		ms.PayoutReceived, _ = item.TupleBool("payout-received")

		members = append(members, ms)
	}

	return members, nil
}

// Invalidate drops the cached state for a circle, forcing the next read
// through to the ledger. Called after a confirmed write.
func (m *Circles) Invalidate(id uint64) {
	m.cache.Delete(circleKey(id))
	m.cache.Delete(escrowKey(id))
}

func uintArg(v uint64) string {
	return "u" + strconv.FormatUint(v, 10)
}
