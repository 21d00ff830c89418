package susu

import (
	"sort"
	"time"

	"github.com/susuprotocol/susu-go/conf"
)

// PayoutSlot is one member's computed position in a circle's payout
// rotation.
type PayoutSlot struct {
	Member      MemberSlot
	PayoutBlock uint64

	IsPast    bool
	IsCurrent bool
	IsFuture  bool
}

// Schedule computes the payout rotation for a circle. Members are ordered
// by slot index; each slot pays out at startBlock + slot*interval. An
// empty member list yields an empty schedule. A currentRound beyond the
// member count clamps to all-past rather than failing, keeping rendering
// resilient to transient inconsistency between reads.
func Schedule(members []MemberSlot, currentRound, interval, startBlock uint64) []PayoutSlot {
	if len(members) == 0 {
		return []PayoutSlot{}
	}

	ordered := make([]MemberSlot, len(members))
	copy(ordered, members)

	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Slot < ordered[j].Slot
	})

	slots := make([]PayoutSlot, len(ordered))

	for i, m := range ordered {
		s := PayoutSlot{
			Member:      m,
			PayoutBlock: startBlock + m.Slot*interval,
		}

		switch {
		case m.Slot < currentRound:
			s.IsPast = true
		case m.Slot == currentRound:
			s.IsCurrent = true
		default:
			s.IsFuture = true
		}

		slots[i] = s
	}

	return slots
}

// CurrentSlot returns the slot whose round is in progress, or nil when the
// rotation is complete.
func CurrentSlot(slots []PayoutSlot) *PayoutSlot {
	for i := range slots {
		if slots[i].IsCurrent {
			return &slots[i]
		}
	}

	return nil
}

// BlocksToPayout returns how many blocks remain until the slot pays out,
// zero once the payout block has been reached.
func (s *PayoutSlot) BlocksToPayout(currentHeight uint64) uint64 {
	if currentHeight >= s.PayoutBlock {
		return 0
	}

	return s.PayoutBlock - currentHeight
}

// TimeToPayout converts the remaining block delta to wall clock using the
// ledger's average block interval.
func (s *PayoutSlot) TimeToPayout(currentHeight uint64) time.Duration {
	return time.Duration(s.BlocksToPayout(currentHeight)) * conf.GetBlockInterval()
}

// Ready reports whether the slot's payout block has been reached.
func (s *PayoutSlot) Ready(currentHeight uint64) bool {
	return s.IsCurrent && currentHeight >= s.PayoutBlock
}
