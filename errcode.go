package susu

import "fmt"

// Abort codes raised by the circle contract, mapped to messages fit for a
// notification. Codes not in the table fall through to a generic message
// carrying the raw code.
var abortMessages = map[uint64]string{
	100: "You are not a member of this circle.",
	101: "This circle is already full.",
	102: "You have already joined this circle.",
	103: "Your deposit for this round was already made.",
	104: "It is not your turn to receive the payout.",
	105: "The circle has not started yet.",
	106: "The circle is already complete.",
	107: "The escrow balance cannot cover this payout.",
	108: "Only the circle creator can do that.",
	109: "Trading is not enabled for this circle.",
	110: "This token is not listed for sale.",
	111: "The offered price does not match the listing.",
	112: "You cannot leave after the circle has started.",
}

func AbortMessage(code uint64) string {
	if msg, ok := abortMessages[code]; ok {
		return msg
	}

	return fmt.Sprintf("The transaction was rejected by the ledger (code %d).", code)
}
