package susu

// TxStatusEvent is the single propagation point between the engine and the
// UI layer: every write reaching Submitted or a terminal state produces
// one, with a message ready for a toast.
type TxStatusEvent struct {
	ID       string
	Action   TxAction
	CircleID uint64
	Status   TxStatus
	TxID     string
	Message  string
}

// Events carries the callbacks the embedding UI registers. Unset callbacks
// are skipped. Callbacks may be invoked from background goroutines and
// must not block.
type Events struct {
	OnTxStatus      func(TxStatusEvent)
	OnCircleRefresh func(circleIDs []uint64)
	OnError         func(error)
}

func (e *Events) emitTxStatus(ev TxStatusEvent) {
	if e != nil && e.OnTxStatus != nil {
		e.OnTxStatus(ev)
	}
}

func (e *Events) emitCircleRefresh(ids []uint64) {
	if e != nil && e.OnCircleRefresh != nil {
		e.OnCircleRefresh(ids)
	}
}

func (e *Events) emitError(err error) {
	if e != nil && e.OnError != nil {
		e.OnError(err)
	}
}
