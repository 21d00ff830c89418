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

// Package debounce coalesces bursts of circle-refresh notices so that a
// flurry of confirmed writes against the same circle produces a single
// downstream refresh instead of one per transaction.
package debounce

import (
	"context"
	"sync"
	"time"
)

type Deduper struct {
	mu sync.Mutex
	Config

	set   map[uint64]struct{}
	timer *time.Timer
}

func NewDeduper(ctx context.Context, opts ...ConfigOption) *Deduper {
	cfg := parseOptions(opts)

	d := &Deduper{
		Config: *cfg,
		set:    make(map[uint64]struct{}),
		timer:  time.NewTimer(cfg.period),
	}
	d.timer.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-d.timer.C:
				d.mu.Lock()
				ids := make([]uint64, 0, len(d.set))
				for id := range d.set {
					ids = append(ids, id)
				}
				d.set = make(map[uint64]struct{})

				action := d.action
				d.mu.Unlock()

				if len(ids) > 0 {
					go action(ids)
				}
			}
		}
	}()

	return d
}

// Add records a circle id and arms the quiet-period timer. Ids added while
// the timer is armed are merged into the same flush.
func (d *Deduper) Add(circleID uint64) {
	d.mu.Lock()
	d.set[circleID] = struct{}{}
	d.timer.Reset(d.period)
	d.mu.Unlock()
}
