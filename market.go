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

package susu

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/btree"
	"golang.org/x/time/rate"

	"github.com/susuprotocol/susu-go/cache"
	"github.com/susuprotocol/susu-go/conf"
	"github.com/susuprotocol/susu-go/gateway"
	"github.com/susuprotocol/susu-go/log"
)

// Token is a slot NFT with its marketplace listing, if any.
type Token struct {
	ID       uint64
	CircleID uint64
	Slot     uint64
	Owner    string

	Listed bool
	Price  uint64
	Seller string
}

func floorKey(circleID uint64) string {
	return fmt.Sprintf("floor:%d", circleID)
}

// Scanner walks the token-id space to assemble listings. There is no
// indexer behind the ledger API, so each id costs one read call (plus a
// metadata call when listed); every scan is bounded and rate limited to
// stay under the API's limits.
type Scanner struct {
	ledger Ledger
	cache  *cache.Cache
	sender string

	limiter *rate.Limiter
}

func NewScanner(ledger Ledger, c *cache.Cache, sender string) *Scanner {
	return &Scanner{
		ledger:  ledger,
		cache:   c,
		sender:  sender,
		limiter: rate.NewLimiter(rate.Limit(conf.GetScanRatePerSec()), conf.GetScanWorkers()),
	}
}

// LastTokenID reads the top of the token-id space.
func (s *Scanner) LastTokenID(ctx context.Context) (uint64, error) {
	raw, err := s.ledger.CallReadOnly(ctx, "get-last-token-id", nil, s.sender)
	if err != nil {
		return 0, err
	}

	v, ok := raw.Unwrap()
	if !ok || v == nil || v.Type != gateway.TypeUint {
		return 0, ErrMalformedLedgerData
	}

	return v.Uint, nil
}

// ScanListings checks the newest `limit` token ids, ids
// max(1, maxTokenID-limit+1) through maxTokenID, and returns the active
// listings among them ordered by token id. Per-id read failures skip that
// id; only context cancellation aborts the scan.
func (s *Scanner) ScanListings(ctx context.Context, maxTokenID, limit uint64) ([]Token, error) {
	if maxTokenID == 0 || limit == 0 {
		return []Token{}, nil
	}

	start := uint64(1)
	if maxTokenID > limit {
		start = maxTokenID - limit + 1
	}

	ids := make(chan uint64, maxTokenID-start+1)
	for id := start; id <= maxTokenID; id++ {
		ids <- id
	}
	close(ids)

	var (
		mu     sync.Mutex
		tokens []Token
		wg     sync.WaitGroup
	)

	workers := conf.GetScanWorkers()

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()

			for id := range ids {
				if err := s.limiter.Wait(ctx); err != nil {
					return
				}

				token, ok := s.lookup(ctx, id)
				if !ok {
					continue
				}

				mu.Lock()
				tokens = append(tokens, token)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })

	return tokens, nil
}

// lookup reads one token's listing and, when listed, its metadata.
func (s *Scanner) lookup(ctx context.Context, id uint64) (Token, bool) {
	raw, err := s.ledger.CallReadOnly(ctx, "get-listing", []string{uintArg(id)}, s.sender)
	if err != nil {
		logger := log.Market("scan")
		logger.Debug().Err(err).Uint64("token_id", id).
			Msg("Listing read failed; skipping id.")
		return Token{}, false
	}

	listing, ok := raw.Unwrap()
	if !ok || listing == nil || listing.Type != gateway.TypeTuple {
		return Token{}, false
	}

	price, ok := listing.TupleUint("price")
	if !ok {
		return Token{}, false
	}

	seller, _ := listing.TupleString("seller")

	token := Token{
		ID:     id,
		Listed: true,
		Price:  price,
		Seller: seller,
	}

	meta, err := s.ledger.CallReadOnly(ctx, "get-token-info", []string{uintArg(id)}, s.sender)
	if err == nil {
		if info, ok := meta.Unwrap(); ok && info != nil && info.Type == gateway.TypeTuple {
			token.CircleID, _ = info.TupleUint("circle-id")
			token.Slot, _ = info.TupleUint("slot")
			token.Owner, _ = info.TupleString("owner")
		}
	}

	return token, true
}

type priceItem struct {
	price   uint64
	tokenID uint64
}

func (a priceItem) Less(b btree.Item) bool {
	o := b.(priceItem)
	if a.price != o.price {
		return a.price < o.price
	}

	return a.tokenID < o.tokenID
}

// FloorPrice returns the lowest active listing price for a circle, and
// false when the circle has no listings. This walks the entire token range
// and is by far the most expensive read in the engine, so results are
// cached under a long TTL; callers must not re-run it per render.
func (s *Scanner) FloorPrice(ctx context.Context, circleID uint64) (uint64, bool, error) {
	type floor struct {
		Price  uint64 `json:"price"`
		Listed bool   `json:"listed"`
	}

	val, err := s.cache.GetOrSet(floorKey(circleID), func() (interface{}, error) {
		last, err := s.LastTokenID(ctx)
		if err != nil {
			return nil, err
		}

		tokens, err := s.ScanListings(ctx, last, last)
		if err != nil {
			return nil, err
		}

		index := btree.New(2)
		for _, token := range tokens {
			if token.CircleID == circleID {
				index.ReplaceOrInsert(priceItem{price: token.Price, tokenID: token.ID})
			}
		}

		if index.Len() == 0 {
			return floor{}, nil
		}

		min := index.Min().(priceItem)
		return floor{Price: min.price, Listed: true}, nil
	}, cache.TTL(conf.GetFloorTTL()))

	if err != nil {
		logger := log.Market("floor")
		logger.Warn().Err(err).Uint64("circle_id", circleID).
			Msg("Floor price scan failed.")
		return 0, false, err
	}

	f := val.(floor)

	return f.Price, f.Listed, nil
}
