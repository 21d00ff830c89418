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

// Package cache implements the value cache shared by the circle model, the
// escrow reconciler and the marketplace scanner. Entries live in a TTL
// memory tier; entries marked persistent are mirrored into a durable KV
// and rehydrated on a memory miss. Durable-tier failures degrade the cache
// to memory-only and are never surfaced to callers.
package cache

import (
	"encoding/json"
	"reflect"
	"sync"
	"time"

	radix "github.com/armon/go-radix"
	"github.com/golang/snappy"
	gocache "github.com/patrickmn/go-cache"

	"github.com/susuprotocol/susu-go/conf"
	"github.com/susuprotocol/susu-go/log"
	"github.com/susuprotocol/susu-go/store"
)

const durablePrefix = "susu:cache:"

type entry struct {
	val       interface{}
	createdAt time.Time
	expiresAt time.Time // zero means no expiry
}

type envelope struct {
	CreatedAt int64           `json:"created_at"`
	ExpiresAt int64           `json:"expires_at"`
	Data      json.RawMessage `json:"data"`
}

type Cache struct {
	mu sync.Mutex

	mem  *gocache.Cache
	keys *radix.Tree

	kv  store.KV
	now func() time.Time
}

type Option func(*Cache)

// WithDurable attaches a durable tier. Entries stored with Persist survive
// process restarts.
func WithDurable(kv store.KV) Option {
	return func(c *Cache) {
		c.kv = kv
	}
}

// WithClock overrides the time source. Tests use this to simulate expiry
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		mem:  gocache.New(gocache.NoExpiration, conf.GetSweepInterval()),
		keys: radix.New(),
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.mem.OnEvicted(func(key string, _ interface{}) {
		c.mu.Lock()
		c.keys.Delete(key)
		c.mu.Unlock()
	})

	return c
}

type EntryOption func(*entryOpts)

type entryOpts struct {
	ttl     time.Duration
	persist bool
}

func TTL(d time.Duration) EntryOption {
	return func(o *entryOpts) {
		o.ttl = d
	}
}

func Persist() EntryOption {
	return func(o *entryOpts) {
		o.persist = true
	}
}

func (c *Cache) Set(key string, val interface{}, opts ...EntryOption) {
	var o entryOpts
	for _, opt := range opts {
		opt(&o)
	}

	now := c.now()

	e := entry{val: val, createdAt: now}
	if o.ttl > 0 {
		e.expiresAt = now.Add(o.ttl)
	}

	c.mu.Lock()
	c.mem.Set(key, e, o.ttl)
	c.keys.Insert(key, struct{}{})
	c.mu.Unlock()

	if o.persist && c.kv != nil {
		c.mirror(key, e)
	}
}

// Get returns the memory-tier value for key, treating an expired entry as a
// miss and evicting it. The durable tier is not consulted; use Load for
// typed rehydration.
func (c *Cache) Get(key string) (interface{}, bool) {
	raw, ok := c.mem.Get(key)
	if !ok {
		return nil, false
	}

	e := raw.(entry)
	if c.expired(e) {
		c.Delete(key)
		return nil, false
	}

	return e.val, true
}

// Load fetches key into out, falling back to the durable tier on a memory
// miss and rehydrating memory on success. out must be a non-nil pointer.
func (c *Cache) Load(key string, out interface{}) bool {
	if raw, ok := c.mem.Get(key); ok {
		e := raw.(entry)
		if c.expired(e) {
			c.Delete(key)
			return false
		}

		return assign(out, e.val)
	}

	if c.kv == nil {
		return false
	}

	buf, err := c.kv.Get([]byte(durablePrefix + key))
	if err != nil {
		if err != store.ErrNotFound {
			logger := log.Cache("load")
			logger.Warn().Err(err).Str("key", key).
				Msg("Durable tier read failed; degrading to memory-only.")
		}
		return false
	}

	decoded, err := snappy.Decode(nil, buf)
	if err != nil {
		return false
	}

	var env envelope
	if err := json.Unmarshal(decoded, &env); err != nil {
		return false
	}

	if env.ExpiresAt != 0 && c.now().After(time.Unix(0, env.ExpiresAt)) {
		_ = c.kv.Delete([]byte(durablePrefix + key))
		return false
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return false
	}

	e := entry{
		val:       reflect.ValueOf(out).Elem().Interface(),
		createdAt: time.Unix(0, env.CreatedAt),
	}

	var ttl time.Duration
	if env.ExpiresAt != 0 {
		e.expiresAt = time.Unix(0, env.ExpiresAt)
		ttl = e.expiresAt.Sub(c.now())
	}

	c.mu.Lock()
	c.mem.Set(key, e, ttl)
	c.keys.Insert(key, struct{}{})
	c.mu.Unlock()

	return true
}

// GetOrSet returns the cached value for key, or invokes factory and caches
// its result. A factory error is returned without caching anything.
func (c *Cache) GetOrSet(key string, factory func() (interface{}, error), opts ...EntryOption) (interface{}, error) {
	if val, ok := c.Get(key); ok {
		return val, nil
	}

	val, err := factory()
	if err != nil {
		return nil, err
	}

	c.Set(key, val, opts...)
	return val, nil
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	c.mem.Delete(key)
	c.keys.Delete(key)
	c.mu.Unlock()

	if c.kv != nil {
		_ = c.kv.Delete([]byte(durablePrefix + key))
	}
}

// InvalidatePrefix drops every entry whose key starts with prefix and
// returns how many were dropped. The key set is copied before mutation.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	var matched []string
	c.keys.WalkPrefix(prefix, func(key string, _ interface{}) bool {
		matched = append(matched, key)
		return false
	})
	c.mu.Unlock()

	for _, key := range matched {
		c.Delete(key)
	}

	return len(matched)
}

func (c *Cache) Len() int {
	return c.mem.ItemCount()
}

func (c *Cache) expired(e entry) bool {
	return !e.expiresAt.IsZero() && c.now().After(e.expiresAt)
}

func (c *Cache) mirror(key string, e entry) {
	data, err := json.Marshal(e.val)
	if err != nil {
		logger := log.Cache("mirror")
		logger.Warn().Err(err).Str("key", key).
			Msg("Value is not serializable; kept in memory only.")
		return
	}

	env := envelope{CreatedAt: e.createdAt.UnixNano(), Data: data}
	if !e.expiresAt.IsZero() {
		env.ExpiresAt = e.expiresAt.UnixNano()
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return
	}

	if err := c.kv.Put([]byte(durablePrefix+key), snappy.Encode(nil, raw)); err != nil {
		logger := log.Cache("mirror")
		logger.Warn().Err(err).Str("key", key).
			Msg("Durable tier write failed; kept in memory only.")
	}
}

func assign(out, val interface{}) bool {
	dst := reflect.ValueOf(out)
	if dst.Kind() != reflect.Ptr || dst.IsNil() {
		return false
	}

	src := reflect.ValueOf(val)
	if !src.Type().AssignableTo(dst.Elem().Type()) {
		return false
	}

	dst.Elem().Set(src)
	return true
}
