package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/susuprotocol/susu-go/store"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time {
	return f.t
}

func (f *fakeClock) advance(d time.Duration) {
	f.t = f.t.Add(d)
}

func TestRoundTrip(t *testing.T) {
	c := New()

	c.Set("k", "v", TTL(time.Minute))

	val, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", val)
}

func TestExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := New(WithClock(clock.now))

	c.Set("k", "v", TTL(time.Minute))

	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.advance(61 * time.Second)

	val, ok := c.Get("k")
	assert.False(t, ok)
	assert.Nil(t, val)

	// Expired entry must have been evicted, not merely hidden.
	assert.Zero(t, c.Len())
}

func TestNoExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := New(WithClock(clock.now))

	c.Set("k", 42)

	clock.advance(24 * time.Hour)

	val, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, val)
}

func TestGetOrSet(t *testing.T) {
	c := New()

	calls := 0
	factory := func() (interface{}, error) {
		calls++
		return "made", nil
	}

	val, err := c.GetOrSet("k", factory, TTL(time.Minute))
	assert.NoError(t, err)
	assert.Equal(t, "made", val)

	val, err = c.GetOrSet("k", factory, TTL(time.Minute))
	assert.NoError(t, err)
	assert.Equal(t, "made", val)

	assert.Equal(t, 1, calls)
}

func TestDurableFallback(t *testing.T) {
	kv := store.NewInmem()
	defer kv.Close()

	c := New(WithDurable(kv))
	c.Set("k", map[string]uint64{"amount": 7}, TTL(time.Hour), Persist())

	// A fresh cache over the same KV simulates a restart.
	c2 := New(WithDurable(kv))

	var out map[string]uint64
	assert.True(t, c2.Load("k", &out))
	assert.EqualValues(t, 7, out["amount"])

	// Rehydrated into memory.
	_, ok := c2.Get("k")
	assert.True(t, ok)
}

func TestDurableExpiry(t *testing.T) {
	kv := store.NewInmem()
	defer kv.Close()

	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := New(WithDurable(kv), WithClock(clock.now))

	c.Set("k", "v", TTL(time.Minute), Persist())

	clock.advance(2 * time.Minute)

	c2 := New(WithDurable(kv), WithClock(clock.now))

	var out string
	assert.False(t, c2.Load("k", &out))
}

func TestLoadFromMemory(t *testing.T) {
	c := New()
	c.Set("k", "v")

	var out string
	assert.True(t, c.Load("k", &out))
	assert.Equal(t, "v", out)
}

func TestInvalidatePrefix(t *testing.T) {
	c := New()

	c.Set("circle:1", "a")
	c.Set("circle:2", "b")
	c.Set("floor:1", "c")

	assert.Equal(t, 2, c.InvalidatePrefix("circle:"))

	_, ok := c.Get("circle:1")
	assert.False(t, ok)
	_, ok = c.Get("circle:2")
	assert.False(t, ok)
	_, ok = c.Get("floor:1")
	assert.True(t, ok)
}

func TestMemoryOnlyDegradation(t *testing.T) {
	// No durable tier attached; Persist is a no-op rather than an error.
	c := New()
	c.Set("k", "v", Persist())

	val, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", val)
}
