package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](4, time.Minute, WithClock(clock.now))

	c.Set("rate", "287.4")
	got, ok := c.Get("rate")
	assert.True(t, ok)
	assert.Equal(t, "287.4", got)

	clock.advance(59 * time.Second)
	_, ok = c.Get("rate")
	assert.True(t, ok)

	clock.advance(time.Second)
	_, ok = c.Get("rate")
	assert.False(t, ok, "entry expires at exactly ttl")
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)

	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())

	c.Set("a", 10)
	v, _ = c.Get("a")
	assert.Equal(t, 10, v)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestLRUCacheZeroTTLDisables(t *testing.T) {
	c := NewLRUCache[int](2, 0)
	c.Set("a", 1)
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCacheCleanExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute, WithClock(clock.now))

	c.Set("a", 1)
	clock.advance(30 * time.Second)
	c.Set("b", 2)
	clock.advance(45 * time.Second)

	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Size())
	_, ok := c.Get("b")
	assert.True(t, ok)
}
