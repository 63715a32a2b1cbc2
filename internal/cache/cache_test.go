package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	t.Parallel()
	c := New()

	c.Set(Key("vercel/next.js", StageRepo), "profile", time.Minute)

	got, ok := c.Get(Key("vercel/next.js", StageRepo))
	require.True(t, ok)
	assert.Equal(t, "profile", got)

	_, ok = c.Get(Key("vercel/next.js", StageTech))
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := NewWithClock(func() time.Time { return now })

	c.Set("k", 42, time.Minute)

	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry at exactly TTL should be stale")

	// Overwriting a stale entry resurrects the key.
	c.Set("k", 43, time.Minute)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 43, got)
	assert.Equal(t, 1, c.Len())
}

func TestCacheDefaultTTL(t *testing.T) {
	t.Parallel()

	now := time.Now()
	c := NewWithClock(func() time.Time { return now })

	c.Set("k", "v", 0)

	now = now.Add(DefaultTTL - time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "example.com:company", Key("example.com", StageCompany))
}
