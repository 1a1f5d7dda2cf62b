package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCeiling(t *testing.T) {
	l := New(10, time.Hour, 1000, time.Minute)

	for i := 1; i <= 10; i++ {
		d := l.Check(ScopeRecipient, "+12345678900")
		require.True(t, d.Allowed, "call %d should be admitted", i)
		assert.Equal(t, 10-i, d.Remaining)
	}

	d := l.Check(ScopeRecipient, "+12345678900")
	assert.False(t, d.Allowed, "11th call must be rejected")
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 10, d.Limit)
	assert.False(t, d.ResetAt.IsZero())
}

func TestRejectionDoesNotIncrement(t *testing.T) {
	l := New(1, time.Hour, 1000, time.Minute)
	require.True(t, l.Check(ScopeRecipient, "k").Allowed)

	first := l.Check(ScopeRecipient, "k")
	second := l.Check(ScopeRecipient, "k")
	assert.False(t, first.Allowed)
	assert.False(t, second.Allowed)
	assert.Equal(t, first.ResetAt, second.ResetAt)
}

func TestKeysIndependent(t *testing.T) {
	l := New(1, time.Hour, 1000, time.Minute)
	assert.True(t, l.Check(ScopeRecipient, "a").Allowed)
	assert.False(t, l.Check(ScopeRecipient, "a").Allowed)
	assert.True(t, l.Check(ScopeRecipient, "b").Allowed)
}

func TestWindowReset(t *testing.T) {
	l := New(1, time.Hour, 1000, time.Minute)
	base := time.Now()
	l.now = func() time.Time { return base }

	require.True(t, l.Check(ScopeRecipient, "k").Allowed)
	require.False(t, l.Check(ScopeRecipient, "k").Allowed)

	// advance past the window: a fresh one is created with count 1
	l.now = func() time.Time { return base.Add(time.Hour + time.Second) }
	d := l.Check(ScopeRecipient, "k")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}

func TestGlobalScope(t *testing.T) {
	l := New(100, time.Hour, 2, time.Minute)
	assert.True(t, l.Check(ScopeGlobal, "global").Allowed)
	assert.True(t, l.Check(ScopeGlobal, "global").Allowed)
	assert.False(t, l.Check(ScopeGlobal, "global").Allowed)
}

func TestSweep(t *testing.T) {
	l := New(5, time.Hour, 1000, time.Minute)
	base := time.Now()
	l.now = func() time.Time { return base }

	l.Check(ScopeRecipient, "a")
	l.Check(ScopeRecipient, "b")
	require.Len(t, l.windows, 2)

	assert.Equal(t, 0, l.Sweep(), "live windows must survive a sweep")

	l.now = func() time.Time { return base.Add(2 * time.Hour) }
	assert.Equal(t, 2, l.Sweep())
	assert.Empty(t, l.windows)
}
