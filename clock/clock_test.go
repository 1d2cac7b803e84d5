package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockSet_FiresAfterDeadline(t *testing.T) {
	c := New()
	defer c.StopAll()

	fired := make(chan uuid.UUID, 1)
	matchID := uuid.New()
	c.Schedule(matchID, 10*time.Millisecond, func(id uuid.UUID) {
		fired <- id
	})

	select {
	case id := <-fired:
		assert.Equal(t, matchID, id)
	case <-time.After(time.Second):
		t.Fatal("clock did not fire")
	}
	assert.Zero(t, c.Remaining(matchID), "fired clock leaves no remaining time")
}

func TestClockSet_CancelSuppressesTimeout(t *testing.T) {
	c := New()
	defer c.StopAll()

	var fired atomic.Int32
	matchID := uuid.New()
	c.Schedule(matchID, 20*time.Millisecond, func(uuid.UUID) {
		fired.Add(1)
	})

	require.True(t, c.Cancel(matchID))
	assert.False(t, c.Cancel(matchID), "second cancel finds nothing pending")

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestClockSet_TimeoutDeliveredExactlyOnce(t *testing.T) {
	c := New()
	defer c.StopAll()

	// Cancel races the firing timer. Whichever wins, the callback runs at
	// most once and a post-fire cancel reports false.
	var fired atomic.Int32
	matchID := uuid.New()
	c.Schedule(matchID, 5*time.Millisecond, func(uuid.UUID) {
		fired.Add(1)
	})

	time.Sleep(5 * time.Millisecond)
	cancelled := c.Cancel(matchID)

	time.Sleep(60 * time.Millisecond)
	if cancelled {
		assert.Equal(t, int32(0), fired.Load())
	} else {
		assert.Equal(t, int32(1), fired.Load())
	}
}

func TestClockSet_RescheduleReplacesPendingClock(t *testing.T) {
	c := New()
	defer c.StopAll()

	first := make(chan struct{}, 1)
	second := make(chan struct{}, 1)
	matchID := uuid.New()

	c.Schedule(matchID, 10*time.Millisecond, func(uuid.UUID) {
		first <- struct{}{}
	})
	c.Schedule(matchID, 30*time.Millisecond, func(uuid.UUID) {
		second <- struct{}{}
	})

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatal("replacement clock did not fire")
	}
	select {
	case <-first:
		t.Fatal("replaced clock fired")
	default:
	}
}

func TestClockSet_Remaining(t *testing.T) {
	c := New()
	defer c.StopAll()

	matchID := uuid.New()
	assert.Zero(t, c.Remaining(matchID))

	c.Schedule(matchID, time.Minute, func(uuid.UUID) {})
	remaining := c.Remaining(matchID)
	assert.Greater(t, remaining, 50*time.Second)
	assert.LessOrEqual(t, remaining, time.Minute)
}

func TestClockSet_StopAll(t *testing.T) {
	c := New()

	var fired atomic.Int32
	ids := make([]uuid.UUID, 4)
	for i := range ids {
		ids[i] = uuid.New()
		c.Schedule(ids[i], 20*time.Millisecond, func(uuid.UUID) {
			fired.Add(1)
		})
	}

	c.StopAll()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, int32(0), fired.Load())
	for _, id := range ids {
		assert.Zero(t, c.Remaining(id))
	}
}
