// Package clock provides single-shot countdowns for match deadlines.
//
// A MatchClock is an owned collection of timer handles, injected into the
// orchestrator instance that uses it. Nothing here is process-global.
package clock

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TimeoutFunc is invoked from the timer's own goroutine when a scheduled
// deadline elapses without being cancelled.
type TimeoutFunc func(matchID uuid.UUID)

type MatchClock interface {
	// Schedule starts a single-shot countdown for matchID. Any clock already
	// pending for the same match is cancelled first.
	Schedule(matchID uuid.UUID, d time.Duration, onTimeout TimeoutFunc)

	// Cancel suppresses a pending timeout. It reports whether a clock was
	// still pending: false means the timeout already fired or nothing was
	// scheduled. Cancellation and firing are mutually exclusive; a timeout
	// whose gate check loses to Cancel never invokes its callback.
	Cancel(matchID uuid.UUID) bool

	// Remaining returns the time left on the match's clock, or zero when no
	// clock is pending.
	Remaining(matchID uuid.UUID) time.Duration

	// StopAll cancels every pending clock. Used on shutdown.
	StopAll()
}

type entry struct {
	timer    *time.Timer
	deadline time.Time
}

type clockSet struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

func New() MatchClock {
	return &clockSet{entries: make(map[uuid.UUID]*entry)}
}

func (c *clockSet) Schedule(matchID uuid.UUID, d time.Duration, onTimeout TimeoutFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.entries[matchID]; ok {
		prev.timer.Stop()
		delete(c.entries, matchID)
	}

	e := &entry{deadline: time.Now().Add(d)}
	e.timer = time.AfterFunc(d, func() {
		// The gate: only the goroutine that removes the live entry may
		// deliver the timeout. Cancel removes it under the same mutex, so
		// delivery and cancellation cannot both win.
		c.mu.Lock()
		current, ok := c.entries[matchID]
		if !ok || current != e {
			c.mu.Unlock()
			return
		}
		delete(c.entries, matchID)
		c.mu.Unlock()

		onTimeout(matchID)
	})
	c.entries[matchID] = e
}

func (c *clockSet) Cancel(matchID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[matchID]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(c.entries, matchID)
	return true
}

func (c *clockSet) Remaining(matchID uuid.UUID) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[matchID]
	if !ok {
		return 0
	}
	left := time.Until(e.deadline)
	if left < 0 {
		return 0
	}
	return left
}

func (c *clockSet) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, e := range c.entries {
		e.timer.Stop()
		delete(c.entries, id)
	}
}
