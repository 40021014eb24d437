// Package timer drives fixed-length countdowns one tick per second.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Tick is one elapsed second of a countdown.
type Tick struct {
	Epoch     uint64
	Seq       int
	Remaining int
}

// Source arms countdowns. The returned channel yields exactly seconds ticks
// and is closed after the last one or when the countdown is stopped.
type Source interface {
	Start(epoch uint64, seconds int) <-chan Tick
	Stop()
}

// Countdown is a Source backed by a clockwork clock.
type Countdown struct {
	clock    clockwork.Clock
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCountdown returns a Countdown ticking once per second on clock.
func NewCountdown(clock clockwork.Clock) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Countdown{clock: clock, interval: time.Second}
}

// Start stops any running countdown and begins a new one.
func (c *Countdown) Start(epoch uint64, seconds int) <-chan Tick {
	c.Stop()

	out := make(chan Tick)
	if seconds <= 0 {
		close(out)
		return out
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := c.clock.NewTicker(c.interval)

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		defer close(out)
		defer ticker.Stop()
		for seq := 1; seq <= seconds; seq++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
			}
			tick := Tick{Epoch: epoch, Seq: seq, Remaining: seconds - seq}
			select {
			case <-ctx.Done():
				return
			case out <- tick:
			}
		}
	}()
	return out
}

// Stop cancels the running countdown. No tick is delivered after Stop returns.
func (c *Countdown) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
