package task

import (
	"context"
	"sync"
	"time"
)

// Countdown tracks the remaining visible time of a timer-mode attempt. Only
// ticks that arrive while the countdown is visible consume time, so
// backgrounding the app suspends progress without losing it.
type Countdown struct {
	mu        sync.Mutex
	remaining time.Duration
	visible   bool
}

func NewCountdown(total time.Duration) *Countdown {
	return &Countdown{
		remaining: total,
		visible:   true,
	}
}

func (c *Countdown) SetVisible(visible bool) {
	c.mu.Lock()
	c.visible = visible
	c.mu.Unlock()
}

func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Run consumes ticks until the countdown is exhausted. It returns nil when
// the required time has elapsed and ctx.Err() when the attempt is abandoned.
func (c *Countdown) Run(ctx context.Context, ticks <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			if c.tick(time.Second) {
				return nil
			}
		}
	}
}

func (c *Countdown) tick(step time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible {
		return false
	}
	c.remaining -= step
	return c.remaining <= 0
}
