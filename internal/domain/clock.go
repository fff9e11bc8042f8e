package domain

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// clock paces geocoding calls. Tests swap in a fake via SetClock.
var clock = clockwork.NewRealClock()

// SetClock replaces the pacing clock. Pass nil to restore the real one.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// sleep blocks for d on the package clock, returning early if ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-clock.After(d):
	}
}
