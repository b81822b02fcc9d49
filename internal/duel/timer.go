package duel

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// questionTimer arms a one-shot deadline for the current question.
// Arm replaces any previous deadline, so at most one fire goroutine is
// live per timer. The fire callback receives the question index it was
// armed for; the session discards fires for indexes that are no longer
// current, which resolves the expiry-vs-late-answer race at the lock.
type questionTimer struct {
	clock clockwork.Clock

	mu       sync.Mutex
	timer    clockwork.Timer
	done     chan struct{}
	deadline time.Time
}

func newQuestionTimer(clock clockwork.Clock) *questionTimer {
	return &questionTimer{clock: clock}
}

// Arm schedules fire(index) after d, cancelling any previous schedule.
func (t *questionTimer) Arm(index int, d time.Duration, fire func(index int)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()

	t.deadline = t.clock.Now().Add(d)
	t.timer = t.clock.NewTimer(d)
	t.done = make(chan struct{})

	go func(tm clockwork.Timer, done chan struct{}) {
		select {
		case <-tm.Chan():
			fire(index)
		case <-done:
		}
	}(t.timer, t.done)
}

// Stop cancels the pending fire, if any. Safe to call repeatedly.
func (t *questionTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *questionTimer) stopLocked() {
	if t.timer == nil {
		return
	}
	close(t.done)
	stopAndDrainTimer(t.timer)
	t.timer = nil
	t.done = nil
	t.deadline = time.Time{}
}

// Remaining reports time left until the armed deadline, clamped at zero.
// Used to build resync snapshots for reconnecting clients.
func (t *questionTimer) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer == nil {
		return 0
	}
	rem := t.deadline.Sub(t.clock.Now())
	if rem < 0 {
		return 0
	}
	return rem
}

// stopAndDrainTimer stops a timer and drains its channel if it already
// fired, so a stale tick can never leak into a later select.
func stopAndDrainTimer(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
