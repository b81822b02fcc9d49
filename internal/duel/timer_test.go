package duel

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestQuestionTimer_Fires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	qt := newQuestionTimer(clock)

	fired := make(chan int, 1)
	qt.Arm(3, 5*time.Second, func(i int) { fired <- i })

	clock.Advance(4 * time.Second)
	select {
	case <-fired:
		t.Fatal("fired before deadline")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Second)
	select {
	case idx := <-fired:
		require.Equal(t, 3, idx)
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestQuestionTimer_StopPreventsFire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	qt := newQuestionTimer(clock)

	fired := make(chan int, 1)
	qt.Arm(0, 5*time.Second, func(i int) { fired <- i })
	qt.Stop()

	clock.Advance(10 * time.Second)
	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestQuestionTimer_RearmReplacesDeadline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	qt := newQuestionTimer(clock)

	fired := make(chan int, 2)
	qt.Arm(0, 5*time.Second, func(i int) { fired <- i })
	qt.Arm(1, 10*time.Second, func(i int) { fired <- i })

	clock.Advance(6 * time.Second)
	select {
	case <-fired:
		t.Fatal("replaced timer fired")
	case <-time.After(100 * time.Millisecond):
	}

	clock.Advance(4 * time.Second)
	select {
	case idx := <-fired:
		require.Equal(t, 1, idx)
	case <-time.After(2 * time.Second):
		t.Fatal("re-armed timer never fired")
	}
}

func TestQuestionTimer_Remaining(t *testing.T) {
	clock := clockwork.NewFakeClock()
	qt := newQuestionTimer(clock)

	require.Equal(t, time.Duration(0), qt.Remaining(), "unarmed timer has nothing remaining")

	qt.Arm(0, 10*time.Second, func(int) {})
	require.Equal(t, 10*time.Second, qt.Remaining())

	clock.Advance(3 * time.Second)
	require.Equal(t, 7*time.Second, qt.Remaining())

	qt.Stop()
	require.Equal(t, time.Duration(0), qt.Remaining())
}

func TestQuestionTimer_StopIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	qt := newQuestionTimer(clock)

	qt.Stop()
	qt.Arm(0, time.Second, func(int) {})
	qt.Stop()
	qt.Stop()
}
