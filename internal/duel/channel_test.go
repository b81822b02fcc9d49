package duel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannel_DeliversToAttached(t *testing.T) {
	c := newChannel()

	var got []Event
	c.Attach(1, func(ev Event) { got = append(got, ev) })

	c.Send(1, Event{Type: EventPlayerStatus})
	require.Len(t, got, 1)
}

func TestChannel_BuffersWhileDetached(t *testing.T) {
	c := newChannel()

	c.Send(1, Event{Type: EventPlayerStatus})
	c.Send(1, Event{Type: EventNewQuestion})

	var got []Event
	c.Attach(1, func(ev Event) { got = append(got, ev) })

	require.Len(t, got, 2, "backlog flushed on attach")
	require.Equal(t, EventPlayerStatus, got[0].Type)
	require.Equal(t, EventNewQuestion, got[1].Type)

	c.Send(1, Event{Type: EventDuelEnd})
	require.Len(t, got, 3, "live delivery resumes after flush")
}

func TestChannel_DetachStopsDelivery(t *testing.T) {
	c := newChannel()

	var got []Event
	c.Attach(1, func(ev Event) { got = append(got, ev) })
	c.Detach(1)

	c.Send(1, Event{Type: EventDuelEnd})
	require.Empty(t, got)

	var again []Event
	c.Attach(1, func(ev Event) { again = append(again, ev) })
	require.Len(t, again, 1, "event queued during detach is flushed")
}

func TestChannel_BacklogBounded(t *testing.T) {
	c := newChannel()

	for i := 0; i < maxPending+20; i++ {
		c.Send(1, Event{Type: EventPlayerAnswered, Payload: i})
	}

	var got []Event
	c.Attach(1, func(ev Event) { got = append(got, ev) })

	require.Len(t, got, maxPending)
	require.Equal(t, 20, got[0].Payload, "oldest events dropped first")
}

func TestChannel_BroadcastReachesBothPlayers(t *testing.T) {
	c := newChannel()

	counts := map[int]int{}
	c.Attach(1, func(Event) { counts[1]++ })
	c.Attach(2, func(Event) { counts[2]++ })

	c.Broadcast([]int{1, 2}, Event{Type: EventDuelStatus})
	require.Equal(t, 1, counts[1])
	require.Equal(t, 1, counts[2])
}

func TestChannel_ReattachReplacesHandler(t *testing.T) {
	c := newChannel()

	first, second := 0, 0
	c.Attach(1, func(Event) { first++ })
	c.Attach(1, func(Event) { second++ })

	c.Send(1, Event{Type: EventDuelStatus})
	require.Equal(t, 0, first)
	require.Equal(t, 1, second)
}
