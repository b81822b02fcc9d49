package duel

import "sync"

// Handler receives session events for one attached player. Handlers are
// invoked synchronously while the session lock is held, so they must not
// call back into the session; a WebSocket write pump satisfies this.
type Handler func(Event)

// maxPending bounds the per-player backlog kept while a player is
// detached. Older events are dropped first; a reconnecting client gets a
// fresh snapshot anyway, so the backlog is best-effort.
const maxPending = 64

// Channel fans session events out to the two players. Each player has an
// independent delivery slot: while detached, events queue up to
// maxPending; on re-attach the backlog is flushed through the new
// handler before live delivery resumes.
type Channel struct {
	mu      sync.Mutex
	subs    map[int]Handler
	pending map[int][]Event
}

func newChannel() *Channel {
	return &Channel{
		subs:    make(map[int]Handler, 2),
		pending: make(map[int][]Event, 2),
	}
}

// Attach registers a handler for the player and flushes any backlog
// accumulated while they were detached. Attaching replaces a previous
// handler, which covers a client reconnecting before its old socket is
// reaped.
func (c *Channel) Attach(playerID int, h Handler) {
	c.mu.Lock()
	backlog := c.pending[playerID]
	delete(c.pending, playerID)
	c.subs[playerID] = h
	c.mu.Unlock()

	for _, ev := range backlog {
		h(ev)
	}
}

// Detach removes the player's handler. Subsequent events queue up.
func (c *Channel) Detach(playerID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, playerID)
}

// Attached reports whether any player currently has a live handler.
func (c *Channel) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs) > 0
}

// Send delivers an event to one player, queueing it if they are detached.
func (c *Channel) Send(playerID int, ev Event) {
	c.mu.Lock()
	h, ok := c.subs[playerID]
	if !ok {
		q := append(c.pending[playerID], ev)
		if len(q) > maxPending {
			q = q[len(q)-maxPending:]
		}
		c.pending[playerID] = q
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	h(ev)
}

// Broadcast delivers an event to every known player slot.
func (c *Channel) Broadcast(playerIDs []int, ev Event) {
	for _, id := range playerIDs {
		c.Send(id, ev)
	}
}
