package controller

import "medley-sub000/internal/deck"

// loadNextTrackLocked implements spec.md §4.6's load_next_track: pick an
// Empty deck other than exclude (a deck that is still loading is never
// picked, so no in-flight load is cancelled here), and populate it from
// the host-owned queue — falling back to
// pre_queue_next when the queue is empty. Caller must hold c.mu; the
// actual Load call and its callbacks run outside the lock since Load
// itself is non-blocking (it only spawns the loader goroutine).
func (c *Controller) loadNextTrackLocked(exclude int) (idx int, started bool) {
	idx = c.idleDeckLocked(exclude)
	if idx < 0 {
		return -1, false
	}
	track := c.popPendingLocked()
	if track != nil {
		c.startLoadLocked(idx, track)
		return idx, true
	}

	// Queue empty: ask the host for one more track before giving up this
	// round (spec.md §6 PreQueueNext contract). The host may call Enqueue
	// synchronously from within done, or asynchronously later; either way
	// we only attempt the load if a track is available immediately.
	// awaitingQueue suppresses re-firing this every ~33ms poll while one
	// call is still outstanding. Registry.PreQueueNext calls done()
	// synchronously when no listener is registered, so c.mu must be
	// released across the call or that path deadlocks against ourselves.
	if c.reg != nil && !c.awaitingQueue {
		c.awaitingQueue = true
		reg := c.reg
		c.mu.Unlock()
		reg.PreQueueNext(func(ok bool) {
			c.mu.Lock()
			c.awaitingQueue = false
			if !ok {
				c.mu.Unlock()
				return
			}
			track := c.popPendingLocked()
			c.mu.Unlock()
			if track != nil {
				c.mu.Lock()
				c.startLoadLocked(idx, track)
				c.mu.Unlock()
			}
		})
		c.mu.Lock()
	}
	return idx, false
}

// startLoadLocked kicks off Deck.Load for idx, dispatching deck_loaded on
// success. Caller must hold c.mu; Deck.Load itself never blocks.
func (c *Controller) startLoadLocked(idx int, track *deck.Track) {
	d := c.decks[idx]
	reg := c.reg
	d.Load(c.opener, track,
		func(t *deck.Track) {
			if reg != nil {
				reg.DeckLoaded(d, t)
			}
		},
		func(success bool) {
			if !success {
				return
			}
			c.mu.Lock()
			if c.transitingIdx == idx {
				c.state = Cued
			}
			c.mu.Unlock()
		},
	)
}
