package controller

import "medley-sub000/internal/deck"

// Play starts playout. If no deck is currently main, it loads the next
// queued track onto an idle deck and promotes it to main as soon as the
// load completes; if a main deck already exists but is merely Loaded,
// it is started in place.
func (c *Controller) Play() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.keepPlaying = true

	if c.mainIdx >= 0 {
		d := c.decks[c.mainIdx]
		if d.State() == deck.Loaded {
			if d.Start() {
				c.dispatchStartedLocked(c.mainIdx)
			}
		}
		return true
	}

	idx := c.idleDeckLocked(-1)
	if idx < 0 {
		return false
	}
	track := c.popPendingLocked()
	if track == nil {
		return false
	}
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
			if c.mainIdx < 0 && c.decks[idx].State() == deck.Loaded {
				if c.decks[idx].Start() {
					c.mainIdx = idx
					c.dispatchStartedLocked(idx)
					c.dispatchMainChangedLocked(idx)
				}
			}
			c.mu.Unlock()
		},
	)
	return true
}

// Stop halts and unloads every deck, returning the controller to Idle
// with no main deck — spec.md §4.6's stop() contract.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keepPlaying = false
	for i, d := range c.decks {
		t := d.Track()
		d.Stop()
		d.Unload()
		if t != nil && c.reg != nil {
			c.reg.DeckUnloaded(d, t)
		}
		_ = i
	}
	c.mainIdx = -1
	c.transitingIdx = -1
	c.state = Idle
	c.forceFade = 0
}

// FadeOutMain implements spec.md §4.6's fade_out_main(): the first call
// initiates the outgoing fade on the main deck; a repeated call, if a
// transition is cued but the next deck hasn't started yet, cancels it so
// the main deck fades to silence instead of crossfading — "mash it twice"
// skips the upcoming track rather than cutting audio immediately.
func (c *Controller) FadeOutMain() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mainIdx < 0 {
		return
	}
	d := c.decks[c.mainIdx]
	c.forceFade++
	d.FadeOut()
	if c.forceFade >= 2 && c.transitingIdx >= 0 && c.decks[c.transitingIdx].State() == deck.Loaded {
		c.decks[c.transitingIdx].Unload()
		c.transitingIdx = -1
		c.state = Idle
	}
}

// SetMainPosition seeks the main deck and cancels any in-flight cueing,
// per spec.md §4.6's "set_position on the main deck cancels a pending
// transition and returns to Idle" decision (see DESIGN.md Open
// Questions).
func (c *Controller) SetMainPosition(seconds float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mainIdx < 0 {
		return false
	}
	if c.state != Idle && c.transitingIdx >= 0 {
		c.decks[c.transitingIdx].Unload()
		c.transitingIdx = -1
	}
	c.state = Idle
	return c.decks[c.mainIdx].SetPosition(seconds)
}

func (c *Controller) dispatchStartedLocked(idx int) {
	if c.reg == nil {
		return
	}
	d := c.decks[idx]
	if t := d.Track(); t != nil {
		c.reg.DeckStarted(d, t)
	}
}

func (c *Controller) dispatchMainChangedLocked(idx int) {
	if c.reg == nil {
		return
	}
	d := c.decks[idx]
	c.reg.MainDeckChanged(d, d.Track())
}
