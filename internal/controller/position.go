package controller

import (
	"time"

	"medley-sub000/internal/deck"
	"medley-sub000/internal/fader"
)

// positionPollInterval matches spec.md §5's "~30Hz" position/telemetry
// task cadence.
const positionPollInterval = 33 * time.Millisecond

// RunPositionLoop blocks, polling every deck's position at ~30Hz and
// driving the main-deck transition state machine, until stop is closed.
// Grounded on the teacher's audio.go stats ticker (time.NewTicker-driven
// polling loop) generalized from a single stream's stats to the deck
// pool's transition bookkeeping.
func (c *Controller) RunPositionLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(positionPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.pollOnce()
		}
	}
}

// pollOnce reports every non-empty deck's position and advances the
// transition state machine against the main deck's position.
func (c *Controller) pollOnce() {
	c.mu.Lock()
	decks := c.decks
	mainIdx := c.mainIdx
	c.mu.Unlock()

	for _, d := range decks {
		if d.State() == deck.Empty {
			continue
		}
		pos := d.Position()
		if c.reg != nil {
			c.reg.DeckPosition(d, pos)
		}
	}

	if mainIdx < 0 {
		return
	}
	c.advanceTransition(mainIdx)
}

// advanceTransition implements spec.md §4.6's condition/action table for
// the main deck's Idle -> Cueing -> CueLoading -> Cued -> Transit -> Idle
// cycle. `pre_cue_point` is taken to equal `transition_cue_s`: the table
// still models two ticks (Idle -> Cueing emits pre_queue_next; the next
// tick, now in Cueing, crosses "state<CueLoading" and actually loads),
// which gives the host one poll interval's notice before the loader
// fires.
func (c *Controller) advanceTransition(mainIdx int) {
	main := c.decks[mainIdx]
	pos := main.Position()
	cueS, startS, _, ok := main.TransitionPoints()
	if !ok {
		return
	}

	c.mu.Lock()
	state := c.state
	transiting := c.transitingIdx
	c.mu.Unlock()

	switch state {
	case Idle:
		if pos > cueS && main.State() != deck.Finished {
			c.mu.Lock()
			c.state = Cueing
			c.mu.Unlock()
			if c.reg != nil {
				c.reg.PreQueueNext(func(bool) {})
			}
		}
	case Cueing:
		if pos > cueS {
			c.mu.Lock()
			c.state = CueLoading
			c.mu.Unlock()
			idx, started := c.loadNextTrackLocked2(mainIdx)
			c.mu.Lock()
			c.transitingIdx = idx
			if idx < 0 {
				c.state = Idle // no deck available; try again next poll
			} else if !started {
				c.state = Cueing // loader callback pending or retrying
			}
			c.mu.Unlock()
		}
	case CueLoading:
		if transiting >= 0 && c.decks[transiting].State() == deck.Loaded {
			c.mu.Lock()
			c.state = Cued
			c.mu.Unlock()
		}
	case Cued:
		if transiting < 0 {
			return
		}
		next := c.decks[transiting]
		leading := next.LeadingDuration()
		if pos > startS-leading || main.State() == deck.Finished {
			c.beginTransit(mainIdx, transiting, startS, leading)
		}
	case Transit:
		c.advanceTransitFade(mainIdx, transiting, startS)
	}
}

// loadNextTrackLocked2 acquires c.mu itself (advanceTransition calls it
// unlocked) and delegates to loadNextTrackLocked.
func (c *Controller) loadNextTrackLocked2(exclude int) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadNextTrackLocked(exclude)
}

// beginTransit starts the cued deck per spec.md §4.6's Cued->Transit row:
// next_deck.volume defaults to 1.0 (the leading<min_leading_to_fade,
// no-compensation case); when force-fading and the incoming track's
// leading window exceeds min_leading_to_fade, it is seeked forward so the
// ramp in advanceTransitFade has exactly min_leading_to_fade seconds left
// to run. The outgoing main deck's own fade is armed separately, once its
// position reaches its own transition_start_s (see advanceTransitFade) —
// not here, and not through FadeOut's manual max_fade_out_duration window.
func (c *Controller) beginTransit(mainIdx, nextIdx int, startS, leading float64) {
	c.mu.Lock()
	if c.state != Cued {
		c.mu.Unlock()
		return
	}
	main := c.decks[mainIdx]
	next := c.decks[nextIdx]
	minLeading := c.cfg.MinLeadingToFadeS
	forceFading := c.forceFade > 0
	c.mu.Unlock()

	if forceFading && minLeading > 0 && leading > minLeading {
		seekS := next.FirstAudibleSeconds() + leading - minLeading
		next.SetPosition(seekS)
	}

	if !next.Start() {
		return
	}
	next.SetVolume(1.0)

	c.mu.Lock()
	if c.state == Cued {
		c.state = Transit
	}
	c.mu.Unlock()

	if c.reg != nil {
		c.reg.DeckStarted(next, next.Track())
	}

	if minLeading > 0 && leading >= minLeading {
		next.SetVolume(rampVolume(main.Position(), startS, leading, c.cfg.FadingFactor()))
	}
}

// advanceTransitFade implements spec.md §4.6's Transit-state ramp row, the
// "p >= transition_start_s" outgoing-fade trigger (using the main deck's
// own already-scanned transition_start_s/transition_end_s window, bounded
// by max_transition_time — never the manual fade_out_main() window), and
// the main_deck.stop() row, then swaps main once the outgoing deck has
// finished.
func (c *Controller) advanceTransitFade(mainIdx, nextIdx int, startS float64) {
	c.mu.Lock()
	main := c.decks[mainIdx]
	c.mu.Unlock()
	if nextIdx < 0 {
		return
	}
	next := c.decks[nextIdx]

	leading := next.LeadingDuration()
	c.mu.Lock()
	minLeading := c.cfg.MinLeadingToFadeS
	factor := c.cfg.FadingFactor()
	c.mu.Unlock()
	if minLeading > 0 && leading >= minLeading {
		next.SetVolume(rampVolume(main.Position(), startS, leading, factor))
	}

	if main.Position() >= startS {
		main.BeginTransitionFade()
	}

	if main.State() == deck.Finished {
		c.mu.Lock()
		t := main.Track()
		main.Unload()
		if t != nil && c.reg != nil {
			c.reg.DeckUnloaded(main, t)
			c.reg.DeckFinished(main, t)
		}
		c.mainIdx = nextIdx
		c.transitingIdx = -1
		c.state = Idle
		c.forceFade = 0
		nt := next.Track()
		c.mu.Unlock()
		if c.reg != nil {
			c.reg.MainDeckChanged(next, nt)
		}
	}
}

// rampVolume implements spec.md §4.6's incoming-deck ramp via the shared
// fader.Fader envelope (spec.md §4.3): v = progress^fading_factor over the
// window [start-leading, start], with progress floored at 0.25 rather than
// 0 — the table's clamp lower bound, applied here by never evaluating the
// envelope before that floor time.
func rampVolume(pos, startS, leading, fadingFactor float64) float64 {
	if leading <= 0 {
		return 1
	}
	tStart := startS - leading
	floor := tStart + 0.25*leading
	t := pos
	if t < floor {
		t = floor
	}
	var f fader.Fader
	f.Configure(tStart, startS, 0, 1, fadingFactor, 1, true, nil)
	return f.Value(t)
}
