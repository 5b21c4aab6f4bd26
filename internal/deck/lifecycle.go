package deck

import "medley-sub000/internal/scanner"

// Start transitions Loaded -> Playing, matching spec.md §4.5's state
// machine (emits deck_started via the caller, which owns listener
// dispatch — Deck itself never touches the listener registry directly,
// keeping the cyclic-ownership break spec.md §9 calls for).
func (d *Deck) Start() bool {
	d.lock()
	defer d.unlock()
	if d.state != Loaded {
		return false
	}
	d.state = Playing
	d.playing.Store(true)
	d.finished.Store(false)
	return true
}

// Stop halts playback immediately, moving Playing -> Finished.
func (d *Deck) Stop() {
	d.lock()
	defer d.unlock()
	if d.state != Playing {
		return
	}
	d.state = Finished
	d.playing.Store(false)
	d.finished.Store(true)
}

// Unload releases the deck's reader/ring buffer and returns it to Empty.
func (d *Deck) Unload() {
	d.lock()
	defer d.unlock()
	d.unloadLocked()
}

func (d *Deck) unloadLocked() {
	d.loadGeneration++ // cancels any in-flight loader/read-ahead goroutine
	if d.rd != nil {
		d.rd.Close()
		d.rd = nil
	}
	d.ring = nil
	d.decoded = nil
	d.decodedPos = 0
	d.track = nil
	d.state = Empty
	d.playing.Store(false)
	d.finished.Store(false)
	d.scan = scanner.Result{}
	d.transitionCueS, d.transitionStartS, d.transitionEndS = 0, 0, 0
	d.fading = false
	d.lastGain = 0
	d.gain = 0
	d.fd.ResetTo(0)
}

// FadeOut marks the deck fading, per spec.md §4.5's fade_out() contract:
// sets transition_start_s = now, transition_end_s = now + max duration.
// The per-block gain ramp (see pull.go) then applies the fade. This is
// the manual fade_out_main() path only — there is no next track lined up
// to derive a window from, so it forces one from max_fade_out_duration.
func (d *Deck) FadeOut() {
	d.lock()
	defer d.unlock()
	if d.state != Playing {
		return
	}
	now := d.positionLocked()
	d.transitionStartS = now
	d.transitionEndS = now + d.maxFadeOutDurationS
	d.fading = true
	d.fd.Configure(d.transitionStartS, d.transitionEndS, 1, 0, d.fadingFactor, 0, true, nil)
}

// BeginTransitionFade arms the automatic outgoing fade for spec.md §4.6's
// Transit-state row ("p >= transition_start_s -> ramp main deck volume
// out"). Unlike FadeOut, it never touches transition_start_s/end_s: those
// are already the deck's own scanned, max_transition_time-bounded window
// (recomputeTransitionPointsLocked), and this simply arms the envelope
// over that existing window. No-op once already fading.
func (d *Deck) BeginTransitionFade() {
	d.lock()
	defer d.unlock()
	if d.state != Playing || d.fading {
		return
	}
	d.fading = true
	d.fd.Configure(d.transitionStartS, d.transitionEndS, 1, 0, d.fadingFactor, 0, true, nil)
}

// Fading reports whether the deck is fading out, either from FadeOut or
// from BeginTransitionFade.
func (d *Deck) Fading() bool {
	d.lock()
	defer d.unlock()
	return d.fading
}

// SetPosition moves the read position within the deck's decoded in-memory
// track, flushes the ring buffer, and (when the deck is Loaded or Playing)
// restarts the read-ahead task from the new position — spec.md §8
// scenario 6: "gain envelope does not jump (ramp from last_gain
// continues)".
func (d *Deck) SetPosition(seconds float64) bool {
	d.lock()
	if d.rd == nil || d.sourceRate <= 0 {
		d.unlock()
		return false
	}
	frame := int64(seconds * d.sourceRate)
	d.decodedPos = int(frame)
	if d.ring != nil {
		d.ring.Reset()
	}
	d.sourcePosition.Store(frame)
	restart := d.state == Loaded || d.state == Playing
	if restart {
		d.loadGeneration++ // retires the running read-ahead task
	}
	generation := d.loadGeneration
	d.unlock()
	if restart {
		go d.readAheadTask(generation)
	}
	return true
}

// Volume returns the deck's target gain as last set by SetVolume; PullBlock
// ramps toward it.
func (d *Deck) Volume() float64 {
	d.lock()
	defer d.unlock()
	return d.gain
}

// SetVolume sets the deck's target gain; PullBlock ramps toward it from
// last_gain, never snapping (spec.md §5 ordering guarantee).
func (d *Deck) SetVolume(v float64) {
	d.lock()
	defer d.unlock()
	d.gain = v
}
