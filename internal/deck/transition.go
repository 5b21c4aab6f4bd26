package deck

import "medley-sub000/internal/scanner"

// Configure installs the config-derived knobs the transition-point
// derivation and fade-out path need; the Controller calls this whenever
// engine configuration changes.
func (d *Deck) Configure(maxTransitionTimeS, maxFadeOutDurationS, fadingFactor float64) {
	d.lock()
	defer d.unlock()
	d.maxTransitionTimeS = maxTransitionTimeS
	d.maxFadeOutDurationS = maxFadeOutDurationS
	if fadingFactor > 0 {
		d.fadingFactor = fadingFactor
	}
	if d.state == Loaded || d.state == Playing {
		d.recomputeTransitionPointsLocked()
	}
}

// LeadingDuration returns (leading_frame - first_audible_frame)/sr, or 0
// if no leading boundary was found.
func (d *Deck) LeadingDuration() float64 {
	d.lock()
	defer d.unlock()
	return d.leadingDurationLocked()
}

// FirstAudibleSeconds returns first_audible_frame/sr, the base of the seek
// a force-faded incoming deck makes when its leading window exceeds
// min_leading_to_fade (it seeks to this plus leading - min_leading_to_fade).
func (d *Deck) FirstAudibleSeconds() float64 {
	d.lock()
	defer d.unlock()
	if d.sourceRate <= 0 {
		return 0
	}
	return float64(d.scan.FirstAudibleFrame) / d.sourceRate
}

func (d *Deck) leadingDurationLocked() float64 {
	if d.scan.LeadingFrame == scanner.Unset || d.sourceRate <= 0 {
		return 0
	}
	return float64(d.scan.LeadingFrame-d.scan.FirstAudibleFrame) / d.sourceRate
}

func (d *Deck) trailingDurationLocked() float64 {
	if d.scan.TrailingFrame == scanner.Unset || d.sourceRate <= 0 {
		return 0
	}
	return float64(d.scan.LastAudibleFrame-d.scan.TrailingFrame) / d.sourceRate
}

// recomputeTransitionPointsLocked implements spec.md §4.6's
// transition-point derivation. Caller must hold the source lock.
func (d *Deck) recomputeTransitionPointsLocked() {
	sr := d.sourceRate
	if sr <= 0 {
		d.transitionCueS, d.transitionStartS, d.transitionEndS = 0, 0, 0
		return
	}

	duration := float64(d.totalFramesToPlay) / sr
	if duration < 3.0 {
		// spec.md §8 boundary behavior.
		d.transitionCueS, d.transitionStartS, d.transitionEndS = duration, duration, duration
		return
	}

	tTr := d.maxTransitionTimeS
	trailingDuration := d.trailingDurationLocked()

	endS := float64(d.scan.LastAudibleFrame) / sr
	startS := endS

	if trailingDuration > 0 && tTr > 0 {
		if trailingDuration >= tTr {
			startS = float64(d.scan.TrailingFrame) / sr
			endS = startS + tTr
		} else {
			startS = max64(2.0, endS-trailingDuration)
		}
	}

	leadingWindow := d.leadingDurationLocked()
	cueS := max64(0, startS-max64(leadingWindow, tTr))

	d.transitionCueS = cueS
	d.transitionStartS = startS
	d.transitionEndS = endS
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
