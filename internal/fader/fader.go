// Package fader implements the parametric gain envelope spec.md §4.3
// describes: configured once with an absolute time window and a pair of
// endpoints, then evaluated at arbitrary absolute times as playback
// advances.
package fader

import "math"

// Curve shapes the envelope's approach to its target. 1.0 is linear.
// On a rising envelope, values above 1.0 ease in slowly then accelerate;
// on a falling one they drop quickly at first then flatten out. Values
// below 1.0 do the opposite.
type Curve = float64

// Linear is the default, unshaped curve.
const Linear Curve = 1.0

// Fader evaluates a gain envelope as a pure function of absolute time.
// It is not safe for concurrent use; each Deck owns exactly one Fader
// for its own fade-out, and the Controller's rampVolume configures a
// fresh one on each call for the incoming deck's crossfade-in ramp.
type Fader struct {
	tStart, tEnd float64
	from, to     float64
	curve        Curve
	resetTo      float64
	hasResetTo   bool
	onDone       func()
	doneFired    bool
}

// New returns an idle Fader holding value at 0.
func New() *Fader { return &Fader{} }

// Configure installs a new envelope window: (t_start, t_end, from, to,
// curve_factor, reset_to). If hasResetTo is false, the envelope holds at
// `to` past t_end instead of resetting. onDone, if non-nil, fires exactly
// once, the first time Value is evaluated past t_end.
func (f *Fader) Configure(tStart, tEnd, from, to float64, curve Curve, resetTo float64, hasResetTo bool, onDone func()) {
	f.tStart, f.tEnd = tStart, tEnd
	f.from, f.to = from, to
	f.curve = curve
	f.resetTo, f.hasResetTo = resetTo, hasResetTo
	f.onDone = onDone
	f.doneFired = false
}

// ResetTo snaps the envelope to hold value unconditionally, cancelling
// any configured window without invoking the completion callback.
func (f *Fader) ResetTo(value float64) {
	f.tStart, f.tEnd = 0, 0
	f.from, f.to = value, value
	f.hasResetTo = true
	f.resetTo = value
	f.doneFired = true
}

// Value evaluates the envelope at absolute time t (spec.md §4.3):
//   - t < t_start: from
//   - t_start <= t <= t_end: from + (to-from)*f(progress), upward case;
//     to + (from-to)*(1-progress)^curve, reversed case (to < from)
//   - t > t_end: fires the completion callback once, then holds at
//     reset_to (if provided) or to
func (f *Fader) Value(t float64) float64 {
	if t < f.tStart {
		return f.from
	}
	if t > f.tEnd {
		f.fireOnce()
		if f.hasResetTo {
			return f.resetTo
		}
		return f.to
	}
	span := f.tEnd - f.tStart
	if span <= 0 {
		return f.to
	}
	progress := (t - f.tStart) / span
	factor := float64(f.curve)
	if factor <= 0 {
		factor = 1
	}
	if f.to < f.from {
		return f.to + (f.from-f.to)*math.Pow(1-progress, factor)
	}
	return f.from + (f.to-f.from)*math.Pow(progress, factor)
}

func (f *Fader) fireOnce() {
	if f.doneFired {
		return
	}
	f.doneFired = true
	if f.onDone != nil {
		f.onDone()
	}
}
