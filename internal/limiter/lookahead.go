package limiter

// lookAheadFade ramps a newly-arriving reduction value in over the
// look-ahead window rather than applying it immediately, so the signal
// delay (delayLine) and the reduction curve reach the output in lockstep
// — the engine's LookAheadReduction stage.
type lookAheadFade struct {
	windowFrames int
	buf          []float64 // ring of pending reduction values
	pos          int
	minAhead     float64 // running minimum (deepest reduction) over the window
}

func newLookAheadFade(windowFrames int) lookAheadFade {
	if windowFrames < 1 {
		windowFrames = 1
	}
	return lookAheadFade{
		windowFrames: windowFrames,
		buf:          make([]float64, windowFrames),
	}
}

// advance pushes the newest smoothed reduction value and returns the
// reduction to apply to the sample currently exiting the look-ahead
// window: the deepest of the window's values, each scaled by its age (a
// value pushed k frames ago counts (k+1)/windowFrames of its depth), so an
// upcoming transient's reduction fades in across the window and is at full
// depth by the time the transient itself reaches the output.
func (f *lookAheadFade) advance(reductionDB float64) float64 {
	f.buf[f.pos] = reductionDB
	f.pos = (f.pos + 1) % f.windowFrames

	min := 0.0
	for age := 0; age < f.windowFrames; age++ {
		idx := (f.pos - 1 - age + f.windowFrames) % f.windowFrames
		if v := f.buf[idx] * float64(age+1) / float64(f.windowFrames); v < min {
			min = v
		}
	}
	return min
}
