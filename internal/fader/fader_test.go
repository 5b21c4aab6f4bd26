package fader

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestValueLinearMidpoint(t *testing.T) {
	f := New()
	f.Configure(0, 1.0, 0, 1, Linear, 1, true, nil)
	assert.InDelta(t, 0.5, f.Value(0.5), 1e-9)
}

func TestValueHoldsBeforeStart(t *testing.T) {
	f := New()
	f.Configure(1.0, 2.0, 0.3, 1, Linear, 1, true, nil)
	assert.Equal(t, 0.3, f.Value(0))
	assert.Equal(t, 0.3, f.Value(1.0))
}

func TestValueFiresOnDoneOncePastEnd(t *testing.T) {
	f := New()
	calls := 0
	f.Configure(0, 1.0, 0, 1, Linear, 1, true, func() { calls++ })
	assert.Equal(t, 1.0, f.Value(1.5))
	assert.Equal(t, 1.0, f.Value(2.0))
	assert.Equal(t, 1, calls)
}

func TestValueHoldsAtResetToPastEnd(t *testing.T) {
	f := New()
	f.Configure(0, 1.0, 1, 0, 2.0, 0.5, true, nil)
	assert.Equal(t, 0.5, f.Value(10))
}

func TestValueHoldsAtToWithoutResetTo(t *testing.T) {
	f := New()
	f.Configure(0, 1.0, 0, 1, Linear, 0, false, nil)
	assert.Equal(t, 1.0, f.Value(10))
}

func TestResetToCancelsWindow(t *testing.T) {
	f := New()
	f.Configure(0, 1.0, 0, 1, Linear, 1, true, nil)
	f.ResetTo(0.3)
	assert.Equal(t, 0.3, f.Value(0))
	assert.Equal(t, 0.3, f.Value(100))
}

// TestReversedMatchesFadeOutFormula pins the reversed (to < from) branch
// to the exact closed form spec.md §4.6's main-deck fade-out row uses:
// v = (1-progress)^factor, for the from=1,to=0 case.
func TestReversedMatchesFadeOutFormula(t *testing.T) {
	f := New()
	f.Configure(10, 15, 1, 0, 2.0, 0, true, nil)
	for _, p := range []float64{0, 0.25, 0.5, 0.75, 1.0} {
		got := f.Value(10 + p*5)
		want := math.Pow(1-p, 2.0)
		assert.InDelta(t, want, got, 1e-9)
	}
}

// TestMonotonicTowardTarget is the spec property: evaluating a fader at
// increasing times strictly moves its value toward `to` (never overshoots,
// never reverses direction) regardless of curve exponent or direction.
func TestMonotonicTowardTarget(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		from := rapid.Float64Range(0, 1).Draw(t, "from")
		to := rapid.Float64Range(0, 1).Draw(t, "to")
		curve := Curve(rapid.Float64Range(0.25, 4).Draw(t, "curve"))
		steps := rapid.IntRange(2, 20).Draw(t, "steps")

		f := New()
		f.Configure(0, 1.0, from, to, curve, to, true, nil)
		prev := from
		for i := 1; i <= steps; i++ {
			v := f.Value(float64(i) / float64(steps))
			if to >= from {
				assert.GreaterOrEqual(t, v, prev-1e-9)
			} else {
				assert.LessOrEqual(t, v, prev+1e-9)
			}
			prev = v
		}
		assert.InDelta(t, to, f.Value(1.0), 1e-6)
	})
}
