// Package limiter implements the look-ahead brick-wall limiter the Mixer
// runs on the final stereo sum: a sidechain gain-reduction curve computed
// ahead of the signal, smoothed with attack/release one-poles and a soft
// knee, then applied to a delayed copy of the audio so the reduction has
// ramped in by the time the corresponding samples reach the output.
package limiter

import "math"

// Params holds the limiter's fixed characteristic, matching spec.md §4.7.
type Params struct {
	ThresholdDB float64 // -6
	RatioToOne  float64 // 16 (treated as infinite: hard-limits above threshold)
	KneeDB      float64 // 0
	AttackMs    float64 // 10
	ReleaseMs   float64 // 60
	LookaheadMs float64 // 5
}

// Default returns the spec-mandated limiter characteristic.
func Default() Params {
	return Params{
		ThresholdDB: -6,
		RatioToOne:  16,
		KneeDB:      0,
		AttackMs:    10,
		ReleaseMs:   60,
		LookaheadMs: 5,
	}
}

// Limiter is a stateful, sample-by-sample look-ahead limiter for an
// arbitrary channel count (the Mixer always runs it in stereo, but the
// implementation is channel-count agnostic).
type Limiter struct {
	params     Params
	sampleRate float64

	calc  gainCalc
	fade  lookAheadFade
	delay delayLine

	reductionDB float64 // last reduction value, for telemetry
}

// New constructs a Limiter with the given characteristic. Prepare must be
// called before Process to set the sample rate and size internal buffers.
func New(params Params) *Limiter {
	return &Limiter{params: params}
}

// Prepare (re)sizes the internal delay/fade buffers for sampleRate and
// channels, matching spec.md §9's "all per-block allocations are
// pre-sized at prepare()" discipline.
func (l *Limiter) Prepare(sampleRate float64, channels int) {
	l.sampleRate = sampleRate
	lookaheadFrames := int(l.params.LookaheadMs / 1000 * sampleRate)
	if lookaheadFrames < 1 {
		lookaheadFrames = 1
	}
	l.calc = newGainCalc(l.params, sampleRate)
	l.fade = newLookAheadFade(lookaheadFrames)
	l.delay = newDelayLine(channels, lookaheadFrames)
}

// Reduction returns the last computed gain reduction in dB (<=0).
func (l *Limiter) Reduction() float64 { return l.reductionDB }

// Process limits block in place. block is planar: block[channel][frame].
// All channels must share the same frame count.
func (l *Limiter) Process(block [][]float32) {
	if len(block) == 0 {
		return
	}
	n := len(block[0])
	for i := 0; i < n; i++ {
		// Sidechain: per-block-sample maximum |x| across channels.
		var peak float32
		for c := range block {
			if a := abs32(block[c][i]); a > peak {
				peak = a
			}
		}
		reductionDB := l.calc.update(float64(peak))
		fadedDB := l.fade.advance(reductionDB)
		gain := dbToLinear(fadedDB)
		l.reductionDB = fadedDB

		for c := range block {
			delayed := l.delay.push(c, block[c][i])
			block[c][i] = float32(float64(delayed) * gain)
		}
	}
}

func dbToLinear(db float64) float64 { return math.Pow(10, db/20) }
func linearToDB(v float64) float64 {
	if v <= 0 {
		return -144 // silence floor
	}
	return 20 * math.Log10(v)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
