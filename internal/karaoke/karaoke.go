// Package karaoke implements the optional center-channel suppression
// effect (spec.md §6 karaoke.* configuration): phase-cancel the shared
// center content between the left and right channels while keeping a
// filtered, attenuated copy of it in the background.
package karaoke

import "math"

// Config holds the karaoke.* options from spec.md §6.
type Config struct {
	Enabled         bool
	Mix             float64 // 0..1, how much of the opposite channel to cancel
	OriginalBgLevel float64 // 0..1, how much filtered center content to retain
	LowpassCutoffHz float64
	LowpassQ        float64
	HighpassCutoffHz float64
	HighpassQ        float64
}

// DefaultConfig matches the original engine's DeFXKaraoke defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:          false,
		Mix:              1.0,
		OriginalBgLevel:  0.25,
		LowpassCutoffHz:  200,
		LowpassQ:         0.707,
		HighpassCutoffHz: 8000,
		HighpassQ:        0.707,
	}
}

// Effect applies the cancellation formula to a stereo stream. It holds
// two independent one-pole filter cascades (low-pass and high-pass) that
// together band-limit the retained "background" mono sum, matching the
// ported DeFXKaraoke.cpp's filter chain.
type Effect struct {
	cfg Config
	lp  onePole
	hp  onePoleHighpass
}

// New constructs an Effect for the given sample rate and config.
func New(sampleRate float64, cfg Config) *Effect {
	e := &Effect{cfg: cfg}
	e.lp = newOnePole(sampleRate, cfg.LowpassCutoffHz)
	e.hp = newOnePoleHighpass(sampleRate, cfg.HighpassCutoffHz)
	return e
}

// SetConfig updates the effect's parameters and re-derives filter
// coefficients; call sparingly (not per-sample).
func (e *Effect) SetConfig(sampleRate float64, cfg Config) {
	e.cfg = cfg
	e.lp = newOnePole(sampleRate, cfg.LowpassCutoffHz)
	e.hp = newOnePoleHighpass(sampleRate, cfg.HighpassCutoffHz)
}

// Process applies the effect in place to a planar stereo block
// (block[0]=left, block[1]=right). No-op if disabled or len(block) != 2.
func (e *Effect) Process(block [][]float32) {
	if !e.cfg.Enabled || len(block) != 2 {
		return
	}
	left, right := block[0], block[1]
	mix := float32(e.cfg.Mix)
	bgLevel := e.cfg.OriginalBgLevel
	for i := range left {
		l, r := left[i], right[i]
		mono := (l + r) * 0.25
		filtered := e.hp.process(e.lp.process(snapToZero(mono)))
		bg := float32(float64(filtered) * 1.25 * bgLevel)
		bgMix := bg * mix

		left[i] = l - r*mix + bgMix
		right[i] = r - l*mix + bgMix
	}
}

// snapToZero guards against denormal buildup in the filter state, as the
// ported implementation does around its IIR stages.
func snapToZero(v float32) float32 {
	if v > -1e-15 && v < 1e-15 {
		return 0
	}
	return v
}

// onePole is a simple one-pole low-pass filter (RC cascade), the stand-in
// for the original's biquad low-pass — see DESIGN.md for why no biquad
// library is used.
type onePole struct {
	a float32
	z float32
}

func newOnePole(sampleRate, cutoffHz float64) onePole {
	if cutoffHz <= 0 || sampleRate <= 0 {
		return onePole{a: 1}
	}
	dt := 1.0 / sampleRate
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	a := dt / (rc + dt)
	return onePole{a: float32(a)}
}

func (f *onePole) process(x float32) float32 {
	f.z += f.a * (x - f.z)
	return f.z
}

// onePoleHighpass derives its output as input minus a one-pole low-pass of
// the input, the standard complementary construction.
type onePoleHighpass struct {
	lp onePole
}

func newOnePoleHighpass(sampleRate, cutoffHz float64) onePoleHighpass {
	return onePoleHighpass{lp: newOnePole(sampleRate, cutoffHz)}
}

func (f *onePoleHighpass) process(x float32) float32 {
	return x - f.lp.process(x)
}
