// Package mixer implements the Mixer and Post-Processor (spec.md §4.7):
// sums the active decks' pulled blocks, runs the look-ahead limiter and
// level tracker, and applies the pause/resume ramp policy.
package mixer

import (
	"medley-sub000/internal/karaoke"
	"medley-sub000/internal/leveltracker"
	"medley-sub000/internal/limiter"
)

// Puller is the subset of Deck the Mixer needs: anything that can fill a
// planar block on demand (spec.md §9's Pullable trait).
type Puller interface {
	PullBlock(out [][]float32, deviceRate float64)
}

// pauseRampFrames is the fixed 256-sample linear ramp spec.md §4.7
// mandates for pause/resume transitions.
const pauseRampFrames = 256

// Telemetry is the per-block snapshot the Mixer publishes.
type Telemetry struct {
	LevelDB   [2]float64
	PeakDB    [2]float64
	Clipped   bool
	ReductionDB float64
}

// Mixer sums enabled decks, limits, meters, and applies pause/resume.
type Mixer struct {
	sampleRate float64
	channels   int

	lim     *limiter.Limiter
	trackers [2]*leveltracker.Tracker
	kfx      *karaoke.Effect

	sumScratch [][]float32

	paused       bool
	rampRemaining int // frames left in an in-flight pause/resume ramp
	rampDirection float32 // -1 fading to pause, +1 fading to resume
	rampGain      float32
}

// New constructs a Mixer. Prepare must be called before Process.
func New() *Mixer {
	return &Mixer{lim: limiter.New(limiter.Default())}
}

// Prepare sizes every internal buffer for the configured device rate,
// block size, and channel count (spec.md §9 pre-sizing discipline).
func (m *Mixer) Prepare(sampleRate float64, blockSize, channels int, karaokeCfg karaoke.Config) {
	m.sampleRate = sampleRate
	m.channels = channels
	m.lim.Prepare(sampleRate, channels)
	m.kfx = karaoke.New(sampleRate, karaokeCfg)
	m.sumScratch = make([][]float32, channels)
	for c := range m.sumScratch {
		m.sumScratch[c] = make([]float32, blockSize)
	}
	for c := 0; c < 2 && c < channels; c++ {
		m.trackers[c] = leveltracker.New(sampleRate, 0.4)
	}
	m.rampGain = 1
}

// SetKaraoke updates the karaoke effect's configuration.
func (m *Mixer) SetKaraoke(cfg karaoke.Config) {
	m.kfx.SetConfig(m.sampleRate, cfg)
}

// SetPaused toggles the pause state; the next Process call applies the
// 256-sample ramp spec.md §4.7 describes.
func (m *Mixer) SetPaused(paused bool) {
	if paused == m.paused {
		return
	}
	m.paused = paused
	m.rampRemaining = pauseRampFrames
	if paused {
		m.rampDirection = -1
	} else {
		m.rampDirection = 1
	}
}

// Process sums pullers into out, runs the processor chain, and returns
// the block's telemetry. out is planar, pre-sized to the Mixer's
// configured channel count and block size.
func (m *Mixer) Process(pullers []Puller, out [][]float32) Telemetry {
	n := 0
	if len(out) > 0 {
		n = len(out[0])
	}
	for c := range out {
		for i := 0; i < n; i++ {
			out[c][i] = 0
		}
	}

	if m.paused && m.rampRemaining == 0 {
		return m.emitSilenceTelemetry()
	}

	for _, p := range pullers {
		if p == nil {
			continue
		}
		scratch := sliceTo(m.sumScratch, n)
		for c := range scratch {
			for i := range scratch[c] {
				scratch[c][i] = 0
			}
		}
		p.PullBlock(scratch, m.sampleRate)
		for c := range out {
			for i := 0; i < n; i++ {
				out[c][i] += scratch[c][i]
				if out[c][i] > 1 {
					out[c][i] = 1
				} else if out[c][i] < -1 {
					out[c][i] = -1
				}
			}
		}
	}

	m.kfx.Process(out)
	m.lim.Process(out)
	m.applyPauseRamp(out)

	return m.measure(out)
}

func (m *Mixer) applyPauseRamp(out [][]float32) {
	if m.rampRemaining <= 0 {
		if m.paused {
			for c := range out {
				for i := range out[c] {
					out[c][i] = 0
				}
			}
		}
		return
	}
	n := 0
	if len(out) > 0 {
		n = len(out[0])
	}
	for i := 0; i < n; i++ {
		if m.rampRemaining > 0 {
			step := m.rampDirection / float32(pauseRampFrames)
			m.rampGain += step
			if m.rampGain < 0 {
				m.rampGain = 0
			}
			if m.rampGain > 1 {
				m.rampGain = 1
			}
			m.rampRemaining--
		}
		for c := range out {
			out[c][i] *= m.rampGain
		}
	}
}

func (m *Mixer) measure(out [][]float32) Telemetry {
	var t Telemetry
	t.ReductionDB = m.lim.Reduction()
	for c := 0; c < 2 && c < len(out) && m.trackers[c] != nil; c++ {
		snap := m.trackers[c].Process(out[c])
		t.LevelDB[c] = snap.LevelDB
		t.PeakDB[c] = snap.PeakDB
		if snap.Clipped {
			t.Clipped = true
		}
	}
	return t
}

func (m *Mixer) emitSilenceTelemetry() Telemetry {
	return Telemetry{LevelDB: [2]float64{-144, -144}, PeakDB: [2]float64{-144, -144}}
}

func sliceTo(planes [][]float32, n int) [][]float32 {
	for c := range planes {
		planes[c] = planes[c][:n]
	}
	return planes
}
