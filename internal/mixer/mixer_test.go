package mixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"medley-sub000/internal/karaoke"
)

type constPuller struct{ value float32 }

func (c constPuller) PullBlock(out [][]float32, deviceRate float64) {
	for ch := range out {
		for i := range out[ch] {
			out[ch][i] = c.value
		}
	}
}

func TestProcessSumsPullers(t *testing.T) {
	m := New()
	m.Prepare(44100, 64, 2, karaoke.DefaultConfig())
	out := [][]float32{make([]float32, 64), make([]float32, 64)}
	// The limiter's 5ms look-ahead delay (220 frames) holds the first
	// blocks back, so run past it before checking the summed signal.
	var telem Telemetry
	for i := 0; i < 4; i++ {
		telem = m.Process([]Puller{constPuller{0.1}, constPuller{0.1}}, out)
	}
	assert.False(t, telem.Clipped)
	assert.Greater(t, out[0][63], float32(0))
}

func TestPauseRampsToSilence(t *testing.T) {
	m := New()
	m.Prepare(44100, 512, 2, karaoke.DefaultConfig())
	out := [][]float32{make([]float32, 512), make([]float32, 512)}
	m.Process([]Puller{constPuller{0.5}}, out) // warm up unity gain
	m.SetPaused(true)
	m.Process([]Puller{constPuller{0.5}}, out)
	// after a full 256-sample ramp within this 512-sample block, the tail
	// should be silent.
	assert.InDelta(t, 0, out[0][511], 1e-3)
}

func TestResumeRampsBackToSignal(t *testing.T) {
	m := New()
	m.Prepare(44100, 512, 2, karaoke.DefaultConfig())
	out := [][]float32{make([]float32, 512), make([]float32, 512)}
	m.SetPaused(true)
	m.Process([]Puller{constPuller{0.5}}, out)
	m.SetPaused(false)
	m.Process([]Puller{constPuller{0.5}}, out)
	assert.Greater(t, out[0][511], float32(0))
}
