// Package leveltracker computes the per-channel level/peak/clip telemetry
// the Mixer publishes: a rolling backlog average, a held peak that decays
// at a fixed rate once the hold expires, and a clip latch.
package leveltracker

import "math"

const (
	// PeakHoldSeconds is how long a new peak is held before it starts
	// decaying.
	PeakHoldSeconds = 1.0
	// PeakDecayDBPerSecond is the held peak's decay rate once the hold
	// window expires, matching spec.md §4.7.
	PeakDecayDBPerSecond = 0.125
	// ClipThreshold is the linear amplitude above which a sample latches
	// the clip flag.
	ClipThreshold = float32(1.0)
)

// Snapshot is the telemetry the Mixer exposes to listeners/UI.
type Snapshot struct {
	LevelDB   float64
	PeakDB    float64
	Clipped   bool
	Reduction float64 // filled in by the Mixer from the limiter, not this tracker
}

// Tracker accumulates per-channel level/peak/clip state over a backlog of
// recent blocks.
type Tracker struct {
	sampleRate  float64
	backlogSize int // number of samples averaged for LevelDB

	backlog    []float32
	backlogPos int
	backlogSum float64 // running sum of squares, for RMS without rescanning

	peakLinear     float32
	peakHoldFrames int64
	framesSinceMax int64
	clipped        bool
}

// New constructs a Tracker. backlogSeconds sizes the rolling average
// window (spec.md §4.7: "average level over a configurable backlog").
func New(sampleRate float64, backlogSeconds float64) *Tracker {
	size := int(backlogSeconds * sampleRate)
	if size < 1 {
		size = 1
	}
	return &Tracker{
		sampleRate:     sampleRate,
		backlogSize:    size,
		backlog:        make([]float32, size),
		peakHoldFrames: int64(PeakHoldSeconds * sampleRate),
	}
}

// Process updates the tracker with one channel's samples from a block and
// returns the current Snapshot (LevelDB is the RMS over the backlog
// window of most recent samples, including this call; PeakDB is the held,
// decaying peak of all samples seen so far).
func (t *Tracker) Process(samples []float32) Snapshot {
	for _, s := range samples {
		old := t.backlog[t.backlogPos]
		t.backlogSum -= float64(old) * float64(old)
		t.backlogSum += float64(s) * float64(s)
		t.backlog[t.backlogPos] = s
		t.backlogPos = (t.backlogPos + 1) % len(t.backlog)

		a := abs32(s)
		if a >= ClipThreshold {
			t.clipped = true
		}
		if a > t.peakLinear {
			t.peakLinear = a
			t.framesSinceMax = 0
		} else {
			t.framesSinceMax++
		}
	}

	t.decayPeak(int64(len(samples)))

	rms := math.Sqrt(t.backlogSum / float64(len(t.backlog)))
	return Snapshot{
		LevelDB: linearToDB(rms),
		PeakDB:  linearToDB(float64(t.peakLinear)),
		Clipped: t.clipped,
	}
}

// decayPeak applies the 0.125 dB/s decay once the hold window (since the
// last new maximum) has expired, advancing by n frames of real time.
func (t *Tracker) decayPeak(n int64) {
	if t.framesSinceMax < t.peakHoldFrames {
		return
	}
	decaySeconds := float64(n) / t.sampleRate
	decayDB := PeakDecayDBPerSecond * decaySeconds
	newDB := linearToDB(float64(t.peakLinear)) - decayDB
	t.peakLinear = float32(math.Pow(10, newDB/20))
}

// ResetClip clears the clip latch (typically called once per UI poll).
func (t *Tracker) ResetClip() { t.clipped = false }

func linearToDB(v float64) float64 {
	if v <= 0 {
		return -144
	}
	return 20 * math.Log10(v)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
