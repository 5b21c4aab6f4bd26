package controller

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"medley-sub000/internal/config"
	"medley-sub000/internal/deck"
	"medley-sub000/internal/listener"
	"medley-sub000/internal/reader"
)

// fakeReader is an in-memory constant-tone Reader, avoiding any real
// decoder so the controller's transition state machine can be exercised
// deterministically.
type fakeReader struct {
	sampleRate float64
	channels   int
	frames     [][]float32
	pos        int
}

func (f *fakeReader) SampleRate() float64 { return f.sampleRate }
func (f *fakeReader) Channels() int       { return f.channels }
func (f *fakeReader) FramesTotal() int64  { return int64(len(f.frames[0])) }
func (f *fakeReader) Seek(frame int64) error {
	f.pos = int(frame)
	return nil
}
func (f *fakeReader) Read(planes [][]float32) (int, error) {
	n := len(planes[0])
	total := len(f.frames[0])
	if f.pos >= total {
		return 0, nil
	}
	if f.pos+n > total {
		n = total - f.pos
	}
	for c := range planes {
		copy(planes[c][:n], f.frames[c][f.pos:f.pos+n])
	}
	f.pos += n
	return n, nil
}
func (f *fakeReader) Close() error { return nil }

func makeTone(sr float64, seconds float64, amp float32) [][]float32 {
	n := int(sr * seconds)
	l := make([]float32, n)
	r := make([]float32, n)
	for i := range l {
		l[i] = amp
		r[i] = amp
	}
	return [][]float32{l, r}
}

func testOpener(durationS float64) reader.Opener {
	return func(path string) (reader.Reader, error) {
		return &fakeReader{sampleRate: 44100, channels: 2, frames: makeTone(44100, durationS, 0.5)}, nil
	}
}

func waitForController(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPlayPromotesLoadedDeckToMain(t *testing.T) {
	cfg := config.Default()
	cfg.MaxTransitionTimeS = 0.3
	reg := listener.NewRegistry()
	c := New(2, cfg, reg, testOpener(4.0))
	c.Prepare(256, 2)

	c.Enqueue(&deck.Track{TrackID: "a"})
	if !c.Play() {
		t.Fatal("Play() = false")
	}

	waitForController(t, func() bool { return c.MainDeck() != nil })
	waitForController(t, func() bool {
		d := c.MainDeck()
		return d != nil && d.State() == deck.Playing
	})
}

func TestStopReturnsToIdleWithNoMain(t *testing.T) {
	cfg := config.Default()
	reg := listener.NewRegistry()
	c := New(2, cfg, reg, testOpener(4.0))
	c.Prepare(256, 2)
	c.Enqueue(&deck.Track{TrackID: "a"})
	c.Play()
	waitForController(t, func() bool { return c.MainDeck() != nil })

	c.Stop()
	assert.Nil(t, c.MainDeck())
	assert.Equal(t, Idle, c.State())
}

// TestCrossfadeSwapsMainDeck drives the controller's transition state
// machine end to end: two queued tracks, manually pulling the main
// deck's blocks to advance its position (standing in for the real-time
// sink task) and polling the controller after each pull (standing in for
// the ~30Hz position task), until the second track becomes main.
func TestCrossfadeSwapsMainDeck(t *testing.T) {
	cfg := config.Default()
	cfg.MaxTransitionTimeS = 0.3
	reg := listener.NewRegistry()
	c := New(2, cfg, reg, testOpener(3.2))
	c.Prepare(512, 2)

	c.Enqueue(&deck.Track{TrackID: "first"})
	c.Enqueue(&deck.Track{TrackID: "second"})
	if !c.Play() {
		t.Fatal("Play() = false")
	}
	waitForController(t, func() bool { return c.MainDeck() != nil })

	out := [][]float32{make([]float32, 512), make([]float32, 512)}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		main := c.MainDeck()
		if main == nil {
			break
		}
		main.PullBlock(out, 44100)
		c.pollOnce()
		if main.Track() != nil && main.Track().TrackID == "second" {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("controller never crossfaded onto the second track")
}

// TestFadeOutMainDrivesDeckToFinished exercises spec.md §4.6's last table
// row: once a manual fade-out's window elapses, the deck finishes on its
// own, without anything calling Stop().
func TestFadeOutMainDrivesDeckToFinished(t *testing.T) {
	cfg := config.Default()
	cfg.MaxFadeOutDurationS = 0.1
	reg := listener.NewRegistry()
	c := New(2, cfg, reg, testOpener(4.0))
	c.Prepare(256, 2)
	c.Enqueue(&deck.Track{TrackID: "a"})
	c.Play()
	waitForController(t, func() bool {
		d := c.MainDeck()
		return d != nil && d.State() == deck.Playing
	})

	c.FadeOutMain()
	assert.True(t, c.MainDeck().Fading())

	out := [][]float32{make([]float32, 256), make([]float32, 256)}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		main := c.MainDeck()
		if main == nil || main.State() == deck.Finished {
			break
		}
		main.PullBlock(out, 44100)
	}
	assert.Equal(t, deck.Finished, c.MainDeck().State())
}

// TestFadeOutMainSecondCallCancelsCuedTransition covers the "mash it
// twice" row: a repeated fade_out_main() while a transition is cued but
// not yet started skips that transition instead of crossfading into it.
func TestFadeOutMainSecondCallCancelsCuedTransition(t *testing.T) {
	cfg := config.Default()
	cfg.MaxTransitionTimeS = 0.3
	reg := listener.NewRegistry()
	c := New(2, cfg, reg, testOpener(3.2))
	c.Prepare(512, 2)
	c.Enqueue(&deck.Track{TrackID: "first"})
	c.Enqueue(&deck.Track{TrackID: "second"})
	c.Play()
	waitForController(t, func() bool { return c.MainDeck() != nil })

	out := [][]float32{make([]float32, 512), make([]float32, 512)}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		main := c.MainDeck()
		if main == nil {
			break
		}
		main.PullBlock(out, 44100)
		c.pollOnce()
		if c.State() == Cued {
			break
		}
		time.Sleep(time.Millisecond)
	}
	if c.State() != Cued {
		t.Fatal("controller never reached Cued before the deadline")
	}

	c.FadeOutMain()
	c.FadeOutMain()

	assert.Equal(t, Idle, c.State())
	c.mu.Lock()
	transiting := c.transitingIdx
	c.mu.Unlock()
	assert.Equal(t, -1, transiting)
}

// TestRampVolumeMatchesWorkedExample checks rampVolume against spec.md
// §8's "Two-track crossfade" scenario: A (trailing 5s starting at 25s),
// B (leading 3s), fading_factor=2.0 (fading_curve=50). transition_start_s
// for A is 25 (transition_end_s=29, capped by the default 4s
// max_transition_time); B's 3s leading ramp runs over [25-3, 25] on A's
// timeline, so B reaches unity as A reaches its transition_start_s.
func TestRampVolumeMatchesWorkedExample(t *testing.T) {
	const startS = 25.0
	const leading = 3.0
	const fadingFactor = 2.0

	// At A's t=23.5s, midway through B's 3s leading
	// window: progress = clamp((23.5-(25-3))/3, 0.25, 1.0) = clamp(0.5,...) = 0.5.
	got := rampVolume(23.5, startS, leading, fadingFactor)
	want := math.Pow(0.5, fadingFactor)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("rampVolume midway = %v, want %v", got, want)
	}

	// At the very start of Transit (p = startS-leading = 22), progress
	// floors at 0.25 rather than 0 — the spec's clamp lower bound.
	got = rampVolume(startS-leading, startS, leading, fadingFactor)
	want = math.Pow(0.25, fadingFactor)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("rampVolume at transit start = %v, want %v", got, want)
	}

	// Once leading has fully elapsed, volume reaches unity.
	got = rampVolume(startS, startS, leading, fadingFactor)
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("rampVolume at leading end = %v, want 1.0", got)
	}
}
