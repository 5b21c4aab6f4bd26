package deck

import (
	"testing"
	"time"

	"medley-sub000/internal/reader"
)

// fakeReader is an in-memory Reader used by deck tests, standing in for a
// real decoder so tests never touch the filesystem.
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

func waitFor(t *testing.T, cond func() bool) {
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

func TestLoadThenStartThenPull(t *testing.T) {
	d := New(0)
	d.Prepare(512, 2)
	d.Configure(3.0, 5.0, 2.0)

	frames := makeTone(44100, 5, 0.5)
	opener := func(path string) (reader.Reader, error) {
		return &fakeReader{sampleRate: 44100, channels: 2, frames: frames}, nil
	}

	loaded := make(chan bool, 1)
	done := make(chan bool, 1)
	track := &Track{TrackID: "t1", Path: "anything.wav"}
	ok := d.Load(opener, track, func(*Track) { loaded <- true }, func(success bool) { done <- success })
	if !ok {
		t.Fatal("Load() = false")
	}

	waitFor(t, func() bool { return d.State() == Loaded })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("onDone never fired")
	}

	if !d.Start() {
		t.Fatal("Start() = false")
	}
	d.SetVolume(1.0)

	waitFor(t, func() bool { return d.ringLenForTest() > 0 })

	out := [][]float32{make([]float32, 256), make([]float32, 256)}
	d.PullBlock(out, 44100)
	nonZero := false
	for _, v := range out[0] {
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatal("PullBlock produced silence for a loaded, started, loud track")
	}
}

func TestLoadRejectedWhileLoading(t *testing.T) {
	d := New(0)
	d.Prepare(512, 2)
	slow := make(chan struct{})
	opener := func(path string) (reader.Reader, error) {
		<-slow
		return &fakeReader{sampleRate: 44100, channels: 2, frames: makeTone(44100, 1, 0.1)}, nil
	}
	go d.Load(opener, &Track{TrackID: "a"}, func(*Track) {}, func(bool) {})
	waitFor(t, func() bool { return d.State() == Loading })
	if d.Load(opener, &Track{TrackID: "b"}, func(*Track) {}, func(bool) {}) {
		t.Fatal("Load() should reject while already loading")
	}
	close(slow)
}

func TestTransitionPointsPurity(t *testing.T) {
	d := New(0)
	d.Configure(4.0, 5.0, 2.0)
	d.lock()
	d.sourceRate = 44100
	d.totalFramesToPlay = int64(30 * 44100)
	d.scan.FirstAudibleFrame = 0
	d.scan.LeadingFrame = int64(3 * 44100)
	d.scan.TrailingFrame = int64(25 * 44100)
	d.scan.LastAudibleFrame = int64(30 * 44100)
	d.recomputeTransitionPointsLocked()
	a := [3]float64{d.transitionCueS, d.transitionStartS, d.transitionEndS}
	d.recomputeTransitionPointsLocked()
	b := [3]float64{d.transitionCueS, d.transitionStartS, d.transitionEndS}
	d.unlock()
	if a != b {
		t.Fatalf("recompute not pure: %v vs %v", a, b)
	}
	if !(a[0] <= a[1] && a[1] <= a[2]) {
		t.Fatalf("transition points not ordered: %v", a)
	}
}

// TestFadeOutFinishesAtTransitionEnd covers spec.md §4.6's last table
// row: once position passes transition_end_s during a manual fade, the
// deck finishes on its own rather than waiting for the track's natural
// end (a 5-minute track faded out after 10s must not play to minute 5).
func TestFadeOutFinishesAtTransitionEnd(t *testing.T) {
	d := New(0)
	d.Prepare(512, 2)
	d.Configure(3.0, 0.05, 2.0) // tiny max_fade_out_duration keeps the test fast

	frames := makeTone(44100, 30, 0.5)
	opener := func(path string) (reader.Reader, error) {
		return &fakeReader{sampleRate: 44100, channels: 2, frames: frames}, nil
	}
	done := make(chan bool, 1)
	d.Load(opener, &Track{TrackID: "t1"}, func(*Track) {}, func(success bool) { done <- success })
	waitFor(t, func() bool { return d.State() == Loaded })
	<-done

	d.Start()
	d.SetVolume(1.0)
	d.FadeOut()

	out := [][]float32{make([]float32, 512), make([]float32, 512)}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && d.State() != Finished {
		d.PullBlock(out, 44100)
	}
	if d.State() != Finished {
		t.Fatal("deck never finished after its fade-out window elapsed")
	}
}

// ringLenForTest exposes the ring buffer fill level for the test's poll
// loop only; not part of the package's public surface.
func (d *Deck) ringLenForTest() int {
	d.lock()
	defer d.unlock()
	if d.ring == nil {
		return 0
	}
	return d.ring.Len()
}
