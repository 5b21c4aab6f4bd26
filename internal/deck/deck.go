// Package deck implements the single-track playback unit spec.md §4.5
// describes: a Reader + RingBuffer + Scanner + Fader composed into a
// state machine that the real-time audio path pulls blocks from.
package deck

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"medley-sub000/internal/fader"
	"medley-sub000/internal/reader"
	"medley-sub000/internal/ringbuffer"
	"medley-sub000/internal/scanner"
)

// State is one of the five Deck lifecycle states (spec.md §4.5).
type State int32

const (
	Empty State = iota
	Loading
	Loaded
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Track is the minimal playable unit the host enqueues.
type Track struct {
	TrackID      string
	Path         string
	ReplayGainDB float64
}

func (t *Track) ID() string { return t.TrackID }

// ringBufferCapacitySeconds sizes the read-ahead buffer generously enough
// that the loader task's I/O latency never starves the real-time pull
// path (spec.md §5: "read-ahead task... allowed to block on I/O").
const ringBufferCapacitySeconds = 4.0

// Deck owns one Reader + RingBuffer + Scanner + Fader and produces blocks
// on demand for the Mixer. Concurrency discipline: PullBlock is the
// real-time sink task's hot path and must never block on an OS lock, so
// it arbitrates access to the fields below through sourceLock — a
// try-lock, not a mutex: PullBlock claims it with a single
// CompareAndSwap and, on contention, zero-fills the block and returns
// rather than waiting (spec.md §4.2/§4.5/§5's "no OS locks on the
// real-time path"). Every other accessor (Load/Start/Stop/FadeOut/
// SetPosition/Configure, the background loader and read-ahead tasks) is
// off the real-time path and spins to acquire the same lock, so it is
// still exclusive with PullBlock — just never the one side that blocks.
type Deck struct {
	index int

	state      State
	track      *Track
	rd         reader.Reader
	ring       *ringbuffer.RingBuffer
	scan       scanner.Result
	sourceRate float64
	channels   int

	decoded    [][]float32 // full in-memory decode, drip-fed into ring by readAheadTask
	decodedPos int

	totalFramesToPlay int64
	transitionCueS    float64
	transitionStartS  float64
	transitionEndS    float64
	fading            bool

	maxTransitionTimeS  float64
	maxFadeOutDurationS float64
	fadingFactor        float64

	loadGeneration int64 // bumped on every Load/unload to cancel stale loader goroutines

	sourceLock atomic.Bool // exclusive access to everything else in this struct; see tryLock/lock

	playing  atomic.Bool
	finished atomic.Bool

	deviceRate     float64
	sourcePosition atomic.Int64 // frames consumed from the source stream so far

	fd        *fader.Fader
	lastGain  float64
	gain      float64
	preGain   float64
	replayGainLinear float64

	onPosition func(positionSeconds float64)

	// pullScratch is pre-sized at Prepare so PullBlock never allocates in
	// steady state (spec.md §9: "all per-block allocations are pre-sized
	// at prepare()"); capped generously at 8x the configured block size,
	// which comfortably covers any sane resample ratio between a track's
	// source rate and the device rate.
	pullScratch      [][]float32
	srcView          [][]float32 // reused outer slice for PullBlock's ring-buffer read
	maxScratchFrames int
}

// New constructs an empty Deck at the given pool index.
func New(index int) *Deck {
	return &Deck{index: index, fd: fader.New(), preGain: 1.0, replayGainLinear: 1.0, fadingFactor: 1.0}
}

// tryLock claims sourceLock without blocking. Only PullBlock uses this
// form — the real-time path must be able to make progress (by treating
// contention as an underrun) rather than wait.
func (d *Deck) tryLock() bool {
	return d.sourceLock.CompareAndSwap(false, true)
}

// lock claims sourceLock, spinning until it's free. Every non-real-time
// accessor uses this form; brief contention with PullBlock or another
// control call is expected and cheap.
func (d *Deck) lock() {
	for !d.sourceLock.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (d *Deck) unlock() {
	d.sourceLock.Store(false)
}

// Prepare pre-sizes the deck's real-time scratch buffers for the given
// device block size and maximum channel count. Must be called before
// PullBlock is ever invoked.
func (d *Deck) Prepare(blockSize, maxChannels int) {
	d.lock()
	defer d.unlock()
	d.maxScratchFrames = blockSize * 8
	d.pullScratch = make([][]float32, maxChannels)
	d.srcView = make([][]float32, maxChannels)
	for c := range d.pullScratch {
		d.pullScratch[c] = make([]float32, d.maxScratchFrames)
	}
}

// ID identifies the deck for listener dispatch.
func (d *Deck) ID() string { return fmt.Sprintf("deck-%d", d.index) }

// Index returns the deck's pool slot.
func (d *Deck) Index() int { return d.index }

// SetPositionCallback installs the callback the ~30Hz position task
// drives; Position itself remains a plain accessor.
func (d *Deck) SetPositionCallback(fn func(positionSeconds float64)) {
	d.onPosition = fn
}

// State returns the deck's current lifecycle state.
func (d *Deck) State() State {
	d.lock()
	defer d.unlock()
	return d.state
}

// Track returns the currently loaded track, or nil.
func (d *Deck) Track() *Track {
	d.lock()
	defer d.unlock()
	return d.track
}

// TransitionPoints returns the derived cue/start/end markers (seconds on
// this deck's own timeline), and whether the deck has loaded content to
// derive them from.
func (d *Deck) TransitionPoints() (cue, start, end float64, ok bool) {
	d.lock()
	defer d.unlock()
	if d.track == nil {
		return 0, 0, 0, false
	}
	return d.transitionCueS, d.transitionStartS, d.transitionEndS, true
}

// Scan returns the last computed Scanner result.
func (d *Deck) Scan() scanner.Result {
	d.lock()
	defer d.unlock()
	return d.scan
}

// Duration returns the track duration in seconds, or 0 if unloaded.
func (d *Deck) Duration() float64 {
	d.lock()
	defer d.unlock()
	if d.sourceRate <= 0 {
		return 0
	}
	return float64(d.totalFramesToPlay) / d.sourceRate
}

// Load hands track to a background loader goroutine per spec.md §4.5's
// load() sequence. Rejects (returns false) if the deck is already
// loading. onDone is called exactly once with the loaded-or-not result.
func (d *Deck) Load(openFn reader.Opener, track *Track, onLoaded func(*Track), onDone func(bool)) bool {
	d.lock()
	if d.state == Loading {
		d.unlock()
		return false
	}
	d.unloadLocked()
	d.state = Loading
	d.track = track
	d.loadGeneration++
	generation := d.loadGeneration
	d.unlock()

	go d.loadTask(openFn, track, generation, onLoaded, onDone)
	return true
}
