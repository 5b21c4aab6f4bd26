// Package medley implements an automatic DJ playout engine: given a
// queue of audio tracks it renders a continuous stereo stream with
// musically sensible crossfades, driven by a fixed pool of Decks, a
// Transition Controller, and a Mixer/Post-Processor (see SPEC_FULL.md).
package medley

import (
	"fmt"
	"sync"
	"sync/atomic"

	"medley-sub000/internal/config"
	"medley-sub000/internal/controller"
	"medley-sub000/internal/deck"
	"medley-sub000/internal/karaoke"
	"medley-sub000/internal/listener"
	"medley-sub000/internal/mixer"
	"medley-sub000/internal/reader"
	"medley-sub000/internal/sink"
)

// Listener is the engine's event surface (spec.md §6); embed
// listener.BaseListener to implement only the callbacks of interest.
type Listener = listener.Listener

// BaseListener is a no-op Listener embeddable by hosts.
type BaseListener = listener.BaseListener

// Track is the minimal playable unit a host enqueues.
type Track = deck.Track

// Telemetry is the per-block level/peak/reduction snapshot.
type Telemetry = mixer.Telemetry

// deckPoolSize is the fixed number of concurrent decks the Controller
// manages — three: the main deck, the deck that will become main next
// in a crossfade, and one spare, matching spec.md §4.6's "fixed pool" model.
const deckPoolSize = 3

// Engine ties the Controller, deck pool, Mixer, and Sink together and
// drives the real-time audio loop — the host-facing entry point
// SPEC_FULL.md's PACKAGE MAP calls out at the repository root.
type Engine struct {
	cfg config.Config

	ctrl *controller.Controller
	mix  *mixer.Mixer
	snk  sink.Sink
	reg  *listener.Registry

	sampleRate float64
	blockSize  int
	channels   int

	block [][]float32

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	mu        sync.Mutex
	telemetry Telemetry
}

// Options configures a new Engine.
type Options struct {
	Config      config.Config
	Sink        sink.Sink // defaults to sink.NewNull() if nil
	SampleRate  float64   // defaults to 44100
	BlockSize   int       // defaults to 1024
	Channels    int       // defaults to 2
}

// New constructs an Engine. Call Prepare before Start.
func New(opts Options) *Engine {
	if opts.Sink == nil {
		opts.Sink = sink.NewNull()
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = 1024
	}
	if opts.Channels <= 0 {
		opts.Channels = 2
	}

	reg := listener.NewRegistry()
	e := &Engine{
		cfg:        opts.Config,
		reg:        reg,
		snk:        opts.Sink,
		mix:        mixer.New(),
		sampleRate: opts.SampleRate,
		blockSize:  opts.BlockSize,
		channels:   opts.Channels,
	}
	e.ctrl = controller.New(deckPoolSize, opts.Config, reg, reader.Open)
	return e
}

// Prepare pre-sizes every real-time buffer and opens the sink. Must be
// called exactly once, before Start.
func (e *Engine) Prepare() error {
	e.ctrl.Prepare(e.blockSize, e.channels)
	e.mix.Prepare(e.sampleRate, e.blockSize, e.channels, karaoke.Config(e.cfg.Karaoke))
	if err := e.snk.Prepare(e.sampleRate, e.blockSize, e.channels); err != nil {
		return fmt.Errorf("engine: prepare sink: %w", err)
	}
	e.block = make([][]float32, e.channels)
	for c := range e.block {
		e.block[c] = make([]float32, e.blockSize)
	}
	e.stopCh = make(chan struct{})
	return nil
}

// RegisterListener adds l to the engine's listener registry.
func (e *Engine) RegisterListener(l Listener) listener.Handle {
	return e.reg.Register(l)
}

// UnregisterListener removes a previously registered listener.
func (e *Engine) UnregisterListener(h listener.Handle) {
	e.reg.Unregister(h)
}

// Enqueue appends track to the playout queue.
func (e *Engine) Enqueue(track *Track) {
	e.ctrl.Enqueue(track)
}

// Play starts (or resumes) playout.
func (e *Engine) Play() bool { return e.ctrl.Play() }

// Stop halts and unloads every deck.
func (e *Engine) Stop() { e.ctrl.Stop() }

// FadeOutMain fades the current main deck out per spec.md §4.6's
// fade_out_main() contract.
func (e *Engine) FadeOutMain() { e.ctrl.FadeOutMain() }

// SetPosition seeks the main deck, cancelling any in-flight transition.
func (e *Engine) SetPosition(seconds float64) bool { return e.ctrl.SetMainPosition(seconds) }

// SetPaused mutes/unmutes the mix via the Mixer's 256-sample ramp
// policy (spec.md §4.7), without touching the deck state machine.
func (e *Engine) SetPaused(paused bool) { e.mix.SetPaused(paused) }

// SetKaraoke updates the karaoke effect configuration live.
func (e *Engine) SetKaraoke(cfg Karaoke) {
	e.mu.Lock()
	e.cfg.Karaoke = cfg
	e.mu.Unlock()
	e.mix.SetKaraoke(karaoke.Config(cfg))
}

// Configure updates the engine's tuning knobs, propagating max transition
// time / fade-out duration to every deck.
func (e *Engine) Configure(cfg config.Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	e.ctrl.Configure(cfg)
	e.mix.SetKaraoke(karaoke.Config(cfg.Karaoke))
}

// Telemetry returns the most recent Mixer telemetry snapshot.
func (e *Engine) Telemetry() Telemetry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.telemetry
}

// Start spawns the real-time sink-driving goroutine and the ~30Hz
// position/telemetry task, matching spec.md §5's task layout. Returns
// immediately; call Close to stop both.
func (e *Engine) Start() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	e.wg.Add(2)
	go e.runAudioLoop()
	go func() {
		defer e.wg.Done()
		e.ctrl.RunPositionLoop(e.stopCh)
	}()
}

// runAudioLoop is the real-time audio sink task (spec.md §5 task 1): it
// must not allocate or block beyond one block's worth of real time per
// iteration.
func (e *Engine) runAudioLoop() {
	defer e.wg.Done()
	pullers := e.pullers()
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}
		t := e.mix.Process(pullers, e.block)
		e.mu.Lock()
		e.telemetry = t
		e.mu.Unlock()
		if err := e.snk.Pull(e.block); err != nil {
			return
		}
	}
}

func (e *Engine) pullers() []mixer.Puller {
	decks := e.ctrl.Decks()
	pullers := make([]mixer.Puller, len(decks))
	for i, d := range decks {
		pullers[i] = d
	}
	return pullers
}

// Close stops both background tasks and releases the sink.
func (e *Engine) Close() error {
	if !e.running.CompareAndSwap(true, false) {
		return nil
	}
	close(e.stopCh)
	e.wg.Wait()
	return e.snk.Close()
}
