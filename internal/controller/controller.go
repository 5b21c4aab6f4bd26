// Package controller implements the Transition Controller (spec.md §4.6):
// a fixed deck pool driven by main-deck position events through the
// Idle -> Cueing -> CueLoading -> Cued -> Transit -> Idle state machine,
// deriving crossfade timing from each deck's scanned transition points.
package controller

import (
	"sync"

	"github.com/google/uuid"

	"medley-sub000/internal/config"
	"medley-sub000/internal/deck"
	"medley-sub000/internal/listener"
	"medley-sub000/internal/reader"
)

// TransitionState is the controller's own state, scoped to the main deck.
type TransitionState int

const (
	Idle TransitionState = iota
	Cueing
	CueLoading
	Cued
	Transit
)

func (s TransitionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Cueing:
		return "cueing"
	case CueLoading:
		return "cue_loading"
	case Cued:
		return "cued"
	case Transit:
		return "transit"
	default:
		return "unknown"
	}
}

// Controller owns the deck pool and the cross-deck transition state.
type Controller struct {
	mu sync.Mutex

	decks   []*deck.Deck
	mainIdx int // index into decks of the current main deck, or -1

	state         TransitionState
	transitingIdx int // deck index currently being cued/transited into, or -1

	pending   []*deck.Track // host-enqueued tracks awaiting load_next_track
	forceFade int           // fade_out_main() invocation counter

	awaitingQueue bool // a pre_queue_next(done) call is outstanding; suppresses re-firing it every poll

	cfg     config.Config
	opener  reader.Opener
	reg     *listener.Registry
	keepPlaying bool
}

// New constructs a Controller over a fixed-size deck pool.
func New(poolSize int, cfg config.Config, reg *listener.Registry, opener reader.Opener) *Controller {
	c := &Controller{
		decks:         make([]*deck.Deck, poolSize),
		mainIdx:       -1,
		transitingIdx: -1,
		cfg:           cfg,
		reg:           reg,
		opener:        opener,
	}
	for i := range c.decks {
		c.decks[i] = deck.New(i)
		c.decks[i].Configure(cfg.MaxTransitionTimeS, cfg.MaxFadeOutDurationS, cfg.FadingFactor())
	}
	return c
}

// Decks returns the fixed deck pool, for the Mixer/engine to pull from
// and the position task to poll.
func (c *Controller) Decks() []*deck.Deck { return c.decks }

// Prepare pre-sizes every deck's real-time scratch buffers.
func (c *Controller) Prepare(blockSize, maxChannels int) {
	for _, d := range c.decks {
		d.Prepare(blockSize, maxChannels)
	}
}

// Configure updates the engine configuration and propagates it to every
// deck (transition-point recomputation, fade-out duration).
func (c *Controller) Configure(cfg config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	for _, d := range c.decks {
		d.Configure(cfg.MaxTransitionTimeS, cfg.MaxFadeOutDurationS, cfg.FadingFactor())
	}
}

// Enqueue appends track to the host-owned queue load_next_track consumes
// from, assigning it a stable queue-entry identity if the host didn't
// already set one.
func (c *Controller) Enqueue(track *deck.Track) {
	if track.TrackID == "" {
		track.TrackID = uuid.NewString()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, track)
}

// MainDeck returns the current main deck, or nil if none.
func (c *Controller) MainDeck() *deck.Deck {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mainIdx < 0 {
		return nil
	}
	return c.decks[c.mainIdx]
}

// State returns the controller's transition state.
func (c *Controller) State() TransitionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// popPendingLocked pops the next host-queued track, or nil if empty. Caller
// must hold c.mu.
func (c *Controller) popPendingLocked() *deck.Track {
	if len(c.pending) == 0 {
		return nil
	}
	t := c.pending[0]
	c.pending = c.pending[1:]
	return t
}

// idleDeckLocked returns the index of an Empty deck other than `exclude`,
// or -1. Caller must hold c.mu.
func (c *Controller) idleDeckLocked(exclude int) int {
	for i, d := range c.decks {
		if i == exclude {
			continue
		}
		if d.State() == deck.Empty {
			return i
		}
	}
	return -1
}
