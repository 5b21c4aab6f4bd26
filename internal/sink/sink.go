// Package sink defines the audio sink contract (spec.md §6) and its two
// concrete implementations: a PortAudio-backed device sink and a Null
// sink for headless rendering and tests.
package sink

import "errors"

// ErrDevice is returned when the sink fails to open or control the
// underlying audio device (spec.md §7 DeviceError).
var ErrDevice = errors.New("sink: device error")

// Sink is the real-time audio output contract: prepared once, then pulled
// from repeatedly by the audio sink task. Implementations must not
// allocate in Pull (spec.md §5 task 1).
type Sink interface {
	// Prepare configures the sink for the given rate/block size/channel
	// count. Must be called before Pull.
	Prepare(sampleRate float64, blockSize, channels int) error
	// Pull is called by the real-time driver with a planar block the
	// engine has already filled with mixed output; implementations write the block to the device (or discard it, for
	// NullSink) and must return promptly without blocking past one
	// block's worth of real time.
	Pull(block [][]float32) error
	// Close releases the device or any other held resource.
	Close() error
}
