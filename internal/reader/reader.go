// Package reader defines the pluggable Reader contract (spec.md §4.1/§6)
// and the concrete decoders the host provides out of the box.
package reader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Sentinel errors surfaced through the Deck loader callback (spec.md §7).
var (
	ErrUnsupportedFormat = errors.New("reader: unsupported format")
	ErrIO                = errors.New("reader: io error")
	ErrDecode            = errors.New("reader: decode error")
)

// Reader is a seekable, block-pullable audio source. Implementations must
// be safe to call from a single background loader/read-ahead goroutine;
// the Deck never calls a Reader from more than one goroutine at a time
// (guarded by its per-deck source lock, see internal/deck).
type Reader interface {
	// SampleRate returns the reader's native sample rate in Hz.
	SampleRate() float64
	// Channels returns the channel count.
	Channels() int
	// FramesTotal returns the total decodable frame count, or -1 if
	// unknown in advance (e.g. a live/unbounded source).
	FramesTotal() int64
	// Seek moves the read cursor to the given frame.
	Seek(frame int64) error
	// Read decodes up to len(planes[0]) frames into planes (one slice per
	// channel) and returns the number of frames actually produced; a
	// return of 0 with a nil error means end of stream.
	Read(planes [][]float32) (int, error)
	// Close releases any underlying decoder/file resources.
	Close() error
}

// Opener opens a Reader for a file path, used by the factory-style
// plug-in contract in spec.md §6 ("a factory open(path) -> Reader | Err").
type Opener func(path string) (Reader, error)

// registry maps a lowercase file extension (with leading dot) to the
// Opener responsible for it. Populated by each format's init() via
// Register, matching the decoder-per-extension dispatch spec.md's Reader
// contract implies ("Supported formats: MP3, FLAC, Ogg Vorbis, Opus,
// WAV...").
var registry = map[string]Opener{}

// Register installs opener for the given extension (e.g. ".mp3").
func Register(ext string, opener Opener) {
	registry[strings.ToLower(ext)] = opener
}

// Open dispatches to the registered Opener for path's extension.
func Open(path string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	opener, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	r, err := opener(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return r, nil
}
