// Package ringbuffer implements a planar, fixed-capacity circular buffer
// for multichannel float32 audio. A single writer (the Deck's read-ahead
// task) and a single reader (the real-time pull path) share one buffer;
// callers are responsible for their own synchronization of size queries
// against concurrent writes/reads, matching the Deck's single-writer/
// single-reader discipline.
package ringbuffer

// RingBuffer holds channels independent per-channel circular slices
// (planar layout, not interleaved) so a multi-channel read or write never
// needs to de-interleave.
type RingBuffer struct {
	data     [][]float32 // data[channel][capacity]
	capacity int
	write    int
	read     int
	count    int // number of valid frames currently buffered
}

// New allocates a RingBuffer for the given channel count and frame capacity.
func New(channels, capacity int) *RingBuffer {
	if channels <= 0 {
		channels = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	data := make([][]float32, channels)
	for c := range data {
		data[c] = make([]float32, capacity)
	}
	return &RingBuffer{data: data, capacity: capacity}
}

// Channels returns the configured channel count.
func (r *RingBuffer) Channels() int { return len(r.data) }

// Capacity returns the total number of frames the buffer can hold.
func (r *RingBuffer) Capacity() int { return r.capacity }

// Len returns the number of frames currently buffered.
func (r *RingBuffer) Len() int { return r.count }

// Free returns the number of frames that can still be written before the
// buffer is full.
func (r *RingBuffer) Free() int { return r.capacity - r.count }

// Write appends frames from src (one []float32 slice per channel, all the
// same length) and returns the number of frames actually written — fewer
// than len(src[0]) when the buffer does not have enough free space.
func (r *RingBuffer) Write(src [][]float32) int {
	if len(src) == 0 {
		return 0
	}
	n := len(src[0])
	if avail := r.Free(); n > avail {
		n = avail
	}
	if n <= 0 {
		return 0
	}
	firstLen := r.capacity - r.write
	if firstLen > n {
		firstLen = n
	}
	secondLen := n - firstLen
	for c := range r.data {
		copy(r.data[c][r.write:r.write+firstLen], src[c][:firstLen])
		if secondLen > 0 {
			copy(r.data[c][:secondLen], src[c][firstLen:firstLen+secondLen])
		}
	}
	r.write = (r.write + n) % r.capacity
	r.count += n
	return n
}

// Read copies up to len(dst[0]) frames into dst and advances the read
// cursor, returning the number of frames actually read. It does not zero
// unread destination tail; callers that need silence-padding should do so
// themselves based on the returned count.
func (r *RingBuffer) Read(dst [][]float32) int {
	if len(dst) == 0 {
		return 0
	}
	n := len(dst[0])
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return 0
	}
	firstLen := r.capacity - r.read
	if firstLen > n {
		firstLen = n
	}
	secondLen := n - firstLen
	for c := range r.data {
		copy(dst[c][:firstLen], r.data[c][r.read:r.read+firstLen])
		if secondLen > 0 {
			copy(dst[c][firstLen:firstLen+secondLen], r.data[c][:secondLen])
		}
	}
	r.read = (r.read + n) % r.capacity
	r.count -= n
	return n
}

// Reset discards all buffered frames without reallocating.
func (r *RingBuffer) Reset() {
	r.write = 0
	r.read = 0
	r.count = 0
}
