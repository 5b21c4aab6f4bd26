package deck

import (
	"log"

	"medley-sub000/internal/reader"
	"medley-sub000/internal/ringbuffer"
	"medley-sub000/internal/scanner"
)

// fastScanWindowSeconds is not read by the loader: loadTask decodes the
// whole track and runs one full Scanner pass, with no separate quick
// first_audible_frame computed ahead of it.
const fastScanWindowSeconds = 2.0

// loadTask runs the five-step loader sequence from spec.md §4.5 off the
// real-time path. generation guards against a stale goroutine (from a
// superseded Load/unload) mutating a deck that has since moved on.
func (d *Deck) loadTask(openFn reader.Opener, track *Track, generation int64, onLoaded func(*Track), onDone func(bool)) {
	rd, err := openFn(track.Path)
	if err != nil {
		log.Printf("[deck:%d] load failed: %v", d.index, err)
		d.failLoad(generation)
		onDone(false)
		return
	}

	sr := rd.SampleRate()
	channels := rd.Channels()
	capacityFrames := int(ringBufferCapacitySeconds * sr)

	d.lock()
	if d.loadGeneration != generation {
		d.unlock()
		rd.Close()
		onDone(false)
		return
	}
	d.rd = rd
	d.sourceRate = sr
	d.channels = channels
	d.unlock()

	// Decode the whole track up front: this both feeds the ring buffer's
	// read-ahead task and gives the Scanner the full sample set its
	// offline analysis needs (spec.md §4.4 describes a one-shot scan over
	// the decoded signal, not a streaming approximation).
	decoded, decodeErr := decodeAll(rd, channels)
	if decodeErr != nil {
		log.Printf("[deck:%d] decode failed: %v", d.index, decodeErr)
		d.failLoad(generation)
		onDone(false)
		return
	}

	mono := monoReduce(decoded)
	totalFrames := int64(len(mono))

	var result scanner.Result
	if float64(totalFrames)/sr >= 3.0 {
		result = scanner.Scan(mono, sr, 4.0)
	} else {
		// spec.md §8 boundary behavior: duration < 3s skips the scanner;
		// transition points collapse to [duration, duration, duration].
		result = scanner.Result{FirstAudibleFrame: 0, LeadingFrame: scanner.Unset, TrailingFrame: scanner.Unset, LastAudibleFrame: totalFrames}
	}

	d.lock()
	if d.loadGeneration != generation {
		d.unlock()
		rd.Close()
		onDone(false)
		return
	}
	d.scan = result
	d.totalFramesToPlay = totalFrames
	d.ring = ringbuffer.New(channels, capacityFrames)
	d.decoded = decoded
	d.decodedPos = 0
	d.replayGainLinear = 1.0 // always unity: Track.ReplayGainDB and Config.ReplayGainLinear are not applied
	d.recomputeTransitionPointsLocked()
	d.state = Loaded
	d.unlock()

	go d.readAheadTask(generation)

	onLoaded(track)
	onDone(true)
}

// readAheadTask is the read-ahead unit from spec.md §5 task 2: it refills
// the ring buffer from the fully-decoded in-memory track whenever there
// is free space, backing off briefly when the buffer is full. Decoding
// has already happened in loadTask, so this task never blocks on I/O
// itself — it only paces writes against the ring buffer's capacity.
func (d *Deck) readAheadTask(generation int64) {
	const chunk = 2048
	for {
		d.lock()
		if d.loadGeneration != generation {
			d.unlock()
			return
		}
		ring := d.ring
		decoded := d.decoded
		pos := d.decodedPos
		total := 0
		if len(decoded) > 0 {
			total = len(decoded[0])
		}
		if pos >= total {
			d.unlock()
			return
		}
		free := ring.Free()
		if free == 0 {
			d.unlock()
			sleepBackoff()
			continue
		}
		n := chunk
		if n > free {
			n = free
		}
		if pos+n > total {
			n = total - pos
		}
		src := make([][]float32, len(decoded))
		for c := range decoded {
			src[c] = decoded[c][pos : pos+n]
		}
		written := ring.Write(src)
		d.decodedPos += written
		d.unlock()
		if written < n {
			sleepBackoff()
		}
	}
}

// failLoad reverts a deck to Empty after a failed load, emitting no
// events (spec.md §4.5: "Loading -> Empty on loader failure (emits no
// events on failure)").
func (d *Deck) failLoad(generation int64) {
	d.lock()
	defer d.unlock()
	if d.loadGeneration != generation {
		return
	}
	d.state = Empty
	d.track = nil
	d.rd = nil
}

// decodeAll pulls every frame out of rd into a planar buffer.
func decodeAll(rd reader.Reader, channels int) ([][]float32, error) {
	const chunk = 4096
	planes := make([][]float32, channels)
	out := make([][]float32, channels)
	for c := range planes {
		planes[c] = make([]float32, chunk)
	}
	for {
		n, err := rd.Read(planes)
		if n > 0 {
			for c := range out {
				out[c] = append(out[c], planes[c][:n]...)
			}
		}
		if err != nil {
			return out, err
		}
		if n == 0 {
			return out, nil
		}
	}
}

// monoReduce folds a planar multichannel buffer down to a single channel
// for the Scanner by averaging the channels' signed samples (not their
// magnitudes); the Scanner gates on the absolute value of each result.
func monoReduce(planes [][]float32) []float32 {
	if len(planes) == 0 {
		return nil
	}
	if len(planes) == 1 {
		return planes[0]
	}
	n := len(planes[0])
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		var sum float32
		for c := range planes {
			sum += planes[c][i]
		}
		out[i] = sum / float32(len(planes))
	}
	return out
}
