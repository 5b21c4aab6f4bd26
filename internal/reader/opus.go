package reader

import (
	"encoding/binary"
	"io"
	"os"

	"gopkg.in/hraban/opus.v2"
)

func init() {
	Register(".opus", openOpus)
}

const (
	opusSampleRate = 48000 // hraban/opus.v2 requires 8/12/16/24/48 kHz
	opusChannels   = 2
)

// opusReader decodes a sequence of length-prefixed Opus packets (a
// uint32 big-endian byte count followed by that many bytes of packet
// data, repeated to EOF) — the same framing the teacher's own Opus path
// in client/audio.go assumes for network packets, here read back from a
// file instead of a socket. Full Ogg-container demuxing is out of scope:
// no Ogg-Opus demuxer appears anywhere in the retrieval pack.
type opusReader struct {
	f       *os.File
	dec     *opus.Decoder
	pcm     []float32 // interleaved scratch, sized for the largest frame
	readFrames int64
}

func openOpus(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := opus.NewDecoder(opusSampleRate, opusChannels)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &opusReader{f: f, dec: dec, pcm: make([]float32, 5760*opusChannels)}, nil
}

func (r *opusReader) SampleRate() float64 { return opusSampleRate }
func (r *opusReader) Channels() int       { return opusChannels }
func (r *opusReader) FramesTotal() int64  { return -1 } // unknown without a full pre-scan

func (r *opusReader) Seek(frame int64) error {
	// Packet streams aren't randomly seekable without an index; rewind
	// and decode-discard up to frame, matching the conservative fallback
	// any non-indexed streaming format needs.
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r.dec.ResetState()
	r.readFrames = 0
	scratch := make([][]float32, opusChannels)
	for c := range scratch {
		scratch[c] = make([]float32, 960)
	}
	for r.readFrames < frame {
		n, err := r.Read(scratch)
		if n == 0 || err != nil {
			return err
		}
	}
	return nil
}

func (r *opusReader) Read(planes [][]float32) (int, error) {
	if len(planes) != opusChannels || len(planes[0]) == 0 {
		return 0, ErrDecode
	}
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.f, lenBuf[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return 0, nil
		}
		return 0, ErrIO
	}
	packetLen := binary.BigEndian.Uint32(lenBuf[:])
	packet := make([]byte, packetLen)
	if _, err := io.ReadFull(r.f, packet); err != nil {
		return 0, ErrIO
	}

	n, err := r.dec.DecodeFloat32(packet, r.pcm)
	if err != nil {
		return 0, ErrDecode
	}
	if n > len(planes[0]) {
		n = len(planes[0])
	}
	for i := 0; i < n; i++ {
		planes[0][i] = r.pcm[i*opusChannels]
		planes[1][i] = r.pcm[i*opusChannels+1]
	}
	r.readFrames += int64(n)
	return n, nil
}

func (r *opusReader) Close() error {
	return r.f.Close()
}
