package reader

import (
	"io"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

func init() {
	Register(".mp3", openBeep(mp3.Decode))
	Register(".flac", openBeep(flac.Decode))
	Register(".wav", openBeep(wav.Decode))
	Register(".ogg", openBeep(vorbis.Decode))
}

type beepDecodeFn func(r io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// openBeep adapts one of beep's format-specific Decode functions into our
// Opener factory.
func openBeep(decode beepDecodeFn) Opener {
	return func(path string) (Reader, error) {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		stream, format, err := decode(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &beepReader{stream: stream, format: format}, nil
	}
}

// beepReader adapts a beep.StreamSeekCloser (interleaved [2]float64
// frames) to the planar float32 Reader contract. beep always streams as
// stereo, so planes must have exactly 2 channels.
type beepReader struct {
	stream beep.StreamSeekCloser
	format beep.Format
	scratch [][2]float64
}

func (r *beepReader) SampleRate() float64 { return float64(r.format.SampleRate) }
func (r *beepReader) Channels() int       { return 2 }
func (r *beepReader) FramesTotal() int64  { return int64(r.stream.Len()) }

func (r *beepReader) Seek(frame int64) error {
	return r.stream.Seek(int(frame))
}

func (r *beepReader) Read(planes [][]float32) (int, error) {
	if len(planes) != 2 || len(planes[0]) == 0 {
		return 0, ErrDecode
	}
	n := len(planes[0])
	if cap(r.scratch) < n {
		r.scratch = make([][2]float64, n)
	}
	scratch := r.scratch[:n]
	got, ok := r.stream.Stream(scratch)
	if got == 0 {
		if !ok && r.stream.Err() != nil {
			return 0, r.stream.Err()
		}
		return 0, nil
	}
	for i := 0; i < got; i++ {
		planes[0][i] = float32(scratch[i][0])
		planes[1][i] = float32(scratch[i][1])
	}
	return got, nil
}

func (r *beepReader) Close() error {
	return r.stream.Close()
}
