package sink

// NullSink discards every block it is handed. It is the deterministic
// sink used by offline rendering and the allocation-free steady-state
// test fixture spec.md §8 calls for.
type NullSink struct {
	sampleRate float64
	blockSize  int
	channels   int
}

// NewNull constructs a NullSink.
func NewNull() *NullSink { return &NullSink{} }

func (n *NullSink) Prepare(sampleRate float64, blockSize, channels int) error {
	n.sampleRate = sampleRate
	n.blockSize = blockSize
	n.channels = channels
	return nil
}

func (n *NullSink) Pull(block [][]float32) error { return nil }

func (n *NullSink) Close() error { return nil }
