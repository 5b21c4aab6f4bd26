package karaoke

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledIsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	e := New(44100, cfg)
	block := [][]float32{{0.5, 0.5}, {0.5, 0.5}}
	before := [][]float32{{0.5, 0.5}, {0.5, 0.5}}
	e.Process(block)
	assert.Equal(t, before, block)
}

func TestIdenticalChannelsMostlyCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Mix = 1.0
	cfg.OriginalBgLevel = 0 // isolate the cancellation term
	e := New(44100, cfg)
	n := 256
	left := make([]float32, n)
	right := make([]float32, n)
	for i := range left {
		left[i] = 0.5
		right[i] = 0.5
	}
	block := [][]float32{left, right}
	e.Process(block)
	for i := range block[0] {
		assert.InDelta(t, 0, block[0][i], 1e-6)
		assert.InDelta(t, 0, block[1][i], 1e-6)
	}
}
