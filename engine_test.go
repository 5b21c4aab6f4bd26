package medley

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"medley-sub000/internal/sink"
)

func TestEngineStartCloseWithNoQueue(t *testing.T) {
	e := New(Options{Config: DefaultConfig(), Sink: sink.NewNull(), BlockSize: 256})
	if err := e.Prepare(); err != nil {
		t.Fatalf("Prepare() = %v", err)
	}
	e.Start()
	time.Sleep(10 * time.Millisecond)
	assert.NoError(t, e.Close())
}

func TestEngineRegisterUnregisterListener(t *testing.T) {
	e := New(Options{Config: DefaultConfig(), Sink: sink.NewNull(), BlockSize: 256})
	if err := e.Prepare(); err != nil {
		t.Fatalf("Prepare() = %v", err)
	}
	h := e.RegisterListener(BaseListener{})
	e.UnregisterListener(h)
}
