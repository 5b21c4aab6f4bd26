package ringbuffer

import "testing"

func TestWriteReadRoundTrip(t *testing.T) {
	rb := New(2, 8)
	src := [][]float32{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	}
	if n := rb.Write(src); n != 4 {
		t.Fatalf("Write() = %d, want 4", n)
	}
	if rb.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", rb.Len())
	}
	dst := [][]float32{make([]float32, 4), make([]float32, 4)}
	if n := rb.Read(dst); n != 4 {
		t.Fatalf("Read() = %d, want 4", n)
	}
	for c := range dst {
		for i := range dst[c] {
			if dst[c][i] != src[c][i] {
				t.Fatalf("channel %d frame %d = %v, want %v", c, i, dst[c][i], src[c][i])
			}
		}
	}
	if rb.Len() != 0 {
		t.Fatalf("Len() after drain = %d, want 0", rb.Len())
	}
}

func TestWriteWraparound(t *testing.T) {
	rb := New(1, 4)
	rb.Write([][]float32{{1, 2, 3}})
	rb.Read([][]float32{make([]float32, 2)}) // read=2, write=3, count=1
	n := rb.Write([][]float32{{4, 5, 6}})     // wraps: writes at idx 3, then 0,1
	if n != 3 {
		t.Fatalf("Write() = %d, want 3", n)
	}
	dst := make([]float32, 4)
	got := rb.Read([][]float32{dst})
	if got != 4 {
		t.Fatalf("Read() = %d, want 4", got)
	}
	want := []float32{3, 4, 5, 6}
	for i, w := range want {
		if dst[i] != w {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], w)
		}
	}
}

func TestWriteStopsAtCapacity(t *testing.T) {
	rb := New(1, 4)
	n := rb.Write([][]float32{{1, 2, 3, 4, 5}})
	if n != 4 {
		t.Fatalf("Write() = %d, want 4 (capped at capacity)", n)
	}
	if rb.Free() != 0 {
		t.Fatalf("Free() = %d, want 0", rb.Free())
	}
}

func TestReadStopsAtCount(t *testing.T) {
	rb := New(1, 4)
	rb.Write([][]float32{{1, 2}})
	dst := make([]float32, 4)
	n := rb.Read([][]float32{dst})
	if n != 2 {
		t.Fatalf("Read() = %d, want 2", n)
	}
}

func TestReset(t *testing.T) {
	rb := New(1, 4)
	rb.Write([][]float32{{1, 2, 3}})
	rb.Reset()
	if rb.Len() != 0 || rb.Free() != 4 {
		t.Fatalf("Reset did not clear buffer: len=%d free=%d", rb.Len(), rb.Free())
	}
}
