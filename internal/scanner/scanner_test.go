package scanner

import (
	"testing"

	"pgregory.net/rapid"
)

const sr = 44100.0

func silence(n int) []float32 { return make([]float32, n) }

func tone(n int, amp float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = amp
	}
	return s
}

func concat(parts ...[]float32) []float32 {
	var out []float32
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestScanEmptyTrack(t *testing.T) {
	r := Scan(nil, sr, 4)
	if r.FirstAudibleFrame != 0 || r.LastAudibleFrame != 0 {
		t.Fatalf("empty track should have zeroed boundaries, got %+v", r)
	}
}

func TestInvariantOrdering(t *testing.T) {
	samples := concat(silence(int(0.2*sr)), tone(int(5*sr), 0.8), silence(int(0.3*sr)))
	r := Scan(samples, sr, 4)
	if !(r.FirstAudibleFrame <= r.LastAudibleFrame) {
		t.Fatalf("first_audible must be <= last_audible: %+v", r)
	}
	if r.LeadingFrame != Unset && r.LeadingFrame < r.FirstAudibleFrame {
		t.Fatalf("leading must be >= first_audible when set: %+v", r)
	}
}

// TestScanIdempotent is the spec §8 round-trip property: scanning the
// same samples twice with the same config yields the same boundaries.
func TestScanIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, int(8*sr)).Draw(t, "n")
		samples := make([]float32, n)
		for i := range samples {
			samples[i] = float32(rapid.Float64Range(-1, 1).Draw(t, "s"))
		}
		a := Scan(samples, sr, 4)
		b := Scan(samples, sr, 4)
		if a != b {
			t.Fatalf("Scan not idempotent: %+v vs %+v", a, b)
		}
	})
}
