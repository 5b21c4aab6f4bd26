// Package scanner performs the offline, one-shot content analysis a Deck
// runs against a fully decoded track: locating the first and last audible
// frames and the leading/trailing boundaries that drive transition-point
// derivation.
package scanner

import "math"

// Unset marks a boundary the scan did not find (e.g. a track with no
// detectable trailing fade).
const Unset = -1

// Result holds the frame-domain boundaries spec.md §3 names as Scanner
// outputs. All positions are in source-rate frames.
type Result struct {
	FirstAudibleFrame int64
	LeadingFrame       int64 // Unset if no distinct onset found
	TrailingFrame      int64 // Unset if no fade-out detected
	LastAudibleFrame   int64
}

const (
	silenceThresholdDB  = -60.0 // first/last audible gate
	fadingThresholdDB   = -23.0 // trailing-fade gate
	minSustainedMs      = 1.0   // first-audible sustain requirement
	minTrailingHoldS    = 0.8   // trailing sustained-below-threshold requirement
	lastAudibleScanS    = 20.0  // window scanned backward for last-audible
	lastAudibleHoldS    = 1.25
	leadingWindowS      = 10.0 // default leading search window, overridden by maxTransitionTimeS
	leadingRefineWindowS = 2.0
	leadingDropFactor   = 0.5   // -6dB ~= half amplitude, applied to the window's peak magnitude
	leadingRefineFactor = 1.0 / 3.0
	minDurationForLeadS = 3.0
)

func dbToLinear(db float64) float64 { return math.Pow(10, db/20) }

// Scan runs the full offline analysis over samples (one mono value per
// frame — the Deck passes the average of its channels' signed samples, and
// every gate here compares each value's absolute magnitude). sampleRate is in Hz;
// maxTransitionTimeS bounds the leading search window (falls back to
// leadingWindowS when <= 0).
func Scan(samples []float32, sampleRate float64, maxTransitionTimeS float64) Result {
	total := int64(len(samples))
	r := Result{
		FirstAudibleFrame: 0,
		LeadingFrame:       Unset,
		TrailingFrame:      Unset,
		LastAudibleFrame:   total,
	}
	if total == 0 || sampleRate <= 0 {
		return r
	}

	sustainFrames := int64(minSustainedMs / 1000 * sampleRate)
	if sustainFrames < 1 {
		sustainFrames = 1
	}
	thresholdLin := float32(dbToLinear(silenceThresholdDB))

	midpoint := total / 2
	r.FirstAudibleFrame = findFirstAudible(samples, 0, midpoint, thresholdLin, sustainFrames)

	durationS := float64(total) / sampleRate
	if durationS >= minDurationForLeadS {
		window := maxTransitionTimeS
		if window <= 0 {
			window = leadingWindowS
		}
		r.LeadingFrame = findLeadingFrame(samples, r.FirstAudibleFrame, total, sampleRate, window)
	}

	lastScanFrames := int64(lastAudibleScanS * sampleRate)
	lastStart := total - lastScanFrames
	if lastStart < 0 {
		lastStart = 0
	}
	holdFrames := int64(lastAudibleHoldS * sampleRate)
	r.LastAudibleFrame = findLastAudible(samples, lastStart, total, thresholdLin, holdFrames)

	r.TrailingFrame = findTrailingFrame(samples, lastStart, r.LastAudibleFrame, total, sampleRate)

	return r
}

// findFirstAudible scans forward from `from` looking for the first frame
// whose magnitude clears threshold and stays cleared for sustainFrames.
func findFirstAudible(samples []float32, from, to int64, threshold float32, sustainFrames int64) int64 {
	if to > int64(len(samples)) {
		to = int64(len(samples))
	}
	for i := from; i < to; i++ {
		if abs32(samples[i]) < threshold {
			continue
		}
		end := i + sustainFrames
		if end > to {
			end = to
		}
		sustained := true
		for j := i; j < end; j++ {
			if abs32(samples[j]) < threshold {
				sustained = false
				break
			}
		}
		if sustained {
			return i
		}
	}
	return from
}

// findLastAudible scans backward from `to` for the last frame at or above
// threshold whose following frames, up to holdFrames from it, all stay
// below threshold; a frame with fewer than holdFrames frames left before
// `to` does not qualify. Returns `to` when no frame qualifies.
func findLastAudible(samples []float32, from, to int64, threshold float32, holdFrames int64) int64 {
	n := int64(len(samples))
	if to > n {
		to = n
	}
	for i := to - 1; i > from; i-- {
		if abs32(samples[i]) < threshold {
			continue
		}
		end := i + holdFrames
		if end > to {
			end = to
		}
		droppedAndHeld := true
		for j := i + 1; j < end; j++ {
			if abs32(samples[j]) >= threshold {
				droppedAndHeld = false
				break
			}
		}
		if droppedAndHeld && end == i+holdFrames {
			return i
		}
	}
	return to
}

// findLeadingFrame searches the window [firstAudible, firstAudible+window]
// for the first frame reaching half (-6dB) of the window's single highest
// magnitude, then refines backward within a 2s sub-window at 1/3 of that
// target level. The target comes from that one peak value; no average of
// peaks is taken.
func findLeadingFrame(samples []float32, firstAudible, total int64, sampleRate, windowS float64) int64 {
	windowFrames := int64(windowS * sampleRate)
	end := firstAudible + windowFrames
	if end > total {
		end = total
	}
	if end <= firstAudible {
		return Unset
	}
	peak := float32(0)
	for i := firstAudible; i < end; i++ {
		if a := abs32(samples[i]); a > peak {
			peak = a
		}
	}
	target := peak * float32(leadingDropFactor)

	candidate := int64(Unset)
	for i := firstAudible; i < end; i++ {
		if abs32(samples[i]) >= target {
			candidate = i
			break
		}
	}
	if candidate == Unset {
		return Unset
	}

	refineTarget := target * float32(leadingRefineFactor)
	refineFrom := candidate - int64(leadingRefineWindowS*sampleRate)
	if refineFrom < firstAudible {
		refineFrom = firstAudible
	}
	for i := candidate; i > refineFrom; i-- {
		if abs32(samples[i]) < refineTarget {
			return i + 1
		}
	}
	return refineFrom
}

// findTrailingFrame searches [from, lastAudible), where from is the start
// of the tail window scanned for last-audible, for the first point where
// amplitude falls and stays below fadingThresholdDB for 0.8s.
func findTrailingFrame(samples []float32, from, lastAudible, total int64, sampleRate float64) int64 {
	thresholdLin := float32(dbToLinear(fadingThresholdDB))
	holdFrames := int64(minTrailingHoldS * sampleRate)
	if lastAudible > total {
		lastAudible = total
	}
	for i := from; i < lastAudible; i++ {
		if abs32(samples[i]) >= thresholdLin {
			continue
		}
		end := i + holdFrames
		if end > lastAudible {
			end = lastAudible
		}
		sustained := true
		for j := i; j < end; j++ {
			if abs32(samples[j]) >= thresholdLin {
				sustained = false
				break
			}
		}
		if sustained && end == i+holdFrames {
			return i
		}
	}
	return Unset
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
