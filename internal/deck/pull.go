package deck

// PullBlock is the real-time path: spec.md §4.5's five-step block
// production. Must not allocate or block — the ring buffer read is
// wait-free SPSC and the gain ramp is pure arithmetic. out is planar,
// sized [channels][n].
func (d *Deck) PullBlock(out [][]float32, deviceRate float64) {
	if !d.tryLock() {
		zero(out) // contended with a control call; treat as an underrun rather than wait
		return
	}
	defer d.unlock()

	n := 0
	if len(out) > 0 {
		n = len(out[0])
	}

	if d.state != Playing {
		zero(out)
		return
	}

	sourceFrames := n
	if deviceRate > 0 && d.sourceRate > 0 && deviceRate != d.sourceRate {
		sourceFrames = int(ceilDiv(n, deviceRate, d.sourceRate))
	}
	if sourceFrames > d.maxScratchFrames {
		sourceFrames = d.maxScratchFrames // see Deck.Prepare: bounds worst-case resample ratio
	}

	src := d.srcView[:d.channels]
	for c := range src {
		if c < len(d.pullScratch) {
			src[c] = d.pullScratch[c][:sourceFrames]
		} else {
			src[c] = d.pullScratch[0][:sourceFrames]
		}
	}
	got := 0
	if d.ring != nil {
		got = d.ring.Read(src)
	}
	// Zero-fill on underrun (spec.md §4.5 step 2).
	for c := range src {
		for i := got; i < sourceFrames; i++ {
			src[c][i] = 0
		}
	}
	d.sourcePosition.Add(int64(got))

	resample(src, out, d.channels, len(out))

	d.applyGainLocked(out)

	naturalEnd := d.sourcePosition.Load() >= d.totalFramesToPlay
	fadeEnd := d.fading && d.positionLocked() > d.transitionEndS
	if naturalEnd || fadeEnd {
		d.state = Finished
		d.playing.Store(false)
		d.finished.Store(true)
		d.fading = false
	}
}

// applyGainLocked applies gain = pre_gain * replay_gain_linear * volume
// with a linear ramp from last_gain to the current target across the
// block (spec.md §4.5 step 4, §5 ordering guarantee: "last_gain carries
// over").
func (d *Deck) applyGainLocked(out [][]float32) {
	target := d.preGain * d.replayGainLinear * d.gain
	if d.fading {
		target *= d.fadeMultiplierLocked()
	}
	n := 0
	if len(out) > 0 {
		n = len(out[0])
	}
	if n == 0 {
		d.lastGain = target
		return
	}
	start := d.lastGain
	for c := range out {
		for i := 0; i < n; i++ {
			progress := float64(i+1) / float64(n)
			g := start + (target-start)*progress
			out[c][i] *= float32(g)
		}
	}
	d.lastGain = target
}

// fadeMultiplierLocked reads the fade-out envelope, configured by FadeOut
// (manual fade) or BeginTransitionFade (automatic outgoing fade) against
// the deck's own transition_start_s/transition_end_s window: v = (1 - progress)^fading_factor (spec.md §4.6 table, main-deck
// fade-out row), evaluated by the shared fader.Fader (spec.md §4.3).
func (d *Deck) fadeMultiplierLocked() float64 {
	if d.maxFadeOutDurationS <= 0 {
		return 1
	}
	return d.fd.Value(d.positionLocked())
}

// Position returns the deck's current playback position in seconds.
func (d *Deck) Position() float64 {
	d.lock()
	defer d.unlock()
	return d.positionLocked()
}

func (d *Deck) positionLocked() float64 {
	if d.sourceRate <= 0 {
		return 0
	}
	return float64(d.sourcePosition.Load()) / d.sourceRate
}

func zero(out [][]float32) {
	for c := range out {
		for i := range out[c] {
			out[c][i] = 0
		}
	}
}

func ceilDiv(n int, deviceRate, sourceRate float64) float64 {
	v := float64(n) * sourceRate / deviceRate
	if v != float64(int(v)) {
		return float64(int(v)) + 1
	}
	return v
}

// resample converts src (planar, sourceRate) into dst (planar, arbitrary
// length) via simple linear interpolation, duplicating a mono source to
// every output channel (spec.md §4.5 step 3: "mono -> duplicate to
// stereo").
func resample(src [][]float32, dst [][]float32, srcChannels int, dstLen int) {
	if srcChannels == 0 || len(src[0]) == 0 {
		zero(dst)
		return
	}
	srcLen := len(src[0])
	ratio := float64(srcLen) / float64(dstLen)
	for c := range dst {
		sc := c
		if sc >= srcChannels {
			sc = 0 // duplicate mono (or fewer-channel) source across extra output channels
		}
		for i := 0; i < dstLen; i++ {
			pos := float64(i) * ratio
			i0 := int(pos)
			if i0 >= srcLen-1 {
				dst[c][i] = src[sc][srcLen-1]
				continue
			}
			frac := float32(pos - float64(i0))
			dst[c][i] = src[sc][i0]*(1-frac) + src[sc][i0+1]*frac
		}
	}
}
