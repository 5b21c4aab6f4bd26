package limiter

import "math"

// gainCalc is the sidechain's gain-reduction curve: the input peak (linear)
// is converted to dB, the target reduction computed against the knee'd
// threshold/ratio, then smoothed with an asymmetric attack/release
// one-pole in the dB domain, matching ReductionCalculator in the ported
// engine.
type gainCalc struct {
	params     Params
	attackA    float64 // one-pole coefficient, attack
	releaseA   float64 // one-pole coefficient, release
	current    float64 // smoothed reduction, dB (<=0)
}

func newGainCalc(p Params, sampleRate float64) gainCalc {
	return gainCalc{
		params:   p,
		attackA:  onePoleCoeff(p.AttackMs/1000, sampleRate),
		releaseA: onePoleCoeff(p.ReleaseMs/1000, sampleRate),
	}
}

// onePoleCoeff computes alpha = 1 - exp(-1/(sampleRate*timeSeconds)), the
// exact coefficient formula ported from ReductionCalculator.cpp.
func onePoleCoeff(timeSeconds, sampleRate float64) float64 {
	if timeSeconds <= 0 || sampleRate <= 0 {
		return 1
	}
	return 1 - math.Exp(-1/(sampleRate*timeSeconds))
}

// targetReductionDB computes the instantaneous (unsmoothed) reduction for
// a given input level, applying a soft knee around the threshold and an
// effectively-infinite ratio above it.
func (g *gainCalc) targetReductionDB(peakLinear float64) float64 {
	inputDB := linearToDB(peakLinear)
	threshold := g.params.ThresholdDB
	knee := g.params.KneeDB

	if knee <= 0 {
		if inputDB <= threshold {
			return 0
		}
		// Ratio treated as infinite: clamp output to threshold.
		return threshold - inputDB
	}

	kneeStart := threshold - knee/2
	kneeEnd := threshold + knee/2
	switch {
	case inputDB <= kneeStart:
		return 0
	case inputDB >= kneeEnd:
		return threshold - inputDB
	default:
		// Quadratic soft-knee blend between the two regions.
		x := (inputDB - kneeStart) / knee
		overshoot := inputDB - threshold
		return -x * x * overshoot
	}
}

// update advances the smoothed reduction toward targetReductionDB(peak) by
// one sample, using the attack coefficient when reduction is deepening and
// the release coefficient when it is recovering.
func (g *gainCalc) update(peakLinear float64) float64 {
	target := g.targetReductionDB(peakLinear)
	var alpha float64
	if target < g.current {
		alpha = g.attackA
	} else {
		alpha = g.releaseA
	}
	g.current += alpha * (target - g.current)
	return g.current
}
