// Package health combines color metrics and growth behaviour into a
// single 0-100 score, and flags overgrowth against a physical-area
// threshold. All functions are pure.
package health

import "math"

// Weights configures the composite score: relative weights for the
// three components and the reference values that map "perfectly
// healthy" onto 1.0.
type Weights struct {
	Greenness  float64
	Saturation float64
	Growth     float64

	HealthyGreennessRef  float64
	HealthySaturationRef float64
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Greenness:            0.4,
		Saturation:           0.3,
		Growth:               0.3,
		HealthyGreennessRef:  0.45,
		HealthySaturationRef: 0.55,
	}
}

// Score computes the composite health score in [0, 100], rounded to
// two decimals.
//
// Greenness maps linearly from [-1, HealthyGreennessRef] onto [0, 1];
// saturation from [0, HealthySaturationRef]. The growth component is
// neutral 0.5 shifted by 0.1 per unit of growth rate; when no rate is
// known the previous score stands in, and the very first measurement
// scores neutral.
func Score(greennessIndex, meanSaturation float64, growthRate, previousHealth *float64, w Weights) float64 {
	greennessNorm := clamp((greennessIndex+1.0)/(w.HealthyGreennessRef+1.0), 0, 1)

	var satNorm float64
	if w.HealthySaturationRef > 0 {
		satNorm = clamp(meanSaturation/w.HealthySaturationRef, 0, 1)
	}

	var growthNorm float64
	switch {
	case growthRate != nil:
		if *growthRate >= 0 {
			growthNorm = math.Min(1.0, 0.5+*growthRate*0.1)
		} else {
			growthNorm = math.Max(0.0, 0.5+*growthRate*0.1)
		}
	case previousHealth != nil:
		growthNorm = *previousHealth / 100.0
	default:
		growthNorm = 0.5
	}

	totalWeight := w.Greenness + w.Saturation + w.Growth
	raw := (w.Greenness*greennessNorm + w.Saturation*satNorm + w.Growth*growthNorm) / totalWeight
	score := clamp(raw*100.0, 0, 100)

	return math.Round(score*100) / 100
}

// IsOvergrown reports whether the measured physical area exceeds the
// threshold. A missing area is never overgrown.
func IsOvergrown(areaMM2 *float64, thresholdMM2 float64) bool {
	return areaMM2 != nil && *areaMM2 > thresholdMM2
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
