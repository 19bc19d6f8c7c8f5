package classify

import "math"

// DefaultThreshold is the acceptance floor a category score must exceed.
const DefaultThreshold = 0.3

// CategoryScore is the confidence assigned to one category.
type CategoryScore struct {
	Category Category `json:"category"`
	Score    float64  `json:"score"`
}

type formula func(hf, zcr, rms, flat float64) float64

var formulas = [...]struct {
	category Category
	score    formula
}{
	{Wind, func(hf, zcr, rms, flat float64) float64 {
		return 0.4*(1-hf) + 0.3*(1-zcr*10) + 0.3*flat
	}},
	{Bird, func(hf, zcr, rms, flat float64) float64 {
		return 0.4*hf + 0.3*(zcr*5) + 0.3*(1-flat)
	}},
	{Rain, func(hf, zcr, rms, flat float64) float64 {
		return 0.5*flat + 0.3*(0.5-math.Abs(rms-0.3)) + 0.2*hf
	}},
	{Stream, func(hf, zcr, rms, flat float64) float64 {
		return 0.4*(0.5-math.Abs(hf-0.3)) + 0.3*flat + 0.3*rms
	}},
	{Leaves, func(hf, zcr, rms, flat float64) float64 {
		return 0.4*(0.5-math.Abs(zcr*10-0.5)) + 0.3*hf + 0.3*(1-rms*2)
	}},
}

// Score evaluates every scored category against f, in evaluation order
// (wind, bird, rain, stream, leaves). Each score is clamped to [0,1].
func Score(f Features) []CategoryScore {
	out := make([]CategoryScore, len(formulas))
	for i, fm := range formulas {
		v := fm.score(f.HighFrequencyRatio, f.ZeroCrossingRate, f.RMS, f.SpectralFlatness)
		out[i] = CategoryScore{Category: fm.category, Score: clamp01(v)}
	}
	return out
}

// Decide returns the highest-scoring category whose score is strictly above
// threshold; ties go to the earliest entry. When nothing clears the floor
// the result is Unknown with confidence threshold.
func Decide(scores []CategoryScore, threshold float64) (Category, float64) {
	best, bestScore := Unknown, threshold
	for _, s := range scores {
		if s.Score > bestScore {
			best, bestScore = s.Category, s.Score
		}
	}
	return best, bestScore
}

// Decision is the instantaneous classification of one window.
type Decision struct {
	Category   Category        `json:"category"`
	Confidence float64         `json:"confidence"`
	Silent     bool            `json:"silent"`
	Features   Features        `json:"features"`
	Scores     []CategoryScore `json:"scores"`
}

// Classify runs feature extraction, scoring and the default decision rule
// over a single window, without smoothing.
func Classify(window []float32) Decision {
	return decide(Extract(window), DefaultThreshold, DefaultSilenceRMS)
}

func decide(f Features, threshold, silenceRMS float64) Decision {
	d := Decision{Features: f, Scores: Score(f)}
	if f.RMS < silenceRMS {
		d.Category, d.Confidence, d.Silent = Unknown, threshold, true
		return d
	}
	d.Category, d.Confidence = Decide(d.Scores, threshold)
	return d
}
