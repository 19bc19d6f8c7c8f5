package classify

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	rmsFloor      = 0.001
	rmsPowerFloor = 0.0001
)

// Features is the scalar feature vector of one sample window.
type Features struct {
	ZeroCrossingRate float64 `json:"zero_crossing_rate"`
	// SpectralCentroid is a proxy: the unclamped high-frequency ratio * 1000.
	SpectralCentroid   float64 `json:"spectral_centroid"`
	RMS                float64 `json:"rms"`
	SpectralFlatness   float64 `json:"spectral_flatness"`
	HighFrequencyRatio float64 `json:"high_frequency_ratio"`
}

// Extractor computes Features. It keeps a scratch buffer between calls and
// must not be shared between goroutines.
type Extractor struct {
	scratch []float64
}

// Extract computes the features of window. An empty window yields the zero
// vector.
func (e *Extractor) Extract(window []float32) Features {
	n := len(window)
	if n == 0 {
		return Features{}
	}
	if cap(e.scratch) < n {
		e.scratch = make([]float64, n)
	}
	x := e.scratch[:n]
	for i, s := range window {
		x[i] = float64(s)
	}
	fn := float64(n)

	crossings := 0
	for i := 1; i < n; i++ {
		prev, cur := x[i-1], x[i]
		if (prev < 0 && cur >= 0) || (prev >= 0 && cur < 0) {
			crossings++
		}
	}
	zcr := float64(crossings) / fn

	rms := math.Sqrt(floats.Dot(x, x) / fn)

	// First-difference high-pass, history seeded with 0.
	var hpEnergy, prev float64
	for _, v := range x {
		d := v - prev
		hpEnergy += d * d
		prev = v
	}
	hfRatio := math.Sqrt(hpEnergy/fn) / math.Max(rms, rmsFloor)

	_, variance := stat.PopMeanVariance(x, nil)
	flatness := clamp01(variance / math.Max(rms*rms, rmsPowerFloor))

	return Features{
		ZeroCrossingRate:   clamp01(zcr),
		SpectralCentroid:   hfRatio * 1000,
		RMS:                clamp01(rms),
		SpectralFlatness:   flatness,
		HighFrequencyRatio: clamp01(hfRatio),
	}
}

// Extract computes the features of window with a throwaway Extractor.
func Extract(window []float32) Features {
	var e Extractor
	return e.Extract(window)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
