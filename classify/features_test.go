package classify

import (
	"math"
	"math/rand"
	"testing"
)

func alternating(n int, amp float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = amp
		} else {
			out[i] = -amp
		}
	}
	return out
}

func sine(n int, freq float64, amp float64, sampleRate int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestExtractEmptyWindowIsZero(t *testing.T) {
	if got := Extract(nil); got != (Features{}) {
		t.Fatalf("Extract(nil) = %+v, want zero", got)
	}
}

func TestExtractSilentWindow(t *testing.T) {
	f := Extract(make([]float32, 2048))
	if f.ZeroCrossingRate != 0 || f.RMS != 0 || f.HighFrequencyRatio != 0 || f.SpectralFlatness != 0 || f.SpectralCentroid != 0 {
		t.Fatalf("unexpected features for silence: %+v", f)
	}
}

func TestExtractZeroCrossingRule(t *testing.T) {
	tests := []struct {
		name   string
		window []float32
		want   float64
	}{
		{"negative to zero", []float32{-1, 0}, 0.5},
		{"zero to negative", []float32{0, -1}, 0.5},
		{"zeros", []float32{0, 0, 0, 0}, 0},
		{"mixed", []float32{-1, 0, 0, -1}, 0.5},
		{"positive run", []float32{0.2, 0.4, 0.1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.window).ZeroCrossingRate
			if math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("zcr = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestExtractAlternatingSignal(t *testing.T) {
	const n = 1000
	f := Extract(alternating(n, 0.5))
	if want := float64(n-1) / n; math.Abs(f.ZeroCrossingRate-want) > 1e-12 {
		t.Fatalf("zcr = %f, want %f", f.ZeroCrossingRate, want)
	}
	if math.Abs(f.RMS-0.5) > 1e-9 {
		t.Fatalf("rms = %f, want 0.5", f.RMS)
	}
	if f.HighFrequencyRatio != 1 {
		t.Fatalf("high frequency ratio = %f, want clamped 1", f.HighFrequencyRatio)
	}
	// The centroid proxy is derived from the unclamped ratio (~2.0).
	if f.SpectralCentroid < 1900 || f.SpectralCentroid > 2100 {
		t.Fatalf("centroid proxy = %f, want ~2000", f.SpectralCentroid)
	}
	if math.Abs(f.SpectralFlatness-1) > 1e-6 {
		t.Fatalf("flatness = %f, want 1", f.SpectralFlatness)
	}
}

func TestExtractLowSine(t *testing.T) {
	f := Extract(sine(22050, 100, 0.3, 44100))
	if f.ZeroCrossingRate > 0.01 {
		t.Fatalf("zcr = %f, want < 0.01", f.ZeroCrossingRate)
	}
	if math.Abs(f.RMS-0.3/math.Sqrt2) > 1e-3 {
		t.Fatalf("rms = %f, want %f", f.RMS, 0.3/math.Sqrt2)
	}
	if f.HighFrequencyRatio > 0.05 {
		t.Fatalf("high frequency ratio = %f, want small", f.HighFrequencyRatio)
	}
	if f.SpectralFlatness < 0.95 {
		t.Fatalf("flatness = %f, want ~1 for zero-mean sine", f.SpectralFlatness)
	}
}

func TestExtractFeaturesStayInUnitRange(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for trial := 0; trial < 40; trial++ {
		n := 1 + rng.Intn(4096)
		amp := rng.Float64() * 4
		offset := rng.Float64()*2 - 1
		w := make([]float32, n)
		for i := range w {
			w[i] = float32(offset + amp*(rng.Float64()*2-1))
		}
		f := Extract(w)
		for name, v := range map[string]float64{
			"zcr":      f.ZeroCrossingRate,
			"rms":      f.RMS,
			"hf":       f.HighFrequencyRatio,
			"flatness": f.SpectralFlatness,
		} {
			if math.IsNaN(v) || v < 0 || v > 1 {
				t.Fatalf("trial %d: %s = %f outside [0,1]", trial, name, v)
			}
		}
		if math.IsNaN(f.SpectralCentroid) || math.IsInf(f.SpectralCentroid, 0) || f.SpectralCentroid < 0 {
			t.Fatalf("trial %d: bad centroid proxy %f", trial, f.SpectralCentroid)
		}
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	w := make([]float32, 8192)
	for i := range w {
		w[i] = float32(rng.NormFloat64() * 0.2)
	}
	var e Extractor
	a := e.Extract(w)
	b := e.Extract(w)
	if a != b {
		t.Fatalf("features differ between runs: %+v vs %+v", a, b)
	}
	sa, sb := Score(a), Score(b)
	for i := range sa {
		if sa[i] != sb[i] {
			t.Fatalf("scores differ at %d: %+v vs %+v", i, sa[i], sb[i])
		}
	}
}
