package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Band is a named frequency range.
type Band struct {
	Name string  `json:"name"`
	LoHz float64 `json:"lo_hz"`
	HiHz float64 `json:"hi_hz"`
}

// DefaultBands splits the audible range into seven regions.
var DefaultBands = []Band{
	{"sub-bass", 20, 100},
	{"bass", 100, 300},
	{"low-mid", 300, 1000},
	{"mid", 1000, 3000},
	{"hi-mid", 3000, 6000},
	{"high", 6000, 12000},
	{"air", 12000, 20000},
}

// BandEnergy is the mean power of one band relative to full scale.
type BandEnergy struct {
	Band
	EnergyDB float64 `json:"energy_db"`
}

// Spectrum summarizes the long-term spectrum of a signal.
type Spectrum struct {
	SampleRate int          `json:"sample_rate"`
	Frames     int          `json:"frames"`
	CentroidHz float64      `json:"centroid_hz"`
	RolloffHz  float64      `json:"rolloff_hz"` // 85% of energy lies below
	PeakHz     float64      `json:"peak_hz"`
	Flatness   float64      `json:"flatness"` // 1 = white
	Bands      []BandEnergy `json:"bands"`
}

// Summarize computes the averaged Hann-windowed power spectrum of x and
// reduces it to a few descriptors.
func Summarize(x []float64, sampleRate int) Spectrum {
	s := Spectrum{SampleRate: sampleRate}
	if sampleRate <= 0 || len(x) < 64 {
		return s
	}
	size := spectrumSize
	for size > len(x) {
		size /= 2
	}
	power := averagePower(x, size, &s.Frames)
	fft := fourier.NewFFT(size)
	binHz := func(k int) float64 { return fft.Freq(k) * float64(sampleRate) }

	total := floats.Sum(power[1:])
	if total <= 0 {
		s.Bands = bandEnergies(power, binHz, sampleRate)
		return s
	}

	var weighted, logSum float64
	peak := 1
	for k := 1; k < len(power); k++ {
		weighted += binHz(k) * power[k]
		logSum += math.Log(math.Max(power[k], 1e-24))
		if power[k] > power[peak] {
			peak = k
		}
	}
	s.CentroidHz = weighted / total
	s.PeakHz = binHz(peak)

	var acc float64
	for k := 1; k < len(power); k++ {
		acc += power[k]
		if acc >= 0.85*total {
			s.RolloffHz = binHz(k)
			break
		}
	}

	bins := float64(len(power) - 1)
	s.Flatness = clamp01(math.Exp(logSum/bins) / (total / bins))
	s.Bands = bandEnergies(power, binHz, sampleRate)
	return s
}

func averagePower(x []float64, size int, frames *int) []float64 {
	fft := fourier.NewFFT(size)
	hann := window.Hann(size)
	coeffs := make([]complex128, size/2+1)
	buf := make([]float64, size)
	power := make([]float64, size/2+1)
	n := 0
	for pos := 0; pos+size <= len(x); pos += size / 2 {
		for i := range buf {
			buf[i] = x[pos+i] * hann[i]
		}
		fft.Coefficients(coeffs, buf)
		for k, c := range coeffs {
			a := cmplx.Abs(c)
			power[k] += a * a
		}
		n++
	}
	if n > 0 {
		floats.Scale(1/float64(n), power)
	}
	*frames = n
	return power
}

func bandEnergies(power []float64, binHz func(int) float64, sampleRate int) []BandEnergy {
	nyquist := float64(sampleRate) / 2
	out := make([]BandEnergy, 0, len(DefaultBands))
	for _, b := range DefaultBands {
		if b.LoHz >= nyquist {
			continue
		}
		var sum float64
		cnt := 0
		for k := 1; k < len(power); k++ {
			f := binHz(k)
			if f >= b.LoHz && f < b.HiHz {
				sum += power[k]
				cnt++
			}
		}
		e := BandEnergy{Band: b, EnergyDB: -240}
		if cnt > 0 {
			e.EnergyDB = 10 * math.Log10(math.Max(sum/float64(cnt), 1e-24))
		}
		out = append(out, e)
	}
	return out
}
