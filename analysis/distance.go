package analysis

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-approx"
	algofft "github.com/cwbudde/algo-fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/cwbudde/algo-soundscape/classify"
)

// Metrics contains distance and similarity measurements between two
// soundscapes. Noise-driven material is compared through envelopes,
// long-term spectra and classifier features rather than sample-wise error.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`

	EnvelopeRMSEDB  float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB  float64 `json:"spectral_rmse_db"`
	FeatureDistance float64 `json:"feature_distance"`

	ReferenceCategory classify.Category `json:"reference_category"`
	CandidateCategory classify.Category `json:"candidate_category"`
	CategoryMatch     bool              `json:"category_match"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

const (
	envFrame     = 1024
	envHop       = 512
	spectrumSize = 4096
	spectrumHop  = 2048
)

// Compare returns objective distance metrics and a combined score in [0,1]
// (0 = identical).
func Compare(reference []float64, candidate []float64, sampleRate int) Metrics {
	m := Metrics{
		SampleRate:        sampleRate,
		ReferenceFrames:   len(reference),
		CandidateFrames:   len(candidate),
		ReferenceCategory: classify.Unknown,
		CandidateCategory: classify.Unknown,
	}
	if sampleRate <= 0 || len(reference) == 0 || len(candidate) == 0 {
		m.Score = 1.0
		return m
	}

	ref := trimLeadingSilence(reference, 1e-6)
	cand := trimLeadingSilence(candidate, 1e-6)
	if len(ref) == 0 || len(cand) == 0 {
		m.Score = 1.0
		return m
	}

	n := min(len(ref), len(cand))
	if n < 512 {
		m.Score = 1.0
		return m
	}
	ref = normalizeRMS(ref[:n], 0.1)
	cand = normalizeRMS(cand[:n], 0.1)
	m.AlignedFrames = n

	refEnv := rmsEnvelope(ref, envFrame, envHop)
	candEnv := rmsEnvelope(cand, envFrame, envHop)
	if envN := min(len(refEnv), len(candEnv)); envN > 0 {
		envDiff := make([]float64, envN)
		for i := 0; i < envN; i++ {
			envDiff[i] = linToDB(refEnv[i]) - linToDB(candEnv[i])
		}
		m.EnvelopeRMSEDB = rms1(envDiff)
	}

	m.SpectralRMSEDB = spectralRMSEDB(ref, cand)

	refProfile := profile(ref, sampleRate)
	candProfile := profile(cand, sampleRate)
	m.FeatureDistance = featureDistance(refProfile.features, candProfile.features)
	m.ReferenceCategory = refProfile.category
	m.CandidateCategory = candProfile.category
	m.CategoryMatch = m.ReferenceCategory == m.CandidateCategory

	envNorm := clamp01(m.EnvelopeRMSEDB / 30.0)
	specNorm := clamp01(m.SpectralRMSEDB / 30.0)
	featNorm := clamp01(m.FeatureDistance / 0.5)
	catNorm := 0.0
	if !m.CategoryMatch {
		catNorm = 1
	}
	m.Score = clamp01(0.25*envNorm + 0.35*specNorm + 0.25*featNorm + 0.15*catNorm)
	m.Similarity = clamp01(float64(approx.FastExp(float32(-4.0 * m.Score))))
	return m
}

type signalProfile struct {
	features classify.Features
	category classify.Category
}

// profile averages classifier features over one-second frames and takes the
// majority decision.
func profile(x []float64, sampleRate int) signalProfile {
	frame := min(sampleRate, len(x))
	nFrames := len(x) / frame
	ext := &classify.Extractor{}
	votes := classify.NewSmoother(nFrames)
	buf := make([]float32, frame)

	var avg classify.Features
	for i := 0; i < nFrames; i++ {
		for j := range buf {
			buf[j] = float32(x[i*frame+j])
		}
		f := ext.Extract(buf)
		avg.ZeroCrossingRate += f.ZeroCrossingRate
		avg.SpectralFlatness += f.SpectralFlatness
		avg.HighFrequencyRatio += f.HighFrequencyRatio
		avg.SpectralCentroid += f.SpectralCentroid
		avg.RMS += f.RMS
		cat, _ := classify.Decide(classify.Score(f), classify.DefaultThreshold)
		votes.Observe(cat)
	}
	scale := 1 / float64(nFrames)
	avg.ZeroCrossingRate *= scale
	avg.SpectralFlatness *= scale
	avg.HighFrequencyRatio *= scale
	avg.SpectralCentroid *= scale
	avg.RMS *= scale
	return signalProfile{features: avg, category: votes.Resolve()}
}

// featureDistance is the RMS difference of the level-independent features.
func featureDistance(a, b classify.Features) float64 {
	d := []float64{
		a.ZeroCrossingRate - b.ZeroCrossingRate,
		a.SpectralFlatness - b.SpectralFlatness,
		a.HighFrequencyRatio - b.HighFrequencyRatio,
	}
	return rms1(d)
}

func trimLeadingSilence(x []float64, threshold float64) []float64 {
	for i := 0; i < len(x); i++ {
		if math.Abs(x[i]) > threshold {
			return x[i:]
		}
	}
	return nil
}

func normalizeRMS(x []float64, target float64) []float64 {
	if len(x) == 0 {
		return x
	}
	r := rms1(x)
	if r <= 1e-12 {
		return append([]float64(nil), x...)
	}
	g := target / r
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] * g
	}
	return out
}

func rms1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func rmsEnvelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms1(x[start : start+frame])
	}
	return out
}

// spectralRMSEDB compares the long-term average magnitude spectra of a and
// b in dB.
func spectralRMSEDB(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	if n < 512 {
		return 0
	}
	size := spectrumSize
	for size > n {
		size /= 2
	}
	avgA := averageSpectrum(a[:n], size)
	avgB := averageSpectrum(b[:n], size)
	bins := size / 2
	var sum float64
	for k := 1; k < bins; k++ {
		d := linToDB(avgA[k]) - linToDB(avgB[k])
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

// averageSpectrum is the mean Hann-windowed STFT magnitude over every full
// frame of x.
func averageSpectrum(x []float64, size int) []float64 {
	hann := window.Hann(size)
	bins := size / 2
	avg := make([]float64, bins)
	buf := make([]float64, size)
	hop := min(spectrumHop, size/2)

	plan, err := algofft.NewPlanReal64(size)
	spec := make([]complex128, size/2+1)
	frames := 0
	for pos := 0; pos+size <= len(x); pos += hop {
		for i := range buf {
			buf[i] = x[pos+i] * hann[i]
		}
		if err == nil {
			plan.Forward(spec, buf)
			for k := 1; k < bins; k++ {
				avg[k] += cmplx.Abs(spec[k])
			}
		} else {
			for k := 1; k < bins; k++ {
				avg[k] += dftBinMag(buf, k)
			}
		}
		frames++
	}
	if frames > 0 {
		scale := 1 / float64(frames)
		for k := range avg {
			avg[k] *= scale
		}
	}
	return avg
}

func dftBinMag(x []float64, bin int) float64 {
	n := len(x)
	var re, im float64
	for i := 0; i < n; i++ {
		phi := -2.0 * math.Pi * float64(bin*i) / float64(n)
		re += x[i] * math.Cos(phi)
		im += x[i] * math.Sin(phi)
	}
	return math.Hypot(re, im)
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
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
