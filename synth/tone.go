package synth

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// RandSource supplies the generator's noise. *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
	Int63() int64
}

// Tone is an additive harmonic oscillator bank sharing one slow frequency
// LFO, plus uniform noise.
type Tone struct {
	harmonics []float64
	f0        float64
	depth     float64
	rate      float64
	noise     float64
}

func NewTone(p Params) *Tone {
	return &Tone{
		harmonics: append([]float64(nil), p.Harmonics...),
		f0:        p.BaseFrequency,
		depth:     p.ModulationDepth,
		rate:      p.ModulationRate,
		noise:     p.NoiseLevel,
	}
}

// Sample returns the oscillator output at t seconds. One uniform draw in
// [-1,1) is taken from rng per call; a nil rng disables noise.
func (g *Tone) Sample(t float64, rng RandSource) float64 {
	mod := 1 + g.depth*math.Sin(2*math.Pi*g.rate*t)
	phase := 2 * math.Pi * g.f0 * t * mod

	var v float64
	for k, amp := range g.harmonics {
		v += amp * math.Sin(phase*float64(k+1))
	}
	if rng != nil {
		v += g.noise * (rng.Float64()*2 - 1)
	}
	return v
}

// Render fills dst with samples offset..offset+len(dst)-1 of the track,
// shaped by env and scaled by volume.
func (g *Tone) Render(dst []float32, offset int, sampleRate int, env Envelope, volume float64, rng RandSource) {
	sr := float64(sampleRate)
	for i := range dst {
		idx := offset + i
		v := g.Sample(float64(idx)/sr, rng) * env.Gain(idx) * volume
		dst[i] = float32(dspcore.FlushDenormals(v))
	}
}
