package synth

import (
	"math"

	"github.com/cwbudde/algo-soundscape/dsp"
)

// Tap is one delayed, decayed echo.
type Tap struct {
	DelayMS int
	Decay   float64
}

// DefaultTaps are the reverb's fixed reflections.
var DefaultTaps = []Tap{
	{DelayMS: 30, Decay: 0.5},
	{DelayMS: 50, Decay: 0.35},
	{DelayMS: 70, Decay: 0.25},
}

// Reverb is a multi-tap delay with peak normalization.
type Reverb struct {
	Taps []Tap
	Mix  float64
}

func NewReverb(mix float64) Reverb {
	return Reverb{Taps: DefaultTaps, Mix: mix}
}

// delays returns each tap's delay in samples, truncated toward zero.
func (r Reverb) delays(sampleRate int) ([]int, int) {
	out := make([]int, len(r.Taps))
	maxDelay := 0
	for i, tap := range r.Taps {
		out[i] = tap.DelayMS * sampleRate / 1000
		if out[i] > maxDelay {
			maxDelay = out[i]
		}
	}
	return out, maxDelay
}

// Apply adds the delayed dry signal for every tap to buf in place, then
// peak-normalizes if the result exceeds 1.0. It returns buf.
func (r Reverb) Apply(buf []float32, sampleRate int) []float32 {
	delays, maxDelay := r.delays(sampleRate)
	gains := make([]float32, len(r.Taps))
	for i, tap := range r.Taps {
		gains[i] = float32(tap.Decay * r.Mix)
	}

	// The delay line holds the dry history; buf is overwritten with the
	// wet result as we go.
	dl := dsp.NewDelayLine(maxDelay)
	for i, dry := range buf {
		v := dry
		for k, d := range delays {
			if d == 0 {
				v += dry * gains[k]
			} else {
				v += dl.Read(d) * gains[k]
			}
		}
		dl.Write(dry)
		buf[i] = v
	}

	Normalize(buf)
	return buf
}

// ImpulseResponse returns the reverb as a convolution kernel: a unit dry
// impulse followed by the tap gains.
func (r Reverb) ImpulseResponse(sampleRate int) []float32 {
	delays, maxDelay := r.delays(sampleRate)
	ir := make([]float32, maxDelay+1)
	ir[0] = 1
	for i, d := range delays {
		ir[d] += float32(r.Taps[i].Decay * r.Mix)
	}
	return ir
}

// Normalize scales buf so its peak magnitude is at most 1.0 and returns the
// peak measured before scaling. Buffers already within range are untouched.
func Normalize(buf []float32) float64 {
	peak := Peak(buf)
	if peak > 1 {
		for i := range buf {
			buf[i] = float32(float64(buf[i]) / peak)
		}
	}
	return peak
}

// Peak returns the largest absolute sample value.
func Peak(buf []float32) float64 {
	peak := 0.0
	for _, v := range buf {
		if a := math.Abs(float64(v)); a > peak {
			peak = a
		}
	}
	return peak
}
