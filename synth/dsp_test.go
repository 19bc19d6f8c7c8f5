package synth

import (
	"math"
	"math/rand"
	"testing"

	algofft "github.com/cwbudde/algo-fft"
)

func TestEnvelopeRamps(t *testing.T) {
	const sr = 1000
	e := NewEnvelope(10000, sr, 2.0, 3.0)
	tests := []struct {
		i    int
		want float64
	}{
		{0, 0},
		{1000, 0.5},
		{2000, 1},
		{5000, 1},
		{6999, 1},
		{9999, 0},
		{8499, 0.5},
	}
	for _, tt := range tests {
		if got := e.Gain(tt.i); math.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("Gain(%d) = %f, want %f", tt.i, got, tt.want)
		}
	}
	prev := -1.0
	for i := 0; i < 2000; i++ {
		g := e.Gain(i)
		if g < prev {
			t.Fatalf("attack not monotonic at %d", i)
		}
		prev = g
	}
}

func TestEnvelopeOverlappingRamps(t *testing.T) {
	e := NewEnvelope(100, 10, 8.0, 8.0)
	for i := 0; i < 100; i++ {
		g := e.Gain(i)
		if g < 0 || g > 1 {
			t.Fatalf("Gain(%d) = %f out of range", i, g)
		}
	}
	if e.Gain(0) != 0 || e.Gain(99) != 0 {
		t.Fatalf("edges not silent: %f %f", e.Gain(0), e.Gain(99))
	}
}

func TestToneSingleHarmonicWithoutModulation(t *testing.T) {
	g := NewTone(Params{BaseFrequency: 100, Harmonics: []float64{1}})
	for _, tm := range []float64{0, 0.0013, 0.25, 1.7} {
		want := math.Sin(2 * math.Pi * 100 * tm)
		if got := g.Sample(tm, nil); math.Abs(got-want) > 1e-12 {
			t.Fatalf("Sample(%f) = %f, want %f", tm, got, want)
		}
	}
}

func TestToneSharedModulation(t *testing.T) {
	p := Params{BaseFrequency: 50, Harmonics: []float64{1, 0.5}, ModulationDepth: 0.2, ModulationRate: 0.3}
	g := NewTone(p)
	tm := 1.234
	mod := 1 + 0.2*math.Sin(2*math.Pi*0.3*tm)
	phase := 2 * math.Pi * 50 * tm * mod
	want := math.Sin(phase) + 0.5*math.Sin(2*phase)
	if got := g.Sample(tm, nil); math.Abs(got-want) > 1e-9 {
		t.Fatalf("Sample = %f, want %f", got, want)
	}
}

func TestToneNoiseIsBoundedAndSeeded(t *testing.T) {
	g := NewTone(Params{BaseFrequency: 100, Harmonics: []float64{0}, NoiseLevel: 0.4})
	a := rand.New(rand.NewSource(3))
	b := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		va := g.Sample(float64(i)/44100, a)
		vb := g.Sample(float64(i)/44100, b)
		if va != vb {
			t.Fatalf("same seed diverged at %d", i)
		}
		if va < -0.4 || va > 0.4 {
			t.Fatalf("noise sample %f outside [-0.4,0.4]", va)
		}
	}
}

func TestReverbImpulse(t *testing.T) {
	const sr = 44100
	buf := make([]float32, 4000)
	buf[0] = 1
	NewReverb(0.5).Apply(buf, sr)

	want := map[int]float32{0: 1, 1323: 0.25, 2205: 0.175, 3087: 0.125}
	for i, v := range buf {
		w := want[i]
		if math.Abs(float64(v-w)) > 1e-6 {
			t.Fatalf("out[%d] = %f, want %f", i, v, w)
		}
	}
}

func TestReverbMatchesTapDefinition(t *testing.T) {
	const sr = 44100
	rng := rand.New(rand.NewSource(8))
	dry := make([]float32, 9000)
	for i := range dry {
		dry[i] = float32(0.1 * (rng.Float64()*2 - 1))
	}
	want := append([]float32(nil), dry...)
	for _, tap := range DefaultTaps {
		d := tap.DelayMS * sr / 1000
		for i := d; i < len(want); i++ {
			want[i] += dry[i-d] * float32(tap.Decay) * 0.6
		}
	}

	got := NewReverb(0.6).Apply(append([]float32(nil), dry...), sr)
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Fatalf("out[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestReverbMatchesConvolution(t *testing.T) {
	const sr = 44100
	r := NewReverb(0.7)
	ir := r.ImpulseResponse(sr)
	if len(ir) != 3088 || ir[0] != 1 {
		t.Fatalf("unexpected impulse response: len=%d ir[0]=%f", len(ir), ir[0])
	}

	rng := rand.New(rand.NewSource(21))
	dry := make([]float32, 6000)
	for i := range dry {
		dry[i] = float32(0.05 * (rng.Float64()*2 - 1))
	}
	conv := make([]float32, len(dry)+len(ir)-1)
	if err := algofft.ConvolveReal(conv, dry, ir); err != nil {
		t.Fatalf("ConvolveReal: %v", err)
	}
	got := r.Apply(append([]float32(nil), dry...), sr)
	for i := range got {
		if math.Abs(float64(got[i]-conv[i])) > 1e-4 {
			t.Fatalf("reverb/convolution mismatch at %d: %f vs %f", i, got[i], conv[i])
		}
	}
}

func TestReverbNormalizesPeak(t *testing.T) {
	buf := make([]float32, 5000)
	for i := range buf {
		buf[i] = 0.9
	}
	NewReverb(1).Apply(buf, 44100)
	peak := Peak(buf)
	if peak > 1 {
		t.Fatalf("peak after normalization = %f", peak)
	}
	if math.Abs(peak-1) > 1e-6 {
		t.Fatalf("expected normalized peak of 1, got %f", peak)
	}
}

func TestNormalizeLeavesQuietBuffer(t *testing.T) {
	buf := []float32{0.5, -0.25, 0.75}
	if peak := Normalize(buf); peak != 0.75 {
		t.Fatalf("peak = %f", peak)
	}
	if buf[2] != 0.75 {
		t.Fatalf("quiet buffer was scaled")
	}
}
