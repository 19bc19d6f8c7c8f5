package synth

// Envelope is a linear attack/release fade over a fixed-length buffer.
type Envelope struct {
	total   int
	attack  int
	release int
}

// NewEnvelope builds the fade for a total-sample buffer. Ramp lengths are
// truncated to whole samples.
func NewEnvelope(total int, sampleRate int, attackS, releaseS float64) Envelope {
	e := Envelope{
		total:   total,
		attack:  int(attackS * float64(sampleRate)),
		release: int(releaseS * float64(sampleRate)),
	}
	if e.attack < 0 {
		e.attack = 0
	}
	if e.release < 0 {
		e.release = 0
	}
	return e
}

// Gain returns the envelope value for sample i: 0->1 over the attack,
// 1->0 over the release, 1 in between. Overlapping ramps take the lower
// value.
func (e Envelope) Gain(i int) float64 {
	if i < 0 || i >= e.total {
		return 0
	}
	g := 1.0
	if i < e.attack {
		g = float64(i) / float64(e.attack)
	}
	if remaining := e.total - 1 - i; remaining < e.release {
		if r := float64(remaining) / float64(e.release); r < g {
			g = r
		}
	}
	return g
}

// Apply multiplies buf by the envelope and volume in place.
func (e Envelope) Apply(buf []float32, volume float64) {
	for i := range buf {
		buf[i] = float32(float64(buf[i]) * e.Gain(i) * volume)
	}
}
