package synth

import (
	"fmt"

	"github.com/cwbudde/algo-soundscape/classify"
)

// Voice is the per-category timbre.
type Voice struct {
	BaseFrequency float64   // Hz
	Harmonics     []float64 // amplitude of harmonic k+1
	NoiseLevel    float64
}

// StyleSettings adjusts a voice for a mood.
type StyleSettings struct {
	ModulationDepth float64
	ModulationRate  float64 // Hz
	ReverbMix       float64
	FrequencyScale  float64 // multiplies Voice.BaseFrequency
	NoiseScale      float64 // multiplies Voice.NoiseLevel
}

// Table maps (category, style) pairs to generation parameters.
type Table struct {
	Voices [classify.NumCategories]Voice
	Styles [NumStyles]StyleSettings

	AttackS  float64
	ReleaseS float64
}

// Params is the resolved parameter set for one synthesis call.
type Params struct {
	BaseFrequency   float64
	Harmonics       []float64
	ModulationDepth float64
	ModulationRate  float64
	NoiseLevel      float64
	AttackS         float64
	ReleaseS        float64
	ReverbMix       float64
}

// DefaultTable returns the stock voice and style table.
func DefaultTable() *Table {
	t := &Table{AttackS: 2.0, ReleaseS: 3.0}

	t.Voices[classify.Wind] = Voice{BaseFrequency: 110, Harmonics: []float64{1.0, 0.3, 0.1}, NoiseLevel: 0.3}
	t.Voices[classify.Bird] = Voice{BaseFrequency: 440, Harmonics: []float64{1.0, 0.7, 0.5, 0.3}, NoiseLevel: 0.05}
	t.Voices[classify.Rain] = Voice{BaseFrequency: 165, Harmonics: []float64{1.0, 0.4, 0.2}, NoiseLevel: 0.4}
	t.Voices[classify.Stream] = Voice{BaseFrequency: 196, Harmonics: []float64{1.0, 0.5, 0.3, 0.15}, NoiseLevel: 0.25}
	t.Voices[classify.Leaves] = Voice{BaseFrequency: 247, Harmonics: []float64{1.0, 0.6, 0.35}, NoiseLevel: 0.15}
	t.Voices[classify.Unknown] = Voice{BaseFrequency: 220, Harmonics: []float64{1.0, 0.5, 0.25}, NoiseLevel: 0.1}

	t.Styles[Gentle] = StyleSettings{ModulationDepth: 0.2, ModulationRate: 0.3, ReverbMix: 0.5, FrequencyScale: 1, NoiseScale: 1}
	t.Styles[Meditation] = StyleSettings{ModulationDepth: 0.15, ModulationRate: 0.1, ReverbMix: 0.6, FrequencyScale: 0.5, NoiseScale: 1}
	t.Styles[Nature] = StyleSettings{ModulationDepth: 0.35, ModulationRate: 0.4, ReverbMix: 0.3, FrequencyScale: 1, NoiseScale: 1.5}
	t.Styles[DeepSleep] = StyleSettings{ModulationDepth: 0.1, ModulationRate: 0.05, ReverbMix: 0.7, FrequencyScale: 0.25, NoiseScale: 1}
	return t
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	out := *t
	for i := range out.Voices {
		out.Voices[i].Harmonics = append([]float64(nil), t.Voices[i].Harmonics...)
	}
	return &out
}

func (t *Table) Validate() error {
	if t.AttackS < 0 || t.ReleaseS < 0 {
		return fmt.Errorf("attack and release must be >= 0")
	}
	for i, v := range t.Voices {
		c := classify.Category(i)
		if v.BaseFrequency <= 0 {
			return fmt.Errorf("%s: base frequency must be > 0", c)
		}
		if len(v.Harmonics) == 0 {
			return fmt.Errorf("%s: at least one harmonic required", c)
		}
		if v.NoiseLevel < 0 {
			return fmt.Errorf("%s: noise level must be >= 0", c)
		}
	}
	for i, s := range t.Styles {
		st := Style(i)
		if s.ModulationDepth < 0 || s.ModulationRate < 0 {
			return fmt.Errorf("%s: modulation depth and rate must be >= 0", st)
		}
		if s.ReverbMix < 0 || s.ReverbMix > 1 {
			return fmt.Errorf("%s: reverb mix must be in [0,1]", st)
		}
		if s.FrequencyScale <= 0 {
			return fmt.Errorf("%s: frequency scale must be > 0", st)
		}
		if s.NoiseScale < 0 {
			return fmt.Errorf("%s: noise scale must be >= 0", st)
		}
	}
	return nil
}

// Resolve derives the generation parameters for a category and style.
func (t *Table) Resolve(c classify.Category, s Style) (Params, error) {
	if !c.Valid() {
		return Params{}, fmt.Errorf("invalid category %d", int(c))
	}
	if !s.Valid() {
		return Params{}, fmt.Errorf("invalid style %d", int(s))
	}
	v := t.Voices[c]
	st := t.Styles[s]
	return Params{
		BaseFrequency:   v.BaseFrequency * st.FrequencyScale,
		Harmonics:       append([]float64(nil), v.Harmonics...),
		ModulationDepth: st.ModulationDepth,
		ModulationRate:  st.ModulationRate,
		NoiseLevel:      v.NoiseLevel * st.NoiseScale,
		AttackS:         t.AttackS,
		ReleaseS:        t.ReleaseS,
		ReverbMix:       st.ReverbMix,
	}, nil
}
