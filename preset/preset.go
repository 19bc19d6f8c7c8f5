package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-soundscape/classify"
	"github.com/cwbudde/algo-soundscape/synth"
)

// File is the on-disk schema for soundscape presets. Every field is
// optional; omitted values keep the defaults.
type File struct {
	MasterVolume *float64                `json:"master_volume,omitempty" yaml:"master_volume,omitempty"`
	AttackS      *float64                `json:"attack_s,omitempty" yaml:"attack_s,omitempty"`
	ReleaseS     *float64                `json:"release_s,omitempty" yaml:"release_s,omitempty"`
	Categories   map[string]VoiceSetting `json:"categories,omitempty" yaml:"categories,omitempty"`
	Styles       map[string]StyleSetting `json:"styles,omitempty" yaml:"styles,omitempty"`
}

// VoiceSetting is a partial per-category override.
type VoiceSetting struct {
	BaseFrequency *float64  `json:"base_frequency,omitempty" yaml:"base_frequency,omitempty"`
	Harmonics     []float64 `json:"harmonics,omitempty" yaml:"harmonics,omitempty"`
	NoiseLevel    *float64  `json:"noise_level,omitempty" yaml:"noise_level,omitempty"`
}

// StyleSetting is a partial per-style override.
type StyleSetting struct {
	ModulationDepth *float64 `json:"modulation_depth,omitempty" yaml:"modulation_depth,omitempty"`
	ModulationRate  *float64 `json:"modulation_rate,omitempty" yaml:"modulation_rate,omitempty"`
	ReverbMix       *float64 `json:"reverb_mix,omitempty" yaml:"reverb_mix,omitempty"`
	FrequencyScale  *float64 `json:"frequency_scale,omitempty" yaml:"frequency_scale,omitempty"`
	NoiseScale      *float64 `json:"noise_scale,omitempty" yaml:"noise_scale,omitempty"`
}

// Preset is a loaded preset: the merged parameter table plus the optional
// volume override.
type Preset struct {
	Table        *synth.Table
	MasterVolume float64 // 0 = not set
}

// Load reads a JSON or YAML preset (chosen by extension) and applies it on
// top of the default table.
func Load(path string) (*Preset, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	t := synth.DefaultTable()
	if err := ApplyFile(t, f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p := &Preset{Table: t}
	if f.MasterVolume != nil {
		if *f.MasterVolume <= 0 || *f.MasterVolume > 1 {
			return nil, fmt.Errorf("%s: master_volume must be in (0,1]", path)
		}
		p.MasterVolume = *f.MasterVolume
	}
	return p, nil
}

// ReadFile parses a preset file without applying it.
func ReadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(b, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &f)
	default:
		return nil, fmt.Errorf("unsupported preset extension %q (use .json, .yaml or .yml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// ApplyFile applies a parsed preset file onto an existing table.
func ApplyFile(dst *synth.Table, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination table")
	}
	if f == nil {
		return nil
	}

	if f.AttackS != nil {
		if *f.AttackS < 0 {
			return fmt.Errorf("attack_s must be >= 0")
		}
		dst.AttackS = *f.AttackS
	}
	if f.ReleaseS != nil {
		if *f.ReleaseS < 0 {
			return fmt.Errorf("release_s must be >= 0")
		}
		dst.ReleaseS = *f.ReleaseS
	}

	for _, k := range sortedKeys(f.Categories) {
		c, err := classify.ParseCategory(k)
		if err != nil {
			return fmt.Errorf("invalid categories key %q", k)
		}
		if err := applyVoice(&dst.Voices[c], f.Categories[k]); err != nil {
			return fmt.Errorf("categories[%s].%w", c, err)
		}
	}
	for _, k := range sortedKeys(f.Styles) {
		s, err := synth.ParseStyle(k)
		if err != nil {
			return fmt.Errorf("invalid styles key %q", k)
		}
		if err := applyStyle(&dst.Styles[s], f.Styles[k]); err != nil {
			return fmt.Errorf("styles[%s].%w", s, err)
		}
	}
	return nil
}

func applyVoice(v *synth.Voice, o VoiceSetting) error {
	if o.BaseFrequency != nil {
		if *o.BaseFrequency <= 0 {
			return fmt.Errorf("base_frequency must be > 0")
		}
		v.BaseFrequency = *o.BaseFrequency
	}
	if o.Harmonics != nil {
		if len(o.Harmonics) == 0 {
			return fmt.Errorf("harmonics must not be empty")
		}
		v.Harmonics = append([]float64(nil), o.Harmonics...)
	}
	if o.NoiseLevel != nil {
		if *o.NoiseLevel < 0 {
			return fmt.Errorf("noise_level must be >= 0")
		}
		v.NoiseLevel = *o.NoiseLevel
	}
	return nil
}

func applyStyle(s *synth.StyleSettings, o StyleSetting) error {
	if o.ModulationDepth != nil {
		if *o.ModulationDepth < 0 {
			return fmt.Errorf("modulation_depth must be >= 0")
		}
		s.ModulationDepth = *o.ModulationDepth
	}
	if o.ModulationRate != nil {
		if *o.ModulationRate < 0 {
			return fmt.Errorf("modulation_rate must be >= 0")
		}
		s.ModulationRate = *o.ModulationRate
	}
	if o.ReverbMix != nil {
		if *o.ReverbMix < 0 || *o.ReverbMix > 1 {
			return fmt.Errorf("reverb_mix must be in [0,1]")
		}
		s.ReverbMix = *o.ReverbMix
	}
	if o.FrequencyScale != nil {
		if *o.FrequencyScale <= 0 {
			return fmt.Errorf("frequency_scale must be > 0")
		}
		s.FrequencyScale = *o.FrequencyScale
	}
	if o.NoiseScale != nil {
		if *o.NoiseScale < 0 {
			return fmt.Errorf("noise_scale must be >= 0")
		}
		s.NoiseScale = *o.NoiseScale
	}
	return nil
}

// FromTable builds a complete preset file describing t.
func FromTable(t *synth.Table, masterVolume float64) *File {
	f := &File{
		AttackS:    ptr(t.AttackS),
		ReleaseS:   ptr(t.ReleaseS),
		Categories: make(map[string]VoiceSetting, classify.NumCategories),
		Styles:     make(map[string]StyleSetting, synth.NumStyles),
	}
	if masterVolume > 0 {
		f.MasterVolume = ptr(masterVolume)
	}
	for _, c := range classify.Categories() {
		v := t.Voices[c]
		f.Categories[c.String()] = VoiceSetting{
			BaseFrequency: ptr(v.BaseFrequency),
			Harmonics:     append([]float64(nil), v.Harmonics...),
			NoiseLevel:    ptr(v.NoiseLevel),
		}
	}
	for _, s := range synth.Styles() {
		st := t.Styles[s]
		f.Styles[s.String()] = StyleSetting{
			ModulationDepth: ptr(st.ModulationDepth),
			ModulationRate:  ptr(st.ModulationRate),
			ReverbMix:       ptr(st.ReverbMix),
			FrequencyScale:  ptr(st.FrequencyScale),
			NoiseScale:      ptr(st.NoiseScale),
		}
	}
	return f
}

// Save writes t as a complete preset, JSON or YAML by extension.
func Save(path string, t *synth.Table, masterVolume float64) error {
	f := FromTable(t, masterVolume)
	var (
		b   []byte
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		b, err = json.MarshalIndent(f, "", "  ")
		b = append(b, '\n')
	case ".yaml", ".yml":
		b, err = yaml.Marshal(f)
	default:
		return fmt.Errorf("unsupported preset extension %q (use .json, .yaml or .yml)", ext)
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ptr(v float64) *float64 { return &v }
