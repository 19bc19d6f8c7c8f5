package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-soundscape/classify"
	"github.com/cwbudde/algo-soundscape/synth"
)

func writePreset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write preset: %v", err)
	}
	return path
}

func TestLoadJSONAppliesGlobalAndOverrides(t *testing.T) {
	path := writePreset(t, "preset.json", `{
  "master_volume": 0.5,
  "attack_s": 1.5,
  "categories": {
    "Wind": {"base_frequency": 98, "harmonics": [1, 0.2]}
  },
  "styles": {
    "deep-sleep": {"reverb_mix": 0.9}
  }
}`)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.MasterVolume != 0.5 {
		t.Fatalf("master volume = %f", p.MasterVolume)
	}
	if p.Table.AttackS != 1.5 || p.Table.ReleaseS != 3.0 {
		t.Fatalf("envelope = %f/%f", p.Table.AttackS, p.Table.ReleaseS)
	}
	w := p.Table.Voices[classify.Wind]
	if w.BaseFrequency != 98 || len(w.Harmonics) != 2 || w.NoiseLevel != 0.3 {
		t.Fatalf("wind voice = %+v", w)
	}
	if got := p.Table.Styles[synth.DeepSleep]; got.ReverbMix != 0.9 || got.FrequencyScale != 0.25 {
		t.Fatalf("deep sleep style = %+v", got)
	}
	if p.Table.Voices[classify.Bird].BaseFrequency != 440 {
		t.Fatalf("untouched voice changed")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writePreset(t, "preset.yaml", `
release_s: 4
categories:
  rain:
    noise_level: 0.6
styles:
  nature:
    modulation_rate: 0.5
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.MasterVolume != 0 {
		t.Fatalf("master volume should be unset, got %f", p.MasterVolume)
	}
	if p.Table.ReleaseS != 4 {
		t.Fatalf("release = %f", p.Table.ReleaseS)
	}
	if p.Table.Voices[classify.Rain].NoiseLevel != 0.6 {
		t.Fatalf("rain noise = %f", p.Table.Voices[classify.Rain].NoiseLevel)
	}
	if p.Table.Styles[synth.Nature].ModulationRate != 0.5 {
		t.Fatalf("nature rate = %f", p.Table.Styles[synth.Nature].ModulationRate)
	}
}

func TestLoadRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown category", "p.json", `{"categories": {"thunder": {"noise_level": 0.1}}}`},
		{"unknown style", "p.json", `{"styles": {"party": {"reverb_mix": 0.1}}}`},
		{"reverb range", "p.json", `{"styles": {"gentle": {"reverb_mix": 1.2}}}`},
		{"frequency", "p.yaml", "categories:\n  bird:\n    base_frequency: 0\n"},
		{"empty harmonics", "p.json", `{"categories": {"bird": {"harmonics": []}}}`},
		{"volume", "p.json", `{"master_volume": 1.5}`},
		{"attack", "p.json", `{"attack_s": -1}`},
		{"extension", "p.toml", `attack_s = 1`},
		{"syntax", "p.json", `{"attack_s": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePreset(t, tt.file, tt.content)
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"out.json", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			src := synth.DefaultTable()
			src.Voices[classify.Leaves].BaseFrequency = 300
			src.Styles[synth.Gentle].ModulationDepth = 0.25

			path := filepath.Join(t.TempDir(), "nested", name)
			if err := Save(path, src, 0.4); err != nil {
				t.Fatalf("Save: %v", err)
			}
			p, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if p.MasterVolume != 0.4 {
				t.Fatalf("master volume = %f", p.MasterVolume)
			}
			if p.Table.Voices[classify.Leaves].BaseFrequency != 300 {
				t.Fatalf("leaves frequency = %f", p.Table.Voices[classify.Leaves].BaseFrequency)
			}
			if p.Table.Styles[synth.Gentle].ModulationDepth != 0.25 {
				t.Fatalf("gentle depth = %f", p.Table.Styles[synth.Gentle].ModulationDepth)
			}
			if err := p.Table.Validate(); err != nil {
				t.Fatalf("round-tripped table invalid: %v", err)
			}
		})
	}
}

func TestApplyFileNil(t *testing.T) {
	if err := ApplyFile(nil, &File{}); err == nil {
		t.Fatalf("expected error for nil table")
	}
	tbl := synth.DefaultTable()
	if err := ApplyFile(tbl, nil); err != nil {
		t.Fatalf("nil file: %v", err)
	}
}
