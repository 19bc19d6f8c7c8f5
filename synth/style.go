package synth

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Style is the mood a track is rendered in.
type Style int

const (
	Gentle Style = iota
	Meditation
	Nature
	DeepSleep

	numStyles
)

// NumStyles is the size of the style enumeration.
const NumStyles = int(numStyles)

var styleNames = [numStyles]string{
	Gentle:     "gentle",
	Meditation: "meditation",
	Nature:     "nature",
	DeepSleep:  "deepSleep",
}

// Styles returns every style in enumeration order.
func Styles() []Style {
	return []Style{Gentle, Meditation, Nature, DeepSleep}
}

func (s Style) String() string {
	if !s.Valid() {
		return fmt.Sprintf("style(%d)", int(s))
	}
	return styleNames[s]
}

// Label is the human-readable name, e.g. "Deep Sleep".
func (s Style) Label() string {
	words := strings.ToLower(splitCamel(s.String()))
	return cases.Title(language.English).String(words)
}

func (s Style) Valid() bool {
	return s >= 0 && s < numStyles
}

// ParseStyle accepts the canonical name case-insensitively, with optional
// '-', '_' or ' ' separators ("deepSleep", "deep-sleep", "Deep Sleep").
func ParseStyle(raw string) (Style, error) {
	key := normalizeStyleKey(raw)
	for i, n := range styleNames {
		if normalizeStyleKey(n) == key {
			return Style(i), nil
		}
	}
	return Gentle, fmt.Errorf("unknown style %q (valid: gentle, meditation, nature, deepSleep)", raw)
}

func (s Style) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid style %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Style) UnmarshalText(b []byte) error {
	v, err := ParseStyle(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func normalizeStyleKey(s string) string {
	r := strings.NewReplacer("-", "", "_", "", " ", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}

func splitCamel(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
