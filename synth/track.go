package synth

import (
	"time"

	"github.com/cwbudde/algo-soundscape/classify"
)

// Track is a finished mono soundscape and its descriptive metadata.
type Track struct {
	Samples    []float32         `json:"-" yaml:"-"`
	SampleRate int               `json:"sample_rate" yaml:"sample_rate"`
	Name       string            `json:"name" yaml:"name"`
	Style      Style             `json:"style" yaml:"style"`
	Category   classify.Category `json:"category" yaml:"category"`
	Duration   time.Duration     `json:"duration" yaml:"duration"`
	CreatedAt  time.Time         `json:"created_at" yaml:"created_at"`
}

// TimeOfDay buckets t's local hour: morning 5-11, afternoon 12-17,
// evening 18-21, night otherwise.
func TimeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "Morning"
	case h >= 12 && h < 18:
		return "Afternoon"
	case h >= 18 && h < 22:
		return "Evening"
	default:
		return "Night"
	}
}

// TrackName is the display name of a track created at t from c.
func TrackName(t time.Time, c classify.Category) string {
	return TimeOfDay(t) + " " + c.Label()
}
