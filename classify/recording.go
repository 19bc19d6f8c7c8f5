package classify

import "time"

// Coordinates is a WGS84 position.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Recording describes a finished capture. The classifier only fills in
// Category and Confidence; everything else is carried through unchanged.
type Recording struct {
	Category      Category      `json:"category" yaml:"category"`
	Confidence    float64       `json:"confidence" yaml:"confidence"`
	Duration      time.Duration `json:"duration" yaml:"duration"`
	RecordedAt    time.Time     `json:"recorded_at" yaml:"recorded_at"`
	LocationLabel string        `json:"location_label,omitempty" yaml:"location_label,omitempty"`
	Coordinates   *Coordinates  `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
}
