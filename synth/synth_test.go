package synth

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/cwbudde/algo-soundscape/classify"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 14, 7, 30, 0, 0, time.UTC)
}

func newTestSynth(t *testing.T, mutate func(*Config)) *Synthesizer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Now = fixedNow
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewSynthesizer(cfg)
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	return s
}

func TestSynthesizeFullTrack(t *testing.T) {
	if testing.Short() {
		t.Skip("renders 180 s of audio")
	}
	s := newTestSynth(t, nil)

	var emitted []float64
	track, err := s.Synthesize(context.Background(), classify.Wind, Gentle, func(f float64) {
		emitted = append(emitted, f)
	}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(track.Samples) != 7938000 {
		t.Fatalf("samples = %d, want 7938000", len(track.Samples))
	}
	for i, v := range track.Samples {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite sample at %d", i)
		}
		if math.Abs(float64(v)) > 1.0 {
			t.Fatalf("sample %d = %f exceeds 1.0", i, v)
		}
	}

	if len(emitted) < 100 {
		t.Fatalf("only %d progress emissions", len(emitted))
	}
	for i := 1; i < len(emitted); i++ {
		if emitted[i] < emitted[i-1] {
			t.Fatalf("progress decreased at %d: %f -> %f", i, emitted[i-1], emitted[i])
		}
	}
	if emitted[len(emitted)-1] != 1 {
		t.Fatalf("final progress = %f, want 1", emitted[len(emitted)-1])
	}
	for _, f := range emitted[:len(emitted)-1] {
		if f >= 1 || f < 0 {
			t.Fatalf("intermediate progress %f outside [0,1)", f)
		}
	}

	if track.Name != "Morning Wind" {
		t.Fatalf("name = %q", track.Name)
	}
	if track.Duration != 180*time.Second || track.SampleRate != 44100 {
		t.Fatalf("duration/rate = %v/%d", track.Duration, track.SampleRate)
	}
	if track.Category != classify.Wind || track.Style != Gentle {
		t.Fatalf("metadata = %+v", track)
	}
	if !track.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("created at = %v", track.CreatedAt)
	}
}

func TestSynthesizeDeterministicAcrossWorkers(t *testing.T) {
	render := func(workers int) []float32 {
		s := newTestSynth(t, func(c *Config) {
			c.DurationS = 1.5
			c.Workers = workers
		})
		track, err := s.Synthesize(context.Background(), classify.Rain, Nature, nil, rand.New(rand.NewSource(99)))
		if err != nil {
			t.Fatalf("Synthesize(workers=%d): %v", workers, err)
		}
		return track.Samples
	}
	a := render(1)
	b := render(1)
	c := render(4)
	if len(a) != int(1.5*44100) {
		t.Fatalf("length = %d", len(a))
	}
	energy := 0.0
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed differs at %d", i)
		}
		if a[i] != c[i] {
			t.Fatalf("worker count changed output at %d", i)
		}
		energy += float64(a[i] * a[i])
	}
	if energy <= 1e-6 {
		t.Fatalf("expected non-silent output")
	}
}

func TestSynthesizeDifferentSeedsDiffer(t *testing.T) {
	s := newTestSynth(t, func(c *Config) { c.DurationS = 0.5 })
	a, err := s.Synthesize(context.Background(), classify.Stream, Gentle, nil, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	b, err := s.Synthesize(context.Background(), classify.Stream, Gentle, nil, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	same := true
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical noise")
	}
}

func TestSynthesizeCancelledBeforeStart(t *testing.T) {
	s := newTestSynth(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	track, err := s.Synthesize(ctx, classify.Bird, Meditation, nil, rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want wrapped context.Canceled", err)
	}
	if track != nil {
		t.Fatalf("expected no track on cancellation")
	}
}

func TestSynthesizeCancelledMidway(t *testing.T) {
	s := newTestSynth(t, func(c *Config) { c.DurationS = 20 })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var last float64
	track, err := s.Synthesize(ctx, classify.Leaves, DeepSleep, func(f float64) {
		last = f
		if f >= 0.1 {
			cancel()
		}
	}, rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if track != nil {
		t.Fatalf("expected no track on cancellation")
	}
	if last >= 1 {
		t.Fatalf("completion reported despite cancellation")
	}
}

func TestSynthesizeRejectsConcurrentJob(t *testing.T) {
	s := newTestSynth(t, func(c *Config) { c.DurationS = 0.5 })
	var nestedErr error
	called := false
	_, err := s.Synthesize(context.Background(), classify.Wind, Gentle, func(float64) {
		if called {
			return
		}
		called = true
		_, nestedErr = s.Synthesize(context.Background(), classify.Wind, Gentle, nil, rand.New(rand.NewSource(1)))
	}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("outer Synthesize: %v", err)
	}
	if !errors.Is(nestedErr, ErrBusy) {
		t.Fatalf("nested err = %v, want ErrBusy", nestedErr)
	}
}

func TestSynthesizeAllocationFailure(t *testing.T) {
	s := newTestSynth(t, func(c *Config) { c.DurationS = 1e9 })
	track, err := s.Synthesize(context.Background(), classify.Wind, Gentle, nil, rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("err = %v, want ErrAllocation", err)
	}
	if track != nil {
		t.Fatalf("expected no track")
	}
}

func TestSynthesizeRequiresRandSource(t *testing.T) {
	s := newTestSynth(t, func(c *Config) { c.DurationS = 0.1 })
	if _, err := s.Synthesize(context.Background(), classify.Wind, Gentle, nil, nil); err == nil {
		t.Fatalf("expected error for nil random source")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sample rate", func(c *Config) { c.SampleRate = 10 }},
		{"duration", func(c *Config) { c.DurationS = 0 }},
		{"volume", func(c *Config) { c.MasterVolume = 2 }},
		{"workers", func(c *Config) { c.Workers = -1 }},
		{"table", func(c *Config) {
			c.Table = DefaultTable()
			c.Table.AttackS = -1
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := NewSynthesizer(cfg); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "Night"},
		{4, "Night"},
		{5, "Morning"},
		{11, "Morning"},
		{12, "Afternoon"},
		{17, "Afternoon"},
		{18, "Evening"},
		{21, "Evening"},
		{22, "Night"},
	}
	for _, tt := range tests {
		at := time.Date(2025, 1, 1, tt.hour, 15, 0, 0, time.UTC)
		if got := TimeOfDay(at); got != tt.want {
			t.Fatalf("TimeOfDay(%02d:15) = %q, want %q", tt.hour, got, tt.want)
		}
	}
	if got := TrackName(time.Date(2025, 1, 1, 20, 0, 0, 0, time.UTC), classify.Rain); got != "Evening Rain" {
		t.Fatalf("TrackName = %q", got)
	}
}
