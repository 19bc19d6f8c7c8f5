package synth

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-soundscape/classify"
	"github.com/cwbudde/algo-soundscape/internal/logging"
)

var (
	// ErrCancelled is returned when the context ends before the track is
	// finished. No partial track is returned with it.
	ErrCancelled = errors.New("synthesis cancelled")
	// ErrAllocation is returned when the output buffer cannot be allocated.
	ErrAllocation = errors.New("cannot allocate track buffer")
	// ErrBusy is returned when a synthesizer is asked for a second
	// concurrent job.
	ErrBusy = errors.New("synthesizer already running")
)

const (
	DefaultSampleRate   = 44100
	DefaultDurationS    = 180.0
	DefaultMasterVolume = 0.3

	// blockSize is the rendering unit: the cancellation checkpoint and the
	// granularity of per-block noise seeding.
	blockSize = 10000

	maxTrackSamples = 1 << 30
)

// ProgressFunc receives completion fractions in [0,1]. Calls are
// serialized and non-decreasing; a successful run ends with exactly 1.
type ProgressFunc func(fraction float64)

// Config controls track synthesis.
type Config struct {
	SampleRate   int
	DurationS    float64
	MasterVolume float64
	Workers      int // 0 = GOMAXPROCS

	Table  *Table            // nil = DefaultTable()
	Now    func() time.Time  // nil = time.Now
	Logger logrus.FieldLogger
}

func DefaultConfig() Config {
	return Config{
		SampleRate:   DefaultSampleRate,
		DurationS:    DefaultDurationS,
		MasterVolume: DefaultMasterVolume,
		Workers:      1,
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.DurationS <= 0 {
		return fmt.Errorf("duration must be > 0")
	}
	if c.MasterVolume <= 0 || c.MasterVolume > 1 {
		return fmt.Errorf("master volume must be in (0,1]")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0")
	}
	if c.Table != nil {
		if err := c.Table.Validate(); err != nil {
			return fmt.Errorf("parameter table: %w", err)
		}
	}
	return nil
}

// Synthesizer renders ambient tracks. It runs one job at a time.
type Synthesizer struct {
	cfg     Config
	table   *Table
	now     func() time.Time
	log     logrus.FieldLogger
	running atomic.Bool
}

func NewSynthesizer(cfg Config) (*Synthesizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Synthesizer{
		cfg:   cfg,
		table: cfg.Table,
		now:   cfg.Now,
		log:   logging.Component(cfg.Logger, "synthesizer"),
	}
	if s.table == nil {
		s.table = DefaultTable()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Samples is the length of every track this synthesizer produces.
func (s *Synthesizer) Samples() int {
	return int(math.Round(s.cfg.DurationS * float64(s.cfg.SampleRate)))
}

// Synthesize renders a track for category c in style st. Noise is drawn
// from rng, so equal seeds give equal tracks regardless of worker count.
// progress may be nil.
func (s *Synthesizer) Synthesize(ctx context.Context, c classify.Category, st Style, progress ProgressFunc, rng RandSource) (*Track, error) {
	if rng == nil {
		return nil, errors.New("nil random source")
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.running.Store(false)

	p, err := s.table.Resolve(c, st)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	total := s.Samples()
	buf, err := allocate(total)
	if err != nil {
		return nil, err
	}

	sr := s.cfg.SampleRate
	workers := s.cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	log := s.log.WithFields(logrus.Fields{
		"category": c.String(),
		"style":    st.String(),
		"samples":  total,
	})
	log.WithField("workers", workers).Info("synthesis started")

	nBlocks := (total + blockSize - 1) / blockSize
	seeds := make([]int64, nBlocks)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	tone := NewTone(p)
	env := NewEnvelope(total, sr, p.AttackS, p.ReleaseS)
	prog := newProgress(total, progress, log)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for b := 0; b < nBlocks; b++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lo := b * blockSize
			hi := min(lo+blockSize, total)
			tone.Render(buf[lo:hi], lo, sr, env, s.cfg.MasterVolume, rand.New(rand.NewSource(seeds[b])))
			prog.advance(hi - lo)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.cancelled(ctx, log)
	}

	// Last checkpoint before the reverb pass reads the whole buffer.
	if ctx.Err() != nil {
		return nil, s.cancelled(ctx, log)
	}
	NewReverb(p.ReverbMix).Apply(buf, sr)
	if ctx.Err() != nil {
		return nil, s.cancelled(ctx, log)
	}
	prog.finish()

	created := s.now()
	track := &Track{
		Samples:    buf,
		SampleRate: sr,
		Name:       TrackName(created, c),
		Style:      st,
		Category:   c,
		Duration:   time.Duration(float64(total) / float64(sr) * float64(time.Second)),
		CreatedAt:  created,
	}
	log.WithFields(logrus.Fields{
		"name":    track.Name,
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Info("synthesis finished")
	return track, nil
}

func (s *Synthesizer) cancelled(ctx context.Context, log logrus.FieldLogger) error {
	cause := context.Cause(ctx)
	if cause == nil {
		cause = context.Canceled
	}
	log.WithError(cause).Warn("synthesis cancelled")
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

func allocate(n int) (buf []float32, err error) {
	if n <= 0 || n > maxTrackSamples {
		return nil, fmt.Errorf("%w: %d samples", ErrAllocation, n)
	}
	defer func() {
		if r := recover(); r != nil {
			buf = nil
			err = fmt.Errorf("%w: %v", ErrAllocation, r)
		}
	}()
	return make([]float32, n), nil
}

// progress turns completed sample counts into 1% steps. Generation is
// reported below 1; only finish reports 1.
type progress struct {
	mu       sync.Mutex
	total    int
	done     int
	nextStep int
	fn       ProgressFunc
	log      logrus.FieldLogger
}

func newProgress(total int, fn ProgressFunc, log logrus.FieldLogger) *progress {
	return &progress{total: total, nextStep: 1, fn: fn, log: log}
}

func (p *progress) advance(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done += n
	step := int(int64(p.done) * 100 / int64(p.total))
	if step < p.nextStep {
		return
	}
	p.nextStep = step + 1
	frac := math.Min(float64(p.done)/float64(p.total), 0.99)
	if step%10 == 0 {
		p.log.WithField("percent", step).Debug("synthesis progress")
	}
	if p.fn != nil {
		p.fn(frac)
	}
}

func (p *progress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fn != nil {
		p.fn(1)
	}
}
