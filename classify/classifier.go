package classify

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-soundscape/dsp"
	"github.com/cwbudde/algo-soundscape/internal/logging"
)

const (
	// DefaultSampleRate is the capture rate the classifier expects.
	DefaultSampleRate = 44100
	// DefaultSilenceRMS gates windows with no usable energy to Unknown.
	DefaultSilenceRMS = 1e-6
)

// State is the classifier's accumulation state.
type State int

const (
	Idle State = iota
	Accumulating
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Accumulating:
		return "accumulating"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Config controls a streaming classifier.
type Config struct {
	SampleRate  int
	WindowSize  int // samples; classification starts at half this
	HistorySize int
	Threshold   float64
	SilenceRMS  float64

	Logger logrus.FieldLogger
}

func DefaultConfig() Config {
	return Config{
		SampleRate:  DefaultSampleRate,
		WindowSize:  DefaultSampleRate,
		HistorySize: DefaultHistorySize,
		Threshold:   DefaultThreshold,
		SilenceRMS:  DefaultSilenceRMS,
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if c.WindowSize < 2 {
		return fmt.Errorf("window size must be >= 2")
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("history size must be >= 1")
	}
	if c.Threshold < 0 || c.Threshold >= 1 {
		return fmt.Errorf("threshold must be in [0,1)")
	}
	if c.SilenceRMS < 0 {
		return fmt.Errorf("silence rms must be >= 0")
	}
	return nil
}

// Result is the classifier's published state.
type Result struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	State      State    `json:"state"`
	Samples    int      `json:"window_samples"`
	// Last is the most recent instantaneous decision; nil until Ready.
	Last *Decision `json:"last,omitempty"`
}

// Classifier classifies a live sample stream over a sliding window and
// smooths the decisions by majority vote. Process must be called from a
// single goroutine; the accessors may be called concurrently with it.
type Classifier struct {
	cfg Config
	log logrus.FieldLogger

	window    *dsp.Window
	smoother  *Smoother
	extractor Extractor
	scratch   []float32

	mu     sync.RWMutex
	result Result
}

// NewClassifier validates cfg and returns an idle classifier.
func NewClassifier(cfg Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{
		cfg:      cfg,
		log:      logging.Component(cfg.Logger, "classifier"),
		window:   dsp.NewWindow(cfg.WindowSize),
		smoother: NewSmoother(cfg.HistorySize),
		scratch:  make([]float32, 0, cfg.WindowSize),
	}, nil
}

// Process appends a chunk of samples and, once at least half the window is
// filled, re-runs classification. It returns the published result.
func (c *Classifier) Process(chunk []float32) Result {
	c.window.Append(chunk)
	n := c.window.Len()
	state := c.stateFor(n)

	if state != Ready {
		c.mu.Lock()
		c.result.State = state
		c.result.Samples = n
		res := c.result
		c.mu.Unlock()
		return res
	}

	c.scratch = c.window.CopyTo(c.scratch)
	d := decide(c.extractor.Extract(c.scratch), c.cfg.Threshold, c.cfg.SilenceRMS)

	c.mu.Lock()
	c.smoother.Observe(d.Category)
	stable := c.smoother.Resolve()
	c.result = Result{
		Category:   stable,
		Confidence: d.Confidence,
		State:      Ready,
		Samples:    n,
		Last:       &d,
	}
	res := c.result
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"samples":    n,
		"instant":    d.Category.String(),
		"category":   stable.String(),
		"confidence": d.Confidence,
		"silent":     d.Silent,
	}).Debug("window classified")
	return res
}

func (c *Classifier) stateFor(n int) State {
	switch {
	case n == 0:
		return Idle
	case n < (c.cfg.WindowSize+1)/2:
		return Accumulating
	default:
		return Ready
	}
}

// Result returns the published result.
func (c *Classifier) Result() Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// Category returns the current stable category.
func (c *Classifier) Category() Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result.Category
}

// Confidence returns the confidence of the latest instantaneous decision.
func (c *Classifier) Confidence() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result.Confidence
}

// State returns the accumulation state.
func (c *Classifier) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result.State
}

// History returns the smoothed decision history, oldest first.
func (c *Classifier) History() []Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.smoother.History()
}

// Reset clears the window and history and returns to Idle with category
// Unknown and confidence 0.
func (c *Classifier) Reset() {
	c.window.Reset()
	c.mu.Lock()
	c.smoother.Reset()
	c.result = Result{}
	c.mu.Unlock()
	c.log.Info("classifier reset")
}

// Annotate returns rec with the current category and confidence filled in.
func (c *Classifier) Annotate(rec Recording) Recording {
	res := c.Result()
	rec.Category = res.Category
	rec.Confidence = res.Confidence
	return rec
}
