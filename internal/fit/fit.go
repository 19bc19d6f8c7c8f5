// Package fit searches synthesis style settings that make a rendered
// soundscape resemble a reference recording.
package fit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/cwbudde/mayfly"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-soundscape/analysis"
	"github.com/cwbudde/algo-soundscape/classify"
	"github.com/cwbudde/algo-soundscape/internal/logging"
	"github.com/cwbudde/algo-soundscape/synth"
)

// Variants lists the accepted mayfly variant names.
var Variants = []string{"ma", "desma", "olce", "eobbma", "gsasma", "mpma", "aoblmoa"}

// KnobDef is one searched parameter and its range.
type KnobDef struct {
	Name string
	Min  float64
	Max  float64
}

// Knobs are the style settings the optimizer may change.
var Knobs = []KnobDef{
	{Name: "frequency_scale", Min: 0.125, Max: 2.0},
	{Name: "noise_scale", Min: 0.0, Max: 3.0},
	{Name: "modulation_depth", Min: 0.0, Max: 0.5},
	{Name: "modulation_rate", Min: 0.01, Max: 1.0},
	{Name: "reverb_mix", Min: 0.0, Max: 1.0},
}

// Config controls a fitting run.
type Config struct {
	Reference  []float64 // mono, at SampleRate
	SampleRate int
	Category   classify.Category
	Style      synth.Style
	Base       *synth.Table // nil = synth.DefaultTable()

	ExcerptS   float64 // rendered length per evaluation; 0 = min(reference, 6 s)
	Seed       int64
	MaxEvals   int
	TimeBudget time.Duration // 0 = unlimited
	Variant    string
	Population int
	RoundEvals int
	TopK       int

	Logger logrus.FieldLogger
}

func DefaultConfig() Config {
	return Config{
		SampleRate: synth.DefaultSampleRate,
		Category:   classify.Wind,
		Style:      synth.Gentle,
		Seed:       1,
		MaxEvals:   300,
		Variant:    "desma",
		Population: 10,
		RoundEvals: 240,
		TopK:       5,
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 8000 {
		return fmt.Errorf("sample rate too low: %d", c.SampleRate)
	}
	if len(c.Reference) < c.SampleRate/2 {
		return fmt.Errorf("reference too short: need at least 0.5 s")
	}
	if !c.Category.Valid() {
		return fmt.Errorf("invalid category %d", int(c.Category))
	}
	if !c.Style.Valid() {
		return fmt.Errorf("invalid style %d", int(c.Style))
	}
	if c.ExcerptS < 0 {
		return fmt.Errorf("excerpt must be >= 0")
	}
	if c.MaxEvals < 1 {
		return fmt.Errorf("max evals must be >= 1")
	}
	if c.Population < 2 {
		return fmt.Errorf("population must be >= 2")
	}
	if c.RoundEvals < 2*c.Population {
		return fmt.Errorf("round evals must be >= 2*population")
	}
	if c.TopK < 0 {
		return fmt.Errorf("top-k must be >= 0")
	}
	if _, err := newMayflyConfig(strings.ToLower(c.Variant), c.Population, len(Knobs), 1); err != nil {
		return err
	}
	if c.Base != nil {
		if err := c.Base.Validate(); err != nil {
			return fmt.Errorf("base table: %w", err)
		}
	}
	return nil
}

// Candidate is one evaluated knob setting.
type Candidate struct {
	Eval       int                `json:"eval"`
	Score      float64            `json:"score"`
	Similarity float64            `json:"similarity"`
	Knobs      map[string]float64 `json:"knobs"`
}

// Result is the best setting found.
type Result struct {
	Table         *synth.Table       `json:"-"`
	Category      classify.Category  `json:"category"`
	Style         synth.Style        `json:"style"`
	Knobs         map[string]float64 `json:"best_knobs"`
	Metrics       analysis.Metrics   `json:"best_metrics"`
	InitialScore  float64            `json:"initial_score"`
	Evaluations   int                `json:"evaluations"`
	Rounds        int                `json:"rounds"`
	Variant       string             `json:"mayfly_variant"`
	Elapsed       time.Duration      `json:"elapsed"`
	TopCandidates []Candidate        `json:"top_candidates,omitempty"`
}

// Run optimizes the style settings of cfg.Style for cfg.Category. The base
// table is evaluated first, so the result is never worse than it. If ctx
// ends early the best result so far is returned together with the context
// error.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	log := logging.Component(cfg.Logger, "fit").WithFields(logrus.Fields{
		"category": cfg.Category.String(),
		"style":    cfg.Style.String(),
	})
	base := cfg.Base
	if base == nil {
		base = synth.DefaultTable()
	}
	variant := strings.ToLower(cfg.Variant)
	excerpt := cfg.ExcerptS
	if excerpt == 0 {
		excerpt = math.Min(float64(len(cfg.Reference))/float64(cfg.SampleRate), 6)
	}
	ref := cfg.Reference
	if n := int(excerpt * float64(cfg.SampleRate)); n < len(ref) {
		ref = ref[:n]
	}

	e := &evaluator{
		base:       base,
		category:   cfg.Category,
		style:      cfg.Style,
		reference:  ref,
		sampleRate: cfg.SampleRate,
		excerptS:   excerpt,
		seed:       cfg.Seed,
	}

	start := time.Now()
	var deadline time.Time
	if cfg.TimeBudget > 0 {
		deadline = start.Add(cfg.TimeBudget)
	}
	expired := func() bool {
		return ctx.Err() != nil || (!deadline.IsZero() && time.Now().After(deadline))
	}

	initial := ToNormalized(base.Styles[cfg.Style])
	bestPos := initial
	bestTable, bestM, err := e.evaluate(ctx, initial)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate base settings: %w", err)
	}
	res := Result{
		Category:     cfg.Category,
		Style:        cfg.Style,
		Variant:      variant,
		InitialScore: bestM.Score,
		Evaluations:  1,
	}
	top := updateTopCandidates(nil, cfg.TopK, 1, bestM, initial)
	log.WithField("score", bestM.Score).Info("base settings evaluated")

	for res.Evaluations < cfg.MaxEvals && !expired() {
		res.Rounds++
		budget := min(cfg.RoundEvals, cfg.MaxEvals-res.Evaluations)
		iters := max(1, budget/(2*cfg.Population))

		mcfg, err := newMayflyConfig(variant, cfg.Population, len(Knobs), iters)
		if err != nil {
			return Result{}, err
		}
		mcfg.Rand = rand.New(rand.NewSource(cfg.Seed + int64(res.Rounds)*7919))

		before := res.Evaluations
		mcfg.ObjectiveFunc = func(pos []float64) float64 {
			if res.Evaluations >= cfg.MaxEvals || expired() {
				return bestM.Score + 1.0
			}
			table, m, err := e.evaluate(ctx, pos)
			res.Evaluations++
			if err != nil {
				return bestM.Score + 0.8
			}
			top = updateTopCandidates(top, cfg.TopK, res.Evaluations, m, pos)
			if m.Score < bestM.Score {
				bestM = m
				bestTable = table
				bestPos = append([]float64(nil), pos...)
				log.WithFields(logrus.Fields{
					"eval":       res.Evaluations,
					"score":      m.Score,
					"similarity": m.Similarity,
				}).Info("improved")
			}
			return m.Score
		}

		if _, err := runMayfly(mcfg); err != nil {
			log.WithError(err).WithField("round", res.Rounds).Warn("mayfly round failed")
		}
		if res.Evaluations == before {
			break
		}
		log.WithFields(logrus.Fields{
			"round": res.Rounds,
			"evals": res.Evaluations,
			"best":  bestM.Score,
		}).Debug("round finished")
	}

	res.Table = bestTable
	res.Metrics = bestM
	res.Knobs = knobMap(bestPos)
	res.Elapsed = time.Since(start)
	res.TopCandidates = top
	log.WithFields(logrus.Fields{
		"evals":   res.Evaluations,
		"score":   bestM.Score,
		"elapsed": res.Elapsed.Round(time.Millisecond).String(),
	}).Info("fit finished")

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("fit interrupted: %w", err)
	}
	return res, nil
}

type evaluator struct {
	base       *synth.Table
	category   classify.Category
	style      synth.Style
	reference  []float64
	sampleRate int
	excerptS   float64
	seed       int64
}

// evaluate renders the excerpt for a normalized knob position and scores it
// against the reference. The noise seed is fixed so that scores differ only
// by the knobs.
func (e *evaluator) evaluate(ctx context.Context, pos []float64) (*synth.Table, analysis.Metrics, error) {
	table := e.base.Clone()
	ApplyKnobs(&table.Styles[e.style], FromNormalized(pos))

	scfg := synth.DefaultConfig()
	scfg.SampleRate = e.sampleRate
	scfg.DurationS = e.excerptS
	scfg.Table = table
	s, err := synth.NewSynthesizer(scfg)
	if err != nil {
		return nil, analysis.Metrics{}, err
	}
	track, err := s.Synthesize(ctx, e.category, e.style, nil, rand.New(rand.NewSource(e.seed)))
	if err != nil {
		return nil, analysis.Metrics{}, err
	}
	cand := make([]float64, len(track.Samples))
	for i, v := range track.Samples {
		cand[i] = float64(v)
	}
	return table, analysis.Compare(e.reference, cand, e.sampleRate), nil
}

// FromNormalized maps a position in [0,1]^n to knob values.
func FromNormalized(pos []float64) []float64 {
	vals := make([]float64, len(Knobs))
	for i, def := range Knobs {
		x := 0.0
		if i < len(pos) {
			x = clamp(pos[i], 0, 1)
		}
		vals[i] = def.Min + x*(def.Max-def.Min)
	}
	return vals
}

// ToNormalized maps style settings to a position in [0,1]^n, clamping
// values outside the knob ranges.
func ToNormalized(s synth.StyleSettings) []float64 {
	raw := []float64{s.FrequencyScale, s.NoiseScale, s.ModulationDepth, s.ModulationRate, s.ReverbMix}
	pos := make([]float64, len(Knobs))
	for i, def := range Knobs {
		pos[i] = clamp((raw[i]-def.Min)/(def.Max-def.Min), 0, 1)
	}
	return pos
}

// ApplyKnobs writes knob values, in Knobs order, into s.
func ApplyKnobs(s *synth.StyleSettings, vals []float64) {
	for i, def := range Knobs {
		if i >= len(vals) {
			return
		}
		v := vals[i]
		switch def.Name {
		case "frequency_scale":
			s.FrequencyScale = v
		case "noise_scale":
			s.NoiseScale = v
		case "modulation_depth":
			s.ModulationDepth = v
		case "modulation_rate":
			s.ModulationRate = v
		case "reverb_mix":
			s.ReverbMix = v
		}
	}
}

func knobMap(pos []float64) map[string]float64 {
	vals := FromNormalized(pos)
	out := make(map[string]float64, len(Knobs))
	for i, def := range Knobs {
		out[def.Name] = vals[i]
	}
	return out
}

func updateTopCandidates(top []Candidate, topK int, eval int, m analysis.Metrics, pos []float64) []Candidate {
	if topK == 0 {
		return top
	}
	top = append(top, Candidate{
		Eval:       eval,
		Score:      m.Score,
		Similarity: m.Similarity,
		Knobs:      knobMap(pos),
	})
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score == top[j].Score {
			return top[i].Eval < top[j].Eval
		}
		return top[i].Score < top[j].Score
	})
	if len(top) > topK {
		top = top[:topK]
	}
	return top
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported mayfly variant %q (valid: %s)", variant, strings.Join(Variants, ", "))
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsInterrupted reports whether err came from an ended context.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
