package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-soundscape/internal/audiofile"
	"github.com/cwbudde/algo-soundscape/internal/fit"
	"github.com/cwbudde/algo-soundscape/preset"
	"github.com/cwbudde/algo-soundscape/synth"
)

type fitOptions struct {
	reference  string
	category   string
	style      string
	preset     string
	outPreset  string
	report     string
	sampleRate int
	excerpt    float64
	seed       int64
	maxEvals   int
	timeBudget time.Duration
	variant    string
	population int
	roundEvals int
	topK       int
}

func newFitCmd(a *app) *cobra.Command {
	o := &fitOptions{}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit style settings so a rendered soundscape matches a reference",
		Long: `Search frequency scale, noise scale, modulation depth, modulation rate and
reverb mix for one category and style with a mayfly optimizer, scoring short
rendered excerpts against the reference recording. The best table is written
as a preset together with a JSON report. Ctrl-C stops early and keeps the
best result so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFit(cmd, o)
		},
	}
	def := fit.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&o.reference, "reference", "", "reference WAV (required)")
	f.StringVar(&o.category, "category", "auto", "category to fit (or auto to classify the reference)")
	f.StringVar(&o.style, "style", "gentle", "style whose settings are fitted")
	f.StringVar(&o.preset, "preset", "", "base preset (default table when empty)")
	f.StringVar(&o.outPreset, "out-preset", "fitted.yaml", "output preset path (.json or .yaml)")
	f.StringVar(&o.report, "report", "", "report JSON path (default: <out-preset>.report.json)")
	f.IntVar(&o.sampleRate, "sample-rate", 22050, "render and analysis sample rate")
	f.Float64Var(&o.excerpt, "excerpt", 0, "seconds rendered per evaluation (0 = min(reference, 6))")
	f.Int64Var(&o.seed, "seed", def.Seed, "random seed")
	f.IntVar(&o.maxEvals, "max-evals", def.MaxEvals, "maximum objective evaluations")
	f.DurationVar(&o.timeBudget, "time-budget", 2*time.Minute, "optimization time budget (0 = unlimited)")
	f.StringVar(&o.variant, "mayfly-variant", def.Variant, "mayfly variant: "+strings.Join(fit.Variants, "|"))
	f.IntVar(&o.population, "mayfly-pop", def.Population, "male and female population size per round")
	f.IntVar(&o.roundEvals, "mayfly-round-evals", def.RoundEvals, "target evaluation budget per round")
	f.IntVar(&o.topK, "top-k", def.TopK, "how many top candidates to keep in the report")
	_ = cmd.MarkFlagRequired("reference")
	return cmd
}

type fitReport struct {
	ReferencePath string `json:"reference_path"`
	BasePreset    string `json:"base_preset,omitempty"`
	OutputPreset  string `json:"output_preset"`
	SampleRate    int    `json:"sample_rate"`
	fit.Result
}

func (a *app) runFit(cmd *cobra.Command, o *fitOptions) error {
	ref, sr, err := audiofile.ReadMono(o.reference, o.sampleRate)
	if err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	cat, err := a.resolveCategory(o.category, o.reference)
	if err != nil {
		return err
	}
	style, err := synth.ParseStyle(o.style)
	if err != nil {
		return err
	}

	cfg := fit.DefaultConfig()
	cfg.Reference = ref
	cfg.SampleRate = sr
	cfg.Category = cat
	cfg.Style = style
	cfg.ExcerptS = o.excerpt
	cfg.Seed = o.seed
	cfg.MaxEvals = o.maxEvals
	cfg.TimeBudget = o.timeBudget
	cfg.Variant = o.variant
	cfg.Population = o.population
	cfg.RoundEvals = o.roundEvals
	cfg.TopK = o.topK
	cfg.Logger = a.log

	volume := 0.0
	if o.preset != "" {
		p, err := preset.Load(o.preset)
		if err != nil {
			return err
		}
		cfg.Base = p.Table
		volume = p.MasterVolume
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := fit.Run(ctx, cfg)
	if err != nil {
		if !fit.IsInterrupted(err) || res.Table == nil {
			return err
		}
		a.log.WithError(err).Warn("fit stopped early, writing best result so far")
	}

	if err := preset.Save(o.outPreset, res.Table, volume); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}
	reportPath := o.report
	if reportPath == "" {
		reportPath = o.outPreset + ".report.json"
	}
	report := fitReport{
		ReferencePath: o.reference,
		BasePreset:    o.preset,
		OutputPreset:  o.outPreset,
		SampleRate:    sr,
		Result:        res,
	}
	if err := writeJSON(reportPath, report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	out := cmd.OutOrStdout()
	if a.jsonOutput() {
		return printJSON(out, report)
	}
	fmt.Fprintf(out, "Fitted %s/%s: score %.4f -> %.4f (similarity %.2f%%) in %d evals, %s\n",
		res.Category, res.Style, res.InitialScore, res.Metrics.Score,
		res.Metrics.Similarity*100, res.Evaluations, res.Elapsed.Round(time.Millisecond))
	for _, k := range fit.Knobs {
		fmt.Fprintf(out, "  %-16s %.4f\n", k.Name, res.Knobs[k.Name])
	}
	fmt.Fprintf(out, "preset: %s\nreport: %s\n", o.outPreset, reportPath)
	return nil
}
