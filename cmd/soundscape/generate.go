package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-soundscape/classify"
	"github.com/cwbudde/algo-soundscape/internal/audiofile"
	"github.com/cwbudde/algo-soundscape/preset"
	"github.com/cwbudde/algo-soundscape/synth"
)

type generateOptions struct {
	category   string
	input      string
	style      string
	seed       int64
	duration   float64
	sampleRate int
	volume     float64
	workers    string
	preset     string
	out        string
	progress   bool
}

func newGenerateCmd(a *app) *cobra.Command {
	o := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesize a soundscape for a category and style",
		Long: `Render a soundscape track and write it as a 16-bit mono WAV with a YAML
metadata sidecar. With --category auto the category is taken from
classifying --input first. Ctrl-C cancels the render; nothing is written.`,
		Example: `  soundscape generate --category rain --style deep-sleep --out rain.wav
  soundscape generate --category auto --input park.wav --style nature --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runGenerate(ctx, cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.category, "category", "wind", "sound category (wind, bird, rain, stream, leaves, unknown, auto)")
	f.StringVar(&o.input, "input", "", "recording to classify when --category is auto")
	f.StringVar(&o.style, "style", "gentle", "style (gentle, meditation, nature, deep-sleep)")
	f.Int64Var(&o.seed, "seed", 0, "noise seed (0 = time based)")
	f.Float64Var(&o.duration, "duration", synth.DefaultDurationS, "track length in seconds")
	f.IntVar(&o.sampleRate, "sample-rate", synth.DefaultSampleRate, "output sample rate")
	f.Float64Var(&o.volume, "volume", 0, "master volume in (0,1] (0 = preset or default)")
	f.StringVar(&o.workers, "workers", "1", "render workers (integer >= 1 or 'auto')")
	f.StringVar(&o.preset, "preset", "", "JSON or YAML preset overriding the parameter table")
	f.StringVar(&o.out, "out", "soundscape.wav", "output WAV path")
	f.BoolVar(&o.progress, "progress", true, "print progress to stderr")
	return cmd
}

func (a *app) runGenerate(ctx context.Context, cmd *cobra.Command, o *generateOptions) error {
	cat, err := a.resolveCategory(o.category, o.input)
	if err != nil {
		return err
	}
	style, err := synth.ParseStyle(o.style)
	if err != nil {
		return err
	}
	workers, err := audiofile.ParseWorkers(o.workers)
	if err != nil {
		return fmt.Errorf("invalid --workers: %w", err)
	}

	cfg := synth.DefaultConfig()
	cfg.SampleRate = o.sampleRate
	cfg.DurationS = o.duration
	cfg.Workers = workers
	cfg.Logger = a.log
	if o.preset != "" {
		p, err := preset.Load(o.preset)
		if err != nil {
			return err
		}
		cfg.Table = p.Table
		if p.MasterVolume > 0 {
			cfg.MasterVolume = p.MasterVolume
		}
	}
	if o.volume != 0 {
		cfg.MasterVolume = o.volume
	}
	s, err := synth.NewSynthesizer(cfg)
	if err != nil {
		return err
	}

	seed := o.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var progress synth.ProgressFunc
	if o.progress && !a.jsonOutput() {
		errOut := cmd.ErrOrStderr()
		progress = func(f float64) {
			fmt.Fprintf(errOut, "\rrendering %3.0f%%", f*100)
			if f >= 1 {
				fmt.Fprintln(errOut)
			}
		}
	}

	track, err := s.Synthesize(ctx, cat, style, progress, rand.New(rand.NewSource(seed)))
	if err != nil {
		if progress != nil {
			fmt.Fprintln(cmd.ErrOrStderr())
		}
		if errors.Is(err, synth.ErrCancelled) {
			a.log.Warn("generation cancelled, no file written")
		}
		return err
	}

	sidecar, err := audiofile.WriteTrack(o.out, track)
	if err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"wav":     o.out,
		"sidecar": sidecar,
		"seed":    seed,
	}).Info("track written")

	out := cmd.OutOrStdout()
	if a.jsonOutput() {
		return printJSON(out, struct {
			*synth.Track
			Path    string `json:"path"`
			Sidecar string `json:"sidecar"`
			Seed    int64  `json:"seed"`
		}{track, o.out, sidecar, seed})
	}
	fmt.Fprintf(out, "%s: %q %s/%s %.0fs (seed %d)\n", o.out, track.Name, track.Category, track.Style, track.Duration.Seconds(), seed)
	return nil
}

// resolveCategory parses the --category flag. "auto" classifies input.
func (a *app) resolveCategory(raw, input string) (classify.Category, error) {
	if !strings.EqualFold(strings.TrimSpace(raw), "auto") {
		return classify.ParseCategory(raw)
	}
	if input == "" {
		return classify.Unknown, fmt.Errorf("--category auto requires --input")
	}
	samples, sr, err := audiofile.ReadMono(input, classify.DefaultSampleRate)
	if err != nil {
		return classify.Unknown, err
	}
	cfg := classify.DefaultConfig()
	cfg.Logger = a.log
	c, err := classify.NewClassifier(cfg)
	if err != nil {
		return classify.Unknown, err
	}
	if _, err := streamFile(c, audiofile.Float32(samples), sr, sr/10, false); err != nil {
		return classify.Unknown, err
	}
	res := c.Result()
	a.log.WithFields(logrus.Fields{
		"input":      input,
		"category":   res.Category.String(),
		"confidence": res.Confidence,
	}).Info("input classified")
	return res.Category, nil
}
