package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-soundscape/dsp"
	"github.com/cwbudde/algo-soundscape/internal/audiofile"
	"github.com/cwbudde/algo-soundscape/preset"
	"github.com/cwbudde/algo-soundscape/synth"
)

type irOptions struct {
	style      string
	sampleRate int
	preset     string
	out        string
	apply      string
	wetOut     string
}

func newIRCmd(a *app) *cobra.Command {
	o := &irOptions{}
	cmd := &cobra.Command{
		Use:   "ir",
		Short: "Write the reverb impulse response of a style as WAV",
		Long: `Write the multi-tap reverb of a style as an impulse response WAV. With
--apply, a recording is also convolved with the response and written to
--wet-out, which is handy for auditioning a style's room on real material.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIR(cmd, o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.style, "style", "gentle", "style whose reverb mix is used")
	f.IntVar(&o.sampleRate, "sample-rate", synth.DefaultSampleRate, "sample rate")
	f.StringVar(&o.preset, "preset", "", "preset overriding the parameter table")
	f.StringVar(&o.out, "out", "reverb-ir.wav", "output WAV path")
	f.StringVar(&o.apply, "apply", "", "recording to convolve with the response")
	f.StringVar(&o.wetOut, "wet-out", "reverb-wet.wav", "output path for --apply")
	return cmd
}

type irReport struct {
	Path       string      `json:"path"`
	Style      synth.Style `json:"style"`
	SampleRate int         `json:"sample_rate"`
	Mix        float64     `json:"mix"`
	Length     int         `json:"length"`
	Taps       []irTap     `json:"taps"`
	WetPath    string      `json:"wet_path,omitempty"`
	WetPeak    float64     `json:"wet_peak,omitempty"`
}

type irTap struct {
	DelayMS      int     `json:"delay_ms"`
	DelaySamples int     `json:"delay_samples"`
	Gain         float32 `json:"gain"`
}

func (a *app) runIR(cmd *cobra.Command, o *irOptions) error {
	style, err := synth.ParseStyle(o.style)
	if err != nil {
		return err
	}
	if o.sampleRate < 1000 {
		return fmt.Errorf("sample rate too low: %d", o.sampleRate)
	}
	table := synth.DefaultTable()
	if o.preset != "" {
		p, err := preset.Load(o.preset)
		if err != nil {
			return err
		}
		table = p.Table
	}

	rev := synth.NewReverb(table.Styles[style].ReverbMix)
	ir := rev.ImpulseResponse(o.sampleRate)
	if err := audiofile.WriteMono(o.out, ir, o.sampleRate); err != nil {
		return err
	}

	report := irReport{
		Path:       o.out,
		Style:      style,
		SampleRate: o.sampleRate,
		Mix:        rev.Mix,
		Length:     len(ir),
	}
	for _, tap := range rev.Taps {
		d := tap.DelayMS * o.sampleRate / 1000
		report.Taps = append(report.Taps, irTap{DelayMS: tap.DelayMS, DelaySamples: d, Gain: ir[d]})
	}
	a.log.WithField("path", o.out).Info("impulse response written")

	if o.apply != "" {
		peak, err := convolveFile(o.apply, o.wetOut, ir, o.sampleRate)
		if err != nil {
			return err
		}
		report.WetPath = o.wetOut
		report.WetPeak = peak
		a.log.WithFields(logrus.Fields{"input": o.apply, "path": o.wetOut}).Info("reverb applied")
	}

	out := cmd.OutOrStdout()
	if a.jsonOutput() {
		return printJSON(out, report)
	}
	fmt.Fprintf(out, "%s: %s reverb (mix %.2f), %d samples @ %d Hz\n", o.out, style.Label(), rev.Mix, len(ir), o.sampleRate)
	for _, t := range report.Taps {
		fmt.Fprintf(out, "  %3d ms  sample %5d  gain %.4f\n", t.DelayMS, t.DelaySamples, t.Gain)
	}
	if report.WetPath != "" {
		fmt.Fprintf(out, "%s: %s through the reverb (peak before normalization %.3f)\n", report.WetPath, o.apply, report.WetPeak)
	}
	return nil
}

// convolveFile runs the recording at in through ir, keeps the reverb tail,
// peak-normalizes and writes the result to out. It returns the peak before
// normalization.
func convolveFile(in, out string, ir []float32, sampleRate int) (float64, error) {
	samples, _, err := audiofile.ReadMono(in, sampleRate)
	if err != nil {
		return 0, err
	}
	conv, err := dsp.NewConvolver(ir, 0)
	if err != nil {
		return 0, err
	}
	input := make([]float32, len(samples)+conv.Tail())
	for i, v := range samples {
		input[i] = float32(v)
	}
	wet, err := conv.Process(input)
	if err != nil {
		return 0, err
	}
	peak := synth.Normalize(wet)
	return peak, audiofile.WriteMono(out, wet, sampleRate)
}
