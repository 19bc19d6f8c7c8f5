package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-soundscape/analysis"
	"github.com/cwbudde/algo-soundscape/classify"
	"github.com/cwbudde/algo-soundscape/internal/audiofile"
)

type analyzeOptions struct {
	offset float64
}

func newAnalyzeCmd(a *app) *cobra.Command {
	o := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze <wav>",
		Short: "Show classifier features, scores and a spectral summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, o, args[0])
		},
	}
	cmd.Flags().Float64Var(&o.offset, "offset", 0, "start of the classified one-second window in seconds")
	return cmd
}

type analyzeReport struct {
	File     string            `json:"file"`
	Seconds  float64           `json:"seconds"`
	Offset   float64           `json:"offset"`
	Decision classify.Decision `json:"decision"`
	Spectrum analysis.Spectrum `json:"spectrum"`
}

func (a *app) runAnalyze(cmd *cobra.Command, o *analyzeOptions, path string) error {
	samples, sr, err := audiofile.ReadMono(path, classify.DefaultSampleRate)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("%s: no audio", path)
	}
	start := int(o.offset * float64(sr))
	if start < 0 || start >= len(samples) {
		return fmt.Errorf("offset %.2fs outside recording (%.2fs)", o.offset, float64(len(samples))/float64(sr))
	}
	end := min(start+sr, len(samples))

	report := analyzeReport{
		File:     path,
		Seconds:  float64(len(samples)) / float64(sr),
		Offset:   o.offset,
		Decision: classify.Classify(audiofile.Float32(samples[start:end])),
		Spectrum: analysis.Summarize(samples, sr),
	}
	a.log.WithField("file", path).Debug("analysis complete")

	out := cmd.OutOrStdout()
	if a.jsonOutput() {
		return printJSON(out, report)
	}
	d := report.Decision
	fmt.Fprintf(out, "%s (%.2fs)\n\n", path, report.Seconds)
	fmt.Fprintf(out, "Window %.2fs-%.2fs: %s (confidence %.3f", float64(start)/float64(sr), float64(end)/float64(sr), d.Category.Label(), d.Confidence)
	if d.Silent {
		fmt.Fprint(out, ", silent")
	}
	fmt.Fprintln(out, ")")
	printFeatures(out, d.Features)
	fmt.Fprintln(out, "\nScores:")
	printScores(out, d.Scores, classify.DefaultThreshold)

	s := report.Spectrum
	fmt.Fprintf(out, "\nSpectrum (%d frames):\n", s.Frames)
	fmt.Fprintf(out, "  centroid %8.1f Hz\n", s.CentroidHz)
	fmt.Fprintf(out, "  rolloff  %8.1f Hz\n", s.RolloffHz)
	fmt.Fprintf(out, "  peak     %8.1f Hz\n", s.PeakHz)
	fmt.Fprintf(out, "  flatness %8.4f\n", s.Flatness)
	for _, b := range s.Bands {
		fmt.Fprintf(out, "  %-9s %5.0f-%5.0f Hz %7.1f dB\n", b.Name, b.LoHz, b.HiHz, b.EnergyDB)
	}
	return nil
}
