package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-soundscape/analysis"
	"github.com/cwbudde/algo-soundscape/internal/audiofile"
)

type compareOptions struct {
	sampleRate int
}

func newCompareCmd(a *app) *cobra.Command {
	o := &compareOptions{}
	cmd := &cobra.Command{
		Use:   "compare <reference> <candidate>",
		Short: "Score how closely a candidate recording matches a reference",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCompare(cmd, o, args[0], args[1])
		},
	}
	cmd.Flags().IntVar(&o.sampleRate, "sample-rate", 44100, "analysis sample rate")
	return cmd
}

func (a *app) runCompare(cmd *cobra.Command, o *compareOptions, refPath, candPath string) error {
	ref, sr, err := audiofile.ReadMono(refPath, o.sampleRate)
	if err != nil {
		return fmt.Errorf("reference: %w", err)
	}
	cand, _, err := audiofile.ReadMono(candPath, sr)
	if err != nil {
		return fmt.Errorf("candidate: %w", err)
	}
	m := analysis.Compare(ref, cand, sr)

	out := cmd.OutOrStdout()
	if a.jsonOutput() {
		return printJSON(out, m)
	}
	fmt.Fprintf(out, "Reference: %s (%d frames)\n", refPath, m.ReferenceFrames)
	fmt.Fprintf(out, "Candidate: %s (%d frames)\n", candPath, m.CandidateFrames)
	fmt.Fprintf(out, "Compared:  %d frames @ %d Hz\n\n", m.AlignedFrames, m.SampleRate)
	fmt.Fprintf(out, "envelope RMSE   %7.2f dB\n", m.EnvelopeRMSEDB)
	fmt.Fprintf(out, "spectral RMSE   %7.2f dB\n", m.SpectralRMSEDB)
	fmt.Fprintf(out, "feature dist    %7.4f\n", m.FeatureDistance)
	fmt.Fprintf(out, "categories      %s / %s\n", m.ReferenceCategory, m.CandidateCategory)
	fmt.Fprintf(out, "score           %7.4f\n", m.Score)
	fmt.Fprintf(out, "similarity      %6.2f%%\n", m.Similarity*100)
	return nil
}
