package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-soundscape/classify"
)

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0o644)
}

func printFeatures(w io.Writer, f classify.Features) {
	fmt.Fprintf(w, "  zero-crossing rate   %.4f\n", f.ZeroCrossingRate)
	fmt.Fprintf(w, "  rms                  %.4f\n", f.RMS)
	fmt.Fprintf(w, "  spectral flatness    %.4f\n", f.SpectralFlatness)
	fmt.Fprintf(w, "  high-frequency ratio %.4f\n", f.HighFrequencyRatio)
	fmt.Fprintf(w, "  centroid proxy       %.1f\n", f.SpectralCentroid)
}

func printScores(w io.Writer, scores []classify.CategoryScore, threshold float64) {
	for _, s := range scores {
		bar := strings.Repeat("#", int(s.Score*40+0.5))
		marker := ""
		if s.Score > threshold {
			marker = " *"
		}
		fmt.Fprintf(w, "  %-7s %.3f %-40s%s\n", s.Category, s.Score, bar, marker)
	}
}
