package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-soundscape/classify"
	"github.com/cwbudde/algo-soundscape/internal/audiofile"
)

type classifyOptions struct {
	chunk     int
	window    int
	history   int
	threshold float64
	timeline  bool
	location  string
	latitude  float64
	longitude float64
}

func newClassifyCmd(a *app) *cobra.Command {
	o := &classifyOptions{}
	cmd := &cobra.Command{
		Use:   "classify <wav>",
		Short: "Stream a recording through the classifier and annotate it",
		Long: `Read a WAV file, resample it to 44.1 kHz mono and feed it to the streaming
classifier in fixed-size chunks, the way live capture would. Prints the
annotated recording and, with --timeline, every change of the stable category.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClassify(cmd, o, args[0])
		},
	}
	f := cmd.Flags()
	f.IntVar(&o.chunk, "chunk", 4410, "samples per streamed chunk")
	f.IntVar(&o.window, "window", classify.DefaultSampleRate, "classifier window in samples")
	f.IntVar(&o.history, "history", classify.DefaultHistorySize, "smoothing history length")
	f.Float64Var(&o.threshold, "threshold", classify.DefaultThreshold, "score acceptance floor")
	f.BoolVar(&o.timeline, "timeline", false, "print category changes while streaming")
	f.StringVar(&o.location, "location", "", "location label for the recording")
	f.Float64Var(&o.latitude, "lat", 0, "latitude of the recording")
	f.Float64Var(&o.longitude, "lon", 0, "longitude of the recording")
	return cmd
}

type timelineEntry struct {
	At         time.Duration     `json:"at"`
	Category   classify.Category `json:"category"`
	Confidence float64           `json:"confidence"`
}

type classifyReport struct {
	File      string              `json:"file"`
	Recording classify.Recording  `json:"recording"`
	History   []classify.Category `json:"history"`
	Timeline  []timelineEntry     `json:"timeline,omitempty"`
}

func (a *app) runClassify(cmd *cobra.Command, o *classifyOptions, path string) error {
	if o.chunk < 1 {
		return fmt.Errorf("chunk must be >= 1")
	}
	samples, sr, err := audiofile.ReadMono(path, classify.DefaultSampleRate)
	if err != nil {
		return err
	}

	cfg := classify.DefaultConfig()
	cfg.WindowSize = o.window
	cfg.HistorySize = o.history
	cfg.Threshold = o.threshold
	cfg.Logger = a.log
	c, err := classify.NewClassifier(cfg)
	if err != nil {
		return err
	}

	report, err := streamFile(c, audiofile.Float32(samples), sr, o.chunk, o.timeline)
	if err != nil {
		return err
	}
	report.File = path

	rec := classify.Recording{
		Duration:      time.Duration(float64(len(samples)) / float64(sr) * float64(time.Second)),
		RecordedAt:    time.Now(),
		LocationLabel: o.location,
	}
	if st, err := os.Stat(path); err == nil {
		rec.RecordedAt = st.ModTime()
	}
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
		rec.Coordinates = &classify.Coordinates{Latitude: o.latitude, Longitude: o.longitude}
	}
	report.Recording = c.Annotate(rec)

	out := cmd.OutOrStdout()
	if a.jsonOutput() {
		return printJSON(out, report)
	}
	if o.timeline {
		for _, e := range report.Timeline {
			fmt.Fprintf(out, "%8.2fs  %-7s %.3f\n", e.At.Seconds(), e.Category, e.Confidence)
		}
	}
	r := report.Recording
	fmt.Fprintf(out, "%s: %s (confidence %.3f, %.1fs)\n", path, r.Category.Label(), r.Confidence, r.Duration.Seconds())
	return nil
}

// streamFile feeds samples through c chunk by chunk and records changes of
// the stable category.
func streamFile(c *classify.Classifier, samples []float32, sampleRate, chunk int, timeline bool) (classifyReport, error) {
	var report classifyReport
	prev := classify.Category(-1)
	for pos := 0; pos < len(samples); pos += chunk {
		end := min(pos+chunk, len(samples))
		res := c.Process(samples[pos:end])
		if !timeline || res.State != classify.Ready || res.Category == prev {
			continue
		}
		prev = res.Category
		report.Timeline = append(report.Timeline, timelineEntry{
			At:         time.Duration(float64(end) / float64(sampleRate) * float64(time.Second)),
			Category:   res.Category,
			Confidence: res.Confidence,
		})
	}
	if c.State() != classify.Ready {
		return report, fmt.Errorf("recording too short: %d samples do not fill half the classifier window", len(samples))
	}
	report.History = c.History()
	return report, nil
}
