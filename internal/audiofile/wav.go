// Package audiofile reads and writes the WAV files the soundscape tools
// exchange.
package audiofile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-soundscape/synth"
)

// ReadMono decodes a PCM WAV file, mixes it down to mono and resamples to
// targetRate. Samples are full-scale floats clamped to [-1,1]. targetRate
// <= 0 keeps the file rate. The returned rate is the rate of the returned
// samples.
func ReadMono(path string, targetRate int) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = Clamp(sum/float64(ch), -1, 1)
	}

	rate := buf.Format.SampleRate
	if targetRate <= 0 || targetRate == rate {
		return out, rate, nil
	}
	out, err = Resample(out, rate, targetRate)
	if err != nil {
		return nil, 0, fmt.Errorf("resample %s: %w", path, err)
	}
	return out, targetRate, nil
}

// Resample converts in from fromRate to toRate.
func Resample(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// WriteMono writes data as a 16-bit mono WAV, creating parent directories.
func WriteMono(path string, data []float32, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: 1,
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return enc.Close()
}

// WriteTrack writes the track audio to path and its metadata to a sidecar
// with the same base name and a .yaml extension. It returns the sidecar
// path.
func WriteTrack(path string, t *synth.Track) (string, error) {
	if t == nil {
		return "", fmt.Errorf("nil track")
	}
	if err := WriteMono(path, t.Samples, t.SampleRate); err != nil {
		return "", err
	}
	meta, err := yaml.Marshal(t)
	if err != nil {
		return "", err
	}
	sidecar := SidecarPath(path)
	if err := os.WriteFile(sidecar, meta, 0o644); err != nil {
		return "", err
	}
	return sidecar, nil
}

// ReadTrackMeta loads a metadata sidecar written by WriteTrack. The
// returned track carries no samples.
func ReadTrackMeta(path string) (*synth.Track, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t synth.Track
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &t, nil
}

// SidecarPath maps foo/bar.wav to foo/bar.yaml.
func SidecarPath(wavPath string) string {
	return strings.TrimSuffix(wavPath, filepath.Ext(wavPath)) + ".yaml"
}

// Float32 converts samples for the classifier and the WAV encoder.
func Float32(x []float64) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v)
	}
	return out
}

// Float64 converts samples for analysis.
func Float64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}
