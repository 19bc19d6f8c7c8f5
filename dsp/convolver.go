package dsp

import (
	"fmt"

	dspconv "github.com/cwbudde/algo-dsp/dsp/conv"
)

// DefaultPartSize is the block length of the partitioned convolution.
const DefaultPartSize = 128

// Convolver implements streaming partitioned convolution of a mono signal
// with a fixed impulse response.
type Convolver struct {
	partSize int
	irLen    int

	ola *dspconv.StreamingOverlapAddT[float32, complex64]

	// Pre-allocated buffers for zero-allocation processing
	out    []float32
	padded []float32
}

// NewConvolver creates a convolver for ir. partSize <= 0 selects
// DefaultPartSize.
func NewConvolver(ir []float32, partSize int) (*Convolver, error) {
	if len(ir) == 0 {
		return nil, fmt.Errorf("empty impulse response")
	}
	if partSize <= 0 {
		partSize = DefaultPartSize
	}
	ola, err := dspconv.NewStreamingOverlapAdd32(ir, partSize)
	if err != nil {
		return nil, fmt.Errorf("partitioned convolver: %w", err)
	}
	return &Convolver{
		partSize: partSize,
		irLen:    len(ir),
		ola:      ola,
		out:      make([]float32, partSize),
		padded:   make([]float32, partSize),
	}, nil
}

// Process convolves input and returns len(input) output samples. State
// carries over between calls. A trailing partial block is zero-padded, so
// only the last call of a stream may pass a length that is not a multiple
// of the part size.
func (c *Convolver) Process(input []float32) ([]float32, error) {
	output := make([]float32, len(input))

	// Handle arbitrary input lengths by processing in partSize blocks
	for processed := 0; processed < len(input); processed += c.partSize {
		blockEnd := min(processed+c.partSize, len(input))
		blockLen := blockEnd - processed
		block := input[processed:blockEnd]

		// Pad the last block
		if blockLen < c.partSize {
			clear(c.padded)
			copy(c.padded, block)
			block = c.padded
		}

		if err := c.ola.ProcessBlockTo(c.out, block); err != nil {
			return nil, err
		}
		copy(output[processed:blockEnd], c.out[:blockLen])
	}
	return output, nil
}

// Tail is the number of samples the response rings after the input ends.
func (c *Convolver) Tail() int {
	return c.irLen - 1
}

// Reset clears convolver history and overlap buffers.
func (c *Convolver) Reset() {
	c.ola.Reset()
}
