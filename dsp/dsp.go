package dsp

// DelayLine implements a circular buffer for delay
type DelayLine struct {
	buffer   []float32
	writePos int
	size     int
}

// NewDelayLine creates a delay line able to read back up to maxDelay samples.
func NewDelayLine(maxDelay int) *DelayLine {
	if maxDelay < 0 {
		maxDelay = 0
	}
	size := maxDelay + 1
	return &DelayLine{
		buffer: make([]float32, size),
		size:   size,
	}
}

// Write writes a sample to the delay line
func (d *DelayLine) Write(sample float32) {
	d.buffer[d.writePos] = sample
	d.writePos = (d.writePos + 1) % d.size
}

// Read returns the sample written delay writes ago. Read(1) is the most
// recent sample; history that was never written reads as 0.
func (d *DelayLine) Read(delay int) float32 {
	if delay <= 0 || delay >= d.size {
		return 0
	}
	readPos := (d.writePos - delay + d.size) % d.size
	return d.buffer[readPos]
}

// MaxDelay is the longest delay Read can serve.
func (d *DelayLine) MaxDelay() int {
	return d.size - 1
}

// Reset clears the delay line
func (d *DelayLine) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
}
