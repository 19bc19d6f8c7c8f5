package dsp

// Window is a bounded sliding window over a sample stream. Appends that
// overflow the capacity drop the oldest samples.
type Window struct {
	buffer   []float32
	writePos int
	length   int
}

// NewWindow creates an empty window holding at most capacity samples.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buffer: make([]float32, capacity)}
}

// Append adds samples to the end of the window.
func (w *Window) Append(samples []float32) {
	size := len(w.buffer)
	if len(samples) >= size {
		// Only the trailing capacity samples survive.
		copy(w.buffer, samples[len(samples)-size:])
		w.writePos = 0
		w.length = size
		return
	}
	for _, s := range samples {
		w.buffer[w.writePos] = s
		w.writePos++
		if w.writePos == size {
			w.writePos = 0
		}
	}
	w.length += len(samples)
	if w.length > size {
		w.length = size
	}
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return w.length
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.buffer)
}

// CopyTo writes the held samples oldest-first into dst (grown as needed)
// and returns it.
func (w *Window) CopyTo(dst []float32) []float32 {
	if cap(dst) < w.length {
		dst = make([]float32, w.length)
	}
	dst = dst[:w.length]
	start := w.writePos - w.length
	if start < 0 {
		start += len(w.buffer)
	}
	n := copy(dst, w.buffer[start:])
	if n < w.length {
		copy(dst[n:], w.buffer[:w.length-n])
	}
	return dst
}

// Reset empties the window.
func (w *Window) Reset() {
	for i := range w.buffer {
		w.buffer[i] = 0
	}
	w.writePos = 0
	w.length = 0
}
