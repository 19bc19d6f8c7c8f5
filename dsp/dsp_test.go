package dsp

import "testing"

func TestDelayLineReadsHistory(t *testing.T) {
	d := NewDelayLine(3)
	for i := 1; i <= 5; i++ {
		d.Write(float32(i))
	}
	want := map[int]float32{1: 5, 2: 4, 3: 3}
	for delay, v := range want {
		if got := d.Read(delay); got != v {
			t.Fatalf("Read(%d) = %v, want %v", delay, got, v)
		}
	}
	if got := d.Read(4); got != 0 {
		t.Fatalf("Read beyond max delay = %v, want 0", got)
	}
}

func TestDelayLineUnwrittenHistoryIsZero(t *testing.T) {
	d := NewDelayLine(8)
	d.Write(1)
	if got := d.Read(2); got != 0 {
		t.Fatalf("Read(2) after one write = %v, want 0", got)
	}
	d.Reset()
	if got := d.Read(1); got != 0 {
		t.Fatalf("Read(1) after reset = %v, want 0", got)
	}
}

func TestWindowKeepsMostRecentSamples(t *testing.T) {
	w := NewWindow(4)
	w.Append([]float32{1, 2, 3})
	if w.Len() != 3 {
		t.Fatalf("Len = %d, want 3", w.Len())
	}
	w.Append([]float32{4, 5})
	if w.Len() != 4 {
		t.Fatalf("Len = %d, want 4", w.Len())
	}
	got := w.CopyTo(nil)
	want := []float32{2, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CopyTo[%d] = %v, want %v (all=%v)", i, got[i], want[i], got)
		}
	}
}

func TestWindowOversizedAppend(t *testing.T) {
	w := NewWindow(3)
	w.Append([]float32{9})
	w.Append([]float32{1, 2, 3, 4, 5})
	got := w.CopyTo(make([]float32, 0, 8))
	want := []float32{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CopyTo[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWindowNeverExceedsCapacity(t *testing.T) {
	w := NewWindow(100)
	chunk := make([]float32, 37)
	for i := 0; i < 50; i++ {
		w.Append(chunk)
		if w.Len() > w.Cap() {
			t.Fatalf("window length %d exceeds capacity %d", w.Len(), w.Cap())
		}
	}
	w.Reset()
	if w.Len() != 0 {
		t.Fatalf("Len after Reset = %d", w.Len())
	}
}
