package ranging

import "time"

// Sample is one ranged distance and the time its reading was taken.
type Sample struct {
	Distance  float64
	Timestamp time.Time
}

// Window is a sliding window of distance samples bounded by age and count.
// Every retained sample is at most MaxAge older than the newest time the window has seen;
// once more than MaxSamples are held the oldest are dropped first.
type Window struct {
	maxAge     time.Duration
	maxSamples int

	samples []Sample
	newest  time.Time

	last    float64
	hasLast bool
}

// NewWindow creates an empty window. Non-positive bounds disable that bound.
func NewWindow(maxAge time.Duration, maxSamples int) *Window {
	return &Window{
		maxAge:     maxAge,
		maxSamples: maxSamples,
	}
}

// Add appends a sample and applies both bounds.
func (w *Window) Add(distance float64, ts time.Time) {
	w.samples = append(w.samples, Sample{Distance: distance, Timestamp: ts})
	if ts.After(w.newest) {
		w.newest = ts
	}
	w.trim(w.newest)
	if w.maxSamples > 0 && len(w.samples) > w.maxSamples {
		w.samples = w.samples[len(w.samples)-w.maxSamples:]
	}
	w.refresh()
}

// Evict drops samples older than MaxAge relative to now.
func (w *Window) Evict(now time.Time) {
	if now.After(w.newest) {
		w.newest = now
	}
	w.trim(now)
	w.refresh()
}

func (w *Window) trim(now time.Time) {
	if w.maxAge <= 0 {
		return
	}
	cutoff := now.Add(-w.maxAge)
	keep := w.samples[:0]
	for _, s := range w.samples {
		if !s.Timestamp.Before(cutoff) {
			keep = append(keep, s)
		}
	}
	// zero the tail so dropped samples don't pin memory
	for i := len(keep); i < len(w.samples); i++ {
		w.samples[i] = Sample{}
	}
	w.samples = keep
}

// refresh recomputes the cached mean. An empty window keeps the previous one.
func (w *Window) refresh() {
	if len(w.samples) == 0 {
		return
	}
	sum := 0.0
	for _, s := range w.samples {
		sum += s.Distance
	}
	w.last = sum / float64(len(w.samples))
	w.hasLast = true
}

// AverageDistance returns the mean of the retained samples. When the window is empty it
// returns the previous average; ok is false only if the window never held a sample.
// It does not modify the window, so concurrent readers are safe.
func (w *Window) AverageDistance() (avg float64, ok bool) {
	return w.last, w.hasLast
}

// Len returns the number of retained samples.
func (w *Window) Len() int {
	return len(w.samples)
}

// Samples returns a copy of the retained samples, oldest first.
func (w *Window) Samples() []Sample {
	out := make([]Sample, len(w.samples))
	copy(out, w.samples)
	return out
}
