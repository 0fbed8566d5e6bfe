package ranging

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidSignal is returned for a reading whose signal strength is not a real number.
var ErrInvalidSignal = errors.New("signal strength must be finite")

// Reading is a single signal observation delivered by a scanner.
type Reading struct {
	BeaconID  string
	RSSI      float64
	Timestamp time.Time
}

// Params are the per-beacon path-loss parameters.
type Params struct {
	RefPowerAt1m float64
	PathLossExp  float64
}

type track struct {
	window   *Window
	lastSeen time.Time
}

// Filter keeps one sample window per beacon. It is not safe for concurrent use;
// the owner serialises access.
type Filter struct {
	maxAge     time.Duration
	maxSamples int
	tracks     map[string]*track
}

// NewFilter creates a filter whose windows use the given bounds.
func NewFilter(maxAge time.Duration, maxSamples int) *Filter {
	return &Filter{
		maxAge:     maxAge,
		maxSamples: maxSamples,
		tracks:     make(map[string]*track),
	}
}

// Ingest converts the reading to a distance and appends it to the beacon's window.
// Readings for the same beacon must arrive in order.
func (f *Filter) Ingest(r Reading, p Params) error {
	if math.IsNaN(r.RSSI) || math.IsInf(r.RSSI, 0) {
		return fmt.Errorf("ingest %s: %w", r.BeaconID, ErrInvalidSignal)
	}
	d, err := Distance(r.RSSI, p.RefPowerAt1m, p.PathLossExp)
	if err != nil {
		return err
	}
	t, ok := f.tracks[r.BeaconID]
	if !ok {
		t = &track{window: NewWindow(f.maxAge, f.maxSamples)}
		f.tracks[r.BeaconID] = t
	}
	t.window.Add(d, r.Timestamp)
	if r.Timestamp.After(t.lastSeen) {
		t.lastSeen = r.Timestamp
	}
	return nil
}

// Evict ages out samples in every window.
func (f *Filter) Evict(now time.Time) {
	for _, t := range f.tracks {
		t.window.Evict(now)
	}
}

// AverageDistance returns the beacon's filtered distance in meters.
func (f *Filter) AverageDistance(id string) (float64, bool) {
	t, ok := f.tracks[id]
	if !ok {
		return 0, false
	}
	return t.window.AverageDistance()
}

// LastSeen returns the timestamp of the newest reading for the beacon.
func (f *Filter) LastSeen(id string) (time.Time, bool) {
	t, ok := f.tracks[id]
	if !ok {
		return time.Time{}, false
	}
	return t.lastSeen, true
}

// SampleCount returns how many samples the beacon's window currently holds.
func (f *Filter) SampleCount(id string) int {
	if t, ok := f.tracks[id]; ok {
		return t.window.Len()
	}
	return 0
}

// Forget drops all history for a beacon.
func (f *Filter) Forget(id string) {
	delete(f.tracks, id)
}
