package engine

import (
	"time"

	"indoor-nav.klederson.com/internal/positioning"
)

// BeaconState is a beacon together with what the filter currently knows about it.
type BeaconState struct {
	Beacon
	Distance    float64   `json:"distance"` // meters, valid when HasDistance
	HasDistance bool      `json:"has_distance"`
	Ranged      bool      `json:"ranged"` // used by the last tick
	Samples     int       `json:"samples"`
	LastSeen    time.Time `json:"last_seen"`
}

// Snapshot is a consistent copy of the engine's externally visible state.
type Snapshot struct {
	Time     time.Time         `json:"time"`
	Position positioning.Point `json:"position"`
	Raw      positioning.Point `json:"raw"`
	Scale    float64           `json:"scale"`
	Strategy string            `json:"strategy"`
	Beacons  []BeaconState     `json:"beacons"`
}

// Ranged counts beacons that took part in the last tick.
func (s Snapshot) Ranged() int {
	n := 0
	for _, b := range s.Beacons {
		if b.Ranged {
			n++
		}
	}
	return n
}

// Snapshot captures the state as of the last tick.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Snapshot{
		Time:     e.lastTick,
		Position: e.smoother.Position(),
		Raw:      e.estimator.Last(),
		Scale:    e.scale,
		Strategy: e.estimator.Strategy().String(),
	}
	for _, b := range e.beacons.list() {
		st := BeaconState{Beacon: b, Samples: e.filter.SampleCount(b.ID)}
		st.Distance, st.HasDistance = e.filter.AverageDistance(b.ID)
		st.LastSeen, _ = e.filter.LastSeen(b.ID)
		if !e.lastTick.IsZero() {
			_, st.Ranged = e.rangeLocked(b.ID, e.lastTick)
		}
		s.Beacons = append(s.Beacons, st)
	}
	return s
}
