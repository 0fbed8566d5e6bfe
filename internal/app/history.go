package app

import "indoor-nav.klederson.com/internal/engine"

// Trails holds the recent distance estimates of each ranged beacon, newest last,
// for the sparklines in the beacon list.
type Trails struct {
	size int
	byID map[string][]float64
}

// NewTrails keeps up to size estimates per beacon.
func NewTrails(size int) *Trails {
	if size < 1 {
		size = 1
	}
	return &Trails{size: size, byID: make(map[string][]float64)}
}

// Record appends the distance of every ranged beacon in s. Beacons that are no longer
// registered lose their trail; unranged ones keep it unchanged.
func (t *Trails) Record(s engine.Snapshot) {
	seen := make(map[string]bool, len(s.Beacons))
	for _, b := range s.Beacons {
		seen[b.ID] = true
		if !b.Ranged {
			continue
		}
		trail := append(t.byID[b.ID], b.Distance)
		if over := len(trail) - t.size; over > 0 {
			trail = append(trail[:0], trail[over:]...)
		}
		t.byID[b.ID] = trail
	}
	for id := range t.byID {
		if !seen[id] {
			delete(t.byID, id)
		}
	}
}

// Of returns a copy of one beacon's trail, oldest first.
func (t *Trails) Of(id string) []float64 {
	trail := t.byID[id]
	if len(trail) == 0 {
		return nil
	}
	return append([]float64(nil), trail...)
}

// Latest returns the newest estimate for id.
func (t *Trails) Latest(id string) (float64, bool) {
	trail := t.byID[id]
	if len(trail) == 0 {
		return 0, false
	}
	return trail[len(trail)-1], true
}

// All copies every trail for rendering.
func (t *Trails) All() map[string][]float64 {
	out := make(map[string][]float64, len(t.byID))
	for id := range t.byID {
		out[id] = t.Of(id)
	}
	return out
}
