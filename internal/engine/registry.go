package engine

import (
	"fmt"
	"math"

	"indoor-nav.klederson.com/internal/positioning"
	"indoor-nav.klederson.com/internal/ranging"
)

// Beacon is a fixed transmitter with a known position on the floor grid.
type Beacon struct {
	ID           string            `json:"id"`
	Position     positioning.Point `json:"position"`
	RefPowerAt1m float64           `json:"ref_power_at_1m"` // RSSI at 1 meter (dBm)
	PathLossExp  float64           `json:"path_loss_exp"`
}

func (b Beacon) params() ranging.Params {
	return ranging.Params{RefPowerAt1m: b.RefPowerAt1m, PathLossExp: b.PathLossExp}
}

func (b Beacon) validate() error {
	if b.ID == "" {
		return ErrEmptyID
	}
	if !(b.PathLossExp > 0) {
		return fmt.Errorf("beacon %s: %w (got %v)", b.ID, ranging.ErrInvalidExponent, b.PathLossExp)
	}
	if !b.Position.Finite() || math.IsNaN(b.RefPowerAt1m) || math.IsInf(b.RefPowerAt1m, 0) {
		return fmt.Errorf("beacon %s: %w", b.ID, ErrInvalidBeacon)
	}
	return nil
}

// registry holds beacons in registration order. The engine serialises access.
type registry struct {
	order []string
	byID  map[string]Beacon
}

func newRegistry() *registry {
	return &registry{byID: make(map[string]Beacon)}
}

func (r *registry) add(b Beacon) error {
	if err := b.validate(); err != nil {
		return err
	}
	if _, ok := r.byID[b.ID]; ok {
		return fmt.Errorf("add %s: %w", b.ID, ErrDuplicateBeacon)
	}
	r.byID[b.ID] = b
	r.order = append(r.order, b.ID)
	return nil
}

// update replaces a beacon's position and parameters, keeping its place in the order.
func (r *registry) update(b Beacon) error {
	if err := b.validate(); err != nil {
		return err
	}
	if _, ok := r.byID[b.ID]; !ok {
		return fmt.Errorf("update %s: %w", b.ID, ErrUnknownBeacon)
	}
	r.byID[b.ID] = b
	return nil
}

func (r *registry) remove(id string) error {
	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("remove %s: %w", id, ErrUnknownBeacon)
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *registry) get(id string) (Beacon, bool) {
	b, ok := r.byID[id]
	return b, ok
}

// list returns a copy of all beacons in registration order.
func (r *registry) list() []Beacon {
	out := make([]Beacon, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *registry) len() int { return len(r.order) }
