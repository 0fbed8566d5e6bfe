package positioning

import (
	"errors"
	"fmt"
)

// ErrInvalidAlpha is returned for a smoothing factor outside (0, 1].
var ErrInvalidAlpha = errors.New("smoothing alpha must be in (0, 1]")

// Smoother applies an exponential moving average to successive raw estimates.
// It is stepped explicitly by its owner, once per recompute tick.
type Smoother struct {
	alpha float64
	pos   Point
}

// NewSmoother creates a smoother starting at start.
func NewSmoother(alpha float64, start Point) (*Smoother, error) {
	if !(alpha > 0 && alpha <= 1) {
		return nil, fmt.Errorf("new smoother: %w (got %v)", ErrInvalidAlpha, alpha)
	}
	if !start.Finite() {
		start = Point{}
	}
	return &Smoother{alpha: alpha, pos: start}, nil
}

// Step blends raw into the smoothed position: pos = pos*(1-alpha) + raw*alpha.
// A non-finite raw leaves the position unchanged.
func (s *Smoother) Step(raw Point) Point {
	if !raw.Finite() {
		return s.pos
	}
	next := Point{
		X: s.pos.X*(1-s.alpha) + raw.X*s.alpha,
		Y: s.pos.Y*(1-s.alpha) + raw.Y*s.alpha,
	}
	if next.Finite() {
		s.pos = next
	}
	return s.pos
}

// Position returns the current smoothed position.
func (s *Smoother) Position() Point { return s.pos }

