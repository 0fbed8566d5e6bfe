package positioning

import (
	"fmt"
	"math"
	"strings"
)

// Anchor is a ranged beacon: its fixed position in grid units and its filtered
// distance in meters.
type Anchor struct {
	ID       string
	Pos      Point
	Distance float64
}

// Strategy selects how three or more anchors are fused into one position.
type Strategy int

const (
	// StrategyPairwise averages pairwise circle intersections, substituting the
	// closest-surface midpoint for pairs that do not cross.
	StrategyPairwise Strategy = iota
	// StrategyTightestTriplet keeps the three intersection points that cluster most
	// tightly near the beacon centroid.
	StrategyTightestTriplet
	// StrategyLeastSquares linearises the range equations against the nearest anchor.
	StrategyLeastSquares
)

func (s Strategy) String() string {
	switch s {
	case StrategyTightestTriplet:
		return "triplet"
	case StrategyLeastSquares:
		return "least-squares"
	default:
		return "pairwise"
	}
}

// ParseStrategy converts a strategy name into a Strategy.
func ParseStrategy(value string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "pairwise":
		return StrategyPairwise, nil
	case "triplet", "tightest-triplet":
		return StrategyTightestTriplet, nil
	case "least-squares", "leastsquares", "lsq":
		return StrategyLeastSquares, nil
	default:
		return StrategyPairwise, fmt.Errorf("unknown strategy %q", value)
	}
}

// minWeightDistSq floors the squared distance used for inverse-square weighting.
const minWeightDistSq = 0.1

// Estimator turns ranged anchors into a raw position estimate. It remembers its
// previous output and returns it whenever the inputs cannot support a new one, so
// the result is always finite.
type Estimator struct {
	strategy Strategy
	last     Point
}

// NewEstimator creates an estimator holding start until a first estimate exists.
func NewEstimator(strategy Strategy, start Point) *Estimator {
	return &Estimator{strategy: strategy, last: start}
}

// Strategy returns the configured solver.
func (e *Estimator) Strategy() Strategy { return e.strategy }

// Last returns the previous raw estimate.
func (e *Estimator) Last() Point { return e.last }

// Estimate computes a raw position from the anchors. scale converts meters to grid
// units (grid units per meter).
//
// No anchors hold the previous estimate. One or two anchors snap to the nearest one.
// Three or more run the configured strategy, then an inverse-square weighted average
// of anchor positions, then the previous estimate.
func (e *Estimator) Estimate(anchors []Anchor, scale float64) Point {
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = 1
	}

	var p Point
	ok := false
	switch {
	case len(anchors) == 0:
		return e.last
	case len(anchors) < 3:
		p, ok = nearest(anchors)
	default:
		switch e.strategy {
		case StrategyTightestTriplet:
			p, ok = tightestTriplet(anchors, scale)
		case StrategyLeastSquares:
			p, ok = leastSquares(anchors, scale)
		default:
			p, ok = pairwise(anchors, scale)
		}
		if !ok || !p.Finite() {
			p, ok = weightedAverage(anchors)
		}
	}

	if !ok || !p.Finite() {
		return e.last
	}
	e.last = p
	return p
}

func nearest(anchors []Anchor) (Point, bool) {
	best := -1
	for i, a := range anchors {
		if math.IsNaN(a.Distance) {
			continue
		}
		if best < 0 || a.Distance < anchors[best].Distance {
			best = i
		}
	}
	if best < 0 {
		return Point{}, false
	}
	return anchors[best].Pos, true
}

func circles(anchors []Anchor, scale float64) []Circle {
	out := make([]Circle, len(anchors))
	for i, a := range anchors {
		out[i] = Circle{Center: a.Pos, R: a.Distance * scale}
	}
	return out
}

// residual is the squared range error of p against every circle except i and j.
func residual(p Point, cs []Circle, i, j int) float64 {
	sum := 0.0
	for k, c := range cs {
		if k == i || k == j {
			continue
		}
		e := Dist(p, c.Center) - c.R
		sum += e * e
	}
	return sum
}

func pairwise(anchors []Anchor, scale float64) (Point, bool) {
	cs := circles(anchors, scale)
	var candidates []Point
	for i := 0; i < len(cs); i++ {
		for j := i + 1; j < len(cs); j++ {
			pts, crossing := intersect(cs[i], cs[j])
			if crossing && len(cs) > 2 {
				// keep the intersection the other ranges agree with; drop its mirror
				r0 := residual(pts[0], cs, i, j)
				r1 := residual(pts[1], cs, i, j)
				switch {
				case r0 < r1:
					pts = pts[:1]
				case r1 < r0:
					pts = pts[1:]
				}
			}
			candidates = append(candidates, pts...)
		}
	}
	if len(candidates) == 0 {
		return Point{}, false
	}
	return mean(candidates), true
}

// weightedAverage places the receiver among the anchors, closer anchors pulling harder.
func weightedAverage(anchors []Anchor) (Point, bool) {
	var sx, sy, total float64
	for _, a := range anchors {
		if math.IsNaN(a.Distance) {
			continue
		}
		w := 1 / math.Max(minWeightDistSq, a.Distance*a.Distance)
		sx += a.Pos.X * w
		sy += a.Pos.Y * w
		total += w
	}
	if total == 0 || math.IsInf(total, 0) {
		return Point{}, false
	}
	return Point{X: sx / total, Y: sy / total}, true
}
