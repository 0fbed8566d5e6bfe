package positioning

import "math"

// Point is a position in grid units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Finite reports whether both coordinates are real numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Circle is a ranging constraint: a beacon position and a radius in grid units.
type Circle struct {
	Center Point
	R      float64
}

// intersect returns the candidate points contributed by a pair of circles.
//
// Properly intersecting (or tangent) circles yield their two intersection points.
// Disjoint or nested circles yield the midpoint of the segment joining their closest
// surface points. Concentric circles yield nothing.
func intersect(c1, c2 Circle) (pts []Point, crossing bool) {
	dx := c2.Center.X - c1.Center.X
	dy := c2.Center.Y - c1.Center.Y
	d := math.Hypot(dx, dy)
	if d == 0 || math.IsNaN(d) {
		return nil, false
	}
	ux, uy := dx/d, dy/d

	if d > c1.R+c2.R || d < math.Abs(c1.R-c2.R) {
		// closest surface points: facing sides when disjoint, same side when nested
		s1, s2 := 1.0, -1.0
		switch {
		case d < c1.R-c2.R:
			s2 = 1
		case d < c2.R-c1.R:
			s1 = -1
		}
		p1 := Point{X: c1.Center.X + s1*c1.R*ux, Y: c1.Center.Y + s1*c1.R*uy}
		p2 := Point{X: c2.Center.X + s2*c2.R*ux, Y: c2.Center.Y + s2*c2.R*uy}
		return []Point{{X: (p1.X + p2.X) / 2, Y: (p1.Y + p2.Y) / 2}}, false
	}

	a := (c1.R*c1.R - c2.R*c2.R + d*d) / (2 * d)
	h2 := c1.R*c1.R - a*a
	if h2 < 0 {
		// rounding at tangency
		h2 = 0
	}
	h := math.Sqrt(h2)
	xm := c1.Center.X + a*ux
	ym := c1.Center.Y + a*uy
	return []Point{
		{X: xm + h*uy, Y: ym - h*ux},
		{X: xm - h*uy, Y: ym + h*ux},
	}, true
}

func mean(pts []Point) Point {
	var sx, sy float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(pts))
	return Point{X: sx / n, Y: sy / n}
}
