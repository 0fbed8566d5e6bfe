package positioning

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// TripletMaxSpread bounds how far (grid units) a triplet's centroid may sit from the
// beacon centroid to be considered.
const TripletMaxSpread = 15.0

func tightestTriplet(anchors []Anchor, scale float64) (Point, bool) {
	cs := circles(anchors, scale)
	var pts []Point
	for i := 0; i < len(cs); i++ {
		for j := i + 1; j < len(cs); j++ {
			got, _ := intersect(cs[i], cs[j])
			pts = append(pts, got...)
		}
	}
	if len(pts) == 0 {
		return Point{}, false
	}
	if len(pts) < 3 {
		return mean(pts), true
	}

	centers := make([]Point, len(anchors))
	for i, a := range anchors {
		centers[i] = a.Pos
	}
	centroid := mean(centers)

	best := math.Inf(1)
	var bestPts []Point
	for i := 0; i < len(pts)-2; i++ {
		for j := i + 1; j < len(pts)-1; j++ {
			for k := j + 1; k < len(pts); k++ {
				tri := []Point{pts[i], pts[j], pts[k]}
				tight := Dist(tri[0], tri[1]) + Dist(tri[0], tri[2]) + Dist(tri[1], tri[2])
				if tight < best && Dist(mean(tri), centroid) < TripletMaxSpread {
					best = tight
					bestPts = tri
				}
			}
		}
	}
	if bestPts == nil {
		return mean(pts), true
	}
	return mean(bestPts), true
}

// leastSquares subtracts the nearest anchor's range equation from every other one,
// leaving a linear system A·p = b solved in the least-squares sense.
func leastSquares(anchors []Anchor, scale float64) (Point, bool) {
	sorted := make([]Anchor, len(anchors))
	copy(sorted, anchors)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Distance < sorted[j].Distance })

	ref := sorted[0]
	dRef := ref.Distance * scale
	rows := len(sorted) - 1
	A := mat.NewDense(rows, 2, nil)
	b := mat.NewVecDense(rows, nil)
	for i, a := range sorted[1:] {
		d := a.Distance * scale
		A.Set(i, 0, 2*(a.Pos.X-ref.Pos.X))
		A.Set(i, 1, 2*(a.Pos.Y-ref.Pos.Y))
		b.SetVec(i, dRef*dRef-d*d+
			a.Pos.X*a.Pos.X-ref.Pos.X*ref.Pos.X+
			a.Pos.Y*a.Pos.Y-ref.Pos.Y*ref.Pos.Y)
	}

	var x mat.VecDense
	if err := x.SolveVec(A, b); err != nil {
		return Point{}, false
	}
	p := Point{X: x.AtVec(0), Y: x.AtVec(1)}
	return p, p.Finite()
}
