package positioning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rangedFrom returns anchors at the given positions with exact distances (meters)
// to truth, given a grid-units-per-meter scale.
func rangedFrom(truth Point, scale float64, pos ...Point) []Anchor {
	out := make([]Anchor, len(pos))
	for i, p := range pos {
		out[i] = Anchor{ID: string(rune('a' + i)), Pos: p, Distance: Dist(p, truth) / scale}
	}
	return out
}

func assertPoint(t *testing.T, want, got Point, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
}

func TestEstimateSparseAnchors(t *testing.T) {
	t.Parallel()

	t.Run("no anchors hold the previous estimate", func(t *testing.T) {
		e := NewEstimator(StrategyPairwise, Point{X: 1, Y: 1})
		assert.Equal(t, Point{X: 1, Y: 1}, e.Estimate(nil, 1))

		e.Estimate([]Anchor{{ID: "b", Pos: Point{X: 7, Y: 2}, Distance: 3}}, 1)
		assert.Equal(t, Point{X: 7, Y: 2}, e.Estimate(nil, 1))
	})

	t.Run("single anchor returns its position", func(t *testing.T) {
		e := NewEstimator(StrategyPairwise, Point{})
		got := e.Estimate([]Anchor{{ID: "b", Pos: Point{X: 3, Y: 4}, Distance: 12}}, 1)
		assert.Equal(t, Point{X: 3, Y: 4}, got)
	})

	t.Run("two anchors snap to the nearer one", func(t *testing.T) {
		e := NewEstimator(StrategyPairwise, Point{})
		got := e.Estimate([]Anchor{
			{ID: "far", Pos: Point{X: 0, Y: 0}, Distance: 4.2},
			{ID: "near", Pos: Point{X: 9, Y: 5}, Distance: 1.1},
		}, 1)
		assert.Equal(t, Point{X: 9, Y: 5}, got)
	})
}

func TestEstimateRoundTrip(t *testing.T) {
	t.Parallel()
	truth := Point{X: 3, Y: 4}
	beacons := []Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 10}}

	for _, s := range []Strategy{StrategyPairwise, StrategyTightestTriplet, StrategyLeastSquares} {
		t.Run(s.String(), func(t *testing.T) {
			e := NewEstimator(s, Point{})
			got := e.Estimate(rangedFrom(truth, 1, beacons...), 1)
			assertPoint(t, truth, got, 1e-9)
			assert.Equal(t, got, e.Last())
		})
	}

	t.Run("scale converts meters to grid units", func(t *testing.T) {
		scaled := []Point{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 0, Y: 20}}
		e := NewEstimator(StrategyPairwise, Point{})
		got := e.Estimate(rangedFrom(Point{X: 6, Y: 8}, 2, scaled...), 2)
		assertPoint(t, Point{X: 6, Y: 8}, got, 1e-9)
	})

	t.Run("four anchors still recover the point", func(t *testing.T) {
		four := append(beacons, Point{X: 10, Y: 10})
		e := NewEstimator(StrategyPairwise, Point{})
		got := e.Estimate(rangedFrom(truth, 1, four...), 1)
		assertPoint(t, truth, got, 1e-9)
	})
}

func TestEstimateDegenerate(t *testing.T) {
	t.Parallel()

	t.Run("disjoint circles contribute surface midpoints", func(t *testing.T) {
		e := NewEstimator(StrategyPairwise, Point{})
		got := e.Estimate([]Anchor{
			{ID: "a", Pos: Point{X: 0, Y: 0}, Distance: 1},
			{ID: "b", Pos: Point{X: 10, Y: 0}, Distance: 1},
			{ID: "c", Pos: Point{X: 5, Y: 10}, Distance: 1},
		}, 1)
		assertPoint(t, Point{X: 5, Y: 10.0 / 3}, got, 1e-9)
	})

	t.Run("nested circles contribute surface midpoints", func(t *testing.T) {
		pts, crossing := intersect(Circle{Center: Point{}, R: 10}, Circle{Center: Point{X: 2}, R: 1})
		assert.False(t, crossing)
		require.Len(t, pts, 1)
		// closest surface points (10,0) and (3,0)
		assertPoint(t, Point{X: 6.5, Y: 0}, pts[0], 1e-12)
	})

	t.Run("coincident beacons fall back to weighted average", func(t *testing.T) {
		for _, s := range []Strategy{StrategyPairwise, StrategyLeastSquares} {
			e := NewEstimator(s, Point{X: -1, Y: -1})
			got := e.Estimate([]Anchor{
				{ID: "a", Pos: Point{X: 2, Y: 2}, Distance: 1},
				{ID: "b", Pos: Point{X: 2, Y: 2}, Distance: 2},
				{ID: "c", Pos: Point{X: 2, Y: 2}, Distance: 3},
			}, 1)
			assertPoint(t, Point{X: 2, Y: 2}, got, 1e-12)
		}
	})

	t.Run("weighted average favours closer anchors", func(t *testing.T) {
		got, ok := weightedAverage([]Anchor{
			{Pos: Point{X: 0, Y: 0}, Distance: 1},
			{Pos: Point{X: 10, Y: 0}, Distance: 2},
		})
		require.True(t, ok)
		// weights 1 and 1/4
		assertPoint(t, Point{X: 2, Y: 0}, got, 1e-12)
	})

	t.Run("never produces NaN", func(t *testing.T) {
		e := NewEstimator(StrategyPairwise, Point{X: 4, Y: 4})
		got := e.Estimate([]Anchor{
			{ID: "a", Pos: Point{X: 0, Y: 0}, Distance: math.NaN()},
			{ID: "b", Pos: Point{X: 10, Y: 0}, Distance: math.NaN()},
			{ID: "c", Pos: Point{X: 0, Y: 10}, Distance: math.NaN()},
		}, 1)
		assert.True(t, got.Finite())
		assert.Equal(t, Point{X: 4, Y: 4}, got)
	})

	t.Run("invalid scale is treated as one", func(t *testing.T) {
		e := NewEstimator(StrategyPairwise, Point{})
		truth := Point{X: 3, Y: 4}
		got := e.Estimate(rangedFrom(truth, 1, Point{}, Point{X: 10}, Point{Y: 10}), 0)
		assertPoint(t, truth, got, 1e-9)
	})
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()
	cases := map[string]Strategy{
		"":              StrategyPairwise,
		"pairwise":      StrategyPairwise,
		"Triplet":       StrategyTightestTriplet,
		"least-squares": StrategyLeastSquares,
		" lsq ":         StrategyLeastSquares,
	}
	for in, want := range cases {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseStrategy("kalman")
	assert.Error(t, err)
}

func TestSmoother(t *testing.T) {
	t.Parallel()

	t.Run("alpha one follows raw immediately", func(t *testing.T) {
		s, err := NewSmoother(1, Point{})
		require.NoError(t, err)
		assert.Equal(t, Point{X: 8, Y: -3}, s.Step(Point{X: 8, Y: -3}))
	})

	t.Run("tiny alpha stays at the start", func(t *testing.T) {
		s, err := NewSmoother(1e-9, Point{X: 2, Y: 2})
		require.NoError(t, err)
		for i := 0; i < 1000; i++ {
			s.Step(Point{X: 100, Y: -100})
		}
		assertPoint(t, Point{X: 2, Y: 2}, s.Position(), 1e-3)
	})

	t.Run("default alpha blends", func(t *testing.T) {
		s, err := NewSmoother(0.95, Point{})
		require.NoError(t, err)
		assertPoint(t, Point{X: 9.5}, s.Step(Point{X: 10}), 1e-12)
		assertPoint(t, Point{X: 9.975}, s.Step(Point{X: 10}), 1e-12)
	})

	t.Run("ignores non-finite raw", func(t *testing.T) {
		s, err := NewSmoother(0.5, Point{X: 1, Y: 1})
		require.NoError(t, err)
		assert.Equal(t, Point{X: 1, Y: 1}, s.Step(Point{X: math.Inf(1), Y: 0}))
	})

	t.Run("rejects alpha outside (0,1]", func(t *testing.T) {
		for _, a := range []float64{0, -0.5, 1.01, math.NaN()} {
			_, err := NewSmoother(a, Point{})
			assert.ErrorIs(t, err, ErrInvalidAlpha, "alpha %v", a)
		}
	})
}

func TestCalibrate(t *testing.T) {
	t.Parallel()

	got, err := Calibrate(Point{X: 0, Y: 0}, Point{X: 6, Y: 0}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 1e-12)

	for _, m := range []float64{0, -3} {
		_, err := Calibrate(Point{}, Point{X: 6}, m)
		assert.ErrorIs(t, err, ErrInvalidDistance)
	}

	_, err = Calibrate(Point{X: 1, Y: 1}, Point{X: 1, Y: 1}, 2)
	assert.ErrorIs(t, err, ErrCoincidentBeacons)
}
