package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"indoor-nav.klederson.com/internal/engine"
	"indoor-nav.klederson.com/internal/pathfind"
	"indoor-nav.klederson.com/internal/positioning"
)

func TestRenderSparkline(t *testing.T) {
	t.Parallel()

	assert.Empty(t, renderSparkline(nil, 10))
	assert.Equal(t, "_^", renderSparkline([]float64{1, 5}, 10))
	assert.Equal(t, "___", renderSparkline([]float64{2, 2, 2}, 10))
	assert.Len(t, renderSparkline([]float64{1, 2, 3, 4, 5, 6}, 4), 4)
}

func TestTruncRaw(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc  ", truncRaw("abc", 5))
	assert.Equal(t, "abc", truncRaw("abcdef", 3))
}

func TestFitLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a\nb", fitLines("a\nb\nc", 2))
	assert.Equal(t, "a\n\n", fitLines("a", 3))
}

func TestRenderBeaconList(t *testing.T) {
	t.Parallel()

	beacons := []engine.BeaconState{
		{Beacon: engine.Beacon{ID: "beacon-1", Position: positioning.Point{X: 1, Y: 1}}, Distance: 2.5, HasDistance: true, Ranged: true, Samples: 7},
		{Beacon: engine.Beacon{ID: "beacon-2", Position: positioning.Point{X: 9, Y: 1}}},
	}
	history := map[string][]float64{"beacon-1": {3, 2.8, 2.5}}

	out := RenderBeaconList(beacons, history, 40, 14, 0)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 14)
	assert.Contains(t, out, "BEACONS [1/2]")
	assert.Contains(t, out, "beacon-1")
	assert.Contains(t, out, "beacon-2")
	assert.Contains(t, out, "~2.5m")

	t.Run("empty", func(t *testing.T) {
		out := RenderBeaconList(nil, nil, 40, 8, 0)
		assert.Contains(t, out, "No beacons configured")
		assert.Len(t, strings.Split(out, "\n"), 8)
	})

	t.Run("cursor scrolls into view", func(t *testing.T) {
		var many []engine.BeaconState
		for _, id := range []string{"a1", "a2", "a3", "a4", "a5", "a6"} {
			many = append(many, engine.BeaconState{Beacon: engine.Beacon{ID: id}})
		}
		out := RenderBeaconList(many, nil, 30, 10, 5)
		assert.Contains(t, out, "a6")
		assert.NotContains(t, out, "a1 ")
	})
}

func TestRenderDestination(t *testing.T) {
	t.Parallel()

	pois := []engine.POI{
		{Name: "Cafe", Cell: pathfind.Cell{Row: 2, Col: 5}},
		{Name: "Lab", Cell: pathfind.Cell{Row: 16, Col: 33}},
	}

	t.Run("idle", func(t *testing.T) {
		out := RenderDestination(Destination{POIs: pois, Selected: -1}, 40, 12)
		assert.Contains(t, out, "none")
		assert.Contains(t, out, "Cafe")
		assert.Contains(t, out, "Lab")
		assert.Len(t, strings.Split(out, "\n"), 12)
	})

	t.Run("route in meters", func(t *testing.T) {
		target := pathfind.Cell{Row: 0, Col: 4}
		path := []pathfind.Cell{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}, {Row: 0, Col: 3}, {Row: 0, Col: 4}}
		out := RenderDestination(Destination{POIs: pois, Selected: 0, Target: &target, Label: "Cafe", Path: path, Scale: 2}, 40, 12)
		assert.Contains(t, out, "~2.0m  4 steps")
	})

	t.Run("unreachable", func(t *testing.T) {
		target := pathfind.Cell{Row: 1, Col: 1}
		out := RenderDestination(Destination{Target: &target, Label: "Vault", Scale: 1}, 40, 8)
		assert.Contains(t, out, "unreachable")
		assert.Contains(t, out, "No places defined")
	})

	t.Run("arrived", func(t *testing.T) {
		target := pathfind.Cell{Row: 1, Col: 1}
		out := RenderDestination(Destination{Target: &target, Label: "Cafe", Arrived: true, Scale: 1}, 40, 8)
		assert.Contains(t, out, "ARRIVED")
	})
}

func TestBarsFitWidth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 120, lipgloss.Width(RenderMenuBar(120, "demo", true)))
	assert.Equal(t, 120, lipgloss.Width(RenderStatusBar(120, Status{Scanning: true, Scale: 1, Strategy: "pairwise"})))
	assert.Equal(t, 12, lipgloss.Width(renderRangeBar(3, 12, 10)))
}
