package floor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"indoor-nav.klederson.com/internal/engine"
	"indoor-nav.klederson.com/internal/pathfind"
	"indoor-nav.klederson.com/internal/positioning"
)

var (
	colorBright = lipgloss.Color("#00FF41")
	colorMid    = lipgloss.Color("#008F11")
	colorDim    = lipgloss.Color("#004A0A")
	colorBeacon = lipgloss.Color("#00FFAA")
	colorRoute  = lipgloss.Color("#FFD700")
	colorPOI    = lipgloss.Color("#FF6EC7")
	colorTruth  = lipgloss.Color("#5FAFFF")

	styleWall         = lipgloss.NewStyle().Foreground(colorMid)
	styleFloor        = lipgloss.NewStyle().Foreground(colorDim)
	styleRoute        = lipgloss.NewStyle().Foreground(colorRoute)
	styleBeacon       = lipgloss.NewStyle().Foreground(colorBeacon).Bold(true)
	styleBeaconSilent = lipgloss.NewStyle().Foreground(colorDim)
	stylePOI          = lipgloss.NewStyle().Foreground(colorPOI).Bold(true)
	styleCursor       = lipgloss.NewStyle().Foreground(colorBright).Bold(true).Blink(true)
	styleTruth        = lipgloss.NewStyle().Foreground(colorTruth)
	styleLabel        = lipgloss.NewStyle().Foreground(colorPOI)
)

const maxLabelLen = 10

// Scene is everything drawn on the floor map.
type Scene struct {
	Grid     *pathfind.Grid
	Position positioning.Point
	Truth    *positioning.Point // simulated receiver, demo only
	Beacons  []engine.BeaconState
	POIs     []engine.POI
	Path     []pathfind.Cell
	Cursor   *pathfind.Cell
}

// Overlay kinds, lowest priority first.
type mark int

const (
	markNone mark = iota
	markRoute
	markPOI
	markCursor
	markBeaconSilent
	markBeacon
	markTruth
	markPosition
)

// Render produces the floor map as a styled string of height lines, width columns each.
// The view follows the receiver.
func Render(width, height int, sc Scene, pulse *Pulse) string {
	if width < 4 || height < 2 || sc.Grid == nil {
		return ""
	}
	cw := CellWidth()
	focus := engine.CellOf(sc.Position)
	v := Follow(sc.Grid.Rows(), sc.Grid.Cols(), height, width/cw, focus)

	marks := buildMarks(sc)
	labels := placeLabels(sc.POIs, v, width, height)

	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			if ch, ok := labels[row*width+col]; ok {
				sb.WriteString(styleLabel.Render(string(ch)))
				continue
			}
			if row >= v.Rows || col/cw >= v.Cols {
				sb.WriteByte(' ')
				continue
			}
			cell := v.CellAt(row, col)
			sb.WriteString(renderCell(sc.Grid, cell, col%cw, marks[cell], pulse))
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func buildMarks(sc Scene) map[pathfind.Cell]mark {
	marks := make(map[pathfind.Cell]mark)
	set := func(c pathfind.Cell, m mark) {
		if m > marks[c] {
			marks[c] = m
		}
	}
	for _, c := range sc.Path {
		set(c, markRoute)
	}
	for _, p := range sc.POIs {
		set(p.Cell, markPOI)
	}
	if sc.Cursor != nil {
		set(*sc.Cursor, markCursor)
	}
	for _, b := range sc.Beacons {
		m := markBeaconSilent
		if b.Ranged {
			m = markBeacon
		}
		set(engine.CellOf(b.Position), m)
	}
	if sc.Truth != nil {
		set(engine.CellOf(*sc.Truth), markTruth)
	}
	set(engine.CellOf(sc.Position), markPosition)
	return marks
}

// renderCell draws column sub of a cell; only the first column carries the glyph.
func renderCell(g *pathfind.Grid, c pathfind.Cell, sub int, m mark, pulse *Pulse) string {
	if m == markNone {
		if !g.Walkable(c) {
			return styleWall.Render("█")
		}
		if sub == 0 {
			return styleFloor.Render(".")
		}
		return " "
	}
	if sub != 0 {
		if m == markRoute {
			return styleRoute.Render("·")
		}
		return " "
	}

	switch m {
	case markRoute:
		return styleRoute.Render("·")
	case markPOI:
		return stylePOI.Render("*")
	case markCursor:
		return styleCursor.Render("X")
	case markBeaconSilent:
		return styleBeaconSilent.Render("B")
	case markBeacon:
		return styleBeacon.Render("B")
	case markTruth:
		return styleTruth.Render("o")
	default:
		intensity := 1.0
		if pulse != nil {
			intensity = pulse.Intensity()
		}
		return lipgloss.NewStyle().Foreground(pulseColor(intensity)).Bold(true).Render("@")
	}
}

// placeLabels puts POI names beside their markers, trying the right side then the left,
// on the marker's row then the rows below and above. Labels that still collide are
// dropped to keep the map readable.
func placeLabels(pois []engine.POI, v Viewport, width, height int) map[int]rune {
	type segment struct{ start, end int }
	occupied := make(map[int][]segment)
	free := func(row, start, n int) bool {
		if row < 0 || row >= height || start < 0 || start+n > width {
			return false
		}
		for _, seg := range occupied[row] {
			if start < seg.end && start+n > seg.start {
				return false
			}
		}
		return true
	}

	for _, p := range pois {
		if v.Contains(p.Cell) {
			r, c := v.ScreenPos(p.Cell)
			occupied[r] = append(occupied[r], segment{c, c + CellWidth()})
		}
	}

	out := make(map[int]rune)
	for _, p := range pois {
		if !v.Contains(p.Cell) {
			continue
		}
		label := []rune(p.Name)
		if len(label) > maxLabelLen {
			label = label[:maxLabelLen]
		}
		r, c := v.ScreenPos(p.Cell)
		right := c + CellWidth()
		left := c - len(label) - 1

		placed := false
		for _, row := range []int{r, r + 1, r - 1} {
			for _, start := range []int{right, left} {
				if free(row, start, len(label)) {
					for i, ch := range label {
						out[row*width+start+i] = ch
					}
					occupied[row] = append(occupied[row], segment{start, start + len(label)})
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
	}
	return out
}

// RenderLegend produces the map legend line.
func RenderLegend(width int) string {
	legend := styleBeacon.Render("@ you") + "  " +
		styleBeacon.Render("B beacon") + "  " +
		stylePOI.Render("* place") + "  " +
		styleRoute.Render("· route") + "  " +
		styleCursor.UnsetBlink().Render("X target") + "  " +
		styleTruth.Render("o truth")

	pad := (width - lipgloss.Width(legend)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + legend
}
