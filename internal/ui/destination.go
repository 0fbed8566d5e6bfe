package ui

import (
	"fmt"
	"strings"

	"indoor-nav.klederson.com/internal/engine"
	"indoor-nav.klederson.com/internal/pathfind"
)

// Destination is the navigation state shown under the beacon list.
type Destination struct {
	POIs     []engine.POI
	Selected int             // index into POIs, -1 for none
	Target   *pathfind.Cell  // active goal, nil when not navigating
	Label    string          // POI name or "cursor"
	Path     []pathfind.Cell // current route
	Scale    float64         // grid units per meter
	Arrived  bool
}

// RenderDestination renders the destination panel: the POI picker followed by the
// active route, if any.
func RenderDestination(d Destination, width, height int) string {
	innerW := width - 4
	if innerW < 16 {
		innerW = 16
	}

	lines := []string{
		StylePanelTitle.Render("DESTINATION"),
		StyleSeparator.Render(strings.Repeat("-", innerW)),
	}

	labelSty, valSty := StyleLabel, StyleValue

	switch {
	case d.Target == nil:
		lines = append(lines, labelSty.Render("  Target    ")+StyleHelp.Render("none"))
	case d.Arrived:
		lines = append(lines,
			labelSty.Render("  Target    ")+valSty.Render(d.Label),
			labelSty.Render("  Status    ")+StyleRoute.Render("ARRIVED"),
		)
	case len(d.Path) == 0:
		lines = append(lines,
			labelSty.Render("  Target    ")+valSty.Render(d.Label),
			labelSty.Render("  Status    ")+StyleStatusError.Render("unreachable"),
		)
	default:
		meters := pathfind.Length(d.Path)
		if d.Scale > 0 {
			meters /= d.Scale
		}
		fields := []struct{ label, value string }{
			{"Target", d.Label},
			{"Cell", fmt.Sprintf("r%d c%d", d.Target.Row, d.Target.Col)},
			{"Route", fmt.Sprintf("~%.1fm  %d steps", meters, len(d.Path)-1)},
		}
		for _, f := range fields {
			lines = append(lines, labelSty.Render(fmt.Sprintf("  %-10s", f.label))+valSty.Render(f.value))
		}
	}

	lines = append(lines, "")

	for i, p := range d.POIs {
		row := truncRaw(fmt.Sprintf("  %-*s r%d c%d", innerW-14, p.Name, p.Cell.Row, p.Cell.Col), innerW)
		if i == d.Selected {
			lines = append(lines, StyleCursorLine.Render(row))
		} else {
			lines = append(lines, StyleBeaconPos.Render(row))
		}
	}
	if len(d.POIs) == 0 {
		lines = append(lines, StyleHelp.Render("  No places defined"))
	}

	innerH := height - 2
	if innerH < 1 {
		innerH = 1
	}
	if len(lines) > innerH {
		lines = lines[:innerH]
	}

	style := StylePanelBorder
	if d.Target != nil {
		style = StylePanelActive
	}
	rendered := style.Width(width - 2).Height(innerH).Render(strings.Join(lines, "\n"))
	return fitLines(rendered, height)
}
