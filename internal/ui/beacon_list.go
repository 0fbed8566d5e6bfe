package ui

import (
	"fmt"
	"strings"

	"indoor-nav.klederson.com/internal/engine"
)

// rangeBarMax is the distance at which the range bar is empty.
const rangeBarMax = 12.0

// RenderBeaconList renders the scrollable beacon panel. The title stays fixed at the
// top; only the entries scroll so that cursor is always visible. history holds recent
// distances per beacon ID for the sparkline.
func RenderBeaconList(beacons []engine.BeaconState, history map[string][]float64, width, height, cursor int) string {
	innerW := width - 4
	if innerW < 16 {
		innerW = 16
	}

	ranged := 0
	for _, b := range beacons {
		if b.Ranged {
			ranged++
		}
	}

	title := StylePanelTitle.Render(fmt.Sprintf("BEACONS [%d/%d]", ranged, len(beacons)))
	separator := StyleSeparator.Render(strings.Repeat("-", innerW))
	headerLines := []string{title, separator}

	innerH := height - 2
	if innerH < len(headerLines)+1 {
		innerH = len(headerLines) + 1
	}
	space := innerH - len(headerLines)

	var lines []string
	if len(beacons) == 0 {
		lines = append(lines, "", StyleHelp.Render(" No beacons configured"))
	} else {
		const linesPerBeacon = 3
		maxVisible := space / linesPerBeacon
		if maxVisible < 1 {
			maxVisible = 1
		}

		viewStart := 0
		if cursor >= maxVisible {
			viewStart = cursor - maxVisible + 1
		}

		for i := viewStart; i < len(beacons) && len(lines) < space; i++ {
			lines = append(lines, renderBeaconEntry(beacons[i], history[beacons[i].ID], innerW, i == cursor)...)
		}
	}

	if len(lines) > space {
		lines = lines[:space]
	}
	for len(lines) < space {
		lines = append(lines, "")
	}

	all := append(headerLines, lines...)
	rendered := StylePanelBorder.Width(width - 2).Height(innerH).Render(strings.Join(all, "\n"))
	return fitLines(rendered, height)
}

func renderBeaconEntry(b engine.BeaconState, history []float64, maxW int, isCursor bool) []string {
	marker := "  "
	if isCursor {
		marker = ">>"
	}

	id := b.ID
	if len(id) > maxW-16 && maxW > 20 {
		id = id[:maxW-16]
	}
	pos := fmt.Sprintf("(%.0f,%.0f)", b.Position.X, b.Position.Y)

	dist := "--"
	if b.HasDistance {
		dist = fmt.Sprintf("~%.1fm", b.Distance)
	}
	info := fmt.Sprintf("%s  n=%d", dist, b.Samples)

	if isCursor {
		raw1 := truncRaw(fmt.Sprintf("%s %s %s", marker, id, pos), maxW)
		raw2 := truncRaw("     "+info, maxW)
		return []string{StyleCursorLine.Render(raw1), StyleCursorLine.Render(raw2), ""}
	}

	if !b.HasDistance {
		return []string{
			StyleBeaconSilent.Render(truncRaw(fmt.Sprintf("%s %s %s", marker, id, pos), maxW)),
			StyleBeaconSilent.Render(truncRaw("     "+info, maxW)),
			"",
		}
	}

	nameSty := StyleBeaconName
	if !b.Ranged {
		nameSty = StyleBeaconSilent
	}
	line1 := marker + " " + nameSty.Render(id) + " " + StyleBeaconPos.Render(pos)

	barW := maxW - len(info) - 8
	if barW < 4 {
		barW = 4
	}
	line2 := "     " + StyleBeaconDist.Render(dist) + " " + renderRangeBar(b.Distance, rangeBarMax, barW)

	spark := renderSparkline(history, maxW-5)
	line3 := "     " + StyleBeaconRanged.Render(spark)
	return []string{line1, line2, line3}
}
