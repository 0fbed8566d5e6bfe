package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// proximityColor maps a distance in meters to a green shade (brighter = closer).
func proximityColor(meters float64) lipgloss.Color {
	switch {
	case meters < 1:
		return "#00FF41"
	case meters < 3:
		return "#00CC33"
	case meters < 6:
		return "#00AA22"
	case meters < 10:
		return "#008F11"
	default:
		return "#005511"
	}
}

// renderRangeBar draws a bar that is full when close and empty at maxMeters.
func renderRangeBar(meters, maxMeters float64, width int) string {
	ratio := 1 - meters/maxMeters
	if ratio < 0 || math.IsNaN(ratio) {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(math.Round(ratio * float64(width)))

	filledPart := lipgloss.NewStyle().Foreground(proximityColor(meters)).Render(strings.Repeat("|", filled))
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(strings.Repeat("-", width-filled))
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

// renderSparkline draws the last width values, scaled between their min and max.
func renderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	chars := []byte{'_', '.', '-', '~', '^'}

	start := 0
	if len(values) > width {
		start = len(values) - width
	}
	values = values[start:]

	minV, maxV := values[0], values[0]
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}

	rng := maxV - minV
	if rng < 0.5 {
		rng = 0.5
	}

	var sb strings.Builder
	for _, v := range values {
		idx := int((v - minV) / rng * float64(len(chars)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		sb.WriteByte(chars[idx])
	}
	return sb.String()
}

// truncRaw pads or truncates a raw string to exactly w characters.
func truncRaw(s string, w int) string {
	if len(s) > w {
		return s[:w]
	}
	if len(s) < w {
		return s + strings.Repeat(" ", w-len(s))
	}
	return s
}

// fitLines clamps a rendered panel to exactly height lines. lipgloss Height() only
// sets a minimum; it won't truncate overflow.
func fitLines(rendered string, height int) string {
	lines := strings.Split(rendered, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
