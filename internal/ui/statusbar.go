package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"indoor-nav.klederson.com/internal/positioning"
)

// Status is the data shown in the bottom bar.
type Status struct {
	Scanning bool
	Position positioning.Point
	Scale    float64 // grid units per meter
	Ranged   int
	Beacons  int
	Strategy string
	Message  string // last action result, shown on the right
	Error    bool   // Message is an error
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, st Status) string {
	status := StyleStatusPaused.Render("[PAUSED]")
	if st.Scanning {
		status = StyleStatusScanning.Render("[SCANNING]")
	}

	info := fmt.Sprintf(" Pos: %.1f,%.1f  Ranged: %d/%d  Scale: %.2f/m  Solver: %s",
		st.Position.X, st.Position.Y, st.Ranged, st.Beacons, st.Scale, st.Strategy)

	content := status + StyleStatusBar.Foreground(ColorGreen).Render(info)

	msg := ""
	if st.Message != "" {
		if st.Error {
			msg = StyleStatusError.Render(st.Message)
		} else {
			msg = StyleStatusScanning.Render(st.Message)
		}
	}

	gap := width - lipgloss.Width(content) - lipgloss.Width(msg) - 2
	if gap < 1 {
		gap = 1
	}

	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap) + msg)
}
