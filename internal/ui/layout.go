package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout joins the map panel and the side column (beacon list over destination
// panel) horizontally, with menu bar on top and status bar on bottom.
func ComposeLayout(menuBar, mapPanel, beaconList, destination, statusBar string) string {
	side := lipgloss.JoinVertical(lipgloss.Left, beaconList, destination)
	middle := lipgloss.JoinHorizontal(lipgloss.Top, mapPanel, side)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}

// RenderMapPanel wraps floor map content with a styled border.
// The map itself is drawn by the floor package.
func RenderMapPanel(width, height int, mapContent, legend string) string {
	content := mapContent + "\n" + legend
	return StylePanelBorder.Width(width - 2).Height(height - 2).Render(content)
}
