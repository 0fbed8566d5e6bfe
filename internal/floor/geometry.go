package floor

import (
	"math"

	"indoor-nav.klederson.com/internal/config"
	"indoor-nav.klederson.com/internal/pathfind"
)

// CellWidth is how many terminal columns one grid cell takes, so that cells look
// square despite tall terminal characters.
func CellWidth() int {
	return max(1, int(math.Round(1/config.AspectRatio)))
}

// Viewport is the window of grid cells currently on screen.
type Viewport struct {
	Top, Left  int
	Rows, Cols int
}

// Follow returns a viewport of at most viewRows x viewCols cells centred on focus
// and kept inside the grid.
func Follow(gridRows, gridCols, viewRows, viewCols int, focus pathfind.Cell) Viewport {
	v := Viewport{
		Rows: max(0, min(viewRows, gridRows)),
		Cols: max(0, min(viewCols, gridCols)),
	}
	v.Top = clampInt(focus.Row-v.Rows/2, 0, gridRows-v.Rows)
	v.Left = clampInt(focus.Col-v.Cols/2, 0, gridCols-v.Cols)
	return v
}

// Contains reports whether c is on screen.
func (v Viewport) Contains(c pathfind.Cell) bool {
	return c.Row >= v.Top && c.Row < v.Top+v.Rows && c.Col >= v.Left && c.Col < v.Left+v.Cols
}

// ScreenPos converts a cell to its terminal row and first terminal column.
func (v Viewport) ScreenPos(c pathfind.Cell) (row, col int) {
	return c.Row - v.Top, (c.Col - v.Left) * CellWidth()
}

// CellAt converts a terminal position back to the grid cell drawn there.
func (v Viewport) CellAt(row, col int) pathfind.Cell {
	return pathfind.Cell{Row: v.Top + row, Col: v.Left + col/CellWidth()}
}

func clampInt(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
