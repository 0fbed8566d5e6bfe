package pathfind

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Cell addresses one square of the floor grid.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Grid is an immutable walkability matrix.
type Grid struct {
	rows, cols int
	walkable   []bool
}

var errEmptyGrid = errors.New("grid has no cells")

// NewGrid copies a rectangular matrix of walkability flags.
func NewGrid(cells [][]bool) (*Grid, error) {
	if len(cells) == 0 || len(cells[0]) == 0 {
		return nil, errEmptyGrid
	}
	g := &Grid{rows: len(cells), cols: len(cells[0])}
	g.walkable = make([]bool, 0, g.rows*g.cols)
	for r, row := range cells {
		if len(row) != g.cols {
			return nil, fmt.Errorf("grid row %d has %d cells, want %d", r, len(row), g.cols)
		}
		g.walkable = append(g.walkable, row...)
	}
	return g, nil
}

// Open returns a fully walkable grid.
func Open(rows, cols int) *Grid {
	g := &Grid{rows: rows, cols: cols, walkable: make([]bool, rows*cols)}
	for i := range g.walkable {
		g.walkable[i] = true
	}
	return g
}

// ParseGrid reads a text floor plan, one row per line. '.', '1' and ' ' are walkable;
// '#', '0' and 'X' are blocked. Blank lines and lines starting with ';' are skipped.
func ParseGrid(r io.Reader) (*Grid, error) {
	var cells [][]bool
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, ";") {
			continue
		}
		row := make([]bool, 0, len(text))
		for _, ch := range text {
			switch ch {
			case '.', '1', ' ':
				row = append(row, true)
			case '#', '0', 'X', 'x':
				row = append(row, false)
			default:
				return nil, fmt.Errorf("grid line %d: unexpected %q", line, ch)
			}
		}
		cells = append(cells, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read grid: %w", err)
	}
	return NewGrid(cells)
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// InBounds reports whether c lies on the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

// Walkable reports whether c is on the grid and traversable.
func (g *Grid) Walkable(c Cell) bool {
	return g.InBounds(c) && g.walkable[c.Row*g.cols+c.Col]
}

// Clamp moves c onto the nearest in-bounds cell.
func (g *Grid) Clamp(c Cell) Cell {
	return Cell{Row: clampInt(c.Row, 0, g.rows-1), Col: clampInt(c.Col, 0, g.cols-1)}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
