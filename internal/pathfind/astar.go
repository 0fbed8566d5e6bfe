package pathfind

import (
	"container/heap"
	"math"
)

// Orthogonal neighbours first, then diagonals. Order feeds tie-breaking, so keep it fixed.
var directions = [8]Cell{
	{Row: -1, Col: 0}, {Row: 1, Col: 0}, {Row: 0, Col: -1}, {Row: 0, Col: 1},
	{Row: -1, Col: -1}, {Row: -1, Col: 1}, {Row: 1, Col: -1}, {Row: 1, Col: 1},
}

func stepCost(d Cell) float64 {
	if d.Row != 0 && d.Col != 0 {
		return math.Sqrt2
	}
	return 1
}

// Octile is the exact cost of an unobstructed 8-connected walk between two cells.
func Octile(a, b Cell) float64 {
	dr := math.Abs(float64(a.Row - b.Row))
	dc := math.Abs(float64(a.Col - b.Col))
	return dr + dc + (math.Sqrt2-2)*math.Min(dr, dc)
}

type node struct {
	idx int
	g   float64
	f   float64
	seq int
}

// openSet is a min-heap on f; equal f pops in insertion order.
type openSet []node

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	if o[i].f != o[j].f {
		return o[i].f < o[j].f
	}
	return o[i].seq < o[j].seq
}
func (o openSet) Swap(i, j int)       { o[i], o[j] = o[j], o[i] }
func (o *openSet) Push(x interface{}) { *o = append(*o, x.(node)) }
func (o *openSet) Pop() interface{} {
	old := *o
	n := old[len(old)-1]
	*o = old[:len(old)-1]
	return n
}

// FindPath runs A* from start to goal over 8-connected cells and returns the route
// start..goal inclusive, or nil when the goal cannot be reached.
//
// Diagonal steps are allowed between two blocked orthogonal neighbours. Endpoints
// are expected to be clamped by the caller; off-grid endpoints yield nil. The start
// cell itself is not required to be walkable.
func FindPath(g *Grid, start, goal Cell) []Cell {
	if g == nil || !g.InBounds(start) || !g.InBounds(goal) {
		return nil
	}
	if start == goal {
		return []Cell{start}
	}

	n := g.rows * g.cols
	gScore := make([]float64, n)
	cameFrom := make([]int, n)
	closed := make([]bool, n)
	for i := range gScore {
		gScore[i] = math.Inf(1)
		cameFrom[i] = -1
	}

	at := func(i int) Cell { return Cell{Row: i / g.cols, Col: i % g.cols} }
	index := func(c Cell) int { return c.Row*g.cols + c.Col }

	startIdx, goalIdx := index(start), index(goal)
	gScore[startIdx] = 0
	seq := 0
	open := &openSet{{idx: startIdx, g: 0, f: Octile(start, goal), seq: seq}}

	for open.Len() > 0 {
		cur := heap.Pop(open).(node)
		if closed[cur.idx] || cur.g > gScore[cur.idx] {
			continue
		}
		if cur.idx == goalIdx {
			return reconstruct(cameFrom, goalIdx, at)
		}
		closed[cur.idx] = true

		cc := at(cur.idx)
		for _, d := range directions {
			nb := Cell{Row: cc.Row + d.Row, Col: cc.Col + d.Col}
			if !g.Walkable(nb) {
				continue
			}
			ni := index(nb)
			if closed[ni] {
				continue
			}
			tentative := gScore[cur.idx] + stepCost(d)
			if tentative < gScore[ni] {
				gScore[ni] = tentative
				cameFrom[ni] = cur.idx
				seq++
				heap.Push(open, node{idx: ni, g: tentative, f: tentative + Octile(nb, goal), seq: seq})
			}
		}
	}
	return nil
}

func reconstruct(cameFrom []int, goal int, at func(int) Cell) []Cell {
	var rev []Cell
	for i := goal; i >= 0; i = cameFrom[i] {
		rev = append(rev, at(i))
	}
	path := make([]Cell, len(rev))
	for i, c := range rev {
		path[len(rev)-1-i] = c
	}
	return path
}

// Length returns the travel cost of a path using the same step costs as FindPath.
func Length(path []Cell) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += stepCost(Cell{Row: path[i].Row - path[i-1].Row, Col: path[i].Col - path[i-1].Col})
	}
	return total
}
