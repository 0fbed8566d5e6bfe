package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"indoor-nav.klederson.com/internal/pathfind"
)

// POI is a named destination on the floor grid.
type POI struct {
	ID   string        `json:"id"`
	Name string        `json:"name"`
	Cell pathfind.Cell `json:"cell"`
}

type poiCatalog struct {
	byName map[string]POI
}

func newPOICatalog() *poiCatalog {
	return &poiCatalog{byName: make(map[string]POI)}
}

func poiKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (c *poiCatalog) add(p POI) (POI, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return POI{}, fmt.Errorf("add poi: %w", ErrEmptyID)
	}
	key := poiKey(p.Name)
	if _, ok := c.byName[key]; ok {
		return POI{}, fmt.Errorf("add poi %q: %w", p.Name, ErrDuplicatePOI)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	c.byName[key] = p
	return p, nil
}

func (c *poiCatalog) remove(name string) error {
	key := poiKey(name)
	if _, ok := c.byName[key]; !ok {
		return fmt.Errorf("remove poi %q: %w", name, ErrUnknownPOI)
	}
	delete(c.byName, key)
	return nil
}

func (c *poiCatalog) get(name string) (POI, bool) {
	p, ok := c.byName[poiKey(name)]
	return p, ok
}

// list returns every POI sorted by name.
func (c *poiCatalog) list() []POI {
	out := make([]POI, 0, len(c.byName))
	for _, p := range c.byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return poiKey(out[i].Name) < poiKey(out[j].Name)
	})
	return out
}

// Neighbours tried, as (dx, dy), when a destination sits on a blocked cell.
var redirectOrder = [8][2]int{
	{0, 1}, {1, 0}, {-1, 0}, {0, -1},
	{1, 1}, {-1, -1}, {1, -1}, {-1, 1},
}

// walkableGoal returns c if it can be stood on, otherwise its first walkable neighbour.
func walkableGoal(g *pathfind.Grid, c pathfind.Cell) (pathfind.Cell, bool) {
	if g.Walkable(c) {
		return c, true
	}
	for _, d := range redirectOrder {
		n := pathfind.Cell{Row: c.Row + d[1], Col: c.Col + d[0]}
		if g.Walkable(n) {
			return n, true
		}
	}
	return c, false
}
