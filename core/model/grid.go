package model

import (
	"math"
	"math/rand"
	"sort"
)

// Cell is a discrete coordinate on the city grid.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance returns the Manhattan distance between two cells.
func Distance(a, b Cell) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// SearchMode selects how FindAvailable terminates.
type SearchMode int

const (
	// SearchNearest stops at the first BFS level that contains any taxi and
	// returns every taxi found at that distance.
	SearchNearest SearchMode = iota
	// SearchCircle collects every taxi within the given radius.
	SearchCircle
)

// Grid models the city as a Width x Height lattice. It also holds the spatial
// index of available taxis: a mutable set of taxi IDs per cell. The index is
// kept in sync by the registry lifecycle operations that change a taxi's
// availability or position; Grid itself performs no consistency checks.
type Grid struct {
	Width  int
	Height int
	Base   Cell
	Sigma  float64

	available map[Cell]map[int]struct{}
}

// NewGrid creates a grid with the base at the center cell and the given
// dispersion for request location sampling.
func NewGrid(width, height int, sigma float64) *Grid {
	return &Grid{
		Width:     width,
		Height:    height,
		Base:      Cell{X: width / 2, Y: height / 2},
		Sigma:     sigma,
		available: make(map[Cell]map[int]struct{}),
	}
}

// Contains reports whether the cell lies within grid bounds.
func (g *Grid) Contains(c Cell) bool {
	return c.X >= 0 && c.X < g.Width && c.Y >= 0 && c.Y < g.Height
}

// Neighbors returns the orthogonally adjacent in-bounds cells. Corner cells
// have two neighbors, edge cells three, interior cells four.
func (g *Grid) Neighbors(c Cell) []Cell {
	ns := make([]Cell, 0, 4)
	for _, d := range [4]Cell{{1, 0}, {0, 1}, {-1, 0}, {0, -1}} {
		n := Cell{X: c.X + d.X, Y: c.Y + d.Y}
		if g.Contains(n) {
			ns = append(ns, n)
		}
	}
	return ns
}

// RandomPath returns a minimal-length lattice path from src to dst, chosen
// uniformly among all monotone shortest paths. The result starts with src,
// ends with dst and has Distance(src, dst)+1 cells.
func (g *Grid) RandomPath(rng *rand.Rand, src, dst Cell) []Cell {
	dx := dst.X - src.X
	dy := dst.Y - src.Y

	steps := make([]Cell, 0, abs(dx)+abs(dy))
	for i := 0; i < abs(dx); i++ {
		steps = append(steps, Cell{X: sign(dx)})
	}
	for i := 0; i < abs(dy); i++ {
		steps = append(steps, Cell{Y: sign(dy)})
	}
	rng.Shuffle(len(steps), func(i, j int) {
		steps[i], steps[j] = steps[j], steps[i]
	})

	path := make([]Cell, 0, len(steps)+1)
	path = append(path, src)
	for _, s := range steps {
		last := path[len(path)-1]
		path = append(path, Cell{X: last.X + s.X, Y: last.Y + s.Y})
	}
	return path
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// SampleLocation draws a cell from a 2D isotropic Gaussian centered at the
// given cell with standard deviation Sigma, floored to integer coordinates.
// Out-of-bounds draws are rejected and resampled.
func (g *Grid) SampleLocation(rng *rand.Rand, center Cell) Cell {
	for {
		x := int(math.Floor(rng.NormFloat64()*g.Sigma + float64(center.X)))
		y := int(math.Floor(rng.NormFloat64()*g.Sigma + float64(center.Y)))
		c := Cell{X: x, Y: y}
		if g.Contains(c) {
			return c
		}
	}
}

// AddAvailable inserts a taxi ID into the availability index at the cell.
func (g *Grid) AddAvailable(id int, at Cell) {
	set, ok := g.available[at]
	if !ok {
		set = make(map[int]struct{})
		g.available[at] = set
	}
	set[id] = struct{}{}
}

// RemoveAvailable deletes a taxi ID from the availability index at the cell.
func (g *Grid) RemoveAvailable(id int, at Cell) {
	if set, ok := g.available[at]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(g.available, at)
		}
	}
}

// MoveAvailable relocates a taxi ID between two cells of the index.
func (g *Grid) MoveAvailable(id int, from, to Cell) {
	g.RemoveAvailable(id, from)
	g.AddAvailable(id, to)
}

// AvailableAt returns the IDs of available taxis at the cell, in ascending
// order.
func (g *Grid) AvailableAt(c Cell) []int {
	set := g.available[c]
	if len(set) == 0 {
		return nil
	}
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// FindAvailable searches outward from source over the grid adjacency graph
// using a level-order BFS and returns the IDs of the available taxis found,
// in ascending order. In SearchNearest mode it stops at the first distance
// where any taxi exists; in SearchCircle mode it collects all taxis within
// radius. The search never exceeds hardLimit steps and terminates once the
// whole grid has been visited, so a fully empty index cannot loop forever.
func (g *Grid) FindAvailable(source Cell, mode SearchMode, radius, hardLimit int) []int {
	frontier := []Cell{source}
	visited := map[Cell]struct{}{source: {}}
	var found []int

	for depth := 0; depth <= hardLimit && len(frontier) > 0; depth++ {
		for _, c := range frontier {
			for id := range g.available[c] {
				found = append(found, id)
			}
		}
		if mode == SearchNearest && len(found) > 0 {
			break
		}
		if mode == SearchCircle && depth >= radius {
			break
		}
		if len(visited) == g.Width*g.Height {
			break
		}
		var next []Cell
		for _, c := range frontier {
			for _, n := range g.Neighbors(c) {
				if _, seen := visited[n]; !seen {
					visited[n] = struct{}{}
					next = append(next, n)
				}
			}
		}
		frontier = next
	}

	sort.Ints(found)
	return found
}
