package model

import (
	"math/rand"
	"testing"
)

func TestDistance(t *testing.T) {
	cases := []struct {
		a, b Cell
		want int
	}{
		{Cell{0, 0}, Cell{0, 0}, 0},
		{Cell{1, 2}, Cell{4, 6}, 7},
		{Cell{4, 6}, Cell{1, 2}, 7},
		{Cell{3, 0}, Cell{0, 3}, 6},
	}
	for _, c := range cases {
		if got := Distance(c.a, c.b); got != c.want {
			t.Errorf("Distance(%v,%v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestNeighborsBoundary(t *testing.T) {
	g := NewGrid(5, 5, 1)
	cases := []struct {
		cell Cell
		want int
	}{
		{Cell{0, 0}, 2}, // corner
		{Cell{4, 4}, 2}, // corner
		{Cell{0, 2}, 3}, // edge
		{Cell{2, 4}, 3}, // edge
		{Cell{2, 2}, 4}, // interior
	}
	for _, c := range cases {
		ns := g.Neighbors(c.cell)
		if len(ns) != c.want {
			t.Errorf("Neighbors(%v) returned %d cells, want %d", c.cell, len(ns), c.want)
		}
		for _, n := range ns {
			if !g.Contains(n) {
				t.Errorf("Neighbors(%v) returned out-of-bounds cell %v", c.cell, n)
			}
			if Distance(c.cell, n) != 1 {
				t.Errorf("Neighbors(%v) returned non-adjacent cell %v", c.cell, n)
			}
		}
	}
}

func TestRandomPathProperties(t *testing.T) {
	g := NewGrid(20, 20, 1)
	rng := rand.New(rand.NewSource(1))
	pairs := []struct{ src, dst Cell }{
		{Cell{0, 0}, Cell{5, 7}},
		{Cell{10, 3}, Cell{2, 9}},
		{Cell{4, 4}, Cell{4, 4}},
		{Cell{19, 19}, Cell{0, 0}},
	}
	for _, p := range pairs {
		for i := 0; i < 20; i++ {
			path := g.RandomPath(rng, p.src, p.dst)
			if path[0] != p.src {
				t.Fatalf("path from %v does not start at source: %v", p.src, path[0])
			}
			if path[len(path)-1] != p.dst {
				t.Fatalf("path to %v does not end at destination: %v", p.dst, path[len(path)-1])
			}
			if want := Distance(p.src, p.dst) + 1; len(path) != want {
				t.Fatalf("path %v->%v has %d cells, want %d", p.src, p.dst, len(path), want)
			}
			for j := 1; j < len(path); j++ {
				if Distance(path[j-1], path[j]) != 1 {
					t.Fatalf("non-unit step %v -> %v", path[j-1], path[j])
				}
			}
		}
	}
}

func TestSampleLocationInBounds(t *testing.T) {
	g := NewGrid(6, 6, 8) // sigma much larger than the grid forces rejections
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 500; i++ {
		c := g.SampleLocation(rng, g.Base)
		if !g.Contains(c) {
			t.Fatalf("sampled out-of-bounds cell %v", c)
		}
	}
}

func TestAvailabilityIndex(t *testing.T) {
	g := NewGrid(10, 10, 1)
	a := Cell{1, 1}
	b := Cell{2, 1}

	g.AddAvailable(7, a)
	g.AddAvailable(3, a)
	if got := g.AvailableAt(a); len(got) != 2 || got[0] != 3 || got[1] != 7 {
		t.Fatalf("AvailableAt(%v) = %v, want [3 7]", a, got)
	}

	g.MoveAvailable(7, a, b)
	if got := g.AvailableAt(a); len(got) != 1 || got[0] != 3 {
		t.Fatalf("AvailableAt(%v) after move = %v, want [3]", a, got)
	}
	if got := g.AvailableAt(b); len(got) != 1 || got[0] != 7 {
		t.Fatalf("AvailableAt(%v) after move = %v, want [7]", b, got)
	}

	g.RemoveAvailable(3, a)
	if got := g.AvailableAt(a); got != nil {
		t.Fatalf("AvailableAt(%v) after remove = %v, want empty", a, got)
	}
}

func TestFindAvailableNearest(t *testing.T) {
	g := NewGrid(10, 10, 1)
	origin := Cell{5, 5}
	g.AddAvailable(1, Cell{5, 7}) // distance 2
	g.AddAvailable(2, Cell{7, 5}) // distance 2
	g.AddAvailable(3, Cell{0, 0}) // distance 10

	got := g.FindAvailable(origin, SearchNearest, 0, 20)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("nearest search = %v, want [1 2]", got)
	}
}

func TestFindAvailableCircle(t *testing.T) {
	g := NewGrid(10, 10, 1)
	origin := Cell{5, 5}
	g.AddAvailable(1, Cell{5, 6}) // distance 1
	g.AddAvailable(2, Cell{5, 8}) // distance 3
	g.AddAvailable(3, Cell{0, 0}) // distance 10

	got := g.FindAvailable(origin, SearchCircle, 3, 20)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("circle search = %v, want [1 2]", got)
	}
}

func TestFindAvailableEmptyGridTerminates(t *testing.T) {
	g := NewGrid(8, 8, 1)
	got := g.FindAvailable(Cell{4, 4}, SearchNearest, 0, 100)
	if len(got) != 0 {
		t.Fatalf("search on empty index = %v, want empty", got)
	}
}

func TestFindAvailableHardLimitCap(t *testing.T) {
	g := NewGrid(20, 20, 1)
	g.AddAvailable(1, Cell{10, 15}) // distance 5 from source
	got := g.FindAvailable(Cell{10, 10}, SearchNearest, 0, 3)
	if len(got) != 0 {
		t.Fatalf("search past hard limit = %v, want empty", got)
	}
}
