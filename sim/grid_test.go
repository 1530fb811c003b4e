package sim

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/calvey/bankgrid/components"
)

// newTestEntities creates n distinct entities backed by a throwaway world.
func newTestEntities(n int) []ecs.Entity {
	world := ecs.NewWorld()
	mapper := ecs.NewMap1[components.Person](world)
	entities := make([]ecs.Entity, n)
	for i := range entities {
		entities[i] = mapper.NewEntity(&components.Person{ID: i})
	}
	return entities
}

func TestGridWrap(t *testing.T) {
	g := NewGrid(5, 5)

	tests := []struct {
		name         string
		x, y         int
		wantX, wantY int
	}{
		{"inside", 2, 3, 2, 3},
		{"x overflow", 5, 0, 0, 0},
		{"y overflow", 0, 7, 0, 2},
		{"x negative", -1, 0, 4, 0},
		{"y negative", 0, -6, 0, 4},
		{"both negative", -1, -1, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := g.Wrap(tt.x, tt.y)
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("Wrap(%d,%d) = (%d,%d), want (%d,%d)", tt.x, tt.y, x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestGridPlaceAndMove(t *testing.T) {
	g := NewGrid(5, 5)
	es := newTestEntities(2)

	if err := g.Place(es[0], 1, 1); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if err := g.Place(es[1], 1, 1); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if got := g.CountAt(1, 1); got != 2 {
		t.Fatalf("CountAt(1,1) = %d, want 2", got)
	}

	// Move normalizes the destination and keeps exactly one record.
	x, y := g.Move(es[0], 1, 1, 5, -1)
	if x != 0 || y != 4 {
		t.Fatalf("Move returned (%d,%d), want (0,4)", x, y)
	}
	if got := g.CountAt(1, 1); got != 1 {
		t.Errorf("old cell count = %d, want 1", got)
	}
	if got := g.CountAt(0, 4); got != 1 {
		t.Errorf("new cell count = %d, want 1", got)
	}

	// Total occupancy stays at the population size.
	total := 0
	for cy := 0; cy < 5; cy++ {
		for cx := 0; cx < 5; cx++ {
			total += g.CountAt(cx, cy)
		}
	}
	if total != 2 {
		t.Errorf("total occupancy = %d, want 2", total)
	}
}

func TestGridPlaceNormalizesOutOfRange(t *testing.T) {
	g := NewGrid(4, 4)
	es := newTestEntities(1)

	// Coordinates far outside the grid wrap onto the torus instead of
	// failing; ErrOutOfBounds stays structurally unreachable.
	if err := g.Place(es[0], -9, 17); err != nil {
		t.Fatalf("Place(-9,17): %v", err)
	}
	if got := g.CountAt(3, 1); got != 1 {
		t.Errorf("CountAt(3,1) = %d, want 1", got)
	}
}

func TestGridNeighborsToroidal(t *testing.T) {
	g := NewGrid(5, 5)
	es := newTestEntities(3)

	// Opposite corners are adjacent on the torus.
	if err := g.Place(es[0], 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := g.Place(es[1], 4, 4); err != nil {
		t.Fatal(err)
	}
	// Two cells away in x, not adjacent at radius 1.
	if err := g.Place(es[2], 2, 0); err != nil {
		t.Fatal(err)
	}

	got := g.Neighbors(0, 0, 1, es[0])
	if len(got) != 1 || got[0] != es[1] {
		t.Fatalf("Neighbors(0,0,1) = %v, want only the corner-wrapped entity", got)
	}

	// Radius 2 picks up the cell two away (Chebyshev distance).
	got = g.Neighbors(0, 0, 2, es[0])
	if len(got) != 2 {
		t.Fatalf("Neighbors(0,0,2) returned %d entities, want 2", len(got))
	}
}

func TestGridNeighborsExcludesSelf(t *testing.T) {
	g := NewGrid(3, 3)
	es := newTestEntities(2)

	if err := g.Place(es[0], 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := g.Place(es[1], 1, 1); err != nil {
		t.Fatal(err)
	}

	got := g.Neighbors(1, 1, 1, es[0])
	for _, e := range got {
		if e == es[0] {
			t.Fatal("Neighbors returned the excluded entity")
		}
	}
	if len(got) != 1 {
		t.Fatalf("Neighbors returned %d entities, want 1", len(got))
	}
}

func TestGridNeighborsSmallGridNoDuplicates(t *testing.T) {
	// A small torus at radius 1 covers every cell; the scan clamp must
	// visit each cell exactly once, on odd and even dimensions alike.
	tests := []struct {
		name          string
		width, height int
		wantNeighbors int
	}{
		{"odd 3x3", 3, 3, 3},
		{"even 2x2", 2, 2, 3},
		{"mixed 2x3", 2, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGrid(tt.width, tt.height)
			es := newTestEntities(4)
			for i, e := range es {
				if err := g.Place(e, i%tt.width, i/tt.width); err != nil {
					t.Fatal(err)
				}
			}

			got := g.Neighbors(0, 0, 1, es[0])
			seen := make(map[ecs.Entity]bool)
			for _, e := range got {
				if seen[e] {
					t.Fatalf("entity returned twice: %v", e)
				}
				seen[e] = true
			}
			if len(got) != tt.wantNeighbors {
				t.Fatalf("Neighbors returned %d entities, want %d", len(got), tt.wantNeighbors)
			}
		})
	}
}

// TestGridNeighborsTwoWideGrid covers a dimension of exactly two cells,
// where a symmetric scan clamp would skip the adjacent column entirely.
func TestGridNeighborsTwoWideGrid(t *testing.T) {
	g := NewGrid(2, 5)
	es := newTestEntities(2)

	if err := g.Place(es[0], 0, 2); err != nil {
		t.Fatal(err)
	}
	if err := g.Place(es[1], 1, 2); err != nil {
		t.Fatal(err)
	}

	got := g.Neighbors(0, 2, 1, es[0])
	if len(got) != 1 || got[0] != es[1] {
		t.Fatalf("Neighbors(0,2,1) = %v, want the agent in the adjacent column", got)
	}

	// Symmetric from the other column, and still no duplicates even
	// though both scan directions wrap onto the same column.
	got = g.Neighbors(1, 2, 1, es[1])
	if len(got) != 1 || got[0] != es[0] {
		t.Fatalf("Neighbors(1,2,1) = %v, want the agent in the adjacent column", got)
	}
}
