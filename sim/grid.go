// Package sim implements the bank-reserves model: a toroidal grid of
// person agents trading, saving and borrowing against a single
// reserve-constrained bank.
package sim

import (
	"errors"
	"fmt"

	"github.com/mlange-42/ark/ecs"
)

// ErrOutOfBounds reports a grid cell outside [0,width) x [0,height).
// With modular coordinate arithmetic this is structurally unreachable,
// but Place checks it defensively.
var ErrOutOfBounds = errors.New("cell out of bounds")

// Grid is a toroidal multi-occupancy grid. Each cell holds the set of
// entities currently there; the last cell in each dimension is adjacent
// to the first.
type Grid struct {
	width  int
	height int
	cells  [][]ecs.Entity // flat grid of entity lists, row-major
}

// NewGrid creates a grid covering width x height cells.
func NewGrid(width, height int) *Grid {
	cells := make([][]ecs.Entity, width*height)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 4) // pre-allocate small capacity
	}
	return &Grid{width: width, height: height, cells: cells}
}

// Width returns the grid width in cells.
func (g *Grid) Width() int { return g.width }

// Height returns the grid height in cells.
func (g *Grid) Height() int { return g.height }

// Wrap normalizes coordinates onto the torus.
func (g *Grid) Wrap(x, y int) (int, int) {
	// Double modulo keeps negative inputs positive.
	x = ((x % g.width) + g.width) % g.width
	y = ((y % g.height) + g.height) % g.height
	return x, y
}

// Place registers an entity at the given cell after wraparound
// normalization. Fails with ErrOutOfBounds if the normalized cell still
// falls outside the grid.
func (g *Grid) Place(e ecs.Entity, x, y int) error {
	x, y = g.Wrap(x, y)
	if x < 0 || x >= g.width || y < 0 || y >= g.height {
		return fmt.Errorf("%w: (%d,%d) outside %dx%d", ErrOutOfBounds, x, y, g.width, g.height)
	}
	idx := y*g.width + x
	g.cells[idx] = append(g.cells[idx], e)
	return nil
}

// Move relocates an entity from its old cell to a new one and returns the
// normalized destination. Removal and insertion complete before Move
// returns, so no other agent ever observes a partial state; the scheduler
// serializes activations.
func (g *Grid) Move(e ecs.Entity, oldX, oldY, newX, newY int) (int, int) {
	oldX, oldY = g.Wrap(oldX, oldY)
	newX, newY = g.Wrap(newX, newY)

	oldIdx := oldY*g.width + oldX
	cell := g.cells[oldIdx]
	for i, occ := range cell {
		if occ == e {
			cell[i] = cell[len(cell)-1]
			g.cells[oldIdx] = cell[:len(cell)-1]
			break
		}
	}

	newIdx := newY*g.width + newX
	g.cells[newIdx] = append(g.cells[newIdx], e)
	return newX, newY
}

// NeighborsInto appends all entities within Chebyshev distance radius of
// the given cell (the cell itself included) to dst, excluding exclude,
// and returns the updated slice. Both axes wrap toroidally. Reuse dst
// across calls to avoid allocations.
func (g *Grid) NeighborsInto(dst []ecs.Entity, x, y, radius int, exclude ecs.Entity) []ecs.Entity {
	x, y = g.Wrap(x, y)

	// Clamp the scan so small grids don't visit a cell twice. The clamp
	// is asymmetric: on an even-sized dimension the window covering every
	// cell exactly once reaches one cell further down than up.
	rxLo, rxHi := radius, radius
	if rxLo > g.width/2 {
		rxLo = g.width / 2
	}
	if rxHi > (g.width-1)/2 {
		rxHi = (g.width - 1) / 2
	}
	ryLo, ryHi := radius, radius
	if ryLo > g.height/2 {
		ryLo = g.height / 2
	}
	if ryHi > (g.height-1)/2 {
		ryHi = (g.height - 1) / 2
	}

	for dy := -ryLo; dy <= ryHi; dy++ {
		for dx := -rxLo; dx <= rxHi; dx++ {
			// Toroidal wrap
			cx := ((x + dx + g.width) % g.width)
			cy := ((y + dy + g.height) % g.height)
			for _, e := range g.cells[cy*g.width+cx] {
				if e == exclude {
					continue
				}
				dst = append(dst, e)
			}
		}
	}
	return dst
}

// Neighbors returns all entities within Chebyshev distance radius of the
// given cell, excluding exclude.
func (g *Grid) Neighbors(x, y, radius int, exclude ecs.Entity) []ecs.Entity {
	return g.NeighborsInto(nil, x, y, radius, exclude)
}

// CountAt returns the number of entities registered at a cell.
func (g *Grid) CountAt(x, y int) int {
	x, y = g.Wrap(x, y)
	return len(g.cells[y*g.width+x])
}
