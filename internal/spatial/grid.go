// Package spatial provides the broad-phase grid used by the tick phases
// that test players against points or against each other.
//
// The grid stores slice indices, not pointers, and keeps its cell storage
// across Clear calls so a room can rebuild it every tick without garbage.
package spatial

import (
	"math"
	"slices"

	"blade-arena/internal/geom"
)

// Grid buckets entity indices into fixed-size square cells over an arena.
//
// Optimal cell size is close to the typical query radius. Positions outside
// the bounds are clamped into the border cells.
type Grid struct {
	bounds      geom.Bounds
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]int // row-major: cells[row*cols+col]
	scratch     []int
}

// NewGrid creates a grid covering bounds.
func NewGrid(bounds geom.Bounds, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = math.Max(bounds.Width(), bounds.Height())
	}
	cols := max(1, int(math.Ceil(bounds.Width()/cellSize)))
	rows := max(1, int(math.Ceil(bounds.Height()/cellSize)))

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 4)
	}

	return &Grid{
		bounds:      bounds,
		cellSize:    cellSize,
		invCellSize: 1 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]int, 0, 32),
	}
}

// Clear empties every cell and keeps the capacity.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert records id at pos.
func (g *Grid) Insert(id int, pos geom.Vec2) {
	col, row := g.cell(pos)
	idx := row*g.cols + col
	g.cells[idx] = append(g.cells[idx], id)
}

func (g *Grid) cell(pos geom.Vec2) (col, row int) {
	col = int((pos.X - g.bounds.Min.X) * g.invCellSize)
	row = int((pos.Y - g.bounds.Min.Y) * g.invCellSize)
	return clampIndex(col, g.cols), clampIndex(row, g.rows)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// QueryRadius returns the ids of every cell overlapping the square around
// center, in ascending order. Candidates may lie outside the radius; callers
// run the exact test.
//
// The returned slice is reused by the next call.
func (g *Grid) QueryRadius(center geom.Vec2, radius float64) []int {
	g.scratch = g.scratch[:0]

	minCol, minRow := g.cell(geom.Vec2{X: center.X - radius, Y: center.Y - radius})
	maxCol, maxRow := g.cell(geom.Vec2{X: center.X + radius, Y: center.Y + radius})

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			g.scratch = append(g.scratch, g.cells[row*g.cols+col]...)
		}
	}
	slices.Sort(g.scratch)
	return g.scratch
}

// Dimensions returns the grid layout.
func (g *Grid) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}
