// Package spatial provides cache-efficient spatial data structures for
// broad-phase target acquisition and neighbor queries.
//
// Structures reuse their backing slices between ticks to keep GC pressure
// flat while the battle is running.
package spatial

import (
	"math"
)

// CellKey identifies one grid cell by integer coordinates.
type CellKey struct {
	X, Y int
}

// TargetIndex buckets values into a uniform grid of fixed cell size.
//
// The world is unbounded: cells live in a map keyed by floor(pos/cellSize),
// so negative coordinates and far-away stragglers hash like any other point.
// The index is rebuilt from scratch every tick (Clear + Insert), never
// updated incrementally.
type TargetIndex[T any] struct {
	cellSize    float64
	invCellSize float64 // 1/cellSize for faster division
	cells       map[CellKey][]T
	scratch     []T // reusable buffer for query results
	count       int
}

// NewTargetIndex creates an empty index with the given cell size.
// Non-positive cell sizes fall back to 50 world units.
func NewTargetIndex[T any](cellSize float64) *TargetIndex[T] {
	if cellSize <= 0 {
		cellSize = 50
	}
	return &TargetIndex[T]{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[CellKey][]T),
		scratch:     make([]T, 0, 64),
	}
}

// Cell returns the key of the cell containing (x, y).
func (g *TargetIndex[T]) Cell(x, y float64) CellKey {
	return CellKey{
		X: int(math.Floor(x * g.invCellSize)),
		Y: int(math.Floor(y * g.invCellSize)),
	}
}

// Clear resets all cells, keeping their capacity for the next build.
// Cells that stayed empty for a whole build are dropped so the map does
// not grow with every cell a ship has ever crossed.
func (g *TargetIndex[T]) Clear() {
	for k, cell := range g.cells {
		if len(cell) == 0 {
			delete(g.cells, k)
			continue
		}
		g.cells[k] = cell[:0]
	}
	g.count = 0
}

// Insert adds a value at position (x, y). O(1) amortized.
func (g *TargetIndex[T]) Insert(v T, x, y float64) {
	k := g.Cell(x, y)
	g.cells[k] = append(g.cells[k], v)
	g.count++
}

// Query returns every value stored in the cells overlapping the square
// [x-radius, x+radius] x [y-radius, y+radius].
// Cells are visited row-major: y outer, x inner, ascending.
//
// IMPORTANT: The returned slice is reused on subsequent calls.
// Copy the results if you need to persist them.
//
// The result over-approximates the circle; the caller must perform the
// precise distance check (narrow phase).
func (g *TargetIndex[T]) Query(x, y, radius float64) []T {
	g.scratch = g.scratch[:0]
	if radius < 0 || math.IsNaN(radius) {
		return g.scratch
	}

	lo := g.Cell(x-radius, y-radius)
	hi := g.Cell(x+radius, y+radius)

	// Sparse worlds: walking the occupied cells is cheaper than the rectangle.
	span := (hi.X - lo.X + 1) * (hi.Y - lo.Y + 1)
	if span > len(g.cells) || span <= 0 {
		return g.querySparse(lo, hi)
	}

	for cy := lo.Y; cy <= hi.Y; cy++ {
		for cx := lo.X; cx <= hi.X; cx++ {
			g.scratch = append(g.scratch, g.cells[CellKey{cx, cy}]...)
		}
	}

	return g.scratch
}

// querySparse collects the occupied cells inside [lo, hi] in the same
// row-major order as the dense walk.
func (g *TargetIndex[T]) querySparse(lo, hi CellKey) []T {
	keys := make([]CellKey, 0, len(g.cells))
	for k, cell := range g.cells {
		if len(cell) == 0 {
			continue
		}
		if k.X < lo.X || k.X > hi.X || k.Y < lo.Y || k.Y > hi.Y {
			continue
		}
		keys = append(keys, k)
	}
	sortRowMajor(keys)
	for _, k := range keys {
		g.scratch = append(g.scratch, g.cells[k]...)
	}
	return g.scratch
}

// sortRowMajor is an insertion sort; the key lists here are short.
func sortRowMajor(keys []CellKey) {
	for i := 1; i < len(keys); i++ {
		k := keys[i]
		j := i - 1
		for j >= 0 && (keys[j].Y > k.Y || (keys[j].Y == k.Y && keys[j].X > k.X)) {
			keys[j+1] = keys[j]
			j--
		}
		keys[j+1] = k
	}
}

// QueryCell returns the values in the cell containing (x, y).
func (g *TargetIndex[T]) QueryCell(x, y float64) []T {
	return g.cells[g.Cell(x, y)]
}

// Len returns the number of values inserted since the last Clear.
func (g *TargetIndex[T]) Len() int {
	return g.count
}

// CellSize returns the configured cell size.
func (g *TargetIndex[T]) CellSize() float64 {
	return g.cellSize
}

// Stats returns index statistics for debugging/profiling.
func (g *TargetIndex[T]) Stats() GridStats {
	var maxInCell, nonEmpty int
	for _, cell := range g.cells {
		count := len(cell)
		if count > maxInCell {
			maxInCell = count
		}
		if count > 0 {
			nonEmpty++
		}
	}

	avgPerCell := 0.0
	if nonEmpty > 0 {
		avgPerCell = float64(g.count) / float64(nonEmpty)
	}

	return GridStats{
		CellSize:       g.cellSize,
		NonEmptyCells:  nonEmpty,
		TotalEntities:  g.count,
		MaxInCell:      maxInCell,
		AvgPerNonEmpty: avgPerCell,
	}
}

// GridStats contains index statistics for debugging.
type GridStats struct {
	CellSize       float64 `json:"cellSize"`
	NonEmptyCells  int     `json:"nonEmptyCells"`
	TotalEntities  int     `json:"totalEntities"`
	MaxInCell      int     `json:"maxInCell"`
	AvgPerNonEmpty float64 `json:"avgPerNonEmpty"`
}
