package spatial

import (
	"sort"
	"testing"
)

func sorted(vals []int) []int {
	out := append([]int(nil), vals...)
	sort.Ints(out)
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestTargetIndexQuery verifies radius queries return every value in the
// overlapped cells and nothing from cells outside them.
func TestTargetIndexQuery(t *testing.T) {
	g := NewTargetIndex[int](50)
	g.Insert(1, 10, 10)
	g.Insert(2, 60, 10)
	g.Insert(3, -10, -10)
	g.Insert(4, 500, 500)
	g.Insert(5, -260, 0)

	tests := []struct {
		name   string
		x, y   float64
		radius float64
		want   []int
	}{
		{"single cell", 25, 25, 10, []int{1}},
		{"neighbouring cells", 25, 0, 40, []int{1, 2, 3}},
		{"negative coordinates", -20, -20, 5, []int{3}},
		{"far away", 500, 500, 1, []int{4}},
		{"empty area", 1000, -1000, 20, nil},
		{"zero radius", 10, 10, 0, []int{1}},
		{"negative radius", 10, 10, -1, nil},
		{"wide sparse query", 0, 0, 10000, []int{1, 2, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sorted(g.Query(tt.x, tt.y, tt.radius))
			if !equalInts(got, tt.want) {
				t.Errorf("Query(%v, %v, %v) = %v, want %v", tt.x, tt.y, tt.radius, got, tt.want)
			}
		})
	}
}

// TestTargetIndexCell verifies cell keys floor toward negative infinity.
func TestTargetIndexCell(t *testing.T) {
	g := NewTargetIndex[int](50)
	tests := []struct {
		x, y float64
		want CellKey
	}{
		{0, 0, CellKey{0, 0}},
		{49.9, 49.9, CellKey{0, 0}},
		{50, 0, CellKey{1, 0}},
		{-0.1, -0.1, CellKey{-1, -1}},
		{-50, -50.1, CellKey{-1, -2}},
	}
	for _, tt := range tests {
		if got := g.Cell(tt.x, tt.y); got != tt.want {
			t.Errorf("Cell(%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

// TestTargetIndexOrder verifies the dense and sparse walks visit cells in
// the same row-major order.
func TestTargetIndexOrder(t *testing.T) {
	g := NewTargetIndex[int](10)
	// Inserted out of order on purpose.
	g.Insert(4, 15, 15) // cell (1,1)
	g.Insert(1, -5, -5) // cell (-1,-1)
	g.Insert(3, -5, 15) // cell (-1,1)
	g.Insert(2, 15, -5) // cell (1,-1)

	want := []int{1, 2, 3, 4}

	// Dense: few cells spanned, many occupied.
	for i := 0; i < 50; i++ {
		g.Insert(100+i, float64(i*10)+1000, 1000)
	}
	if got := g.Query(5, 5, 10); !equalInts(got, want) {
		t.Errorf("dense Query = %v, want %v", got, want)
	}

	// Sparse: the span exceeds the occupied cell count.
	h := NewTargetIndex[int](10)
	h.Insert(4, 15, 15)
	h.Insert(1, -5, -5)
	h.Insert(3, -5, 15)
	h.Insert(2, 15, -5)
	if got := h.Query(5, 5, 1000); !equalInts(got, want) {
		t.Errorf("sparse Query = %v, want %v", got, want)
	}
}

// TestTargetIndexClear verifies Clear empties the index and keeps working.
func TestTargetIndexClear(t *testing.T) {
	g := NewTargetIndex[int](50)
	for i := 0; i < 10; i++ {
		g.Insert(i, float64(i)*30, 0)
	}
	if g.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", g.Len())
	}

	g.Clear()
	if g.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", g.Len())
	}
	if got := g.Query(100, 0, 500); len(got) != 0 {
		t.Errorf("Query after Clear = %v", got)
	}

	g.Insert(42, 0, 0)
	if got := g.QueryCell(1, 1); len(got) != 1 || got[0] != 42 {
		t.Errorf("QueryCell after reuse = %v", got)
	}

	// A second Clear drops cells that stayed empty for a whole build.
	g.Clear()
	g.Clear()
	if s := g.Stats(); s.NonEmptyCells != 0 || len(g.cells) != 0 {
		t.Errorf("stale cells kept: %d", len(g.cells))
	}
}

// TestTargetIndexStats verifies the debugging counters.
func TestTargetIndexStats(t *testing.T) {
	g := NewTargetIndex[int](0)
	if g.CellSize() != 50 {
		t.Errorf("CellSize() = %v, want default 50", g.CellSize())
	}

	g.Insert(1, 1, 1)
	g.Insert(2, 2, 2)
	g.Insert(3, 3, 3)
	g.Insert(4, 100, 100)

	s := g.Stats()
	if s.TotalEntities != 4 || s.NonEmptyCells != 2 || s.MaxInCell != 3 || s.AvgPerNonEmpty != 2 {
		t.Errorf("Stats() = %+v", s)
	}
}
