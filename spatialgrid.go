package tether

import (
	"math"
	"slices"

	"github.com/akmonengine/tether/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================================
// Types
// ============================================================================

// CellKey is the integer coordinate of a grid cell.
type CellKey struct {
	X, Y, Z int
}

// Cell lists the entries overlapping one hashed cell.
type Cell struct {
	indices []int
}

// Pair is an unordered pair of entries whose boxes overlap, A < B.
type Pair struct {
	A, B int
}

// SpatialGrid is a uniform hashed grid used as a broad phase over the
// top-level bodies of a step.
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int
	bounds   []actor.AABB
}

// ============================================================================
// Constructor
// ============================================================================

// NewSpatialGrid rounds numCells up to a power of two.
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].indices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// ============================================================================
// Building
// ============================================================================

// Insert registers entry index with its world box in every cell it covers.
func (sg *SpatialGrid) Insert(index int, bounds actor.AABB) {
	for len(sg.bounds) <= index {
		sg.bounds = append(sg.bounds, actor.EmptyAABB())
	}
	sg.bounds[index] = bounds
	if bounds.IsEmpty() {
		return
	}

	sg.forEachCell(bounds, func(cellIdx int) {
		sg.cells[cellIdx].indices = append(sg.cells[cellIdx].indices, index)
	})
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].indices = sg.cells[i].indices[:0]
	}
	sg.bounds = sg.bounds[:0]
}

// Rebuild clears the grid and inserts the bounds of every node, indexed by position.
func (sg *SpatialGrid) Rebuild(nodes []*actor.Node) {
	sg.Clear()
	for i, node := range nodes {
		sg.Insert(i, node.Bounds())
	}
}

// ============================================================================
// Queries
// ============================================================================

// Candidates returns, in increasing order, every other entry whose box
// overlaps the box of entry index.
func (sg *SpatialGrid) Candidates(index int) []int {
	if index < 0 || index >= len(sg.bounds) || sg.bounds[index].IsEmpty() {
		return nil
	}
	bounds := sg.bounds[index]

	var out []int
	sg.forEachCell(bounds, func(cellIdx int) {
		for _, other := range sg.cells[cellIdx].indices {
			if other == index {
				continue
			}
			// Hash collisions can bring in far away entries.
			if bounds.Overlaps(sg.bounds[other]) {
				out = append(out, other)
			}
		}
	})

	slices.Sort(out)
	return slices.Compact(out)
}

// FindPairs returns each overlapping pair once, sorted by (A, B).
func (sg *SpatialGrid) FindPairs() []Pair {
	var pairs []Pair
	for a := range sg.bounds {
		for _, b := range sg.Candidates(a) {
			if b > a {
				pairs = append(pairs, Pair{A: a, B: b})
			}
		}
	}
	return pairs
}

func (sg *SpatialGrid) forEachCell(bounds actor.AABB, fn func(cellIdx int)) {
	minCell := sg.worldToCell(bounds.Min)
	maxCell := sg.worldToCell(bounds.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				fn(sg.hashCell(CellKey{x, y, z}))
			}
		}
	}
}

func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
