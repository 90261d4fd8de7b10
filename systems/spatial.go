package systems

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/components"
)

// NeighbourRange indexes a participant's candidates in the grid's flat
// candidate array: Candidates()[Begin:End].
type NeighbourRange struct {
	Begin, End uint32
}

// Len returns the number of candidates in the range.
func (r NeighbourRange) Len() int { return int(r.End - r.Begin) }

// SpatialGrid bins particles into uniform cells and builds, every frame, a
// CSR table of collision candidates: for participant i, the slots in its own
// cell and the 8 surrounding cells (itself excluded).
//
// Cells are [k*size, (k+1)*size) on each axis. Positions outside the
// viewport are clamped to the edge cells, so no pair closer than one cell is
// ever missed. Correct as long as cellSize >= 2 * the largest radius.
type SpatialGrid struct {
	cellSize float32
	cols     int
	rows     int
	width    float32
	height   float32

	participants []components.SlotID
	cellOf       []int32
	cellStart    []uint32 // len cells+1, prefix sums of per-cell counts
	cellFill     []uint32
	cellEntries  []components.SlotID // participants ordered by cell
	ranges       []NeighbourRange
	candidates   []components.SlotID
}

// NewSpatialGrid creates a grid covering the given viewport size.
func NewSpatialGrid(width, height, cellSize float32) *SpatialGrid {
	g := &SpatialGrid{cellSize: cellSize}
	g.layout(width, height)
	return g
}

// layout recomputes the cell counts for a viewport.
func (g *SpatialGrid) layout(width, height float32) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	g.width = width
	g.height = height
	g.cols = int(width/g.cellSize) + 1
	g.rows = int(height/g.cellSize) + 1
	cells := g.cols * g.rows
	if cap(g.cellStart) < cells+1 {
		g.cellStart = make([]uint32, cells+1)
		g.cellFill = make([]uint32, cells)
	}
	g.cellStart = g.cellStart[:cells+1]
	g.cellFill = g.cellFill[:cells]
}

// Resize adapts the grid to a new viewport size.
func (g *SpatialGrid) Resize(width, height float32) {
	if width == g.width && height == g.height {
		return
	}
	g.layout(width, height)
}

// EnsureCellSize grows the cell size to at least minSize.
func (g *SpatialGrid) EnsureCellSize(minSize float32) {
	if minSize <= g.cellSize {
		return
	}
	g.cellSize = minSize
	g.layout(g.width, g.height)
}

// Bounds returns the viewport size the grid covers.
func (g *SpatialGrid) Bounds() mgl32.Vec2 { return mgl32.Vec2{g.width, g.height} }

// CellSize returns the current cell edge length.
func (g *SpatialGrid) CellSize() float32 { return g.cellSize }

// Cells returns the number of cells.
func (g *SpatialGrid) Cells() int { return g.cols * g.rows }

// CellCoord returns the clamped cell coordinate of a position.
func (g *SpatialGrid) CellCoord(p mgl32.Vec2) (col, row int) {
	col = floorDiv(p[0], g.cellSize)
	row = floorDiv(p[1], g.cellSize)

	// Clamp to valid range
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// cellIndex returns the flat index for a world position.
func (g *SpatialGrid) cellIndex(p mgl32.Vec2) int32 {
	col, row := g.CellCoord(p)
	return int32(row*g.cols + col)
}

// Build rebuilds the candidate table for the given participants.
func (g *SpatialGrid) Build(pool *Pool, participants []components.SlotID, run ParallelFor) {
	n := len(participants)
	g.participants = append(g.participants[:0], participants...)
	g.cellOf = resizeInt32(g.cellOf, n)
	g.cellEntries = resizeSlots(g.cellEntries, n)
	if cap(g.ranges) < n {
		g.ranges = make([]NeighbourRange, n)
	}
	g.ranges = g.ranges[:n]
	for i := range g.cellStart {
		g.cellStart[i] = 0
	}
	if n == 0 {
		g.candidates = g.candidates[:0]
		return
	}

	// Cell of every participant
	run.For(n, func(_, start, end int) {
		for i := start; i < end; i++ {
			g.cellOf[i] = g.cellIndex(pool.pos[g.participants[i]])
		}
	})

	// Counting sort into contiguous per-cell runs
	for _, c := range g.cellOf {
		g.cellStart[c+1]++
	}
	for c := 1; c < len(g.cellStart); c++ {
		g.cellStart[c] += g.cellStart[c-1]
	}
	copy(g.cellFill, g.cellStart[:len(g.cellFill)])
	for i, c := range g.cellOf {
		g.cellEntries[g.cellFill[c]] = g.participants[i]
		g.cellFill[c]++
	}

	// Candidate count per participant (3x3 block minus itself)
	run.For(n, func(_, start, end int) {
		for i := start; i < end; i++ {
			count := uint32(0)
			g.forBlock(g.cellOf[i], func(c int) {
				count += g.cellStart[c+1] - g.cellStart[c]
			})
			g.ranges[i] = NeighbourRange{End: count - 1}
		}
	})

	// Exclusive prefix sum into (begin, end)
	total := uint32(0)
	for i := range g.ranges {
		count := g.ranges[i].End
		g.ranges[i] = NeighbourRange{Begin: total, End: total + count}
		total += count
	}
	g.candidates = resizeSlots(g.candidates, int(total))

	// Fill candidate spans; each participant writes only its own span
	run.For(n, func(_, start, end int) {
		for i := start; i < end; i++ {
			self := g.participants[i]
			w := g.ranges[i].Begin
			g.forBlock(g.cellOf[i], func(c int) {
				for _, s := range g.cellEntries[g.cellStart[c]:g.cellStart[c+1]] {
					if s == self {
						continue
					}
					g.candidates[w] = s
					w++
				}
			})
		}
	})
}

// forBlock calls fn for each in-bounds cell of the 3x3 block around cell c.
func (g *SpatialGrid) forBlock(c int32, fn func(c int)) {
	col := int(c) % g.cols
	row := int(c) / g.cols
	for dr := -1; dr <= 1; dr++ {
		r := row + dr
		if r < 0 || r >= g.rows {
			continue
		}
		for dc := -1; dc <= 1; dc++ {
			cc := col + dc
			if cc < 0 || cc >= g.cols {
				continue
			}
			fn(r*g.cols + cc)
		}
	}
}

// Participants returns the slots passed to the last Build, in order.
func (g *SpatialGrid) Participants() []components.SlotID { return g.participants }

// Range returns participant i's candidate range.
func (g *SpatialGrid) Range(i int) NeighbourRange { return g.ranges[i] }

// Candidates returns the candidate slots of a range.
func (g *SpatialGrid) Candidates(r NeighbourRange) []components.SlotID {
	return g.candidates[r.Begin:r.End]
}

// CandidateCount returns the size of the flat candidate array.
func (g *SpatialGrid) CandidateCount() int { return len(g.candidates) }

func resizeInt32(s []int32, n int) []int32 {
	if cap(s) < n {
		return make([]int32, n)
	}
	return s[:n]
}

func resizeSlots(s []components.SlotID, n int) []components.SlotID {
	if cap(s) < n {
		return make([]components.SlotID, n)
	}
	return s[:n]
}
