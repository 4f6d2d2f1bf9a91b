package world

import "fmt"

// SpatialIndex is a uniform grid over the world bounds, rebuilt every
// tick from the store. head[cell] points to the first slot in the
// cell's bucket; next[slot] chains the rest. Positions are snapshotted
// at rebuild time so queries stay consistent against the snapshot even
// while other workers move their entities.
type SpatialIndex struct {
	cellSize float32
	cols     int
	rows     int

	head []int32
	next []int32

	// Position snapshot taken at rebuild.
	posX, posY []float32
	n          int
}

// NewSpatialIndex sizes the grid for the world. Invalid parameters
// reject construction.
func NewSpatialIndex(worldW, worldH, cellSize float32, capacity int) (*SpatialIndex, error) {
	if cellSize <= 0 {
		return nil, fmt.Errorf("spatial: cell size must be positive, got %g", cellSize)
	}
	if worldW <= 0 || worldH <= 0 {
		return nil, fmt.Errorf("spatial: world dimensions must be positive, got %gx%g",
			worldW, worldH)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("spatial: capacity must be positive, got %d", capacity)
	}

	cols := int(worldW/cellSize) + 1
	rows := int(worldH/cellSize) + 1

	return &SpatialIndex{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		head:     make([]int32, cols*rows),
		next:     make([]int32, capacity),
		posX:     make([]float32, capacity),
		posY:     make([]float32, capacity),
	}, nil
}

// cellCoords clamps a world position into grid coordinates.
func (idx *SpatialIndex) cellCoords(x, y float32) (cx, cy int) {
	cx = int(x / idx.cellSize)
	cy = int(y / idx.cellSize)
	if cx < 0 {
		cx = 0
	} else if cx >= idx.cols {
		cx = idx.cols - 1
	}
	if cy < 0 {
		cy = 0
	} else if cy >= idx.rows {
		cy = idx.rows - 1
	}
	return cx, cy
}

// Rebuild repopulates every bucket from the first n slots of the
// store. O(n); must run once per tick before any query that tick.
func (idx *SpatialIndex) Rebuild(v View, n int) {
	for i := range idx.head {
		idx.head[i] = -1
	}

	if n > len(idx.next) {
		n = len(idx.next)
	}
	idx.n = n

	for i := 0; i < n; i++ {
		if !v.IsAlive(i) {
			continue
		}
		x, y := v.Position(i)
		idx.posX[i] = x
		idx.posY[i] = y

		cx, cy := idx.cellCoords(x, y)
		cell := cy*idx.cols + cx
		idx.next[i] = idx.head[cell]
		idx.head[cell] = int32(i)
	}
}

// ForNeighbors visits every indexed entity whose cell lies within
// radius+cellSize of (x,y) - a superset of the exact circle. Callers
// re-filter by the reported squared distance. Returning false from
// visit stops the walk.
func (idx *SpatialIndex) ForNeighbors(x, y, radius float32, visit func(slot int32, nx, ny, distSq float32) bool) {
	cellRadius := int(radius/idx.cellSize) + 1
	cx, cy := idx.cellCoords(x, y)

	for dy := -cellRadius; dy <= cellRadius; dy++ {
		gy := cy + dy
		if gy < 0 || gy >= idx.rows {
			continue
		}
		for dx := -cellRadius; dx <= cellRadius; dx++ {
			gx := cx + dx
			if gx < 0 || gx >= idx.cols {
				continue
			}
			for slot := idx.head[gy*idx.cols+gx]; slot >= 0; slot = idx.next[slot] {
				nx, ny := idx.posX[slot], idx.posY[slot]
				ddx, ddy := nx-x, ny-y
				if !visit(slot, nx, ny, ddx*ddx+ddy*ddy) {
					return
				}
			}
		}
	}
}

// ForNeighborsLimited is the bounded variant: it expands outward ring
// by ring from the home cell and stops once maxChecks entities have
// been examined - not necessarily the maxChecks nearest. The bound is
// deliberate; without it dense clusters make per-tick cost unbounded.
func (idx *SpatialIndex) ForNeighborsLimited(x, y, radius float32, maxChecks int, visit func(slot int32, nx, ny, distSq float32) bool) {
	cellRadius := int(radius/idx.cellSize) + 1
	cx, cy := idx.cellCoords(x, y)
	checked := 0

	scanCell := func(gx, gy int) bool {
		if gx < 0 || gx >= idx.cols || gy < 0 || gy >= idx.rows {
			return true
		}
		for slot := idx.head[gy*idx.cols+gx]; slot >= 0; slot = idx.next[slot] {
			checked++
			nx, ny := idx.posX[slot], idx.posY[slot]
			ddx, ddy := nx-x, ny-y
			if !visit(slot, nx, ny, ddx*ddx+ddy*ddy) {
				return false
			}
			if checked >= maxChecks {
				return false
			}
		}
		return true
	}

	// Home cell first, then concentric rings.
	if !scanCell(cx, cy) {
		return
	}
	for d := 1; d <= cellRadius; d++ {
		for gx := cx - d; gx <= cx+d; gx++ {
			if !scanCell(gx, cy-d) || !scanCell(gx, cy+d) {
				return
			}
		}
		for gy := cy - d + 1; gy <= cy+d-1; gy++ {
			if !scanCell(cx-d, gy) || !scanCell(cx+d, gy) {
				return
			}
		}
	}
}

// CellOf returns the bucket index for a position, mainly for tests.
func (idx *SpatialIndex) CellOf(x, y float32) int {
	cx, cy := idx.cellCoords(x, y)
	return cy*idx.cols + cx
}

// WalkCell visits the raw bucket chain of one cell.
func (idx *SpatialIndex) WalkCell(cell int, visit func(slot int32) bool) {
	for slot := idx.head[cell]; slot >= 0; slot = idx.next[slot] {
		if !visit(slot) {
			return
		}
	}
}
