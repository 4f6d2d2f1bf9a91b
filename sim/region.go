// Package sim contains the behavior algorithm, the tick orchestrator,
// and the worker partitioning layer. All workers share one memory
// region (the world package's arrays); each worker is the sole writer
// of entities currently inside its region and of its own slot range
// for births, and every worker may read everything.
package sim

// Region is the axis-aligned world rectangle one worker owns. An
// entity belongs to the worker whose region contains its current
// position; min edges are inclusive, max edges exclusive.
type Region struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

// Contains reports whether a world position falls inside the region.
func (r Region) Contains(x, y float32) bool {
	return x >= r.MinX && x < r.MaxX && y >= r.MinY && y < r.MaxY
}

// Partition splits the world into n disjoint rectangles that exactly
// cover it, arranged as the most-square grid whose cell count is n.
// The last column and row absorb rounding so coverage stays exact.
func Partition(worldW, worldH float32, n int) []Region {
	if n < 1 {
		n = 1
	}

	// Most-square factorization: cols * rows == n, cols >= rows.
	rows := 1
	for d := 2; d*d <= n; d++ {
		if n%d == 0 {
			rows = d
		}
	}
	cols := n / rows
	if worldH > worldW {
		cols, rows = rows, cols
	}

	regions := make([]Region, 0, n)
	cellW := worldW / float32(cols)
	cellH := worldH / float32(rows)
	for ry := 0; ry < rows; ry++ {
		for rx := 0; rx < cols; rx++ {
			reg := Region{
				MinX: float32(rx) * cellW,
				MinY: float32(ry) * cellH,
				MaxX: float32(rx+1) * cellW,
				MaxY: float32(ry+1) * cellH,
			}
			if rx == cols-1 {
				reg.MaxX = worldW
			}
			if ry == rows-1 {
				reg.MaxY = worldH
			}
			regions = append(regions, reg)
		}
	}
	return regions
}

// SlotRange is the half-open arena slice one worker allocates births
// from. Workers only ever spawn into their own range, so slot
// allocation never races.
type SlotRange struct {
	Lo, Hi int
}

// PartitionSlots divides the arena into n contiguous ranges covering
// [0, capacity).
func PartitionSlots(capacity, n int) []SlotRange {
	if n < 1 {
		n = 1
	}
	ranges := make([]SlotRange, n)
	per := capacity / n
	for i := 0; i < n; i++ {
		ranges[i] = SlotRange{Lo: i * per, Hi: (i + 1) * per}
	}
	ranges[n-1].Hi = capacity
	return ranges
}
