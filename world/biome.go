package world

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// Biome classifies a region of the world. Ocean and Rock are
// non-traversable and grow no food.
type Biome uint8

const (
	Ocean Biome = iota
	Rock
	Desert
	Grassland
	Forest
	Swamp

	numBiomes
)

// String returns the biome name.
func (b Biome) String() string {
	switch b {
	case Ocean:
		return "ocean"
	case Rock:
		return "rock"
	case Desert:
		return "desert"
	case Grassland:
		return "grassland"
	case Forest:
		return "forest"
	case Swamp:
		return "swamp"
	}
	return "unknown"
}

// foodMultiplier scales food capacity per biome. Zero means the cell
// never grows food.
var foodMultiplier = [numBiomes]float32{
	Ocean:     0,
	Rock:      0,
	Desert:    0.25,
	Grassland: 1.0,
	Forest:    1.4,
	Swamp:     0.8,
}

// Traversable reports whether creatures can enter the biome.
func (b Biome) Traversable() bool {
	return b != Ocean && b != Rock
}

// FoodMultiplier returns the biome's food capacity factor.
func (b Biome) FoodMultiplier() float32 {
	return foodMultiplier[b]
}

// BiomeParams configures biome map generation.
type BiomeParams struct {
	ElevationFrequency float64
	MoistureFrequency  float64
	OceanLevel         float64 // elevation below this is ocean
	RockLevel          float64 // elevation above this is rock
}

// BiomeMap is a cols x rows classification of the world, generated
// once from layered simplex noise and immutable after that.
type BiomeMap struct {
	cols, rows   int
	cellW, cellH float32
	classes      []Biome
}

// NewBiomeMap generates the map. Elevation picks ocean/land/rock;
// moisture splits land into desert, grassland, forest and swamp.
func NewBiomeMap(cols, rows int, worldW, worldH float32, p BiomeParams, seed int64) *BiomeMap {
	m := &BiomeMap{
		cols:    cols,
		rows:    rows,
		cellW:   worldW / float32(cols),
		cellH:   worldH / float32(rows),
		classes: make([]Biome, cols*rows),
	}

	elev := opensimplex.New(seed)
	moist := opensimplex.New(seed + 1)

	for cy := 0; cy < rows; cy++ {
		wy := (float64(cy) + 0.5) * float64(m.cellH)
		for cx := 0; cx < cols; cx++ {
			wx := (float64(cx) + 0.5) * float64(m.cellW)

			// Two octaves are plenty at biome scale.
			e := elev.Eval2(wx*p.ElevationFrequency, wy*p.ElevationFrequency)
			e += 0.4 * elev.Eval2(wx*p.ElevationFrequency*2.7, wy*p.ElevationFrequency*2.7)
			e /= 1.4

			var b Biome
			switch {
			case e < p.OceanLevel:
				b = Ocean
			case e > p.RockLevel:
				b = Rock
			default:
				w := moist.Eval2(wx*p.MoistureFrequency, wy*p.MoistureFrequency)
				switch {
				case w < -0.35:
					b = Desert
				case w < 0.2:
					b = Grassland
				case w < 0.6:
					b = Forest
				default:
					b = Swamp
				}
			}
			m.classes[cy*cols+cx] = b
		}
	}

	return m
}

// Cols returns the grid width in cells.
func (m *BiomeMap) Cols() int { return m.cols }

// Rows returns the grid height in cells.
func (m *BiomeMap) Rows() int { return m.rows }

// At returns the biome at cell coordinates, clamped to the grid.
func (m *BiomeMap) At(cx, cy int) Biome {
	cx = clampInt(cx, 0, m.cols-1)
	cy = clampInt(cy, 0, m.rows-1)
	return m.classes[cy*m.cols+cx]
}

// AtWorld returns the biome at world coordinates.
func (m *BiomeMap) AtWorld(x, y float32) Biome {
	return m.At(int(x/m.cellW), int(y/m.cellH))
}

// Traversable reports whether the world position can be entered.
func (m *BiomeMap) Traversable(x, y float32) bool {
	return m.AtWorld(x, y).Traversable()
}

// BlockedDistance returns the Chebyshev cell distance from cell
// (cx,cy) to the nearest non-traversable cell, searching up to
// maxCells. Returns maxCells+1 when none is found in range, 0 when the
// cell itself is blocked.
func (m *BiomeMap) BlockedDistance(cx, cy, maxCells int) int {
	if !m.At(cx, cy).Traversable() {
		return 0
	}
	for d := 1; d <= maxCells; d++ {
		for oy := -d; oy <= d; oy++ {
			for ox := -d; ox <= d; ox++ {
				if ox > -d && ox < d && oy > -d && oy < d {
					continue // ring only
				}
				x, y := cx+ox, cy+oy
				if x < 0 || x >= m.cols || y < 0 || y >= m.rows {
					continue
				}
				if !m.classes[y*m.cols+x].Traversable() {
					return d
				}
			}
		}
	}
	return maxCells + 1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
