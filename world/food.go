package world

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Logistic regrowth shape: growth peaks when a cell sits near this
// fraction of capacity and tapers toward empty and full.
const (
	regrowCenter   = 0.37
	regrowSteep    = 8.0
	regrowBaseline = 0.02 // constant floor so empty cells are never stuck
	trickleFactor  = 0.5  // share of baseline allowed during cooldown
)

// FoodField is the capacitated food grid. Each worker holds its own
// float field; cross-worker visibility goes through one shared byte
// buffer (see Attach) with a converging change-fold, not a lock.
type FoodField struct {
	cols, rows     int
	worldW, worldH float32
	cellW, cellH   float32

	Current  []float32
	MaxCap   []float32
	Cooldown []float32

	regenRate   float32
	cooldownSec float32

	// shared is the cross-worker byte buffer; seen records the byte
	// this copy last published or adopted per cell, so Fold only
	// reacts to writes made by other workers.
	shared []byte
	seen   []byte
}

// NewFoodField allocates the grid. Invalid dimensions reject
// construction.
func NewFoodField(cols, rows int, worldW, worldH, regenRate, cooldownSec float32) (*FoodField, error) {
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("food: grid must be at least 1x1, got %dx%d", cols, rows)
	}
	if worldW <= 0 || worldH <= 0 {
		return nil, fmt.Errorf("food: world dimensions must be positive, got %gx%g", worldW, worldH)
	}

	n := cols * rows
	return &FoodField{
		cols: cols, rows: rows,
		worldW: worldW, worldH: worldH,
		cellW: worldW / float32(cols),
		cellH: worldH / float32(rows),

		Current:  make([]float32, n),
		MaxCap:   make([]float32, n),
		Cooldown: make([]float32, n),

		regenRate:   regenRate,
		cooldownSec: cooldownSec,
	}, nil
}

// InitParams configures the capacity layout.
type InitParams struct {
	Seed          int64
	CapacityScale float32
	Octaves       int
	Frequency     float64
	Persistence   float64
}

// Initialize derives per-cell capacity from the biome map and layered
// noise variance. Cells bordering non-traversable terrain get a graded
// penalty over ~3 cells so food does not form hard cliffs at water or
// rock edges. Starting levels sit at 50-80% of capacity with a small
// random cooldown to desync the first regrowth wave.
func (f *FoodField) Initialize(p InitParams, biomes *BiomeMap, rng *rand.Rand) {
	noise := opensimplex.NewNormalized(p.Seed)

	for cy := 0; cy < f.rows; cy++ {
		wy := (float64(cy) + 0.5) * float64(f.cellH)
		for cx := 0; cx < f.cols; cx++ {
			i := cy*f.cols + cx
			mult := biomes.At(cx, cy).FoodMultiplier()
			if mult == 0 {
				f.MaxCap[i] = 0
				f.Current[i] = 0
				continue
			}

			wx := (float64(cx) + 0.5) * float64(f.cellW)

			// Multi-octave variance in [0.4, 1].
			var sum, amp, norm float64
			freq := p.Frequency
			amp = 1
			for o := 0; o < p.Octaves; o++ {
				sum += amp * noise.Eval2(wx*freq, wy*freq)
				norm += amp
				amp *= p.Persistence
				freq *= 2
			}
			variance := 0.4 + 0.6*float32(sum/norm)

			// Graded falloff near blocked cells.
			falloff := float32(1)
			if d := biomes.BlockedDistance(cx, cy, 3); d <= 3 {
				falloff = float32(d) / 4
			}

			f.MaxCap[i] = p.CapacityScale * mult * variance * falloff
			f.Current[i] = (0.5 + 0.3*rng.Float32()) * f.MaxCap[i]
			f.Cooldown[i] = rng.Float32() * f.cooldownSec * 0.5
		}
	}
}

// Attach binds the cross-worker byte buffer. Its length must match the
// grid; a mismatch is a construction-time error.
func (f *FoodField) Attach(shared []byte) error {
	if len(shared) != f.cols*f.rows {
		return fmt.Errorf("food: shared buffer size %d does not match grid %d",
			len(shared), f.cols*f.rows)
	}
	f.shared = shared
	f.seen = make([]byte, len(shared))
	copy(f.seen, shared)
	return nil
}

// encode quantizes a cell to the canonical 8-bit fixed point:
// q = round(255 * current/maxCapacity), 0 for barren cells.
func (f *FoodField) encode(i int) byte {
	if f.MaxCap[i] <= 0 {
		return 0
	}
	q := f.Current[i] / f.MaxCap[i] * 255
	if q < 0 {
		q = 0
	} else if q > 255 {
		q = 255
	}
	return byte(q + 0.5)
}

// decode maps a shared byte back to an absolute level for cell i.
func (f *FoodField) decode(i int, q byte) float32 {
	return float32(q) / 255 * f.MaxCap[i]
}

// Publish re-encodes the whole field into the shared buffer. The
// owning worker publishes after regrowth; the engine publishes once at
// startup so workers never fold against an all-zero buffer.
func (f *FoodField) Publish() {
	if f.shared == nil {
		return
	}
	for i := range f.Current {
		q := f.encode(i)
		f.shared[i] = q
		f.seen[i] = q
	}
}

// Fold merges remote writes from the shared buffer into the local
// field. Only cells whose shared byte differs from what this copy
// last published or adopted count as remote: the shared value is
// taken as-is, so non-owning workers see both consumption and the
// owner's published regrowth. A cell folded to zero enters cooldown
// as if consumed locally; a cell folded upward leaves cooldown.
// Non-owning workers call this once per tick instead of Update.
func (f *FoodField) Fold() {
	if f.shared == nil {
		return
	}
	for i := range f.Current {
		if f.MaxCap[i] <= 0 {
			continue
		}
		q := f.shared[i]
		if q == f.seen[i] {
			continue
		}
		remote := f.decode(i, q)
		if remote <= 0 && f.Current[i] > 0 {
			f.Cooldown[i] = f.cooldownSec
		} else if remote > f.Current[i] {
			f.Cooldown[i] = 0
		}
		f.Current[i] = remote
		f.seen[i] = q
	}
}

// Update advances regrowth by dt seconds. Only the food-owning worker
// calls this; it folds in remote consumption first and republishes the
// quantized field afterwards.
func (f *FoodField) Update(dt float32) {
	f.Fold()

	for i := range f.Current {
		cap := f.MaxCap[i]
		if cap <= 0 {
			continue
		}

		baseline := regrowBaseline * f.regenRate * cap

		if f.Cooldown[i] > 0 {
			f.Cooldown[i] -= dt
			// Depleted cells still trickle so they are never stuck.
			f.Current[i] += baseline * trickleFactor * dt
			if f.Current[i] > cap {
				f.Current[i] = cap
			}
			continue
		}

		frac := f.Current[i] / cap
		s := sigmoid(regrowSteep * (frac - regrowCenter))
		rate := f.regenRate*cap*4*s*(1-s) + baseline

		f.Current[i] += rate * dt
		if f.Current[i] > cap {
			f.Current[i] = cap
		}
	}

	f.Publish()
}

// ConsumeAt empties the cell under a world position if it holds more
// than the forager's standards allow ignoring. Picky foragers skip
// sparse cells a desperate one would strip. Returns 1 on success, 0
// otherwise; out-of-bounds coordinates are a neutral miss.
func (f *FoodField) ConsumeAt(x, y, pickiness float32) int {
	i, ok := f.CellIndexAt(x, y)
	if !ok {
		return 0
	}

	threshold := 0.1 + pickiness*pickiness*3.0
	if f.Current[i] <= threshold {
		return 0
	}

	f.Current[i] = 0
	f.Cooldown[i] = f.cooldownSec
	if f.shared != nil {
		f.shared[i] = 0
		f.seen[i] = 0
	}
	return 1
}

// CellIndexAt maps world coordinates to a cell index.
func (f *FoodField) CellIndexAt(x, y float32) (int, bool) {
	if x < 0 || y < 0 || x >= f.worldW || y >= f.worldH {
		return 0, false
	}
	cx := int(x / f.cellW)
	cy := int(y / f.cellH)
	if cx >= f.cols {
		cx = f.cols - 1
	}
	if cy >= f.rows {
		cy = f.rows - 1
	}
	return cy*f.cols + cx, true
}

// CellCenter returns the world coordinates of a cell's center.
func (f *FoodField) CellCenter(i int) (x, y float32) {
	cx := i % f.cols
	cy := i / f.cols
	return (float32(cx) + 0.5) * f.cellW, (float32(cy) + 0.5) * f.cellH
}

// LevelAt samples the current level at world coordinates; zero outside
// the world.
func (f *FoodField) LevelAt(x, y float32) float32 {
	i, ok := f.CellIndexAt(x, y)
	if !ok {
		return 0
	}
	return f.Current[i]
}

// Cols returns the grid width in cells.
func (f *FoodField) Cols() int { return f.cols }

// Rows returns the grid height in cells.
func (f *FoodField) Rows() int { return f.rows }

// CellSize returns the world size of one cell.
func (f *FoodField) CellSize() (w, h float32) { return f.cellW, f.cellH }

// TotalFood sums the current field, for telemetry.
func (f *FoodField) TotalFood() float64 {
	var sum float64
	for _, v := range f.Current {
		sum += float64(v)
	}
	return sum
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}
