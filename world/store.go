package world

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/seanmcall/veldt/genome"
)

// Store is the fixed-capacity entity arena, laid out struct-of-arrays.
// A slot is either fully alive (all fields meaningful) or fully dead
// (ignored until respawned into). Slots never move; dead slots below
// the high-water mark are reused by reproduction.
//
// All slices live for the whole run and are shared across workers.
// Workers read anything but only write slots they own (see sim).
type Store struct {
	capacity       int
	worldW, worldH float32
	energyMax      float32
	maxAge         float32
	birthCost      float32
	childEnergy    float32

	PosX, PosY []float32
	VelX, VelY []float32
	Orient     []float32
	Alive      []bool
	Energy     []float32
	Age        []float32
	Tribe      []uint16
	Genomes    []genome.Genome

	// Render hints, derived from tribe hue and age.
	ColR, ColG, ColB []uint8

	// High-water mark: highest used slot + 1, not the living count.
	// Atomic so concurrent region-local births can grow it safely.
	count atomic.Int32
}

// StoreParams configures a Store.
type StoreParams struct {
	Capacity    int
	WorldW      float32
	WorldH      float32
	EnergyMax   float32
	MaxAge      float32
	BirthCost   float32
	ChildEnergy float32
}

// NewStore allocates the arena. Invalid parameters reject construction.
func NewStore(p StoreParams) (*Store, error) {
	if p.Capacity < 1 {
		return nil, fmt.Errorf("store: capacity must be positive, got %d", p.Capacity)
	}
	if p.WorldW <= 0 || p.WorldH <= 0 {
		return nil, fmt.Errorf("store: world dimensions must be positive, got %gx%g",
			p.WorldW, p.WorldH)
	}
	if p.EnergyMax <= 0 {
		return nil, fmt.Errorf("store: energy max must be positive, got %g", p.EnergyMax)
	}

	n := p.Capacity
	return &Store{
		capacity:    n,
		worldW:      p.WorldW,
		worldH:      p.WorldH,
		energyMax:   p.EnergyMax,
		maxAge:      p.MaxAge,
		birthCost:   p.BirthCost,
		childEnergy: p.ChildEnergy,

		PosX: make([]float32, n), PosY: make([]float32, n),
		VelX: make([]float32, n), VelY: make([]float32, n),
		Orient:  make([]float32, n),
		Alive:   make([]bool, n),
		Energy:  make([]float32, n),
		Age:     make([]float32, n),
		Tribe:   make([]uint16, n),
		Genomes: make([]genome.Genome, n),
		ColR:    make([]uint8, n), ColG: make([]uint8, n), ColB: make([]uint8, n),
	}, nil
}

// Capacity returns the slot capacity.
func (s *Store) Capacity() int { return s.capacity }

// Count returns the high-water mark (highest used slot + 1).
func (s *Store) Count() int { return int(s.count.Load()) }

// EnergyMax returns the per-entity energy ceiling.
func (s *Store) EnergyMax() float32 { return s.energyMax }

// MaxAge returns the old-age death threshold in seconds.
func (s *Store) MaxAge() float32 { return s.maxAge }

// WorldSize returns the world bounds.
func (s *Store) WorldSize() (w, h float32) { return s.worldW, s.worldH }

// growCount raises the high-water mark to at least n via CAS so that
// two workers spawning concurrently never shrink it.
func (s *Store) growCount(n int32) {
	for {
		cur := s.count.Load()
		if cur >= n || s.count.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Spawn writes a fresh entity into slot. The previous occupant, if
// any, is fully overwritten. Orientation is randomized and the color
// hint derived from the tribe hue.
func (s *Store) Spawn(slot int, x, y float32, g genome.Genome, tribe uint16, energy, age float32, rng *rand.Rand, tribes *Tribes) {
	s.PosX[slot] = wrap(x, s.worldW)
	s.PosY[slot] = wrap(y, s.worldH)
	s.VelX[slot] = 0
	s.VelY[slot] = 0
	s.Orient[slot] = rng.Float32() * 2 * math.Pi
	s.Energy[slot] = clampEnergy(energy, s.energyMax)
	s.Age[slot] = age
	s.Tribe[slot] = tribe
	s.Genomes[slot] = g
	s.ColR[slot], s.ColG[slot], s.ColB[slot] = tribes.ColorFor(tribe, age, s.maxAge)
	s.Alive[slot] = true

	s.growCount(int32(slot) + 1)
}

// Kill zeroes the alive flag. Other fields are left as-is; a later
// spawn into the slot overwrites them.
func (s *Store) Kill(slot int) {
	s.Alive[slot] = false
}

// FindDeadSlot scans [lo,hi) for a reusable slot. Returns -1 when the
// range is full; callers treat that as an expected steady-state
// condition, not an error.
func (s *Store) FindDeadSlot(lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	if hi > s.capacity {
		hi = s.capacity
	}
	for i := lo; i < hi; i++ {
		if !s.Alive[i] {
			return i
		}
	}
	return -1
}

// Reproduce spawns a mutated child of parent into childSlot. It fails
// without touching any state when the slot is out of bounds or already
// alive. On success the parent is charged the birth cost and the
// high-water mark grows if needed.
func (s *Store) Reproduce(parent, childSlot int, rng *rand.Rand, tribes *Tribes) bool {
	if childSlot < 0 || childSlot >= s.capacity || s.Alive[childSlot] {
		return false
	}

	g := s.Genomes[parent]
	g.Mutate(rng, genome.DefaultIntensity)

	// Child lands 10-25 units away in a random direction.
	angle := rng.Float64() * 2 * math.Pi
	dist := 10 + rng.Float32()*15
	x := s.PosX[parent] + float32(math.Cos(angle))*dist
	y := s.PosY[parent] + float32(math.Sin(angle))*dist

	s.Spawn(childSlot, x, y, g, s.Tribe[parent], s.childEnergy, 0, rng, tribes)
	s.Energy[parent] -= s.birthCost
	if s.Energy[parent] < 0 {
		s.Energy[parent] = 0
	}
	return true
}

// SpawnHybrid spawns a cross-tribe child with a blended genome into
// childSlot, charging both parents. Same failure rules as Reproduce.
func (s *Store) SpawnHybrid(parentA, parentB, childSlot int, rng *rand.Rand, tribes *Tribes) bool {
	if childSlot < 0 || childSlot >= s.capacity || s.Alive[childSlot] {
		return false
	}

	g := genome.Blend(s.Genomes[parentA], s.Genomes[parentB], rng)

	angle := rng.Float64() * 2 * math.Pi
	dist := 10 + rng.Float32()*15
	x := s.PosX[parentA] + float32(math.Cos(angle))*dist
	y := s.PosY[parentA] + float32(math.Sin(angle))*dist

	s.Spawn(childSlot, x, y, g, tribes.HybridID(), s.childEnergy, 0, rng, tribes)

	half := s.birthCost * 0.5
	for _, p := range [2]int{parentA, parentB} {
		s.Energy[p] -= half
		if s.Energy[p] < 0 {
			s.Energy[p] = 0
		}
	}
	return true
}

// View returns a read-only accessor over the store. Workers use it for
// neighbor inspection outside their own region.
func (s *Store) View() View {
	return View{s: s}
}

// View exposes only getters; code holding a View cannot mutate the
// arena through it.
type View struct {
	s *Store
}

// Count returns the high-water mark.
func (v View) Count() int { return v.s.Count() }

// IsAlive reports whether the slot holds a living entity.
func (v View) IsAlive(i int) bool { return v.s.Alive[i] }

// Position returns the slot's position.
func (v View) Position(i int) (x, y float32) { return v.s.PosX[i], v.s.PosY[i] }

// Velocity returns the slot's velocity.
func (v View) Velocity(i int) (x, y float32) { return v.s.VelX[i], v.s.VelY[i] }

// EnergyOf returns the slot's energy.
func (v View) EnergyOf(i int) float32 { return v.s.Energy[i] }

// AgeOf returns the slot's age in seconds.
func (v View) AgeOf(i int) float32 { return v.s.Age[i] }

// TribeOf returns the slot's tribe id.
func (v View) TribeOf(i int) uint16 { return v.s.Tribe[i] }

// GenomeOf returns a copy of the slot's genome.
func (v View) GenomeOf(i int) genome.Genome { return v.s.Genomes[i] }

// wrap folds a coordinate into [0,limit).
func wrap(v, limit float32) float32 {
	v = float32(math.Mod(float64(v), float64(limit)))
	if v < 0 {
		v += limit
	}
	return v
}

func clampEnergy(e, max float32) float32 {
	if e < 0 {
		return 0
	}
	if e > max {
		return max
	}
	return e
}
