package telemetry

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/seanmcall/veldt/genome"
	"github.com/seanmcall/veldt/world"
)

// Counts is the per-tribe event tally one worker accumulates between
// stats windows. Each worker owns its own Counts; the engine merges
// them when a window closes, so no counter is ever shared.
type Counts struct {
	Births  []int
	Deaths  []int // all deaths including combat and old age
	Starved []int
	Kills   []int // kills credited to the tribe's hunters
	Hybrids []int // hybrid offspring credited to each parent tribe
}

// NewCounts allocates tallies for the given tribe count (including the
// hybrid marker tribe).
func NewCounts(tribes int) *Counts {
	return &Counts{
		Births:  make([]int, tribes),
		Deaths:  make([]int, tribes),
		Starved: make([]int, tribes),
		Kills:   make([]int, tribes),
		Hybrids: make([]int, tribes),
	}
}

// AddBirth records a same-tribe birth.
func (c *Counts) AddBirth(tribe uint16) { c.Births[tribe]++ }

// AddDeath records a death from combat or old age.
func (c *Counts) AddDeath(tribe uint16) { c.Deaths[tribe]++ }

// AddStarved records a starvation death. Starvation also counts as a
// death.
func (c *Counts) AddStarved(tribe uint16) {
	c.Deaths[tribe]++
	c.Starved[tribe]++
}

// AddKill credits a combat kill to the attacker's tribe.
func (c *Counts) AddKill(tribe uint16) { c.Kills[tribe]++ }

// AddHybrid records a cross-tribe birth against one parent tribe.
func (c *Counts) AddHybrid(tribe uint16) { c.Hybrids[tribe]++ }

// Merge folds another tally into this one.
func (c *Counts) Merge(o *Counts) {
	for i := range c.Births {
		c.Births[i] += o.Births[i]
		c.Deaths[i] += o.Deaths[i]
		c.Starved[i] += o.Starved[i]
		c.Kills[i] += o.Kills[i]
		c.Hybrids[i] += o.Hybrids[i]
	}
}

// Reset zeroes every tally.
func (c *Counts) Reset() {
	for i := range c.Births {
		c.Births[i] = 0
		c.Deaths[i] = 0
		c.Starved[i] = 0
		c.Kills[i] = 0
		c.Hybrids[i] = 0
	}
}

// Collector turns merged worker tallies plus a store scan into
// per-tribe WindowStats at a fixed window cadence.
type Collector struct {
	windowSec   float64
	dt          float32
	windowTicks int64
	windowStart int64

	merged *Counts
}

// NewCollector creates a collector flushing every windowSec of
// simulated time.
func NewCollector(windowSec float64, dt float32, tribes int) *Collector {
	ticks := int64(math.Round(windowSec / float64(dt)))
	if ticks < 1 {
		ticks = 1
	}
	return &Collector{
		windowSec:   windowSec,
		dt:          dt,
		windowTicks: ticks,
		merged:      NewCounts(tribes),
	}
}

// Absorb merges a worker's tally into the pending window and resets
// the source.
func (c *Collector) Absorb(w *Counts) {
	c.merged.Merge(w)
	w.Reset()
}

// ShouldFlush reports whether the current window is complete.
func (c *Collector) ShouldFlush(tick int64) bool {
	return tick-c.windowStart >= c.windowTicks
}

// Flush scans the live population and produces one WindowStats row per
// tribe, then resets the window. The view scan is read-only and safe
// against concurrent position writes; a torn float read skews one
// sample at worst.
func (c *Collector) Flush(tick int64, v world.View, tribes *world.Tribes) []WindowStats {
	nTribes := tribes.Count()

	energies := make([][]float64, nTribes)
	genes := make([][genome.NumGenes][]float64, nTribes)

	n := v.Count()
	for i := 0; i < n; i++ {
		if !v.IsAlive(i) {
			continue
		}
		t := v.TribeOf(i)
		if int(t) >= nTribes {
			continue
		}
		energies[t] = append(energies[t], float64(v.EnergyOf(i)))
		g := v.GenomeOf(i)
		for gi := 0; gi < genome.NumGenes; gi++ {
			genes[t][gi] = append(genes[t][gi], float64(g[gi]))
		}
	}

	out := make([]WindowStats, 0, nTribes)
	for t := 0; t < nTribes; t++ {
		ws := WindowStats{
			WindowEnd:    tick,
			SimTime:      float64(tick) * float64(c.dt),
			Tribe:        tribes.All[t].Name,
			Population:   len(energies[t]),
			Births:       c.merged.Births[t],
			Deaths:       c.merged.Deaths[t],
			Starved:      c.merged.Starved[t],
			Kills:        c.merged.Kills[t],
			HybridBirths: c.merged.Hybrids[t],
		}

		if len(energies[t]) > 0 {
			sorted := make([]float64, len(energies[t]))
			copy(sorted, energies[t])
			sort.Float64s(sorted)
			ws.EnergyMean = stat.Mean(sorted, nil)
			ws.EnergyP10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
			ws.EnergyP50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
			ws.EnergyP90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)

			ws.SpeedMean = stat.Mean(genes[t][genome.Speed], nil)
			ws.VisionMean = stat.Mean(genes[t][genome.Vision], nil)
			ws.MetabolismMean = stat.Mean(genes[t][genome.Metabolism], nil)
			ws.ReproChanceMean = stat.Mean(genes[t][genome.ReproChance], nil)
			ws.AggressionMean = stat.Mean(genes[t][genome.Aggression], nil)
			ws.CohesionMean = stat.Mean(genes[t][genome.Cohesion], nil)
			ws.PickinessMean = stat.Mean(genes[t][genome.Pickiness], nil)
			ws.DietMean = stat.Mean(genes[t][genome.Diet], nil)
			ws.DietStd = stat.StdDev(genes[t][genome.Diet], nil)
			ws.ViewAngleMean = stat.Mean(genes[t][genome.ViewAngle], nil)
		}

		out = append(out, ws)
	}

	c.windowStart = tick
	c.merged.Reset()
	return out
}

// WindowDurationTicks returns the ticks per stats window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowTicks
}
