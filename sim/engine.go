package sim

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/seanmcall/veldt/config"
	"github.com/seanmcall/veldt/genome"
	"github.com/seanmcall/veldt/rng"
	"github.com/seanmcall/veldt/telemetry"
	"github.com/seanmcall/veldt/world"
)

// Engine owns the shared world state and the worker pool, and is the
// only surface the driver and any render collaborator talk to. All of
// its query methods are safe to call while workers run and never block
// them.
type Engine struct {
	cfg  *config.Config
	seed int64

	store  *world.Store
	tribes *world.Tribes
	biomes *world.BiomeMap

	sharedFood []byte
	ownerFood  *world.FoodField // worker 0's copy, read for previews/totals

	workers   []*Worker
	collector *telemetry.Collector

	running bool
}

// New validates the configuration and builds the full shared state:
// biome map, per-worker food fields bound to one shared byte buffer,
// entity store, and the initial tribe populations. Spawning is done
// here, before any worker starts, so slot allocation cannot race.
func New(cfg *config.Config, seed int64) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()

	tribeList := make([]world.Tribe, len(cfg.Tribes))
	for i, t := range cfg.Tribes {
		tribeList[i] = world.Tribe{Name: t.Name, Hue: float32(t.Hue)}
	}
	tribes := world.NewTribes(tribeList)

	biomes := world.NewBiomeMap(cfg.Food.Cols, cfg.Food.Rows,
		cfg.Derived.WorldW32, cfg.Derived.WorldH32,
		world.BiomeParams{
			ElevationFrequency: cfg.Biome.ElevationFrequency,
			MoistureFrequency:  cfg.Biome.MoistureFrequency,
			OceanLevel:         cfg.Biome.OceanLevel,
			RockLevel:          cfg.Biome.RockLevel,
		}, seed)

	store, err := world.NewStore(world.StoreParams{
		Capacity:    cfg.Entities.Capacity,
		WorldW:      cfg.Derived.WorldW32,
		WorldH:      cfg.Derived.WorldH32,
		EnergyMax:   float32(cfg.Entities.EnergyMax),
		MaxAge:      float32(cfg.Entities.MaxAge),
		BirthCost:   float32(cfg.Entities.BirthCost),
		ChildEnergy: float32(cfg.Entities.ChildEnergy),
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		seed:       seed,
		store:      store,
		tribes:     tribes,
		biomes:     biomes,
		sharedFood: make([]byte, cfg.Food.Cols*cfg.Food.Rows),
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow,
			cfg.Derived.DT32, tribes.Count()),
	}

	regions := Partition(cfg.Derived.WorldW32, cfg.Derived.WorldH32, cfg.Sim.Workers)
	slotRanges := PartitionSlots(cfg.Entities.Capacity, cfg.Sim.Workers)

	for id := 0; id < cfg.Sim.Workers; id++ {
		food, err := e.buildFoodField()
		if err != nil {
			return nil, err
		}
		w, err := newWorker(cfg, id, seed, regions[id], slotRanges[id],
			store, food, biomes, tribes)
		if err != nil {
			return nil, fmt.Errorf("building worker %d: %w", id, err)
		}
		e.workers = append(e.workers, w)
		if id == 0 {
			e.ownerFood = food
		}
	}

	if err := e.spawnTribes(); err != nil {
		return nil, err
	}
	e.ownerFood.Publish()

	return e, nil
}

// buildFoodField creates one worker's float copy of the food field.
// Every copy is initialized from the same seed so all workers agree on
// capacities; live levels converge through the shared byte buffer.
func (e *Engine) buildFoodField() (*world.FoodField, error) {
	cfg := e.cfg
	food, err := world.NewFoodField(cfg.Food.Cols, cfg.Food.Rows,
		cfg.Derived.WorldW32, cfg.Derived.WorldH32,
		float32(cfg.Food.RegenRate), float32(cfg.Food.CooldownSec))
	if err != nil {
		return nil, err
	}
	food.Initialize(world.InitParams{
		Seed:          e.seed,
		CapacityScale: float32(cfg.Food.CapacityScale),
		Octaves:       cfg.Food.NoiseOctaves,
		Frequency:     cfg.Food.NoiseFrequency,
		Persistence:   cfg.Food.NoisePersistence,
	}, e.biomes, rng.NewRand(e.seed+1))

	if err := food.Attach(e.sharedFood); err != nil {
		return nil, err
	}
	return food, nil
}

// spawnTribes places each configured tribe in a disc around its spawn
// point, skipping non-traversable ground where possible.
func (e *Engine) spawnTribes() error {
	r := rng.NewRand(e.seed)
	slot := 0

	for tribeID, spec := range e.cfg.Tribes {
		base := genome.Default()
		for name, value := range spec.Genome {
			gi, ok := genome.IndexByName(name)
			if !ok {
				return fmt.Errorf("tribe %q: unknown gene %q", spec.Name, name)
			}
			base[gi] = float32(value)
		}
		base.Clamp()

		for n := 0; n < spec.Count; n++ {
			x, y := e.spawnPoint(r, float32(spec.X), float32(spec.Y), float32(spec.Radius))

			g := base
			g.Mutate(r, genome.DefaultIntensity)

			e.store.Spawn(slot, x, y, g, uint16(tribeID),
				float32(e.cfg.Entities.InitialEnergy), 0, r, e.tribes)
			slot++
		}
	}
	return nil
}

// spawnPoint picks a random point in the spawn disc, retrying a few
// times to land on traversable ground. Blocked terrain everywhere in
// the disc degrades to the last candidate rather than failing the run.
func (e *Engine) spawnPoint(r *rand.Rand, cx, cy, radius float32) (float32, float32) {
	var x, y float32
	for attempt := 0; attempt < 20; attempt++ {
		angle := r.Float64() * 2 * math.Pi
		dist := float32(math.Sqrt(r.Float64())) * radius
		x = cx + float32(math.Cos(angle))*dist
		y = cy + float32(math.Sin(angle))*dist
		if e.biomes.Traversable(x, y) {
			return x, y
		}
	}
	return x, y
}

// Start launches all worker goroutines.
func (e *Engine) Start() {
	if e.running {
		return
	}
	e.running = true
	for _, w := range e.workers {
		go w.run()
	}
	slog.Info("engine started",
		"workers", len(e.workers),
		"capacity", e.store.Capacity(),
		"population", e.cfg.Derived.InitialCount,
		"seed", e.seed)
}

// Stop shuts every worker down and waits for them to exit.
func (e *Engine) Stop() {
	if !e.running {
		return
	}
	for _, w := range e.workers {
		w.send(stopCmd{})
	}
	for _, w := range e.workers {
		<-w.done
	}
	e.running = false
	slog.Info("engine stopped", "ticks", e.Tick())
}

// Pause pauses or resumes every worker at tick granularity.
func (e *Engine) Pause(paused bool) {
	for _, w := range e.workers {
		w.send(pauseCmd{paused: paused})
	}
}

// SetSpeedMultiplier rescales simulation time on every worker.
func (e *Engine) SetSpeedMultiplier(mult float32) {
	for _, w := range e.workers {
		w.send(speedCmd{mult: mult})
	}
}

// Tick returns the highest substep count across workers.
func (e *Engine) Tick() int64 {
	var max int64
	for _, w := range e.workers {
		if t := w.ticker.Tick(); t > max {
			max = t
		}
	}
	return max
}

// Stats gathers every worker's event tally, merges them, and flushes
// the stats window: one row per tribe with populations, event counts
// and gene means.
func (e *Engine) Stats() []telemetry.WindowStats {
	for _, w := range e.workers {
		if !e.running {
			e.collector.Absorb(w.counts)
			continue
		}
		reply := make(chan *telemetry.Counts, 1)
		w.send(statsCmd{reply: reply})
		select {
		case counts := <-reply:
			e.collector.Absorb(counts)
		case <-w.done:
		}
	}
	return e.collector.Flush(e.Tick(), e.store.View(), e.tribes)
}

// Perf returns the merged worker performance view: the slowest
// worker's tick time bounds the whole simulation.
func (e *Engine) Perf() telemetry.PerfStats {
	all := make([]telemetry.PerfStats, 0, len(e.workers))
	for _, w := range e.workers {
		if !e.running {
			all = append(all, w.perf.Stats())
			continue
		}
		reply := make(chan telemetry.PerfStats, 1)
		w.send(perfCmd{reply: reply})
		select {
		case stats := <-reply:
			all = append(all, stats)
		case <-w.done:
		}
	}
	return telemetry.MergePerf(all)
}

// Advance runs n substeps synchronously on the calling goroutine,
// stepping each worker in turn. Only valid while the engine is
// stopped; headless sweeps use it to run faster than wall clock.
func (e *Engine) Advance(n int) {
	if e.running {
		return
	}
	for i := 0; i < n; i++ {
		for _, w := range e.workers {
			w.ticker.Advance(w.ticker.dt, w.substep)
		}
	}
}

// Snapshot is a render-facing copy of the visible entity state plus
// the quantized food grid.
type Snapshot struct {
	Tick  int64
	Count int

	X, Y    []float32
	Alive   []bool
	Age     []float32
	ColR    []uint8
	ColG    []uint8
	ColB    []uint8
	Food    []byte
	FoodCol int
	FoodRow int
}

// Snapshot copies position/color/alive/age arrays and the shared food
// bytes without stopping the workers. Reads race with worker writes at
// word granularity; a torn position in a frame of thousands of points
// is invisible, and never blocking a reader is the contract.
func (e *Engine) Snapshot() Snapshot {
	n := e.store.Count()
	s := Snapshot{
		Tick:    e.Tick(),
		Count:   n,
		X:       make([]float32, n),
		Y:       make([]float32, n),
		Alive:   make([]bool, n),
		Age:     make([]float32, n),
		ColR:    make([]uint8, n),
		ColG:    make([]uint8, n),
		ColB:    make([]uint8, n),
		Food:    make([]byte, len(e.sharedFood)),
		FoodCol: e.cfg.Food.Cols,
		FoodRow: e.cfg.Food.Rows,
	}
	copy(s.X, e.store.PosX[:n])
	copy(s.Y, e.store.PosY[:n])
	copy(s.Alive, e.store.Alive[:n])
	copy(s.Age, e.store.Age[:n])
	copy(s.ColR, e.store.ColR[:n])
	copy(s.ColG, e.store.ColG[:n])
	copy(s.ColB, e.store.ColB[:n])
	copy(s.Food, e.sharedFood)
	return s
}

// Population counts live entities, for coarse progress logging.
func (e *Engine) Population() int {
	n := e.store.Count()
	alive := 0
	for i := 0; i < n; i++ {
		if e.store.Alive[i] {
			alive++
		}
	}
	return alive
}

// Tribes exposes the tribe table for output labeling.
func (e *Engine) Tribes() *world.Tribes {
	return e.tribes
}

// Biomes exposes the immutable biome map for previews.
func (e *Engine) Biomes() *world.BiomeMap {
	return e.biomes
}

// FoodField exposes worker 0's food copy for previews and totals.
func (e *Engine) FoodField() *world.FoodField {
	return e.ownerFood
}

// StatsWindowTicks returns the collector's window length.
func (e *Engine) StatsWindowTicks() int64 {
	return e.collector.WindowDurationTicks()
}
