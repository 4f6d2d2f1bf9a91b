package sim

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/seanmcall/veldt/config"
	"github.com/seanmcall/veldt/rng"
	"github.com/seanmcall/veldt/telemetry"
	"github.com/seanmcall/veldt/world"
)

// command is the closed set of control messages a worker accepts. The
// run loop switches over it exhaustively; adding a variant without
// handling it is a programming error caught by the default branch.
type command interface {
	isCommand()
}

type pauseCmd struct{ paused bool }

type speedCmd struct{ mult float32 }

// statsCmd transfers ownership of the worker's tally to the requester;
// the worker continues with a fresh one.
type statsCmd struct{ reply chan *telemetry.Counts }

type perfCmd struct{ reply chan telemetry.PerfStats }

type stopCmd struct{}

func (pauseCmd) isCommand() {}
func (speedCmd) isCommand() {}
func (statsCmd) isCommand() {}
func (perfCmd) isCommand()  {}
func (stopCmd) isCommand()  {}

// Worker owns one region of the world and one slot range of the
// arena, and runs its own fixed-timestep loop against the shared
// state. Worker 0 additionally owns food regrowth; every other worker
// only folds the shared food buffer.
type Worker struct {
	id     int
	region Region
	slots  SlotRange
	rng    *rand.Rand

	store    *world.Store
	food     *world.FoodField // this worker's float copy
	index    *world.SpatialIndex
	behavior *Behavior
	ticker   *Ticker
	counts   *telemetry.Counts
	perf     *telemetry.PerfCollector

	foodOwner bool

	cmds chan command
	done chan struct{}
}

// newWorker wires one worker's context. The food field is the worker's
// private float copy, already attached to the shared byte buffer.
func newWorker(cfg *config.Config, id int, seed int64, region Region, slots SlotRange,
	store *world.Store, food *world.FoodField, biomes *world.BiomeMap,
	tribes *world.Tribes) (*Worker, error) {

	index, err := world.NewSpatialIndex(
		cfg.Derived.WorldW32, cfg.Derived.WorldH32,
		cfg.Derived.CellSize32, cfg.Entities.Capacity)
	if err != nil {
		return nil, err
	}

	r := rng.NewRand(rng.WorkerSeed(seed, id))
	counts := telemetry.NewCounts(tribes.Count())

	w := &Worker{
		id:        id,
		region:    region,
		slots:     slots,
		rng:       r,
		store:     store,
		food:      food,
		index:     index,
		ticker:    NewTicker(cfg.Derived.DT32, cfg.Sim.MaxSubsteps),
		counts:    counts,
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		foodOwner: id == 0,
		cmds:      make(chan command, 8),
		done:      make(chan struct{}),
	}

	w.behavior = NewBehavior(cfg, BehaviorParams{
		Store:  store,
		Food:   food,
		Biomes: biomes,
		Tribes: tribes,
		Index:  index,
		RNG:    r,
		Counts: counts,
		Region: region,
		Slots:  slots,
	})

	return w, nil
}

// send queues a control message; drops it if the worker has stopped.
func (w *Worker) send(cmd command) {
	select {
	case w.cmds <- cmd:
	case <-w.done:
	}
}

// run is the worker's loop: drain control messages, advance the
// ticker by elapsed wall time, sleep briefly when idle.
func (w *Worker) run() {
	defer close(w.done)

	last := time.Now()
	for {
		for {
			select {
			case cmd := <-w.cmds:
				if stop := w.handle(cmd); stop {
					return
				}
				continue
			default:
			}
			break
		}

		now := time.Now()
		wall := float32(now.Sub(last).Seconds())
		last = now

		steps := w.ticker.Advance(wall, w.substep)
		if steps == 0 {
			// Paused or ahead of schedule.
			time.Sleep(time.Millisecond)
		}
	}
}

// handle applies one control message. Returns true on stop.
func (w *Worker) handle(cmd command) bool {
	switch c := cmd.(type) {
	case pauseCmd:
		w.ticker.SetPaused(c.paused)
	case speedCmd:
		w.ticker.SetSpeedMultiplier(c.mult)
	case statsCmd:
		out := w.counts
		w.counts = telemetry.NewCounts(len(out.Births))
		w.behavior.counts = w.counts
		c.reply <- out
	case perfCmd:
		c.reply <- w.perf.Stats()
	case stopCmd:
		return true
	default:
		slog.Error("worker received unknown command", "worker", w.id)
	}
	return false
}

// substep runs one fixed step over this worker's region: rebuild the
// local index, advance or fold the food field, run the behavior pass
// over owned entities, then integrate and bookkeep.
func (w *Worker) substep(dt float32) {
	w.perf.StartTick()

	w.perf.StartPhase(telemetry.PhaseIndex)
	n := w.store.Count()
	w.index.Rebuild(w.store.View(), n)

	w.perf.StartPhase(telemetry.PhaseFood)
	if w.foodOwner {
		w.food.Update(dt)
	} else {
		w.food.Fold()
	}

	w.perf.StartPhase(telemetry.PhaseBehavior)
	for i := 0; i < n; i++ {
		if w.store.Alive[i] && w.behavior.Owns(i) {
			w.behavior.Step(i, dt)
		}
	}

	w.perf.StartPhase(telemetry.PhaseIntegrate)
	for i := 0; i < n; i++ {
		if w.store.Alive[i] && w.behavior.Owns(i) {
			w.behavior.Integrate(i, dt)
		}
	}

	w.perf.EndTick()
}
