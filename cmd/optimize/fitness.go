package main

import (
	"math"
	"sync"

	"github.com/seanmcall/veldt/config"
	"github.com/seanmcall/veldt/sim"
	"github.com/seanmcall/veldt/telemetry"
)

// Minimum viable population: a founding tribe below this for
// extinctionGraceSec consecutive seconds counts as functionally
// extinct even if stragglers remain.
const (
	minViablePop       = 5
	extinctionGraceSec = 30.0
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int64
	seeds      []int64
	baseConfig *config.Config

	mu          sync.Mutex
	bestFitness float64
	lastQuality float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int64, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int64
	windows       [][]telemetry.WindowStats // per window, one row per tribe
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative survival ticks scaled by ecosystem quality, so
// longer-lived and healthier ecosystems score lower.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	type seedResult struct {
		fitness float64
		quality float64
	}
	results := make([]seedResult, len(fe.seeds))

	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			r := fe.runSimulation(x, s)
			q := fe.computeQuality(r.windows)
			results[idx] = seedResult{
				fitness: -(float64(r.survivalTicks) * (1.0 + 0.2*q)),
				quality: q,
			}
		}(i, seed)
	}
	wg.Wait()

	var totalFitness, totalQuality float64
	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
	}
	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes one headless run, advancing the engine
// synchronously and sampling stats every window. Runs until a founding
// tribe goes functionally extinct or maxTicks, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	// One worker per run; seeds already run in parallel.
	cfg.Sim.Workers = 1

	result := &runResult{}

	engine, err := sim.New(cfg, seed)
	if err != nil {
		// An invalid parameter combination scores as instant collapse.
		return result
	}

	windowTicks := engine.StatsWindowTicks()
	founding := len(cfg.Tribes)
	dt := cfg.Sim.DT
	graceWindows := int(extinctionGraceSec / (float64(windowTicks) * dt))
	if graceWindows < 1 {
		graceWindows = 1
	}
	belowWindows := make([]int, founding)

	for engine.Tick() < fe.maxTicks {
		engine.Advance(int(windowTicks))

		rows := engine.Stats()
		result.windows = append(result.windows, rows)

		for t := 0; t < founding; t++ {
			if rows[t].Population == 0 {
				result.survivalTicks = engine.Tick()
				return result
			}
			if rows[t].Population < minViablePop {
				belowWindows[t]++
				if belowWindows[t] >= graceWindows {
					result.survivalTicks = engine.Tick()
					return result
				}
			} else {
				belowWindows[t] = 0
			}
		}
	}

	result.survivalTicks = fe.maxTicks
	return result
}

// copyConfig creates a fresh config carrying the base run's values.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg, _ := config.Load("")
	cfg.World = fe.baseConfig.World
	cfg.Sim = fe.baseConfig.Sim
	cfg.Entities = fe.baseConfig.Entities
	cfg.Food = fe.baseConfig.Food
	cfg.Biome = fe.baseConfig.Biome
	cfg.Behavior = fe.baseConfig.Behavior
	cfg.Telemetry = fe.baseConfig.Telemetry
	cfg.Tribes = append([]config.TribeSpec(nil), fe.baseConfig.Tribes...)
	return cfg
}

// Quality component weights.
const (
	qualityWeightStability = 0.35
	qualityWeightEnergy    = 0.25
	qualityWeightBalance   = 0.25
	qualityWeightHunting   = 0.15

	qualityWarmupWindows = 3
)

// computeQuality scores ecosystem health in [0,1] from window stats:
// stable per-tribe populations, median energy near half the tank,
// a sane grazer-to-hunter ratio and ongoing predation.
func (fe *FitnessEvaluator) computeQuality(windows [][]telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]
	founding := len(fe.baseConfig.Tribes)
	energyMax := fe.baseConfig.Entities.EnergyMax

	pops := make([][]float64, founding)
	var energySum, balanceSum, huntSum float64
	var energyCount, balanceCount, huntCount int

	for _, rows := range valid {
		var grazers, hunters float64
		var kills, hunterPop int

		for t := 0; t < founding && t < len(rows); t++ {
			w := rows[t]
			if w.Population == 0 {
				continue
			}
			pops[t] = append(pops[t], float64(w.Population))

			d := (w.EnergyP50 - 0.5*energyMax) / (0.25 * energyMax)
			energySum += math.Exp(-d * d)
			energyCount++

			if w.DietMean > 0.2 {
				hunters += float64(w.Population)
				hunterPop += w.Population
				kills += w.Kills
			} else {
				grazers += float64(w.Population)
			}
		}

		if grazers > 0 && hunters > 0 {
			logErr := math.Log(grazers / hunters / 4.0)
			balanceSum += math.Exp(-logErr * logErr)
			balanceCount++
		}
		if hunterPop > 0 {
			killsPerHunter := float64(kills) / float64(hunterPop)
			huntSum += 1.0 - math.Exp(-killsPerHunter/0.05)
			huntCount++
		}
	}

	stability := 0.0
	stabCount := 0
	for t := 0; t < founding; t++ {
		if len(pops[t]) >= 2 {
			c := cv(pops[t])
			stability += math.Exp(-c * c)
			stabCount++
		}
	}
	if stabCount > 0 {
		stability /= float64(stabCount)
	}

	energy := 0.0
	if energyCount > 0 {
		energy = energySum / float64(energyCount)
	}
	balance := 0.0
	if balanceCount > 0 {
		balance = balanceSum / float64(balanceCount)
	}
	hunting := 0.0
	if huntCount > 0 {
		hunting = huntSum / float64(huntCount)
	}

	quality := qualityWeightStability*stability +
		qualityWeightEnergy*energy +
		qualityWeightBalance*balance +
		qualityWeightHunting*hunting

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) of values.
func cv(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff/n) / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
