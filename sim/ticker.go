package sim

import "sync/atomic"

// Ticker converts wall-clock time into fixed simulation substeps. Two
// externally controlled states, paused and running; while paused,
// Advance consumes nothing and accumulates nothing. Excess accumulated
// time beyond the substep cap is carried over, never dropped.
type Ticker struct {
	dt          float32
	maxSubsteps int

	accumulated float32
	speedMult   float32
	paused      bool

	// Read by other goroutines for stats cadence.
	tick atomic.Int64
}

// NewTicker creates a ticker with the given substep size and per-frame
// substep cap.
func NewTicker(dt float32, maxSubsteps int) *Ticker {
	return &Ticker{
		dt:          dt,
		maxSubsteps: maxSubsteps,
		speedMult:   1,
	}
}

// SetPaused switches between the paused and running states.
func (t *Ticker) SetPaused(paused bool) {
	t.paused = paused
}

// Paused reports the current state.
func (t *Ticker) Paused() bool {
	return t.paused
}

// SetSpeedMultiplier scales how much simulation time each wall-clock
// second is worth. Non-positive values are ignored.
func (t *Ticker) SetSpeedMultiplier(m float32) {
	if m > 0 {
		t.speedMult = m
	}
}

// SpeedMultiplier returns the current time scale.
func (t *Ticker) SpeedMultiplier() float32 {
	return t.speedMult
}

// Tick returns the number of substeps executed so far. Safe to call
// from other goroutines.
func (t *Ticker) Tick() int64 {
	return t.tick.Load()
}

// DT returns the substep size in simulation seconds.
func (t *Ticker) DT() float32 {
	return t.dt
}

// Advance accumulates wallDT seconds of wall time and runs step once
// per consumable substep, up to the per-frame cap. Returns the number
// of substeps executed. A no-op while paused.
func (t *Ticker) Advance(wallDT float32, step func(dt float32)) int {
	if t.paused {
		return 0
	}

	t.accumulated += wallDT * t.speedMult

	steps := 0
	for t.accumulated >= t.dt && steps < t.maxSubsteps {
		step(t.dt)
		t.accumulated -= t.dt
		t.tick.Add(1)
		steps++
	}
	return steps
}
