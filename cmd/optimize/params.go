// Package main provides CMA-ES optimization of simulation parameters.
package main

import (
	"github.com/seanmcall/veldt/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Energetics
			{Name: "metabolic_cost", Path: "behavior.metabolic_cost", Min: 0.5, Max: 5.0, Default: 2.0},
			{Name: "move_cost", Path: "behavior.move_cost", Min: 0.3, Max: 4.0, Default: 1.5},
			{Name: "food_energy", Path: "behavior.food_energy", Min: 10, Max: 60, Default: 30},
			{Name: "satiation", Path: "behavior.satiation", Min: 0.5, Max: 0.95, Default: 0.75},
			// Reproduction
			{Name: "repro_threshold", Path: "behavior.repro_threshold", Min: 0.45, Max: 0.9, Default: 0.65},
			{Name: "hybrid_chance", Path: "behavior.hybrid_chance", Min: 0, Max: 0.01, Default: 0.002},
			{Name: "birth_cost", Path: "entities.birth_cost", Min: 10, Max: 50, Default: 25},
			{Name: "child_energy", Path: "entities.child_energy", Min: 15, Max: 50, Default: 30},
			// Lifespan
			{Name: "max_age", Path: "entities.max_age", Min: 150, Max: 600, Default: 300},
			// Combat
			{Name: "combat_range", Path: "behavior.combat_range", Min: 6, Max: 24, Default: 12},
			{Name: "personal_space", Path: "behavior.personal_space", Min: 8, Max: 30, Default: 14},
			// Food field
			{Name: "regen_rate", Path: "food.regen_rate", Min: 0.2, Max: 1.5, Default: 0.6},
			{Name: "capacity_scale", Path: "food.capacity_scale", Min: 3, Max: 16, Default: 8},
			{Name: "cooldown_sec", Path: "food.cooldown_sec", Min: 2, Max: 15, Default: 6},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	i := 0
	cfg.Behavior.MetabolicCost = clamped[i]
	i++
	cfg.Behavior.MoveCost = clamped[i]
	i++
	cfg.Behavior.FoodEnergy = clamped[i]
	i++
	cfg.Behavior.Satiation = clamped[i]
	i++
	cfg.Behavior.ReproThreshold = clamped[i]
	i++
	cfg.Behavior.HybridChance = clamped[i]
	i++
	cfg.Entities.BirthCost = clamped[i]
	i++
	cfg.Entities.ChildEnergy = clamped[i]
	i++
	cfg.Entities.MaxAge = clamped[i]
	i++
	cfg.Behavior.CombatRange = clamped[i]
	i++
	cfg.Behavior.PersonalSpace = clamped[i]
	i++
	cfg.Food.RegenRate = clamped[i]
	i++
	cfg.Food.CapacityScale = clamped[i]
	i++
	cfg.Food.CooldownSec = clamped[i]
}

// ExtractFromConfig extracts current parameter values from a Config.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Behavior.MetabolicCost,
		cfg.Behavior.MoveCost,
		cfg.Behavior.FoodEnergy,
		cfg.Behavior.Satiation,
		cfg.Behavior.ReproThreshold,
		cfg.Behavior.HybridChance,
		cfg.Entities.BirthCost,
		cfg.Entities.ChildEnergy,
		cfg.Entities.MaxAge,
		cfg.Behavior.CombatRange,
		cfg.Behavior.PersonalSpace,
		cfg.Food.RegenRate,
		cfg.Food.CapacityScale,
		cfg.Food.CooldownSec,
	}
}
