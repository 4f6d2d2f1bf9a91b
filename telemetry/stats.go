// Package telemetry collects windowed population statistics and
// per-phase performance timings, and writes both as CSV.
package telemetry

import "log/slog"

// WindowStats holds one tribe's aggregated statistics for one stats
// window. Flush emits one row per tribe.
type WindowStats struct {
	WindowEnd int64   `csv:"window_end"`
	SimTime   float64 `csv:"sim_time"`
	Tribe     string  `csv:"tribe"`

	// Population at window end and events during the window.
	Population   int `csv:"population"`
	Births       int `csv:"births"`
	Deaths       int `csv:"deaths"`
	Starved      int `csv:"starved"`
	Kills        int `csv:"kills"`
	HybridBirths int `csv:"hybrid_births"`

	// Energy distribution sampled at window end.
	EnergyMean float64 `csv:"energy_mean"`
	EnergyP10  float64 `csv:"energy_p10"`
	EnergyP50  float64 `csv:"energy_p50"`
	EnergyP90  float64 `csv:"energy_p90"`

	// Gene means across the tribe's live population.
	SpeedMean       float64 `csv:"speed_mean"`
	VisionMean      float64 `csv:"vision_mean"`
	MetabolismMean  float64 `csv:"metabolism_mean"`
	ReproChanceMean float64 `csv:"repro_chance_mean"`
	AggressionMean  float64 `csv:"aggression_mean"`
	CohesionMean    float64 `csv:"cohesion_mean"`
	PickinessMean   float64 `csv:"pickiness_mean"`
	DietMean        float64 `csv:"diet_mean"`
	DietStd         float64 `csv:"diet_std"`
	ViewAngleMean   float64 `csv:"view_angle_mean"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_end", s.WindowEnd),
		slog.Float64("sim_time", s.SimTime),
		slog.String("tribe", s.Tribe),
		slog.Int("population", s.Population),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("starved", s.Starved),
		slog.Int("kills", s.Kills),
		slog.Int("hybrid_births", s.HybridBirths),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("diet_mean", s.DietMean),
		slog.Float64("diet_std", s.DietStd),
	)
}
