// Package config provides configuration loading and validation for the
// simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Sim       SimConfig       `yaml:"sim"`
	Entities  EntitiesConfig  `yaml:"entities"`
	Food      FoodConfig      `yaml:"food"`
	Biome     BiomeConfig     `yaml:"biome"`
	Behavior  BehaviorConfig  `yaml:"behavior"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Tribes    []TribeSpec     `yaml:"tribes"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds world dimensions in world units.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// SimConfig holds stepping and partitioning parameters.
type SimConfig struct {
	DT           float64 `yaml:"dt"`             // seconds per substep
	MaxSubsteps  int     `yaml:"max_substeps"`   // per-frame catch-up cap
	Workers      int     `yaml:"workers"`        // worker thread count
	GridCellSize float64 `yaml:"grid_cell_size"` // spatial index cell size
}

// EntitiesConfig holds the entity store parameters.
type EntitiesConfig struct {
	Capacity      int     `yaml:"capacity"`
	EnergyMax     float64 `yaml:"energy_max"`
	MaxAge        float64 `yaml:"max_age"`
	InitialEnergy float64 `yaml:"initial_energy"`
	BirthCost     float64 `yaml:"birth_cost"`   // parent energy charge per birth
	ChildEnergy   float64 `yaml:"child_energy"` // newborn starting energy
}

// FoodConfig holds the food field parameters.
type FoodConfig struct {
	Cols             int     `yaml:"cols"`
	Rows             int     `yaml:"rows"`
	CapacityScale    float64 `yaml:"capacity_scale"`
	RegenRate        float64 `yaml:"regen_rate"`
	CooldownSec      float64 `yaml:"cooldown_sec"`
	NoiseOctaves     int     `yaml:"noise_octaves"`
	NoiseFrequency   float64 `yaml:"noise_frequency"`
	NoisePersistence float64 `yaml:"noise_persistence"`
}

// BiomeConfig holds biome map generation parameters.
type BiomeConfig struct {
	ElevationFrequency float64 `yaml:"elevation_frequency"`
	MoistureFrequency  float64 `yaml:"moisture_frequency"`
	OceanLevel         float64 `yaml:"ocean_level"` // elevation below this is ocean
	RockLevel          float64 `yaml:"rock_level"`  // elevation above this is rock
}

// BehaviorConfig holds the behavior tunables shared by all creatures.
type BehaviorConfig struct {
	NeighborLimit   int     `yaml:"neighbor_limit"`   // max neighbors gathered per tick
	NeighborChecks  int     `yaml:"neighbor_checks"`  // max entities examined per query
	PersonalSpace   float64 `yaml:"personal_space"`   // separation radius
	Satiation       float64 `yaml:"satiation"`        // energy ratio above which foraging stops
	CombatRange     float64 `yaml:"combat_range"`     // melee reach
	BurstMultiplier float64 `yaml:"burst_multiplier"` // speed clamp = base speed * this
	Damping         float64 `yaml:"damping"`          // velocity damping per substep
	HybridChance    float64 `yaml:"hybrid_chance"`    // cross-tribe mating roll per second
	MetabolicCost   float64 `yaml:"metabolic_cost"`   // energy/sec at metabolism 1.0
	MoveCost        float64 `yaml:"move_cost"`        // extra energy/sec at full speed
	FoodEnergy      float64 `yaml:"food_energy"`      // energy gained per consumed cell
	ReproThreshold  float64 `yaml:"repro_threshold"`  // energy ratio required to breed
}

// TelemetryConfig holds stats collection parameters.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds per stats window
	PerfWindow  int     `yaml:"perf_window"`  // ticks in the perf rolling window
	LogStats    bool    `yaml:"log_stats"`
}

// TribeSpec describes one tribe's initial spawn.
type TribeSpec struct {
	Name   string             `yaml:"name"`
	Count  int                `yaml:"count"`
	X      float64            `yaml:"x"`
	Y      float64            `yaml:"y"`
	Radius float64            `yaml:"radius"`
	Hue    float64            `yaml:"hue"`    // degrees, wrapped mod 360
	Genome map[string]float64 `yaml:"genome"` // per-gene overrides by name
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	DT32         float32
	WorldW32     float32
	WorldH32     float32
	CellSize32   float32
	InitialCount int // sum of tribe counts
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. An empty path uses only the defaults. The returned config
// is already validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()

	return cfg, nil
}

// Validate rejects configurations the simulation cannot run with.
// These are construction-time failures, never silently clamped.
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("config: world dimensions must be positive, got %gx%g",
			c.World.Width, c.World.Height)
	}
	if c.Sim.DT <= 0 {
		return fmt.Errorf("config: sim.dt must be positive, got %g", c.Sim.DT)
	}
	if c.Sim.GridCellSize <= 0 {
		return fmt.Errorf("config: sim.grid_cell_size must be positive, got %g",
			c.Sim.GridCellSize)
	}
	if c.Sim.Workers < 1 {
		return fmt.Errorf("config: sim.workers must be at least 1, got %d", c.Sim.Workers)
	}
	if c.Sim.MaxSubsteps < 1 {
		return fmt.Errorf("config: sim.max_substeps must be at least 1, got %d",
			c.Sim.MaxSubsteps)
	}
	if c.Entities.Capacity < 1 {
		return fmt.Errorf("config: entities.capacity must be positive, got %d",
			c.Entities.Capacity)
	}
	if c.Entities.EnergyMax <= 0 {
		return fmt.Errorf("config: entities.energy_max must be positive, got %g",
			c.Entities.EnergyMax)
	}
	if c.Food.Cols < 1 || c.Food.Rows < 1 {
		return fmt.Errorf("config: food grid must be at least 1x1, got %dx%d",
			c.Food.Cols, c.Food.Rows)
	}

	total := 0
	for i, t := range c.Tribes {
		if t.Count < 0 {
			return fmt.Errorf("config: tribe %q has negative count %d", t.Name, t.Count)
		}
		if t.Name == "" {
			return fmt.Errorf("config: tribe %d has no name", i)
		}
		total += t.Count
	}
	if total > c.Entities.Capacity {
		return fmt.Errorf("config: initial population %d exceeds capacity %d",
			total, c.Entities.Capacity)
	}

	return nil
}

// ComputeDerived calculates values derived from the loaded config.
func (c *Config) ComputeDerived() {
	c.Derived.DT32 = float32(c.Sim.DT)
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)
	c.Derived.CellSize32 = float32(c.Sim.GridCellSize)

	total := 0
	for _, t := range c.Tribes {
		total += t.Count
	}
	c.Derived.InitialCount = total
}

// WriteYAML writes the configuration snapshot to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
