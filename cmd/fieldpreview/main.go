// Field preview tool - renders the generated biome map and food
// capacity field to PNG files for tuning generation parameters without
// running a simulation.
//
// Usage: go run ./cmd/fieldpreview -seed 42 -out preview
package main

import (
	"flag"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/seanmcall/veldt/config"
	"github.com/seanmcall/veldt/rng"
	"github.com/seanmcall/veldt/world"
)

var biomeColors = map[world.Biome]color.RGBA{
	world.Ocean:     {30, 60, 130, 255},
	world.Rock:      {110, 105, 100, 255},
	world.Desert:    {210, 190, 130, 255},
	world.Grassland: {110, 170, 80, 255},
	world.Forest:    {40, 110, 50, 255},
	world.Swamp:     {80, 110, 90, 255},
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 42, "Generation seed")
	outDir := flag.String("out", "preview", "Output directory")
	scale := flag.Int("scale", 8, "Pixels per grid cell")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	cfg.ComputeDerived()

	biomes := world.NewBiomeMap(cfg.Food.Cols, cfg.Food.Rows,
		cfg.Derived.WorldW32, cfg.Derived.WorldH32,
		world.BiomeParams{
			ElevationFrequency: cfg.Biome.ElevationFrequency,
			MoistureFrequency:  cfg.Biome.MoistureFrequency,
			OceanLevel:         cfg.Biome.OceanLevel,
			RockLevel:          cfg.Biome.RockLevel,
		}, *seed)

	food, err := world.NewFoodField(cfg.Food.Cols, cfg.Food.Rows,
		cfg.Derived.WorldW32, cfg.Derived.WorldH32,
		float32(cfg.Food.RegenRate), float32(cfg.Food.CooldownSec))
	if err != nil {
		slog.Error("failed to build food field", "error", err)
		os.Exit(1)
	}
	food.Initialize(world.InitParams{
		Seed:          *seed,
		CapacityScale: float32(cfg.Food.CapacityScale),
		Octaves:       cfg.Food.NoiseOctaves,
		Frequency:     cfg.Food.NoiseFrequency,
		Persistence:   cfg.Food.NoisePersistence,
	}, biomes, rng.NewRand(*seed+1))

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	if err := writePNG(filepath.Join(*outDir, "biomes.png"),
		renderBiomes(biomes, *scale)); err != nil {
		slog.Error("failed to write biome map", "error", err)
		os.Exit(1)
	}
	if err := writePNG(filepath.Join(*outDir, "capacity.png"),
		renderCapacity(food, *scale)); err != nil {
		slog.Error("failed to write capacity map", "error", err)
		os.Exit(1)
	}

	slog.Info("preview written",
		"dir", *outDir,
		"cols", cfg.Food.Cols,
		"rows", cfg.Food.Rows,
		"seed", *seed,
		"total_food", int(food.TotalFood()))
}

func renderBiomes(biomes *world.BiomeMap, scale int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, biomes.Cols()*scale, biomes.Rows()*scale))
	for cy := 0; cy < biomes.Rows(); cy++ {
		for cx := 0; cx < biomes.Cols(); cx++ {
			fillCell(img, cx, cy, scale, biomeColors[biomes.At(cx, cy)])
		}
	}
	return img
}

// renderCapacity maps each cell's capacity to a green ramp against the
// field's own maximum, so relative structure stays visible at any
// capacity scale.
func renderCapacity(food *world.FoodField, scale int) *image.RGBA {
	var peak float32
	for _, c := range food.MaxCap {
		if c > peak {
			peak = c
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, food.Cols()*scale, food.Rows()*scale))
	for cy := 0; cy < food.Rows(); cy++ {
		for cx := 0; cx < food.Cols(); cx++ {
			var frac float32
			if peak > 0 {
				frac = food.MaxCap[cy*food.Cols()+cx] / peak
			}
			g := uint8(40 + frac*215)
			fillCell(img, cx, cy, scale, color.RGBA{20, g, 30, 255})
		}
	}
	return img
}

func fillCell(img *image.RGBA, cx, cy, scale int, c color.RGBA) {
	for py := cy * scale; py < (cy+1)*scale; py++ {
		for px := cx * scale; px < (cx+1)*scale; px++ {
			img.SetRGBA(px, py, c)
		}
	}
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
