package world

import "testing"

func defaultBiomeParams() BiomeParams {
	return BiomeParams{
		ElevationFrequency: 0.01,
		MoistureFrequency:  0.013,
		OceanLevel:         -0.35,
		RockLevel:          0.62,
	}
}

func TestBiomeMapIsDeterministic(t *testing.T) {
	a := NewBiomeMap(50, 50, 1000, 1000, defaultBiomeParams(), 42)
	b := NewBiomeMap(50, 50, 1000, 1000, defaultBiomeParams(), 42)
	for cy := 0; cy < 50; cy++ {
		for cx := 0; cx < 50; cx++ {
			if a.At(cx, cy) != b.At(cx, cy) {
				t.Fatalf("cell (%d,%d) differs between same-seed maps", cx, cy)
			}
		}
	}
}

func TestBiomeMapSeedsDiffer(t *testing.T) {
	a := NewBiomeMap(50, 50, 1000, 1000, defaultBiomeParams(), 1)
	b := NewBiomeMap(50, 50, 1000, 1000, defaultBiomeParams(), 2)
	same := 0
	for cy := 0; cy < 50; cy++ {
		for cx := 0; cx < 50; cx++ {
			if a.At(cx, cy) == b.At(cx, cy) {
				same++
			}
		}
	}
	if same == 50*50 {
		t.Error("different seeds produced identical maps")
	}
}

func TestTraversability(t *testing.T) {
	if Ocean.Traversable() || Rock.Traversable() {
		t.Error("ocean or rock reported traversable")
	}
	for _, b := range []Biome{Desert, Grassland, Forest, Swamp} {
		if !b.Traversable() {
			t.Errorf("%s reported non-traversable", b)
		}
		if b.FoodMultiplier() <= 0 {
			t.Errorf("%s has no food multiplier", b)
		}
	}
	if Ocean.FoodMultiplier() != 0 || Rock.FoodMultiplier() != 0 {
		t.Error("barren biome grows food")
	}
}

func TestAtClampsOutOfRange(t *testing.T) {
	m := NewBiomeMap(10, 10, 100, 100, defaultBiomeParams(), 3)
	if m.At(-5, 0) != m.At(0, 0) {
		t.Error("negative x not clamped")
	}
	if m.At(0, 99) != m.At(0, 9) {
		t.Error("overflowing y not clamped")
	}
}

func TestBlockedDistance(t *testing.T) {
	m := &BiomeMap{
		cols: 7, rows: 7, cellW: 10, cellH: 10,
		classes: make([]Biome, 49),
	}
	for i := range m.classes {
		m.classes[i] = Grassland
	}
	m.classes[0] = Ocean // cell (0,0)

	if got := m.BlockedDistance(0, 0, 3); got != 0 {
		t.Errorf("blocked cell distance = %d, want 0", got)
	}
	if got := m.BlockedDistance(2, 2, 3); got != 2 {
		t.Errorf("distance from (2,2) = %d, want 2", got)
	}
	if got := m.BlockedDistance(5, 5, 3); got != 4 {
		t.Errorf("out-of-range search = %d, want maxCells+1", got)
	}
}

func TestBiomeStrings(t *testing.T) {
	if Grassland.String() != "grassland" || Ocean.String() != "ocean" {
		t.Error("biome names wrong")
	}
	if Biome(200).String() != "unknown" {
		t.Error("invalid biome not reported unknown")
	}
}
