package world

import (
	"testing"

	"github.com/seanmcall/veldt/genome"
	"github.com/seanmcall/veldt/rng"
)

func testStore(t *testing.T, capacity int) (*Store, *Tribes) {
	t.Helper()
	s, err := NewStore(StoreParams{
		Capacity:    capacity,
		WorldW:      1000,
		WorldH:      1000,
		EnergyMax:   100,
		MaxAge:      300,
		BirthCost:   25,
		ChildEnergy: 30,
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	tribes := NewTribes([]Tribe{{Name: "a", Hue: 120}, {Name: "b", Hue: 0}})
	return s, tribes
}

func testGenome() genome.Genome {
	g := genome.Genome{
		genome.Speed:       80,
		genome.Vision:      120,
		genome.Metabolism:  1,
		genome.ReproChance: 0.05,
		genome.Aggression:  0.4,
		genome.Cohesion:    0.5,
		genome.Pickiness:   0.2,
		genome.Diet:        -0.5,
		genome.ViewAngle:   2,
	}
	return g
}

func TestNewStoreRejectsInvalid(t *testing.T) {
	if _, err := NewStore(StoreParams{Capacity: 0, WorldW: 10, WorldH: 10, EnergyMax: 1}); err == nil {
		t.Error("zero capacity accepted")
	}
	if _, err := NewStore(StoreParams{Capacity: 10, WorldW: 0, WorldH: 10, EnergyMax: 1}); err == nil {
		t.Error("zero world width accepted")
	}
	if _, err := NewStore(StoreParams{Capacity: 10, WorldW: 10, WorldH: 10, EnergyMax: 0}); err == nil {
		t.Error("zero energy max accepted")
	}
}

func TestSpawnSetsAllState(t *testing.T) {
	s, tribes := testStore(t, 16)
	r := rng.NewRand(1)

	s.Spawn(3, 100, 200, testGenome(), 1, 60, 0, r, tribes)

	if !s.Alive[3] {
		t.Fatal("spawned slot not alive")
	}
	if s.PosX[3] != 100 || s.PosY[3] != 200 {
		t.Errorf("position = (%v,%v), want (100,200)", s.PosX[3], s.PosY[3])
	}
	if s.Tribe[3] != 1 {
		t.Errorf("tribe = %d, want 1", s.Tribe[3])
	}
	if s.Count() != 4 {
		t.Errorf("count = %d, want 4", s.Count())
	}
}

func TestSpawnWrapsPosition(t *testing.T) {
	s, tribes := testStore(t, 16)
	r := rng.NewRand(1)

	s.Spawn(0, 1100, -50, testGenome(), 0, 60, 0, r, tribes)

	if s.PosX[0] < 0 || s.PosX[0] >= 1000 || s.PosY[0] < 0 || s.PosY[0] >= 1000 {
		t.Errorf("position (%v,%v) not wrapped into world", s.PosX[0], s.PosY[0])
	}
}

func TestKillAndSlotReuse(t *testing.T) {
	s, tribes := testStore(t, 16)
	r := rng.NewRand(1)

	g1 := testGenome()
	s.Spawn(5, 10, 10, g1, 0, 80, 50, r, tribes)
	s.Kill(5)

	if s.Alive[5] {
		t.Fatal("killed slot still alive")
	}

	// Respawn into the same slot: every field must be overwritten.
	g2 := testGenome()
	g2[genome.Speed] = 150
	s.Spawn(5, 500, 500, g2, 1, 30, 0, r, tribes)

	if !s.Alive[5] {
		t.Fatal("respawned slot not alive")
	}
	if s.Genomes[5][genome.Speed] != 150 {
		t.Errorf("ghost genome: speed = %v, want 150", s.Genomes[5][genome.Speed])
	}
	if s.Energy[5] != 30 || s.Age[5] != 0 {
		t.Errorf("ghost vitals: energy=%v age=%v", s.Energy[5], s.Age[5])
	}
	if s.PosX[5] != 500 || s.PosY[5] != 500 {
		t.Errorf("ghost position (%v,%v)", s.PosX[5], s.PosY[5])
	}
}

func TestReproduceFailsOnLiveChild(t *testing.T) {
	s, tribes := testStore(t, 16)
	r := rng.NewRand(1)

	s.Spawn(0, 100, 100, testGenome(), 0, 90, 10, r, tribes)
	s.Spawn(1, 200, 200, testGenome(), 1, 40, 5, r, tribes)

	parentEnergy := s.Energy[0]
	childEnergy := s.Energy[1]

	if s.Reproduce(0, 1, r, tribes) {
		t.Fatal("reproduce into live slot succeeded")
	}
	if s.Energy[0] != parentEnergy {
		t.Error("failed reproduce charged the parent")
	}
	if s.Energy[1] != childEnergy || s.Tribe[1] != 1 {
		t.Error("failed reproduce mutated the occupant")
	}
}

func TestReproduceFailsOutOfBounds(t *testing.T) {
	s, tribes := testStore(t, 16)
	r := rng.NewRand(1)
	s.Spawn(0, 100, 100, testGenome(), 0, 90, 10, r, tribes)

	if s.Reproduce(0, -1, r, tribes) || s.Reproduce(0, 16, r, tribes) {
		t.Error("out-of-bounds child slot accepted")
	}
}

func TestReproduceSpawnsChild(t *testing.T) {
	s, tribes := testStore(t, 16)
	r := rng.NewRand(1)
	s.Spawn(0, 500, 500, testGenome(), 1, 90, 10, r, tribes)

	if !s.Reproduce(0, 7, r, tribes) {
		t.Fatal("reproduce failed with a free slot")
	}

	if !s.Alive[7] {
		t.Fatal("child not alive")
	}
	if s.Tribe[7] != 1 {
		t.Errorf("child tribe = %d, want parent's 1", s.Tribe[7])
	}
	if s.Energy[0] != 90-25 {
		t.Errorf("parent energy = %v, want 65", s.Energy[0])
	}
	if s.Age[7] != 0 {
		t.Errorf("child age = %v, want 0", s.Age[7])
	}
	if s.Count() != 8 {
		t.Errorf("count = %d, want 8", s.Count())
	}

	// Child lands 10-25 units away (before wrapping).
	dx := float64(s.PosX[7] - 500)
	dy := float64(s.PosY[7] - 500)
	distSq := dx*dx + dy*dy
	if distSq < 10*10-1e-3 || distSq > 25*25+1e-3 {
		t.Errorf("child offset distSq = %v, want within [100,625]", distSq)
	}
}

func TestSpawnHybridUsesMarkerTribe(t *testing.T) {
	s, tribes := testStore(t, 16)
	r := rng.NewRand(2)
	s.Spawn(0, 100, 100, testGenome(), 0, 90, 10, r, tribes)
	s.Spawn(1, 110, 100, testGenome(), 1, 90, 10, r, tribes)

	if !s.SpawnHybrid(0, 1, 3, r, tribes) {
		t.Fatal("hybrid spawn failed with free slot")
	}
	if s.Tribe[3] != tribes.HybridID() {
		t.Errorf("hybrid tribe = %d, want %d", s.Tribe[3], tribes.HybridID())
	}
	if s.Energy[0] >= 90 || s.Energy[1] >= 90 {
		t.Error("hybrid birth did not charge both parents")
	}
}

func TestFindDeadSlot(t *testing.T) {
	s, tribes := testStore(t, 8)
	r := rng.NewRand(1)

	for i := 0; i < 4; i++ {
		s.Spawn(i, float32(i)*10, 0, testGenome(), 0, 50, 0, r, tribes)
	}

	if got := s.FindDeadSlot(0, 4); got != -1 {
		t.Errorf("FindDeadSlot over full range = %d, want -1", got)
	}
	if got := s.FindDeadSlot(0, 8); got != 4 {
		t.Errorf("FindDeadSlot = %d, want 4", got)
	}

	s.Kill(2)
	if got := s.FindDeadSlot(0, 4); got != 2 {
		t.Errorf("FindDeadSlot after kill = %d, want 2", got)
	}
}

func TestViewIsConsistent(t *testing.T) {
	s, tribes := testStore(t, 8)
	r := rng.NewRand(1)
	s.Spawn(2, 40, 60, testGenome(), 1, 55, 12, r, tribes)

	v := s.View()
	if !v.IsAlive(2) || v.IsAlive(0) {
		t.Error("view alive flags wrong")
	}
	x, y := v.Position(2)
	if x != 40 || y != 60 {
		t.Errorf("view position (%v,%v)", x, y)
	}
	if v.EnergyOf(2) != 55 || v.TribeOf(2) != 1 {
		t.Error("view vitals wrong")
	}
}
