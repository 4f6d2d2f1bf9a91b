package telemetry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/seanmcall/veldt/genome"
	"github.com/seanmcall/veldt/world"
)

func statsStore(t *testing.T) (*world.Store, *world.Tribes, *rand.Rand) {
	t.Helper()
	tribes := world.NewTribes([]world.Tribe{
		{Name: "grazers", Hue: 120},
		{Name: "stalkers", Hue: 0},
	})
	store, err := world.NewStore(world.StoreParams{
		Capacity:    32,
		WorldW:      1000,
		WorldH:      1000,
		EnergyMax:   100,
		MaxAge:      300,
		BirthCost:   25,
		ChildEnergy: 40,
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store, tribes, rand.New(rand.NewSource(1))
}

func TestCountsMergeAndReset(t *testing.T) {
	a := NewCounts(2)
	b := NewCounts(2)

	a.AddBirth(0)
	a.AddKill(1)
	b.AddBirth(0)
	b.AddStarved(1)
	b.AddHybrid(0)

	a.Merge(b)
	if a.Births[0] != 2 {
		t.Errorf("Births[0] = %d, want 2", a.Births[0])
	}
	if a.Kills[1] != 1 || a.Starved[1] != 1 || a.Hybrids[0] != 1 {
		t.Error("merge dropped counters")
	}
	// Starvation is a death too.
	if a.Deaths[1] != 1 {
		t.Errorf("Deaths[1] = %d, want 1 (starved implies dead)", a.Deaths[1])
	}

	a.Reset()
	for tr := 0; tr < 2; tr++ {
		if a.Births[tr] != 0 || a.Deaths[tr] != 0 || a.Kills[tr] != 0 {
			t.Error("reset left nonzero counters")
		}
	}
}

func TestAbsorbResetsSource(t *testing.T) {
	c := NewCollector(5, 1.0/60, 2)
	w := NewCounts(2)
	w.AddBirth(1)

	c.Absorb(w)
	if w.Births[1] != 0 {
		t.Error("worker counts not reset after absorb")
	}
	if c.merged.Births[1] != 1 {
		t.Error("absorbed count lost")
	}
}

func TestShouldFlushRespectsWindow(t *testing.T) {
	c := NewCollector(5, 1.0/60, 2) // 5s at 60Hz = 300 ticks
	if c.WindowDurationTicks() != 300 {
		t.Fatalf("window = %d ticks, want 300", c.WindowDurationTicks())
	}
	if c.ShouldFlush(299) {
		t.Error("flushed before window end")
	}
	if !c.ShouldFlush(300) {
		t.Error("did not flush at window end")
	}
}

func TestFlushProducesOneRowPerTribe(t *testing.T) {
	store, tribes, r := statsStore(t)
	c := NewCollector(5, 1.0/60, tribes.Count())

	g := genome.Default()
	g[genome.Diet] = -0.5
	for i := 0; i < 4; i++ {
		store.Spawn(i, 100, 100, g, 0, float32(40+10*i), 0, r, tribes)
	}
	g[genome.Diet] = 0.8
	store.Spawn(4, 500, 500, g, 1, 90, 0, r, tribes)
	store.Kill(2) // dead entities must not be sampled

	w := NewCounts(tribes.Count())
	w.AddBirth(0)
	w.AddKill(1)
	c.Absorb(w)

	rows := c.Flush(300, store.View(), tribes)
	if len(rows) != tribes.Count() {
		t.Fatalf("rows = %d, want %d", len(rows), tribes.Count())
	}

	grazers := rows[0]
	if grazers.Tribe != "grazers" {
		t.Errorf("row 0 tribe = %q, want grazers", grazers.Tribe)
	}
	if grazers.Population != 3 {
		t.Errorf("grazer population = %d, want 3 (one killed)", grazers.Population)
	}
	if grazers.Births != 1 {
		t.Errorf("grazer births = %d, want 1", grazers.Births)
	}
	// Survivors hold 40, 50, 70.
	wantMean := (40.0 + 50 + 70) / 3
	if math.Abs(grazers.EnergyMean-wantMean) > 1e-6 {
		t.Errorf("energy mean = %v, want %v", grazers.EnergyMean, wantMean)
	}
	if math.Abs(grazers.DietMean-(-0.5)) > 0.01 {
		t.Errorf("diet mean = %v, want -0.5", grazers.DietMean)
	}

	stalkers := rows[1]
	if stalkers.Population != 1 || stalkers.Kills != 1 {
		t.Errorf("stalker row = pop %d kills %d, want 1/1",
			stalkers.Population, stalkers.Kills)
	}

	if math.Abs(grazers.SimTime-5.0) > 1e-6 {
		t.Errorf("sim time = %v, want 5.0", grazers.SimTime)
	}
}

func TestFlushResetsWindow(t *testing.T) {
	store, tribes, _ := statsStore(t)
	c := NewCollector(5, 1.0/60, tribes.Count())

	w := NewCounts(tribes.Count())
	w.AddDeath(0)
	c.Absorb(w)
	c.Flush(300, store.View(), tribes)

	if c.ShouldFlush(301) {
		t.Error("window did not restart after flush")
	}
	rows := c.Flush(600, store.View(), tribes)
	if rows[0].Deaths != 0 {
		t.Error("counters leaked into the next window")
	}
}

func TestFlushEmptyTribeHasZeroStats(t *testing.T) {
	store, tribes, _ := statsStore(t)
	c := NewCollector(5, 1.0/60, tribes.Count())

	rows := c.Flush(300, store.View(), tribes)
	for _, row := range rows {
		if row.Population != 0 {
			t.Errorf("tribe %s population = %d, want 0", row.Tribe, row.Population)
		}
		if row.EnergyMean != 0 || row.SpeedMean != 0 {
			t.Error("empty tribe reported nonzero gene stats")
		}
	}
}
