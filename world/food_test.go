package world

import (
	"math"
	"testing"

	"github.com/seanmcall/veldt/rng"
)

// bareField builds a field with hand-set capacities, skipping the
// noise-driven Initialize, so tests control the layout exactly.
func bareField(t *testing.T, cols, rows int, cap float32) *FoodField {
	t.Helper()
	f, err := NewFoodField(cols, rows, float32(cols)*10, float32(rows)*10, 0.6, 6.0)
	if err != nil {
		t.Fatalf("NewFoodField failed: %v", err)
	}
	for i := range f.MaxCap {
		f.MaxCap[i] = cap
		f.Current[i] = cap
	}
	return f
}

func TestNewFoodFieldRejectsInvalid(t *testing.T) {
	if _, err := NewFoodField(0, 10, 100, 100, 0.6, 6); err == nil {
		t.Error("zero cols accepted")
	}
	if _, err := NewFoodField(10, 10, 0, 100, 0.6, 6); err == nil {
		t.Error("zero world width accepted")
	}
}

func TestInitializeRespectsInvariants(t *testing.T) {
	biomes := NewBiomeMap(40, 40, 400, 400, BiomeParams{
		ElevationFrequency: 0.01,
		MoistureFrequency:  0.013,
		OceanLevel:         -0.35,
		RockLevel:          0.62,
	}, 7)
	f, err := NewFoodField(40, 40, 400, 400, 0.6, 6)
	if err != nil {
		t.Fatal(err)
	}
	f.Initialize(InitParams{
		Seed: 7, CapacityScale: 8, Octaves: 4, Frequency: 0.012, Persistence: 0.5,
	}, biomes, rng.NewRand(7))

	for i := range f.Current {
		if f.Current[i] < 0 || f.Current[i] > f.MaxCap[i] {
			t.Fatalf("cell %d: current %v outside [0, %v]", i, f.Current[i], f.MaxCap[i])
		}
		cx, cy := i%40, i/40
		if !biomes.At(cx, cy).Traversable() && f.MaxCap[i] != 0 {
			t.Fatalf("cell %d: barren biome has capacity %v", i, f.MaxCap[i])
		}
	}
}

func TestConsumeAtThresholds(t *testing.T) {
	f := bareField(t, 4, 4, 8)

	// Desperate forager strips nearly anything above the floor.
	f.Current[0] = 0.05
	if got := f.ConsumeAt(5, 5, 0); got != 0 {
		t.Errorf("consumed a cell below the 0.1 floor")
	}
	f.Current[0] = 0.2
	if got := f.ConsumeAt(5, 5, 0); got != 1 {
		t.Errorf("desperate forager skipped an edible cell")
	}

	// Picky forager passes over the same sparse cell.
	f.Current[5] = 0.5
	if got := f.ConsumeAt(15, 15, 1); got != 0 {
		t.Errorf("picky forager ate below its threshold")
	}
	f.Current[5] = 4
	if got := f.ConsumeAt(15, 15, 1); got != 1 {
		t.Errorf("picky forager skipped a rich cell")
	}
}

func TestConsumeAtEmptiesAndCoolsDown(t *testing.T) {
	f := bareField(t, 4, 4, 8)

	if f.ConsumeAt(5, 5, 0) != 1 {
		t.Fatal("consume failed on a full cell")
	}
	if f.Current[0] != 0 {
		t.Errorf("cell not emptied: %v", f.Current[0])
	}
	if f.Cooldown[0] != 6.0 {
		t.Errorf("cooldown = %v, want 6", f.Cooldown[0])
	}
	if f.ConsumeAt(5, 5, 0) != 0 {
		t.Error("consumed an empty cell")
	}
}

func TestConsumeAtOutOfBounds(t *testing.T) {
	f := bareField(t, 4, 4, 8)
	if f.ConsumeAt(-1, 5, 0) != 0 || f.ConsumeAt(5, 4000, 0) != 0 {
		t.Error("out-of-bounds consume succeeded")
	}
}

func TestUpdateNeverExceedsCapacity(t *testing.T) {
	f := bareField(t, 4, 4, 8)
	f.MaxCap[3] = 0
	f.Current[3] = 0

	for i := 0; i < 2000; i++ {
		f.Update(1.0 / 60)
	}
	for i := range f.Current {
		if f.Current[i] < 0 || f.Current[i] > f.MaxCap[i] {
			t.Fatalf("cell %d: current %v outside [0, %v]", i, f.Current[i], f.MaxCap[i])
		}
	}
	if f.Current[3] != 0 {
		t.Errorf("barren cell grew food: %v", f.Current[3])
	}
}

// TestRegrowthTrajectory checks the depleted-cell life cycle: no
// logistic growth during cooldown beyond the trickle, then recovery to
// 95% of capacity within 5% of the time a fine-step integration of the
// same rate curve predicts.
func TestRegrowthTrajectory(t *testing.T) {
	const (
		cap   = 8.0
		regen = 0.6
		dt    = 1.0 / 60
	)
	f := bareField(t, 1, 1, cap)
	if f.ConsumeAt(5, 5, 0) != 1 {
		t.Fatal("consume failed")
	}

	// Fine-step prediction of the recovery time using the published
	// rate curve and the same cooldown trickle.
	predict := func() float64 {
		cur := 0.0
		elapsed := 0.0
		cooldown := 6.0
		baseline := regrowBaseline * regen * cap
		fine := 0.001
		for cur < 0.95*cap {
			if cooldown > 0 {
				cooldown -= fine
				cur += float64(baseline) * trickleFactor * fine
			} else {
				frac := cur / cap
				s := 1 / (1 + math.Exp(-regrowSteep*(frac-regrowCenter)))
				rate := regen*cap*4*s*(1-s) + float64(baseline)
				cur += rate * fine
			}
			elapsed += fine
			if elapsed > 600 {
				t.Fatal("prediction did not converge")
			}
		}
		return elapsed
	}
	want := predict()

	elapsed := 0.0
	for f.Current[0] < 0.95*cap {
		f.Update(dt)
		elapsed += dt
		if elapsed > 600 {
			t.Fatal("field did not recover")
		}
	}

	if diff := math.Abs(elapsed-want) / want; diff > 0.05 {
		t.Errorf("recovery took %.2fs, predicted %.2fs (%.1f%% off)", elapsed, want, diff*100)
	}
}

func TestCooldownSuppressesLogisticGrowth(t *testing.T) {
	f := bareField(t, 1, 1, 8)
	f.Current[0] = 0
	f.Cooldown[0] = 6

	f.Update(1.0 / 60)

	trickle := regrowBaseline * f.regenRate * 8 * trickleFactor / 60
	if math.Abs(float64(f.Current[0]-trickle)) > 1e-6 {
		t.Errorf("growth during cooldown = %v, want trickle %v", f.Current[0], trickle)
	}
}

func TestAttachRejectsSizeMismatch(t *testing.T) {
	f := bareField(t, 4, 4, 8)
	if err := f.Attach(make([]byte, 15)); err == nil {
		t.Error("mismatched buffer accepted")
	}
	if err := f.Attach(make([]byte, 16)); err != nil {
		t.Errorf("matching buffer rejected: %v", err)
	}
}

func TestSharedBufferPropagatesConsumption(t *testing.T) {
	shared := make([]byte, 16)
	for i := range shared {
		shared[i] = 255 // everyone starts seeing a full field
	}
	owner := bareField(t, 4, 4, 8)
	other := bareField(t, 4, 4, 8)
	if err := owner.Attach(shared); err != nil {
		t.Fatal(err)
	}
	if err := other.Attach(shared); err != nil {
		t.Fatal(err)
	}

	// Worker "other" eats a cell; the owner must observe it on fold.
	if other.ConsumeAt(25, 25, 0) != 1 {
		t.Fatal("consume failed")
	}
	owner.Fold()
	if owner.Current[10] != 0 {
		t.Errorf("owner did not observe remote consumption: %v", owner.Current[10])
	}
	if owner.Cooldown[10] <= 0 {
		t.Error("fold-to-zero did not start cooldown")
	}
}

func TestFoldAdoptsRemoteChanges(t *testing.T) {
	shared := make([]byte, 1)
	f := bareField(t, 1, 1, 8)
	if err := f.Attach(shared); err != nil {
		t.Fatal(err)
	}
	f.Publish()

	// A byte this copy published itself is not a remote write; fold
	// must leave the local level alone even after it drifts.
	f.Current[0] = 2
	f.Fold()
	if f.Current[0] != 2 {
		t.Errorf("fold overwrote local level with own published byte: %v", f.Current[0])
	}

	// Remote write below the local level: adopted, and zero arms the
	// cooldown.
	f.Publish()
	shared[0] = 127
	f.Fold()
	if f.Current[0] < 3.9 || f.Current[0] > 4.1 {
		t.Errorf("fold result %v, want ~%v", f.Current[0], 127.0/255*8)
	}
	shared[0] = 0
	f.Fold()
	if f.Current[0] != 0 {
		t.Errorf("fold did not adopt remote zero: %v", f.Current[0])
	}
	if f.Cooldown[0] != 6.0 {
		t.Errorf("fold-to-zero cooldown = %v, want 6", f.Cooldown[0])
	}

	// Remote write above the local level: adopted too, clearing the
	// cooldown, so the owner's published regrowth reaches everyone.
	shared[0] = 255
	f.Fold()
	if f.Current[0] != 8 {
		t.Errorf("fold did not adopt remote regrowth: %v", f.Current[0])
	}
	if f.Cooldown[0] != 0 {
		t.Errorf("upward fold left cooldown at %v", f.Cooldown[0])
	}
}

// TestOwnerRegrowsWithSharedAttached covers the full owner loop with
// the shared buffer in place: its own republished bytes must never
// read back as remote consumption, or a depleted cell would stay
// pinned at zero forever.
func TestOwnerRegrowsWithSharedAttached(t *testing.T) {
	shared := make([]byte, 16)
	owner := bareField(t, 4, 4, 8)
	if err := owner.Attach(shared); err != nil {
		t.Fatal(err)
	}
	owner.Publish()

	if owner.ConsumeAt(5, 5, 0) != 1 {
		t.Fatal("consume failed")
	}
	for i := 0; i < 7200; i++ { // two minutes at 60 Hz
		owner.Update(1.0 / 60)
	}
	if owner.Current[0] < 2 {
		t.Errorf("consumed cell stuck at %v with shared buffer attached", owner.Current[0])
	}
	if shared[0] == 0 {
		t.Error("regrowth never published to the shared buffer")
	}
}

// TestNonOwnerObservesRegrowth walks the two-worker cycle: one copy
// consumes, the owner regrows and publishes, and the consuming copy
// must fold the recovery back in rather than staying dark.
func TestNonOwnerObservesRegrowth(t *testing.T) {
	shared := make([]byte, 16)
	owner := bareField(t, 4, 4, 8)
	other := bareField(t, 4, 4, 8)
	if err := owner.Attach(shared); err != nil {
		t.Fatal(err)
	}
	if err := other.Attach(shared); err != nil {
		t.Fatal(err)
	}
	owner.Publish()
	other.Fold()

	if other.ConsumeAt(5, 5, 0) != 1 {
		t.Fatal("consume failed")
	}
	for i := 0; i < 7200; i++ {
		owner.Update(1.0 / 60)
		other.Fold()
	}
	if other.Current[0] < 2 {
		t.Errorf("non-owner never saw regrowth: %v", other.Current[0])
	}
	if diff := math.Abs(float64(other.Current[0] - owner.Current[0])); diff > 8.0/255+1e-4 {
		t.Errorf("copies diverged beyond one quantization step: owner %v, other %v",
			owner.Current[0], other.Current[0])
	}
}

func TestQuantizationRoundTrip(t *testing.T) {
	f := bareField(t, 1, 1, 8)
	for _, level := range []float32{0, 0.5, 3.7, 8} {
		f.Current[0] = level
		q := f.encode(0)
		back := f.decode(0, q)
		if math.Abs(float64(back-level)) > 8.0/255/2+1e-4 {
			t.Errorf("level %v round-trips to %v through q=%d", level, back, q)
		}
	}
}
