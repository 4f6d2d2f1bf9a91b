// Package genome defines the heritable trait vector carried by every
// creature and the mutation operators applied at reproduction.
package genome

import (
	"math"
	"math/rand"
)

// Gene indices into the trait vector.
const (
	Speed       = iota // base movement speed, world units/sec
	Vision             // perception radius, world units
	Metabolism         // energy drain multiplier
	ReproChance        // per-second reproduction probability
	Aggression         // fight willingness, 0..1
	Cohesion           // flocking strength, 0..1
	Pickiness          // food standards, 0..1
	Diet               // -1 herbivore .. +1 carnivore
	ViewAngle          // field-of-view cone, radians

	NumGenes
)

// Genome is the fixed-length trait vector. Value semantics are
// intentional: copies are cheap and child genomes never alias parents.
type Genome [NumGenes]float32

// geneBounds holds the hard per-trait limits enforced by Clamp.
var geneBounds = [NumGenes][2]float32{
	Speed:       {10, 200},
	Vision:      {20, 300},
	Metabolism:  {0.1, 3.0},
	ReproChance: {0, 0.2},
	Aggression:  {0, 1},
	Cohesion:    {0, 1},
	Pickiness:   {0, 1},
	Diet:        {-1, 1},
	ViewAngle:   {0.6, 2 * math.Pi},
}

// Bounds returns the [min,max] limits for a gene.
func Bounds(gene int) (min, max float32) {
	return geneBounds[gene][0], geneBounds[gene][1]
}

// geneNames maps config-facing names to gene indices.
var geneNames = map[string]int{
	"speed":        Speed,
	"vision":       Vision,
	"metabolism":   Metabolism,
	"repro_chance": ReproChance,
	"aggression":   Aggression,
	"cohesion":     Cohesion,
	"pickiness":    Pickiness,
	"diet":         Diet,
	"view_angle":   ViewAngle,
}

// IndexByName resolves a config gene name to its index.
func IndexByName(name string) (int, bool) {
	i, ok := geneNames[name]
	return i, ok
}

// Default returns the baseline genome new tribes start from before
// per-tribe overrides and individual mutation.
func Default() Genome {
	return Genome{
		Speed:       80,
		Vision:      120,
		Metabolism:  1.0,
		ReproChance: 0.05,
		Aggression:  0.3,
		Cohesion:    0.5,
		Pickiness:   0.3,
		Diet:        0,
		ViewAngle:   4.0,
	}
}

// DefaultIntensity is the standard mutation strength at reproduction.
const DefaultIntensity = 0.05

// Mutate perturbs every trait in place. Traits scale multiplicatively
// by (1 + U(-1,1)*intensity); ReproChance shifts additively so a zero
// value can still drift back up. The result is always clamped.
func (g *Genome) Mutate(rng *rand.Rand, intensity float32) {
	for i := range g {
		u := rng.Float32()*2 - 1
		if i == ReproChance {
			g[i] += u * intensity * 0.05
		} else {
			g[i] *= 1 + u*intensity
		}
	}
	g.Clamp()
}

// Clamp enforces the hard per-trait bounds. Idempotent.
func (g *Genome) Clamp() {
	for i := range g {
		if g[i] < geneBounds[i][0] {
			g[i] = geneBounds[i][0]
		} else if g[i] > geneBounds[i][1] {
			g[i] = geneBounds[i][1]
		}
	}
}

// Blend produces a hybrid genome: gene-wise average of both parents
// with a light mutation on top. Used for cross-tribe offspring.
func Blend(a, b Genome, rng *rand.Rand) Genome {
	var child Genome
	for i := range child {
		child[i] = (a[i] + b[i]) * 0.5
	}
	child.Mutate(rng, DefaultIntensity*0.5)
	return child
}

// IsHunter reports whether the diet gene marks this creature as a
// predator for behavior purposes.
func (g *Genome) IsHunter() bool {
	return g[Diet] > 0.2
}

// WideCone is the FOV width above which per-neighbor cone checks are
// skipped: at >143 degrees the cone excludes almost nothing.
const WideCone = 2.5

// MetabolicEfficiency maps the metabolism gene to a sustainable-speed
// factor. Low metabolism cannot power high speeds; the curve saturates
// so high metabolism gives diminishing returns.
func (g *Genome) MetabolicEfficiency() float32 {
	m := g[Metabolism]
	return float32(1 - math.Exp(-float64(m)*1.6))
}

// MaxSpeed is the sustained speed after metabolic attenuation.
func (g *Genome) MaxSpeed() float32 {
	return g[Speed] * g.MetabolicEfficiency()
}
