package sim

import (
	"math"
	"math/rand"

	"github.com/seanmcall/veldt/config"
	"github.com/seanmcall/veldt/genome"
	"github.com/seanmcall/veldt/telemetry"
	"github.com/seanmcall/veldt/world"
)

// Steering weights. Forces are accelerations in world units/sec^2;
// entity speeds run 10-200, so weights sit in the same range.
const (
	sepWeight      = 90.0
	alignWeight    = 0.9
	cohesionWeight = 1.4
	herdWeight     = 50.0
	fearWeight     = 140.0
	pursuitWeight  = 110.0
	stalkWeight    = 45.0
	foodWeight     = 80.0
	exploreWeight  = 30.0
)

// Herbivore herding bands as fractions of vision radius: closer than
// the tight band pushes apart, farther than the loose band pulls in.
const (
	herdTightBand = 0.30
	herdLooseBand = 0.65
)

// Predation tuning.
const (
	cannibalPenalty  = 0.15 // same-tribe prey score multiplier
	desperationFrac  = 0.15 // energy ratio below which anything is prey
	packBonusPerAlly = 0.18
	stalkDistance    = 0.55 // fraction of vision kept in stalk mode
	siphonFraction   = 0.45 // damage fraction converted to attacker energy
	corpseEnergy     = 20.0 // bonus energy per kill, scaled by diet
	baseDamage       = 14.0 // damage/sec before aggression scaling
)

// fearRatio is the ally-to-predator ratio above which herbivores hold
// their ground instead of fleeing.
const fearRatio = 3.0

// neighborInfo is one gathered neighbor, snapshotted from the shared
// store during the radius query.
type neighborInfo struct {
	slot   int32
	dx, dy float32 // relative offset from the querying entity
	distSq float32
	tribe  uint16
	energy float32
	ally   bool
	hunter bool
}

// Behavior runs the per-entity decision procedure for one worker. It
// reads the whole shared world through the view and the spatial index
// but writes only entities inside its region and spawns only into its
// slot range.
type Behavior struct {
	store  *world.Store
	view   world.View
	food   *world.FoodField
	biomes *world.BiomeMap
	tribes *world.Tribes
	idx    *world.SpatialIndex
	rng    *rand.Rand
	counts *telemetry.Counts

	region Region
	slots  SlotRange

	neighborLimit  int
	neighborChecks int
	personalSpace  float32
	satiation      float32
	combatRange    float32
	burstMult      float32
	damping        float32
	hybridChance   float32
	metabolicCost  float32
	moveCost       float32
	foodEnergy     float32
	reproThreshold float32

	worldW, worldH float32
	energyMax      float32
	maxAge         float32

	neighbors []neighborInfo // scratch, reused across entities
}

// BehaviorParams wires a Behavior to one worker's slice of the world.
type BehaviorParams struct {
	Store  *world.Store
	Food   *world.FoodField
	Biomes *world.BiomeMap
	Tribes *world.Tribes
	Index  *world.SpatialIndex
	RNG    *rand.Rand
	Counts *telemetry.Counts
	Region Region
	Slots  SlotRange
}

// NewBehavior builds the per-worker behavior context.
func NewBehavior(cfg *config.Config, p BehaviorParams) *Behavior {
	return &Behavior{
		store:  p.Store,
		view:   p.Store.View(),
		food:   p.Food,
		biomes: p.Biomes,
		tribes: p.Tribes,
		idx:    p.Index,
		rng:    p.RNG,
		counts: p.Counts,
		region: p.Region,
		slots:  p.Slots,

		neighborLimit:  cfg.Behavior.NeighborLimit,
		neighborChecks: cfg.Behavior.NeighborChecks,
		personalSpace:  float32(cfg.Behavior.PersonalSpace),
		satiation:      float32(cfg.Behavior.Satiation),
		combatRange:    float32(cfg.Behavior.CombatRange),
		burstMult:      float32(cfg.Behavior.BurstMultiplier),
		damping:        float32(cfg.Behavior.Damping),
		hybridChance:   float32(cfg.Behavior.HybridChance),
		metabolicCost:  float32(cfg.Behavior.MetabolicCost),
		moveCost:       float32(cfg.Behavior.MoveCost),
		foodEnergy:     float32(cfg.Behavior.FoodEnergy),
		reproThreshold: float32(cfg.Behavior.ReproThreshold),

		worldW:    cfg.Derived.WorldW32,
		worldH:    cfg.Derived.WorldH32,
		energyMax: float32(cfg.Entities.EnergyMax),
		maxAge:    float32(cfg.Entities.MaxAge),

		neighbors: make([]neighborInfo, 0, cfg.Behavior.NeighborLimit),
	}
}

// Owns reports whether the entity currently belongs to this worker.
func (b *Behavior) Owns(i int) bool {
	return b.region.Contains(b.store.PosX[i], b.store.PosY[i])
}

// Step runs the decision procedure for entity i: neighbor gather,
// steering, predation or fear, combat, foraging and reproduction. It
// writes velocity and energy; movement happens later in Integrate.
func (b *Behavior) Step(i int, dt float32) {
	if !b.store.Alive[i] {
		return
	}

	g := b.store.Genomes[i]
	x, y := b.store.PosX[i], b.store.PosY[i]
	energy := b.store.Energy[i]

	nbs := b.gather(i, x, y, &g)

	var fx, fy float32

	sx, sy := b.separation(nbs)
	fx += sx * sepWeight
	fy += sy * sepWeight

	ax, ay := b.flocking(i, &g, nbs)
	fx += ax
	fy += ay

	if g.IsHunter() {
		hx, hy := b.predation(i, &g, nbs, dt)
		fx += hx
		fy += hy
	} else {
		ex, ey := b.fear(&g, energy, nbs)
		fx += ex
		fy += ey
	}

	gx, gy := b.forage(i, x, y, &g, dt)
	fx += gx
	fy += gy

	b.reproduce(i, &g, nbs, dt)

	b.store.VelX[i] += fx * dt
	b.store.VelY[i] += fy * dt
}

// gather collects up to neighborLimit visible neighbors around (x,y),
// examining at most neighborChecks candidates. Neighbors behind the
// entity's field-of-view cone are skipped unless the cone is wide
// enough that the check costs more than it filters.
func (b *Behavior) gather(i int, x, y float32, g *genome.Genome) []neighborInfo {
	b.neighbors = b.neighbors[:0]

	vision := g[genome.Vision]
	checkCone := g[genome.ViewAngle] < genome.WideCone
	halfCone := g[genome.ViewAngle] / 2
	orient := b.store.Orient[i]
	myTribe := b.store.Tribe[i]

	b.idx.ForNeighborsLimited(x, y, vision, b.neighborChecks,
		func(slot int32, nx, ny, distSq float32) bool {
			if int(slot) == i || distSq > vision*vision {
				return true
			}
			if !b.view.IsAlive(int(slot)) {
				return true
			}

			dx, dy := nx-x, ny-y
			if checkCone && distSq > 1 {
				bearing := float32(math.Atan2(float64(dy), float64(dx)))
				if absAngle(bearing-orient) > halfCone {
					return true
				}
			}

			ng := b.view.GenomeOf(int(slot))
			tribe := b.view.TribeOf(int(slot))
			b.neighbors = append(b.neighbors, neighborInfo{
				slot:   slot,
				dx:     dx,
				dy:     dy,
				distSq: distSq,
				tribe:  tribe,
				energy: b.view.EnergyOf(int(slot)),
				ally:   tribe == myTribe,
				hunter: ng.IsHunter(),
			})
			return len(b.neighbors) < b.neighborLimit
		})

	return b.neighbors
}

// separation builds an inverse-distance repulsion from every neighbor
// inside the personal-space radius, ally or not.
func (b *Behavior) separation(nbs []neighborInfo) (fx, fy float32) {
	ps2 := b.personalSpace * b.personalSpace
	for _, n := range nbs {
		if n.distSq >= ps2 || n.distSq < 1e-6 {
			continue
		}
		dist := sqrt32(n.distSq)
		push := (1 - dist/b.personalSpace) / dist
		fx -= n.dx * push
		fy -= n.dy * push
	}
	return fx, fy
}

// flocking blends velocity alignment and cohesion toward the
// relative-offset centroid of nearby allies, scaled by the cohesion
// gene. Cohesion works on offsets, not absolute positions, so flocks
// spanning the world wrap do not collapse toward a false centroid.
// Herbivores additionally get a distance-banded herding response.
func (b *Behavior) flocking(i int, g *genome.Genome, nbs []neighborInfo) (fx, fy float32) {
	var avgVX, avgVY float32
	var cx, cy float32
	allies := 0

	for _, n := range nbs {
		if !n.ally {
			continue
		}
		vx, vy := b.view.Velocity(int(n.slot))
		avgVX += vx
		avgVY += vy
		cx += n.dx
		cy += n.dy
		allies++
	}
	if allies == 0 {
		return 0, 0
	}

	inv := 1 / float32(allies)
	avgVX *= inv
	avgVY *= inv
	cx *= inv
	cy *= inv

	coh := g[genome.Cohesion]
	fx = (avgVX-b.store.VelX[i])*alignWeight*coh + cx*cohesionWeight*coh
	fy = (avgVY-b.store.VelY[i])*alignWeight*coh + cy*cohesionWeight*coh

	if !g.IsHunter() {
		hx, hy := b.herd(g, cx, cy)
		fx += hx
		fy += hy
	}
	return fx, fy
}

// herd pushes a herbivore out of a too-tight cluster and pulls it back
// toward a too-loose one, relative to its vision radius.
func (b *Behavior) herd(g *genome.Genome, cx, cy float32) (fx, fy float32) {
	dist := sqrt32(cx*cx + cy*cy)
	if dist < 1e-3 {
		return 0, 0
	}
	vision := g[genome.Vision]
	frac := dist / vision

	ux, uy := cx/dist, cy/dist
	switch {
	case frac < herdTightBand:
		spread := (herdTightBand - frac) / herdTightBand
		return -ux * herdWeight * spread, -uy * herdWeight * spread
	case frac > herdLooseBand:
		pull := (frac - herdLooseBand) / (1 - herdLooseBand)
		return ux * herdWeight * pull, uy * herdWeight * pull
	}
	return 0, 0
}

// predation scores every visible neighbor as prey and either pursues
// the best target directly or, when well-fed or outnumbered, stalks
// from a distance and only commits to isolated weak prey. Combat
// resolves inside when the target is within reach.
func (b *Behavior) predation(i int, g *genome.Genome, nbs []neighborInfo, dt float32) (fx, fy float32) {
	energy := b.store.Energy[i]
	vision := g[genome.Vision]
	desperate := energy < desperationFrac*b.energyMax

	// Hunger gate: hunters with high diet need meat sooner.
	huntThreshold := b.energyMax * (0.45 + 0.25*g[genome.Diet])
	hungry := energy < huntThreshold

	alliedHunters := 0
	enemies := 0
	for _, n := range nbs {
		if n.ally && n.hunter {
			alliedHunters++
		}
		if !n.ally {
			enemies++
		}
	}

	bestScore := float32(-1)
	var best *neighborInfo
	for k := range nbs {
		n := &nbs[k]
		if n.slot == int32(i) {
			continue
		}
		dist := sqrt32(n.distSq)

		// Prefer weak, close, non-ally targets.
		score := (1-n.energy/b.energyMax)*2 + (1 - dist/vision)
		if n.ally {
			if !desperate {
				score *= cannibalPenalty
			}
		} else {
			score += 0.5
		}
		if score > bestScore {
			bestScore = score
			best = n
		}
	}
	if best == nil {
		return 0, 0
	}

	pack := 1 + packBonusPerAlly*float32(alliedHunters)*g[genome.Cohesion]

	// Well-fed hunters and hunters facing superior numbers stalk
	// instead of charging.
	outnumbered := enemies > (alliedHunters+1)*2
	stalking := (!hungry || outnumbered) && !desperate

	dist := sqrt32(best.distSq)
	if dist < 1e-3 {
		dist = 1e-3
	}
	ux, uy := best.dx/dist, best.dy/dist

	if stalking {
		// Hold a safe distance; strike only isolated weak prey.
		weak := best.energy < 0.3*b.energyMax
		isolated := enemies <= 1
		if weak && isolated && dist < b.combatRange*2 {
			b.fight(i, g, best, pack, dt)
			return ux * pursuitWeight, uy * pursuitWeight
		}
		safe := vision * stalkDistance
		if dist < safe {
			return -ux * stalkWeight, -uy * stalkWeight
		}
		return ux * stalkWeight, uy * stalkWeight
	}

	if !hungry {
		return 0, 0
	}

	if dist <= b.combatRange {
		b.fight(i, g, best, pack, dt)
	}
	return ux * pursuitWeight * pack, uy * pursuitWeight * pack
}

// fight rolls a fight chance and applies damage to the target. Damage
// lands only on targets inside this worker's own region; a target just
// across the boundary is another worker's to mutate, so the blow is
// dropped rather than racing on its energy.
func (b *Behavior) fight(i int, g *genome.Genome, target *neighborInfo, pack, dt float32) {
	t := int(target.slot)
	tx, ty := b.store.PosX[t], b.store.PosY[t]
	if !b.region.Contains(tx, ty) {
		return
	}

	crowd := float32(len(b.neighbors)) / float32(b.neighborLimit)
	chance := 0.35 + 0.4*g[genome.Aggression] + 0.2*g[genome.Diet] - 0.2*crowd
	if chance <= 0 {
		return
	}
	if chance > 0.95 {
		chance = 0.95
	}
	if b.rng.Float32() >= chance {
		return
	}

	dmg := (baseDamage + baseDamage*g[genome.Aggression]) * pack * dt
	b.store.Energy[t] -= dmg

	// Diet-scaled energy siphon from the wound.
	if g[genome.Diet] > 0 {
		b.addEnergy(i, dmg*g[genome.Diet]*siphonFraction)
	}

	if b.store.Energy[t] <= 0 && b.store.Alive[t] {
		b.store.Kill(t)
		if g[genome.Diet] > 0 {
			b.addEnergy(i, corpseEnergy*g[genome.Diet])
		}
		b.counts.AddKill(b.store.Tribe[i])
		b.counts.AddDeath(target.tribe)
	}
}

// fear steers a herbivore away from the weighted centroid of nearby
// predators when allies are too few to stand ground. Hunger suppresses
// the response: a starving creature grazes through danger.
func (b *Behavior) fear(g *genome.Genome, energy float32, nbs []neighborInfo) (fx, fy float32) {
	var px, py, weight float32
	predators := 0
	allies := 0
	for _, n := range nbs {
		if n.ally {
			allies++
			continue
		}
		if n.hunter {
			dist := sqrt32(n.distSq)
			if dist < 1e-3 {
				dist = 1e-3
			}
			w := 1 / dist
			px += n.dx * w
			py += n.dy * w
			weight += w
			predators++
		}
	}
	if predators == 0 {
		return 0, 0
	}
	if float32(allies) >= fearRatio*float32(predators) {
		return 0, 0
	}

	px /= weight
	py /= weight
	dist := sqrt32(px*px + py*py)
	if dist < 1e-3 {
		return 0, 0
	}

	scale := float32(1)
	if frac := energy / b.energyMax; frac < desperationFrac {
		scale = frac / desperationFrac
	}
	return -px / dist * fearWeight * scale, -py / dist * fearWeight * scale
}

// forage scans the food field when below satiation and steers toward
// the richest acceptable cell, eating it when close enough. With no
// acceptable cell in sight it keeps an exploration heading instead of
// stalling.
func (b *Behavior) forage(i int, x, y float32, g *genome.Genome, dt float32) (fx, fy float32) {
	energy := b.store.Energy[i]
	satiated := b.satiation * b.energyMax
	if energy >= satiated {
		return 0, 0
	}
	hunger := 1 - energy/satiated

	vision := g[genome.Vision]
	radius := vision * (0.5 + 0.5*hunger)
	threshold := 0.1 + g[genome.Pickiness]*g[genome.Pickiness]*3.0

	cellW, cellH := b.food.CellSize()
	bestLevel := threshold
	bestIdx := -1
	var bestX, bestY float32

	for cy := y - radius; cy <= y+radius; cy += cellH {
		for cx := x - radius; cx <= x+radius; cx += cellW {
			idx, ok := b.food.CellIndexAt(cx, cy)
			if !ok {
				continue
			}
			level := b.food.LevelAt(cx, cy)
			if level <= bestLevel {
				continue
			}
			fcx, fcy := b.food.CellCenter(idx)
			dx, dy := fcx-x, fcy-y
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			bestLevel = level
			bestIdx = idx
			bestX, bestY = fcx, fcy
		}
	}

	if bestIdx < 0 {
		return b.explore(i, hunger)
	}

	// Arrived only once standing inside the chosen cell, since the
	// bite lands at the forager's own position.
	here, ok := b.food.CellIndexAt(x, y)
	if ok && here == bestIdx {
		if b.food.ConsumeAt(x, y, g[genome.Pickiness]) == 1 {
			// Plant matter feeds herbivores fully, carnivores barely.
			affinity := (1 - g[genome.Diet]) / 2
			if affinity < 0 {
				affinity = 0
			}
			b.addEnergy(i, b.foodEnergy*affinity)
		}
		return 0, 0
	}

	dx, dy := bestX-x, bestY-y
	dist := sqrt32(dx*dx + dy*dy)
	if dist == 0 {
		return 0, 0
	}
	return dx / dist * foodWeight * hunger, dy / dist * foodWeight * hunger
}

// explore keeps a hungry creature moving: a gentle wander along the
// current heading, or a hard random turn when desperate.
func (b *Behavior) explore(i int, hunger float32) (fx, fy float32) {
	turn := (b.rng.Float32()*2 - 1) * 0.6
	if hunger > 0.8 {
		turn = (b.rng.Float32()*2 - 1) * float32(math.Pi)
	}
	heading := b.store.Orient[i] + turn
	return float32(math.Cos(float64(heading))) * exploreWeight,
		float32(math.Sin(float64(heading))) * exploreWeight
}

// reproduce handles both same-tribe births and the rarer cross-tribe
// hybrid path. Births allocate only from this worker's slot range; a
// full range silently skips the birth.
func (b *Behavior) reproduce(i int, g *genome.Genome, nbs []neighborInfo, dt float32) {
	energy := b.store.Energy[i]
	needed := b.reproThreshold * b.energyMax
	if energy <= needed {
		return
	}

	if b.rng.Float32() < g[genome.ReproChance]*dt {
		if slot := b.store.FindDeadSlot(b.slots.Lo, b.slots.Hi); slot >= 0 {
			if b.store.Reproduce(i, slot, b.rng, b.tribes) {
				b.counts.AddBirth(b.store.Tribe[i])
			}
		}
		return
	}

	// Hybrid mating: needs an adjacent different-tribe partner in this
	// worker's region (the partner pays energy too), both parents
	// well-fed, and room to breathe.
	if b.rng.Float32() >= b.hybridChance*dt {
		return
	}
	if len(nbs) >= b.neighborLimit/2 {
		return
	}
	reach := b.personalSpace * 2
	for _, n := range nbs {
		if n.ally || n.distSq > reach*reach {
			continue
		}
		p := int(n.slot)
		if !b.region.Contains(b.store.PosX[p], b.store.PosY[p]) {
			continue
		}
		if b.store.Energy[p] <= needed {
			continue
		}
		if slot := b.store.FindDeadSlot(b.slots.Lo, b.slots.Hi); slot >= 0 {
			if b.store.SpawnHybrid(i, p, slot, b.rng, b.tribes) {
				b.counts.AddHybrid(b.store.Tribe[i])
				b.counts.AddHybrid(n.tribe)
				b.counts.AddBirth(b.tribes.HybridID())
			}
		}
		return
	}
}

// Integrate applies the movement and vitals phase for entity i: speed
// clamp, damping, position wrap with biome deflection, then age and
// energy bookkeeping with starvation and old-age death.
func (b *Behavior) Integrate(i int, dt float32) {
	if !b.store.Alive[i] {
		return
	}

	g := b.store.Genomes[i]
	vx, vy := b.store.VelX[i], b.store.VelY[i]

	// Burst clamp on metabolically sustainable speed.
	maxSpeed := g.MaxSpeed() * b.burstMult
	speed := sqrt32(vx*vx + vy*vy)
	if speed > maxSpeed {
		scale := maxSpeed / speed
		vx *= scale
		vy *= scale
		speed = maxSpeed
	}
	vx *= b.damping
	vy *= b.damping

	x, y := b.store.PosX[i], b.store.PosY[i]
	nx := wrapCoord(x+vx*dt, b.worldW)
	ny := wrapCoord(y+vy*dt, b.worldH)

	if !b.biomes.Traversable(nx, ny) {
		nx, ny, vx, vy = b.deflect(x, y, vx, vy, dt)
	}

	b.store.VelX[i] = vx
	b.store.VelY[i] = vy
	b.store.PosX[i] = nx
	b.store.PosY[i] = ny

	if speed > 0.5 {
		b.store.Orient[i] = float32(math.Atan2(float64(vy), float64(vx)))
	}

	// Vitals.
	b.store.Age[i] += dt

	speedFrac := float32(0)
	if base := g[genome.Speed] * b.burstMult; base > 0 {
		speedFrac = speed / base
	}
	cost := b.metabolicCost*g[genome.Metabolism] + b.moveCost*speedFrac*speedFrac
	b.store.Energy[i] -= cost * dt

	tribe := b.store.Tribe[i]
	switch {
	case b.store.Energy[i] <= 0:
		b.store.Kill(i)
		b.counts.AddStarved(tribe)
	case b.store.Age[i] > b.maxAge:
		b.store.Kill(i)
		b.counts.AddDeath(tribe)
	}
}

// deflect tries alternate headings when the destination cell is not
// traversable: rotations of the current velocity at the same speed,
// widening until reversal, stopping dead if everything is blocked.
func (b *Behavior) deflect(x, y, vx, vy, dt float32) (nx, ny, nvx, nvy float32) {
	angles := [...]float32{
		math.Pi / 4, -math.Pi / 4,
		math.Pi / 2, -math.Pi / 2,
		3 * math.Pi / 4, -3 * math.Pi / 4,
		math.Pi,
	}
	for _, a := range angles {
		sin, cos := math.Sincos(float64(a))
		rvx := vx*float32(cos) - vy*float32(sin)
		rvy := vx*float32(sin) + vy*float32(cos)
		tx := wrapCoord(x+rvx*dt, b.worldW)
		ty := wrapCoord(y+rvy*dt, b.worldH)
		if b.biomes.Traversable(tx, ty) {
			return tx, ty, rvx, rvy
		}
	}
	return x, y, 0, 0
}

// addEnergy adds energy clamped to the maximum.
func (b *Behavior) addEnergy(i int, amount float32) {
	e := b.store.Energy[i] + amount
	if e > b.energyMax {
		e = b.energyMax
	}
	b.store.Energy[i] = e
}

func wrapCoord(v, limit float32) float32 {
	for v < 0 {
		v += limit
	}
	for v >= limit {
		v -= limit
	}
	return v
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

// absAngle normalizes an angle difference into [0, pi].
func absAngle(a float32) float32 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	if a < 0 {
		a = -a
	}
	return a
}
