// Package world holds the shared simulation state: the entity store,
// the biome map, the food field, and the spatial index. Everything in
// this package is designed to live in one memory region read by every
// worker and written under the region-ownership discipline enforced in
// package sim.
package world

import "math"

// Tribe is a named lineage sharing a base hue. Stats are tracked per
// tribe id.
type Tribe struct {
	Name string
	Hue  float32 // degrees
}

// Tribes is the tribe table. The last entry is always the hybrid
// marker tribe that cross-tribe offspring are assigned to.
type Tribes struct {
	All []Tribe
}

// NewTribes builds the table from named tribes plus the hybrid marker.
func NewTribes(tribes []Tribe) *Tribes {
	all := make([]Tribe, 0, len(tribes)+1)
	all = append(all, tribes...)

	// Hybrid hue: circular mean of all tribe hues.
	var sx, sy float64
	for _, t := range tribes {
		rad := float64(t.Hue) * math.Pi / 180
		sx += math.Cos(rad)
		sy += math.Sin(rad)
	}
	hybridHue := float32(math.Atan2(sy, sx) * 180 / math.Pi)
	if hybridHue < 0 {
		hybridHue += 360
	}
	all = append(all, Tribe{Name: "hybrids", Hue: hybridHue})

	return &Tribes{All: all}
}

// HybridID returns the tribe id assigned to cross-tribe offspring.
func (t *Tribes) HybridID() uint16 {
	return uint16(len(t.All) - 1)
}

// Count returns the number of tribes including the hybrid marker.
func (t *Tribes) Count() int {
	return len(t.All)
}

// Hue returns the base hue of a tribe, wrapped into [0,360).
func (t *Tribes) Hue(id uint16) float32 {
	h := t.All[id].Hue
	h = float32(math.Mod(float64(h), 360))
	if h < 0 {
		h += 360
	}
	return h
}

// ColorFor derives the render-hint RGB for a creature: the tribe hue
// with saturation fading as the creature ages. Not authoritative state.
func (t *Tribes) ColorFor(id uint16, age, maxAge float32) (r, g, b uint8) {
	frac := age / maxAge
	if frac > 1 {
		frac = 1
	}
	sat := 1 - 0.6*frac
	val := 0.95 - 0.35*frac
	return hsvToRGB(t.Hue(id), sat, val)
}

// hsvToRGB converts hue [0,360), sat/val [0,1] to 8-bit RGB.
func hsvToRGB(h, s, v float32) (uint8, uint8, uint8) {
	c := v * s
	hp := float64(h) / 60
	x := c * float32(1-math.Abs(math.Mod(hp, 2)-1))
	m := v - c

	var r, g, b float32
	switch {
	case hp < 1:
		r, g, b = c, x, 0
	case hp < 2:
		r, g, b = x, c, 0
	case hp < 3:
		r, g, b = 0, c, x
	case hp < 4:
		r, g, b = 0, x, c
	case hp < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return uint8((r + m) * 255), uint8((g + m) * 255), uint8((b + m) * 255)
}
