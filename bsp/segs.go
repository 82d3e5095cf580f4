package bsp

import (
	"github.com/doomtools/nodebuild/geom"
	"github.com/doomtools/nodebuild/level"
)

// seg is the builder's working representation of one side of one
// linedef. level.Seg is only produced at leaf emission, once vertex
// indices are resolved (spec.md section 4.4.5).
type seg struct {
	Start, End geom.FPoint
	Linedef    int
	Side       int // 0 = right (front), 1 = left (back)
	Sector     int
	Flip       uint16
	Offset     float64 // distance from the linedef's canonical start
	Alias      int
	Split      bool

	// Final marks a seg as eligible for the integer-snap classification
	// rule (spec.md section 4.2): set for every seg in a node's list
	// only on the retry pass after the float-coordinate selection found
	// no valid partition, to confirm the leaf is genuinely convex once
	// rounding is accounted for.
	Final bool
}

// buildSegs emits one seg per linedef side still present after the
// reduce-linedefs and ignore-list rules (spec.md section 4.4.1).
func (b *builder) buildSegs() []seg {
	var segs []seg

	for i, ld := range b.lvl.Linedefs {
		if b.ignore[i] {
			continue
		}
		if ld.Start == ld.End {
			continue
		}
		start := b.lvl.Vertices[ld.Start]
		end := b.lvl.Vertices[ld.End]
		if start == end {
			continue
		}

		hasRight := ld.SideRight != level.NoSidedef
		hasLeft := ld.SideLeft != level.NoSidedef
		skipRight, skipLeft := false, false

		if b.opts.ReduceLinedefs && hasRight && hasLeft {
			right := b.lvl.Sidedefs[ld.SideRight]
			left := b.lvl.Sidedefs[ld.SideLeft]
			if right.Sector == left.Sector {
				if right.MiddleTex.IsEmpty() {
					skipRight = true
				}
				if left.MiddleTex.IsEmpty() {
					skipLeft = true
				}
			}
		}

		if hasRight && !skipRight {
			sd := b.lvl.Sidedefs[ld.SideRight]
			segs = append(segs, seg{
				Start:   start.Of(),
				End:     end.Of(),
				Linedef: i,
				Side:    0,
				Sector:  int(sd.Sector),
				Flip:    0,
				Offset:  0,
			})
		}
		if hasLeft && !skipLeft {
			sd := b.lvl.Sidedefs[ld.SideLeft]
			segs = append(segs, seg{
				Start:   end.Of(),
				End:     start.Of(),
				Linedef: i,
				Side:    1,
				Sector:  int(sd.Sector),
				Flip:    1,
				Offset:  0,
			})
		}
	}

	return segs
}

// angle computes the on-disk binary angle for a seg's current direction.
func (s seg) angle() uint16 {
	return geom.BinaryAngle(s.End.X-s.Start.X, s.End.Y-s.Start.Y)
}
