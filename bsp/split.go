package bsp

import (
	"errors"
	"math"
	"sort"

	"github.com/doomtools/nodebuild/geom"
	"github.com/doomtools/nodebuild/level"
)

var errParallelSplit = errors.New("bsp: partition parallel to split linedef")

func dist(a, b geom.FPoint) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Hypot(dx, dy)
}

// split recursively partitions segs, returning the child reference to
// install in the parent node (either NodeChildLeaf|subsector-index or a
// plain node index).
//
// Selection runs in two passes (spec.md section 4.2, section 9's "goto
// retry after integer snap"): first in float coordinates: if every
// remaining alias classifies as a boundary edge, the subtree looks
// convex and would normally become a leaf. Before accepting that, the
// segs are marked Final and selection is retried once under the
// integer-snap classification rule, which can reveal that two segs
// that appeared collinear in float math actually diverge once rounded
// - in which case the retry's candidate is used instead of emitting a
// false leaf.
func (b *builder) split(segs []seg, pc *partitionContext) (uint16, error) {
	cand, newlyBanned := b.choosePartition(segs, pc.banned)
	if cand == nil {
		finalSegs := markFinal(segs)
		if finalCand, finalBanned := b.choosePartition(finalSegs, pc.banned); finalCand != nil {
			cand, newlyBanned, segs = finalCand, finalBanned, finalSegs
		}
	}
	if cand == nil {
		if len(b.opts.KeepUniqueSect) > 0 {
			if ref, ok, err := b.trySplitUniqueSector(segs, pc); ok {
				return ref, err
			}
		}
		return b.emitLeaf(segs)
	}

	undo := pc.ban(append(append([]int{}, newlyBanned...), cand.alias))
	defer undo()

	rightSegs, leftSegs, err := b.partitionSegs(segs, cand)
	if err != nil {
		return 0, err
	}

	rightChild, err := b.split(rightSegs, pc)
	if err != nil {
		return 0, err
	}
	leftChild, err := b.split(leftSegs, pc)
	if err != nil {
		return 0, err
	}

	node := level.Node{
		X:     geom.SnapRound(cand.line.X),
		Y:     geom.SnapRound(cand.line.Y),
		DX:    geom.SnapRound(cand.line.DX),
		DY:    geom.SnapRound(cand.line.DY),
		BBox:  [2][4]int16{bboxOf(rightSegs), bboxOf(leftSegs)},
		Child: [2]uint16{rightChild, leftChild},
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, node)
	return uint16(idx), nil
}

// markFinal returns a copy of segs with Final set, for the integer-snap
// retry pass (spec.md section 4.2).
func markFinal(segs []seg) []seg {
	out := make([]seg, len(segs))
	for i, s := range segs {
		s.Final = true
		out[i] = s
	}
	return out
}

// partitionSegs reorders segs as [right | left], splitting any seg that
// straddles cand.line into two halves (spec.md section 4.4.4).
func (b *builder) partitionSegs(segs []seg, cand *candidate) (right, left []seg, err error) {
	for _, s := range segs {
		var side segSide
		if s.Alias == cand.alias {
			side = sideRight
		} else {
			side = b.classifySeg(cand.line, s)
		}
		s.Final = false // finalization is local to one node's retry, not inherited by children
		switch side {
		case sideRight:
			right = append(right, s)
		case sideLeft:
			left = append(left, s)
		case sideSplit:
			rs, ls, err := b.splitSeg(s, cand.line)
			if err != nil {
				return nil, nil, err
			}
			right = append(right, rs)
			left = append(left, ls)
		}
	}
	if len(right)+len(left) > b.segCap {
		return nil, nil, ErrSegOverflow
	}
	return right, left, nil
}

// splitSeg divides s at its intersection with part, solved against the
// underlying linedef's original geometry rather than s's own (possibly
// already-split) endpoints, so repeated splits never compound rounding
// error (spec.md section 4.4.4).
func (b *builder) splitSeg(s seg, part geom.Line) (right, left seg, err error) {
	ld := b.lines[s.Linedef]
	ldLine := geom.Line{
		X: float64(ld.Start.X), Y: float64(ld.Start.Y),
		DX: float64(ld.End.X) - float64(ld.Start.X),
		DY: float64(ld.End.Y) - float64(ld.Start.Y),
	}
	pt, ok := geom.Intersect(part, ldLine)
	if !ok {
		return seg{}, seg{}, errParallelSplit
	}
	splitPoint := geom.SnapPoint(pt).Of()

	right, left = s, s
	right.Split, left.Split = true, true

	if part.ClassifyPoint(s.Start) == geom.SideRight {
		right.End = splitPoint
		left.Start = splitPoint
	} else {
		left.End = splitPoint
		right.Start = splitPoint
	}
	return right, left, nil
}

// bboxOf computes the {maxY,minY,minX,maxX} bounding box on-disk
// ordering for a seg list.
func bboxOf(segs []seg) [4]int16 {
	if len(segs) == 0 {
		return [4]int16{}
	}
	minX, maxX := segs[0].Start.X, segs[0].Start.X
	minY, maxY := segs[0].Start.Y, segs[0].Start.Y
	for _, s := range segs {
		for _, p := range [2]geom.FPoint{s.Start, s.End} {
			if p.X < minX {
				minX = p.X
			}
			if p.X > maxX {
				maxX = p.X
			}
			if p.Y < minY {
				minY = p.Y
			}
			if p.Y > maxY {
				maxY = p.Y
			}
		}
	}
	return [4]int16{geom.SnapRound(maxY), geom.SnapRound(minY), geom.SnapRound(minX), geom.SnapRound(maxX)}
}

// emitLeaf sorts the convex remaining segs by linedef id (preserving
// source ordering for renderer special effects) and appends them to the
// output SEGS/SSECTORS arrays, resolving vertex indices through the
// deduplicated pool (spec.md section 4.4.5).
func (b *builder) emitLeaf(segs []seg) (uint16, error) {
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Linedef < segs[j].Linedef })

	first := uint16(len(b.outSegs))
	for _, s := range segs {
		startIdx := b.vertexIndex(s.Start)
		endIdx := b.vertexIndex(s.End)
		ld := b.lines[s.Linedef]
		offset := geom.SnapRound(dist(ld.Start.Of(), s.Start))

		b.outSegs = append(b.outSegs, level.Seg{
			Start:   startIdx,
			End:     endIdx,
			Angle:   s.angle(),
			Linedef: uint16(s.Linedef),
			Flip:    s.Flip,
			Offset:  uint16(offset),
		})
	}

	idx := len(b.subsecs)
	b.subsecs = append(b.subsecs, level.SubSector{First: first, Num: uint16(len(segs))})
	return uint16(idx) | level.NodeChildLeaf, nil
}

// vertexIndex returns p's index in the dedup pool, appending a new
// vertex only if no existing one matches.
func (b *builder) vertexIndex(p geom.FPoint) uint16 {
	pt := geom.SnapPoint(p)
	for i, v := range b.verts {
		if v == pt {
			return uint16(i)
		}
	}
	b.verts = append(b.verts, pt)
	return uint16(len(b.verts) - 1)
}
