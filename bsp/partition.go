package bsp

import (
	"sort"

	"github.com/doomtools/nodebuild/config"
	"github.com/doomtools/nodebuild/geom"
)

type segSide int

const (
	sideRight segSide = iota
	sideLeft
	sideSplit
)

// candidate is one alias's scored partition-line proposal (spec.md
// section 4.4.3).
type candidate struct {
	alias     int
	line      geom.Line
	left      int
	right     int
	splits    int
	leftSec   map[int]bool
	rightSec  map[int]bool
	splitSec  map[int]bool
	dontSplit bool
	score     int
	metric1   int
	metric2   int
}

// classifySeg decides which side of part a seg falls on, using the
// zero-snap classification of both endpoints with the documented
// tie-break for endpoints that land exactly on the partition. For a
// Final seg it applies the integer-snap rule first (spec.md section
// 4.2): each endpoint is re-derived by intersecting the seg's
// underlying linedef with part and snapping, and if that snapped
// intersection equals the seg's stored endpoint, the endpoint is
// forced on-line before the ordinary test runs.
func (b *builder) classifySeg(part geom.Line, s seg) segSide {
	startPt, endPt := s.Start, s.End
	var startOn, endOn bool
	if s.Final {
		startOn, endOn = b.finalizeEndpoints(part, s)
	}

	classify := func(p geom.FPoint, onLine bool) geom.Side {
		if onLine {
			return geom.SideOn
		}
		return part.ClassifyPoint(p)
	}
	a := classify(startPt, startOn)
	bSide := classify(endPt, endOn)

	resolve := func(side geom.Side) segSide {
		if side == geom.SideRight {
			return sideRight
		}
		return sideLeft
	}

	switch {
	case a == geom.SideOn && bSide == geom.SideOn:
		return resolve(part.TieBreak(s.End.X-s.Start.X, s.End.Y-s.Start.Y))
	case a == geom.SideOn:
		return resolve(bSide)
	case bSide == geom.SideOn:
		return resolve(a)
	case a == bSide:
		return resolve(a)
	default:
		return sideSplit
	}
}

// finalizeEndpoints implements spec.md section 4.2's integer-snap rule:
// it intersects s's underlying linedef with part in floating point,
// snaps the result to integer coordinates, and reports which of s's
// two endpoints (if any) that snapped point matches exactly.
func (b *builder) finalizeEndpoints(part geom.Line, s seg) (startOn, endOn bool) {
	ld := b.lines[s.Linedef]
	ldLine := geom.Line{
		X: float64(ld.Start.X), Y: float64(ld.Start.Y),
		DX: float64(ld.End.X) - float64(ld.Start.X),
		DY: float64(ld.End.Y) - float64(ld.Start.Y),
	}
	pt, ok := geom.Intersect(part, ldLine)
	if !ok {
		return false, false
	}
	snapped := geom.SnapPoint(pt)
	startOn = snapped == geom.SnapPoint(s.Start)
	endOn = snapped == geom.SnapPoint(s.End)
	return startOn, endOn
}

// evaluateCandidate scores alias id as a partition-line proposal
// against the current seg list.
func (b *builder) evaluateCandidate(id int, segs []seg, dontSplit map[int]bool) candidate {
	c := candidate{
		alias:    id,
		leftSec:  map[int]bool{},
		rightSec: map[int]bool{},
		splitSec: map[int]bool{},
	}

	var rep seg
	found := false
	for _, s := range segs {
		if s.Alias == id {
			rep = s
			found = true
			break
		}
	}
	if !found {
		return c
	}
	c.line = geom.Line{X: rep.Start.X, Y: rep.Start.Y, DX: rep.End.X - rep.Start.X, DY: rep.End.Y - rep.Start.Y}

	for _, s := range segs {
		if s.Alias == id {
			c.right++
			c.rightSec[s.Sector] = true
			continue
		}
		switch b.classifySeg(c.line, s) {
		case sideRight:
			c.right++
			c.rightSec[s.Sector] = true
		case sideLeft:
			c.left++
			c.leftSec[s.Sector] = true
		case sideSplit:
			c.splits++
			c.splitSec[s.Sector] = true
			if dontSplit[s.Linedef] {
				c.dontSplit = true
			}
		}
	}
	return c
}

// scoreMetric applies the strategy-A split modulation (spec.md section
// 4.4.3) to a raw left*right-style product.
func scoreMetric(raw, splits int, t config.Tuning) int {
	if splits == 0 {
		return raw
	}
	div := t.X1 * splits / t.X2
	if div < 1 {
		div = 1
	}
	return raw/div - (t.X3*splits+t.X4)*splits
}

func (c candidate) isBoundary() bool {
	return c.left*c.right+c.splits == 0
}

func (c candidate) axisAligned() bool {
	return c.line.DX == 0 || c.line.DY == 0
}

// distinctAliases returns the aliases present in segs, excluding those
// already banned, in first-encountered order (stable across calls for
// a fixed seg ordering).
func distinctAliases(segs []seg, banned map[int]bool) []int {
	seen := map[int]bool{}
	var out []int
	for _, s := range segs {
		if banned[s.Alias] || seen[s.Alias] {
			continue
		}
		seen[s.Alias] = true
		out = append(out, s.Alias)
	}
	return out
}

// choosePartition picks the best partition-line alias for segs under
// opts.Strategy, or nil if every alias is a boundary edge (the subtree
// is convex and should be emitted as a leaf). newlyBanned lists the
// aliases discovered to be boundary edges during this selection, to be
// pushed onto the partitionContext alongside the chosen alias itself.
func (b *builder) choosePartition(segs []seg, banned map[int]bool) (best *candidate, newlyBanned []int) {
	opts := b.opts
	aliases := distinctAliases(segs, banned)
	n := len(segs)
	maxScore := (n / 2) * (n - n/2)

	evalOne := func(id int) *candidate {
		c := b.evaluateCandidate(id, segs, opts.DontSplit)
		if c.isBoundary() {
			newlyBanned = append(newlyBanned, id)
			return nil
		}
		return &c
	}

	switch opts.Strategy {
	case config.MinDepth:
		best = chooseMinDepth(aliases, evalOne, opts.Tuning)
	case config.MinTime:
		best = chooseMinTime(aliases, evalOne, opts.Tuning, maxScore)
	default:
		best = chooseMinSplits(aliases, evalOne, opts.Tuning, maxScore)
	}
	return best, newlyBanned
}

func chooseMinSplits(aliases []int, evalOne func(int) *candidate, t config.Tuning, maxScore int) *candidate {
	var best *candidate
	for _, id := range aliases {
		c := evalOne(id)
		if c == nil {
			continue
		}
		if best != nil && c.splits > best.splits && c.left*c.right <= 0 {
			continue // pruning hint: cannot possibly beat best
		}
		c.score = scoreMetric(c.left*c.right, c.splits, t)
		if !c.axisAligned() {
			c.score--
		}
		if best == nil || c.score > best.score {
			best = c
		}
		if best.score >= maxScore {
			break
		}
	}
	return best
}

func chooseMinTime(aliases []int, evalOne func(int) *candidate, t config.Tuning, maxScore int) *candidate {
	limit := 30
	for {
		scan := aliases
		if limit < len(scan) {
			scan = scan[:limit]
		}
		var best *candidate
		for _, id := range scan {
			c := evalOne(id)
			if c == nil {
				continue
			}
			c.score = scoreMetric(c.left*c.right, c.splits, t)
			if !c.axisAligned() {
				c.score--
			}
			if best == nil || c.score > best.score {
				best = c
			}
			if best.score >= maxScore {
				return best
			}
		}
		if best != nil || limit >= len(aliases) {
			return best
		}
		limit += 5
	}
}

func chooseMinDepth(aliases []int, evalOne func(int) *candidate, t config.Tuning) *candidate {
	var valid, invalid []*candidate
	for _, id := range aliases {
		c := evalOne(id)
		if c == nil {
			continue
		}
		c.metric1 = scoreMetric((c.left+c.splits)*(c.right+c.splits), c.splits, t)
		c.metric2 = scoreMetric((len(c.leftSec)+len(c.splitSec))*(len(c.rightSec)+len(c.splitSec)), c.splits, t)
		if c.dontSplit {
			invalid = append(invalid, c)
		} else {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 && len(invalid) == 0 {
		return nil
	}

	ordered := append(append([]*candidate{}, valid...), invalid...)
	rank1 := rankByMetric(ordered, func(c *candidate) int { return c.metric1 })
	rank2 := rankByMetric(ordered, func(c *candidate) int { return c.metric2 })

	bestIdx := -1
	bestSum := 0
	for i := range ordered {
		sum := rank1[i] + rank2[i]
		if bestIdx == -1 || sum < bestSum {
			bestIdx = i
			bestSum = sum
		}
	}
	return ordered[bestIdx]
}

// rankByMetric assigns a 1-based rank per candidate: candidates that
// would split a don't-split linedef rank after all others, then highest
// metric first (ties broken by original order, i.e. stable sort).
func rankByMetric(cands []*candidate, metric func(*candidate) int) []int {
	idx := make([]int, len(cands))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		ci, cj := cands[idx[i]], cands[idx[j]]
		if ci.dontSplit != cj.dontSplit {
			return !ci.dontSplit
		}
		return metric(ci) > metric(cj)
	})
	ranks := make([]int, len(cands))
	for rank, i := range idx {
		ranks[i] = rank + 1
	}
	return ranks
}
