package reject

import (
	"github.com/doomtools/nodebuild/blockmap"
	"github.com/doomtools/nodebuild/geom"
	"github.com/doomtools/nodebuild/level"
)

// testLinePairs runs the line-of-sight test for every ordered pair of
// see-thru lines whose sector-pair cells are still unknown, following
// the visit order from spec.md section 4.5.4, and marks the matrix
// accordingly.
//
// The candidate gathering (blockmap rasterization of the sight
// quadrilateral, bounding-box prune) follows spec.md section 4.5.3
// steps 1-4. The refinement in steps 5-7 ports ZenReject.cpp's
// polygon-clip corridor narrowing: the sight "corridor" between src and
// tgt is bounded by an upper and a lower poly-line, candidate solid
// lines are folded into whichever boundary they cross, and the two
// boundaries pinching shut (polyLinesCross) means the pair is blocked.
func testLinePairs(lvl *level.Level, bm *blockmap.Blockmap, seeThrus []seeThruLine, solids []solidLine, matrix [][]visibility, order []int) {
	visited := make(map[[2]int]bool)
	lineOf := func(sectorID int) []seeThruLine {
		var out []seeThruLine
		for _, l := range seeThrus {
			if l.rightSector == sectorID || l.leftSector == sectorID {
				out = append(out, l)
			}
		}
		return out
	}

	for _, sid := range order {
		for _, src := range lineOf(sid) {
			key := [2]int{src.rightSector, src.leftSector}
			if visited[key] {
				continue
			}
			for _, tgt := range seeThrus {
				if tgt.linedef == src.linedef {
					continue
				}
				if cellsDone(matrix, src, tgt) {
					continue
				}
				if hasLineOfSight(lvl, bm, src, tgt, solids) {
					matrix[src.rightSector][tgt.rightSector] = visible
					matrix[tgt.rightSector][src.rightSector] = visible
					matrix[src.rightSector][tgt.leftSector] = visible
					matrix[tgt.leftSector][src.rightSector] = visible
					matrix[src.leftSector][tgt.rightSector] = visible
					matrix[tgt.rightSector][src.leftSector] = visible
					matrix[src.leftSector][tgt.leftSector] = visible
					matrix[tgt.leftSector][src.leftSector] = visible
				}
			}
			visited[key] = true
		}
	}
}

func cellsDone(matrix [][]visibility, src, tgt seeThruLine) bool {
	pairs := [4][2]int{
		{src.rightSector, tgt.rightSector},
		{src.rightSector, tgt.leftSector},
		{src.leftSector, tgt.rightSector},
		{src.leftSector, tgt.leftSector},
	}
	for _, p := range pairs {
		if matrix[p[0]][p[1]] == unknown {
			return false
		}
	}
	return true
}

// candidateLinedefs rasterizes the quadrilateral formed by src and tgt
// into the blockmap (its four edges set per-row lo/hi column bounds, and
// every cell between them is examined) and returns the linedef indices
// of every solid line found in a touched cell (spec.md section 4.5.3
// steps 1-4, ZenReject.cpp FindInterveningLines).
func candidateLinedefs(lvl *level.Level, bm *blockmap.Blockmap, src, tgt seeThruLine) []int {
	seen := map[int]bool{}
	loCol, hiCol := map[int]int{}, map[int]int{}
	visit := func(corner1, corner2 geom.Point) {
		blockmap.RasterizeLine(corner1, corner2, int(bm.XOrigin), int(bm.YOrigin), bm.Columns, bm.Rows, func(cell int) {
			if cell < 0 || cell >= len(bm.Cells) {
				return
			}
			row, col := cell/bm.Columns, cell%bm.Columns
			if lo, ok := loCol[row]; !ok || col < lo {
				loCol[row] = col
			}
			if hi, ok := hiCol[row]; !ok || col > hi {
				hiCol[row] = col
			}
		})
	}
	visit(lvl.Vertices[src.start], lvl.Vertices[src.end])
	visit(lvl.Vertices[tgt.start], lvl.Vertices[tgt.end])
	visit(lvl.Vertices[src.start], lvl.Vertices[tgt.start])
	visit(lvl.Vertices[src.end], lvl.Vertices[tgt.end])

	for row, lo := range loCol {
		for col := lo; col <= hiCol[row]; col++ {
			for _, lineIdx := range bm.Cells[row*bm.Columns+col] {
				ld := lvl.Linedefs[lineIdx]
				if ld.SideRight != level.NoSidedef && ld.SideLeft != level.NoSidedef {
					continue // two-sided: not a solid occluder
				}
				seen[lineIdx] = true
			}
		}
	}

	out := make([]int, 0, len(seen))
	for idx := range seen {
		out = append(out, idx)
	}
	return out
}

// clipLine is a candidate solid-line occluder for one LOS test. It
// carries its originating vertex indices (not just coordinates) so
// trimLines can recognize a line that shares an endpoint with src or
// tgt (ZenReject.cpp's sSolidLine, minus the shared ignore-flag array:
// ignore is local to this call).
type clipLine struct {
	startIdx, endIdx int
	start, end       geom.FPoint
	ignore           bool
}

func buildClipLines(lvl *level.Level, byLinedef map[int]solidLine, indices []int) []clipLine {
	lines := make([]clipLine, 0, len(indices))
	for _, idx := range indices {
		sl, ok := byLinedef[idx]
		if !ok {
			continue
		}
		lines = append(lines, clipLine{
			startIdx: sl.start,
			endIdx:   sl.end,
			start:    lvl.Vertices[sl.start].Of(),
			end:      lvl.Vertices[sl.end].Of(),
		})
	}
	return lines
}

// losEnd is the shrinking valid sub-segment of one of the two see-thru
// lines during corridor narrowing (ZenReject.cpp sSeeThruLine's
// lo/hi/loPoint/hiPoint fields). It is allocated fresh per LOS test and
// mutated only while narrowing that one pair's corridor: no state
// survives across calls, per the package's local-working-state
// convention.
type losEnd struct {
	startIdx, endIdx int
	start            geom.FPoint
	dx, dy           float64
	lo, hi           float64
}

func newLosEnd(lvl *level.Level, startIdx, endIdx int) *losEnd {
	s := lvl.Vertices[startIdx].Of()
	e := lvl.Vertices[endIdx].Of()
	return &losEnd{
		startIdx: startIdx, endIdx: endIdx,
		start: s, dx: e.X - s.X, dy: e.Y - s.Y,
		lo: 0, hi: 1,
	}
}

func (e *losEnd) loPoint() geom.FPoint {
	return geom.FPoint{X: e.start.X + e.lo*e.dx, Y: e.start.Y + e.lo*e.dy}
}

func (e *losEnd) hiPoint() geom.FPoint {
	return geom.FPoint{X: e.start.X + e.hi*e.dx, Y: e.start.Y + e.hi*e.dy}
}

// polyRef names a poly-line vertex without copying it: the two corridor
// boundaries start out built entirely from src/tgt's lo/hi points, which
// move as adjustEndPoints tightens them, so a poly-line stores which
// moving point it means rather than a frozen coordinate. A fixed point
// (the near end of a folded-in solid line) never moves once added.
type polyRef int

const (
	refFixed polyRef = iota
	refSrcLo
	refSrcHi
	refTgtLo
	refTgtHi
)

type polyPt struct {
	ref polyRef
	pt  geom.FPoint
}

// losClip holds the two working endpoints for one LOS test and
// resolves poly-line references against their current values.
type losClip struct {
	src, tgt *losEnd
}

func (c *losClip) resolve(p polyPt) geom.FPoint {
	switch p.ref {
	case refSrcLo:
		return c.src.loPoint()
	case refSrcHi:
		return c.src.hiPoint()
	case refTgtLo:
		return c.tgt.loPoint()
	case refTgtHi:
		return c.tgt.hiPoint()
	default:
		return p.pt
	}
}

// losSide classifies segment t1->t2 against the directed line p1->p2
// (ZenReject.cpp Intersects): 1 if both points are strictly above (to
// the line's left), -1 if both are on-or-below, 0 if the segment
// crosses the line, -2 if a second rotated check still can't tell.
func losSide(p1, p2, t1, t2 geom.FPoint) int {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	y1 := dx*(t1.Y-p1.Y) - dy*(t1.X-p1.X)
	y2 := dx*(t2.Y-p1.Y) - dy*(t2.X-p1.X)
	if y1 > 0 && y2 > 0 {
		return 1
	}
	if y1 <= 0 && y2 <= 0 {
		return -1
	}

	dx = t2.X - t1.X
	dy = t2.Y - t1.Y
	y1 = dx*(p1.Y-t1.Y) - dy*(p1.X-t1.X)
	y2 = dx*(p2.Y-t1.Y) - dy*(p2.X-t1.X)
	if y1 > 0 && y2 > 0 {
		return -2
	}
	if y1 < 0 && y2 < 0 {
		return -2
	}
	return 0
}

// findSide reports where a candidate line falls relative to a
// poly-line boundary: -1 completely below every segment (beyond this
// boundary, outside the corridor), 0 crosses one of the boundary's
// segments, 1 otherwise (not completely below: on the corridor's side
// of this boundary, still possibly occluding).
func (c *losClip) findSide(line clipLine, poly []polyPt) int {
	completelyBelow := true
	for i := 0; i < len(poly)-1; i++ {
		p1 := c.resolve(poly[i])
		p2 := c.resolve(poly[i+1])
		switch losSide(p1, p2, line.start, line.end) {
		case -1:
		case 0:
			return 0
		default: // 1 or -2
			completelyBelow = false
		}
	}
	if completelyBelow {
		return -1
	}
	return 1
}

// addToPolyLine folds line into poly: it finds the run of existing
// points line's near endpoint now encloses, drops them, and inserts
// the near endpoint in their place (ZenReject.cpp AddToPolyLine).
// Returns the new poly-line and the index of the freshly inserted
// point.
func (c *losClip) addToPolyLine(poly []polyPt, line clipLine) ([]polyPt, int) {
	var y1 float64
	i := 0
	for ; i < len(poly)-1; i++ {
		p1 := c.resolve(poly[i])
		p2 := c.resolve(poly[i+1])
		dx := p2.X - p1.X
		dy := p2.Y - p1.Y
		y1 = dx*(line.start.Y-p1.Y) - dy*(line.start.X-p1.X)
		y2 := dx*(line.end.Y-p1.Y) - dy*(line.end.X-p1.X)
		if (y1 > 0) != (y2 > 0) {
			break
		}
	}
	i++

	j := len(poly) - 1
	for ; j > i; j-- {
		p1 := c.resolve(poly[j-1])
		p2 := c.resolve(poly[j])
		dx := p2.X - p1.X
		dy := p2.Y - p1.Y
		yy1 := dx*(line.start.Y-p1.Y) - dy*(line.start.X-p1.X)
		yy2 := dx*(line.end.Y-p1.Y) - dy*(line.end.X-p1.X)
		if (yy1 > 0) != (yy2 > 0) {
			break
		}
	}

	near := line.end
	if y1 > 0 {
		near = line.start
	}

	out := make([]polyPt, 0, i+1+(len(poly)-j))
	out = append(out, poly[:i]...)
	out = append(out, polyPt{ref: refFixed, pt: near})
	out = append(out, poly[j:]...)
	return out, i
}

// polyLinesCross reports whether upper crosses lower. When lastIdx is
// not -1, only the two segments of upper meeting at lastIdx (freshly
// modified) are checked against every segment of lower; otherwise every
// segment of upper is checked (ZenReject.cpp PolyLinesCross).
func (c *losClip) polyLinesCross(upper, lower []polyPt, lastIdx int) bool {
	foundAbove := false
	ambiguous := false
	last, max := 0, len(upper)-1
	if lastIdx != -1 {
		max = 2
		last = lastIdx - 1
	}
	for i := 0; i < max; i++ {
		p1 := c.resolve(upper[last+i])
		p2 := c.resolve(upper[last+i+1])
		for j := 0; j < len(lower)-1; j++ {
			p3 := c.resolve(lower[j])
			p4 := c.resolve(lower[j+1])
			switch losSide(p1, p2, p3, p4) {
			case 1:
				foundAbove = true
			case 0:
				return true
			case -2:
				ambiguous = true
			}
		}
	}
	if foundAbove {
		return false
	}
	if ambiguous {
		p1 := c.resolve(upper[0])
		p2 := c.resolve(upper[len(upper)-1])
		dx := p2.X - p1.X
		dy := p2.Y - p1.Y
		for i := 1; i < len(lower)-1; i++ {
			tp := c.resolve(lower[i])
			if dx*(tp.Y-p1.Y)-dy*(tp.X-p1.X) < 0 {
				return true
			}
		}
	}
	return false
}

// correctForNewStart drops poly points now behind the corridor's new,
// tighter start (ZenReject.cpp CorrectForNewStart). Returns the
// possibly-shortened poly, the shifted lastIdx, and whether anything
// changed.
func (c *losClip) correctForNewStart(poly []polyPt, lastIdx int) ([]polyPt, int, bool) {
	p0 := c.resolve(poly[0])
	for i := len(poly) - 1; i > 1; i-- {
		p1 := c.resolve(poly[i])
		p2 := c.resolve(poly[i-1])
		dx := p1.X - p0.X
		dy := p1.Y - p0.Y
		y := dx*(p2.Y-p0.Y) - dy*(p2.X-p0.X)
		if y < 0 {
			out := make([]polyPt, 0, len(poly)-(i-1))
			out = append(out, poly[0])
			out = append(out, poly[i:]...)
			return out, lastIdx - (i - 1), true
		}
	}
	return poly, lastIdx, false
}

// correctForNewEnd drops poly points now beyond the corridor's new,
// tighter end (ZenReject.cpp CorrectForNewEnd).
func (c *losClip) correctForNewEnd(poly []polyPt) ([]polyPt, bool) {
	p0 := c.resolve(poly[len(poly)-1])
	for i := 0; i < len(poly)-2; i++ {
		p1 := c.resolve(poly[i])
		p2 := c.resolve(poly[i+1])
		dx := p0.X - p1.X
		dy := p0.Y - p1.Y
		y := dx*(p2.Y-p1.Y) - dy*(p2.X-p1.X)
		if y < 0 {
			out := make([]polyPt, 0, i+2)
			out = append(out, poly[:i+1]...)
			out = append(out, polyPt{ref: refFixed, pt: p0})
			return out, true
		}
	}
	return poly, false
}

// adjustEndPoints tightens left/right's lo/hi range against the
// poly-line point just folded into upper, shrinking the corridor
// further and re-testing for a pinch-shut (ZenReject.cpp
// AdjustEndPoints). left/right name the see-thru line whose hi or lo
// point bounds upper's far end; the caller passes (src,tgt) when upper
// is the upper/left boundary and (tgt,src) when upper is the
// lower/right boundary.
func (c *losClip) adjustEndPoints(left, right *losEnd, upper, lower []polyPt, lastIdx int) ([]polyPt, int, bool) {
	if lastIdx == -1 {
		return upper, lastIdx, true
	}
	test := c.resolve(upper[lastIdx])
	changed := false

	leftHi := left.hiPoint()
	rightHi := right.hiPoint()
	dx := test.X - leftHi.X
	dy := test.Y - leftHi.Y
	y := dx*(rightHi.Y-leftHi.Y) - dy*(rightHi.X-leftHi.X)
	if y > 0 {
		num := (right.start.Y-leftHi.Y)*dx - (right.start.X-leftHi.X)*dy
		det := right.dx*dy - right.dy*dx
		t := num / det
		if t <= right.lo {
			return upper, lastIdx, false
		}
		if t < right.hi {
			right.hi = t
			var ok bool
			upper, lastIdx, ok = c.correctForNewStart(upper, lastIdx)
			changed = changed || ok
		}
	}

	rightLo := right.loPoint()
	leftLo := left.loPoint()
	dx = test.X - rightLo.X
	dy = test.Y - rightLo.Y
	y = dx*(leftLo.Y-rightLo.Y) - dy*(leftLo.X-rightLo.X)
	if y < 0 {
		num := (left.start.Y-rightLo.Y)*dx - (left.start.X-rightLo.X)*dy
		det := left.dx*dy - left.dy*dx
		t := num / det
		if t >= left.hi {
			return upper, lastIdx, false
		}
		if t > left.lo {
			left.lo = t
			var ok bool
			upper, ok = c.correctForNewEnd(upper)
			changed = changed || ok
		}
	}

	if changed && c.polyLinesCross(upper, lower, -1) {
		return upper, lastIdx, false
	}
	return upper, lastIdx, true
}

// findPolyLines repeatedly folds every still-live candidate line into
// whichever corridor boundary it crosses until no candidate's
// classification changes, reporting false the moment the corridor
// pinches shut (ZenReject.cpp FindPolyLines).
//
// FindObstacles, the original's final "check for a fully enclosed
// obstacle" pass, is not ported: in ZenReject.cpp every one of its code
// paths returns false, so it is inert in the original too, and CheckLOS
// always returns true once FindPolyLines succeeds.
func (c *losClip) findPolyLines(lines []clipLine) bool {
	lower := []polyPt{{ref: refSrcHi}, {ref: refTgtLo}}
	upper := []polyPt{{ref: refTgtHi}, {ref: refSrcLo}}
	upperLast := -1

	for {
		done := true
		stray := false

		for i := range lines {
			line := &lines[i]
			if line.ignore {
				continue
			}

			switch c.findSide(*line, lower) {
			case 1: // completely above the lower/right boundary
				switch c.findSide(*line, upper) {
				case 1: // between the two boundaries: not yet classified
					stray = true
				case 0: // crosses the upper/left boundary
					if stray {
						done = false
					}
					upper, upperLast = c.addToPolyLine(upper, *line)
					if len(lower) > 2 && c.polyLinesCross(upper, lower, upperLast) {
						return false
					}
					var ok bool
					upper, upperLast, ok = c.adjustEndPoints(c.src, c.tgt, upper, lower, upperLast)
					if !ok {
						return false
					}
					line.ignore = true
				case -1: // completely above the upper/left boundary too
					line.ignore = true
				}
			case 0: // crosses the lower/right boundary
				if stray {
					done = false
				}
				var lowerLast int
				lower, lowerLast = c.addToPolyLine(lower, *line)
				if c.polyLinesCross(lower, upper, lowerLast) {
					return false
				}
				var ok bool
				lower, lowerLast, ok = c.adjustEndPoints(c.tgt, c.src, lower, upper, lowerLast)
				if !ok {
					return false
				}
				line.ignore = true
			case -1: // completely below the lower/right boundary
				line.ignore = true
			}
		}

		if done {
			break
		}
	}

	return true
}

func boundsOf(pts ...geom.FPoint) (loX, hiX, loY, hiY float64) {
	loX, hiX = pts[0].X, pts[0].X
	loY, hiY = pts[0].Y, pts[0].Y
	for _, p := range pts[1:] {
		if p.X < loX {
			loX = p.X
		}
		if p.X > hiX {
			hiX = p.X
		}
		if p.Y < loY {
			loY = p.Y
		}
		if p.Y > hiY {
			hiY = p.Y
		}
	}
	return
}

// trimLines drops candidates that the axis-aligned box around src/tgt
// rules out entirely, and candidates that only touch src or tgt at a
// shared vertex from the wrong side - the doorframe a see-thru line
// sits in should not itself occlude that line's own sightline
// (ZenReject.cpp TrimLines, minus its rotated single-line
// short-circuit: findPolyLines below already detects a single
// fully-blocking line via polyLinesCross, so that short-circuit is a
// pure speed optimization, not additional correctness, and is not
// ported).
func (c *losClip) trimLines(lines []clipLine) {
	srcEnd := geom.FPoint{X: c.src.start.X + c.src.dx, Y: c.src.start.Y + c.src.dy}
	tgtEnd := geom.FPoint{X: c.tgt.start.X + c.tgt.dx, Y: c.tgt.start.Y + c.tgt.dy}
	loX, hiX, loY, hiY := boundsOf(c.src.start, srcEnd, c.tgt.start, tgtEnd)

	for i := range lines {
		line := &lines[i]
		switch {
		case line.start.Y <= loY && line.end.Y <= loY:
			line.ignore = true
		case line.start.Y >= hiY && line.end.Y >= hiY:
			line.ignore = true
		case line.start.X >= hiX && line.end.X >= hiX:
			line.ignore = true
		case line.start.X <= loX && line.end.X <= loX:
			line.ignore = true
		}
	}

	for i := range lines {
		line := &lines[i]
		if line.ignore {
			continue
		}
		y := 1.0
		switch {
		case line.startIdx == c.src.startIdx || line.startIdx == c.src.endIdx:
			y = c.src.dx*(line.end.Y-c.src.start.Y) - c.src.dy*(line.end.X-c.src.start.X)
		case line.endIdx == c.src.startIdx || line.endIdx == c.src.endIdx:
			y = c.src.dx*(line.start.Y-c.src.start.Y) - c.src.dy*(line.start.X-c.src.start.X)
		case line.startIdx == c.tgt.startIdx || line.startIdx == c.tgt.endIdx:
			y = c.tgt.dx*(line.end.Y-c.tgt.start.Y) - c.tgt.dy*(line.end.X-c.tgt.start.X)
		case line.endIdx == c.tgt.startIdx || line.endIdx == c.tgt.endIdx:
			y = c.tgt.dx*(line.start.Y-c.tgt.start.Y) - c.tgt.dy*(line.start.X-c.tgt.start.X)
		}
		if y < 0 {
			line.ignore = true
		}
	}
}

// hasLineOfSight runs the spec.md section 4.5.3 pipeline: reject a
// co-linear src/tgt pair, gather candidate occluders from the blockmap
// (steps 1-4), trim the obvious misses, then narrow the src-tgt corridor
// against the rest until it is provably clear or provably pinched shut
// (steps 5-6). src and tgt are used with their linedef endpoint order;
// they are not re-oriented, and a tgt bisected by src is not split.
func hasLineOfSight(lvl *level.Level, bm *blockmap.Blockmap, src, tgt seeThruLine, solids []solidLine) bool {
	s0, s1 := lvl.Vertices[src.start].Of(), lvl.Vertices[src.end].Of()
	side := func(p geom.FPoint) float64 { return (s1.X-s0.X)*(p.Y-s0.Y) - (s1.Y-s0.Y)*(p.X-s0.X) }
	if side(lvl.Vertices[tgt.start].Of()) == 0 && side(lvl.Vertices[tgt.end].Of()) == 0 {
		return false // co-linear: no sightline passes through both lines
	}

	byLinedef := make(map[int]solidLine, len(solids))
	for _, sl := range solids {
		byLinedef[sl.linedef] = sl
	}

	lines := buildClipLines(lvl, byLinedef, candidateLinedefs(lvl, bm, src, tgt))
	if len(lines) == 0 {
		return true
	}

	c := &losClip{
		src: newLosEnd(lvl, src.start, src.end),
		tgt: newLosEnd(lvl, tgt.start, tgt.end),
	}
	c.trimLines(lines)

	live := false
	for _, l := range lines {
		if !l.ignore {
			live = true
			break
		}
	}
	if !live {
		return true
	}

	return c.findPolyLines(lines)
}
