package bsp

// aliasGroup is one canonical colinear-line family (spec.md section
// 4.4.2): a representative point and direction, compared against
// candidate linedefs with exact integer arithmetic (no epsilon needed
// since source vertices are integral).
type aliasGroup struct {
	px, py int64
	dx, dy int64
}

// parallel reports whether two directions match mod 180 degrees.
func parallel(dx1, dy1, dx2, dy2 int64) bool {
	return dx1*dy2-dy1*dx2 == 0
}

// colinear reports whether point (px,py) lies on the infinite line
// through (gx,gy) with direction (dx,dy).
func colinear(px, py, gx, gy, dx, dy int64) bool {
	return (px-gx)*dy-(py-gy)*dx == 0
}

// assignAliases groups segs by their underlying linedef's colinear
// family and records, per seg, whether it runs in the family's
// canonical direction or flipped.
func assignAliases(segs []seg, lines []buildLine) {
	var groups []aliasGroup
	aliasOf := make(map[int]int) // linedef index -> alias id

	for i := range segs {
		ld := segs[i].Linedef
		if id, ok := aliasOf[ld]; ok {
			segs[i].Alias = id
			continue
		}

		ln := lines[ld]
		dx := int64(ln.End.X) - int64(ln.Start.X)
		dy := int64(ln.End.Y) - int64(ln.Start.Y)

		found := -1
		for gi, g := range groups {
			if parallel(dx, dy, g.dx, g.dy) && colinear(int64(ln.Start.X), int64(ln.Start.Y), g.px, g.py, g.dx, g.dy) {
				found = gi
				break
			}
		}
		if found == -1 {
			groups = append(groups, aliasGroup{px: int64(ln.Start.X), py: int64(ln.Start.Y), dx: dx, dy: dy})
			found = len(groups) - 1
		}
		aliasOf[ld] = found
		segs[i].Alias = found
	}
}
