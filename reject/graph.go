package reject

import "sort"

// sectorNode tracks one sector's see-thru neighbors and its position in
// the child-absorption graph (spec.md section 4.5.2).
type sectorNode struct {
	id         int
	neighbors  map[int]int // neighbor sector -> shared see-thru line count
	parent     int         // -1 if none
	children   []int
	descendant int // inherited descendant count, for ordering
	lineCount  int // active (not yet absorbed away) see-thru line count
}

type sectorGraph struct {
	sectors []*sectorNode
}

func buildSectorGraph(numSectors int, seeThrus []seeThruLine) *sectorGraph {
	g := &sectorGraph{sectors: make([]*sectorNode, numSectors)}
	for i := range g.sectors {
		g.sectors[i] = &sectorNode{id: i, neighbors: map[int]int{}, parent: -1}
	}
	for _, l := range seeThrus {
		g.sectors[l.rightSector].neighbors[l.leftSector]++
		g.sectors[l.leftSector].neighbors[l.rightSector]++
		g.sectors[l.rightSector].lineCount++
		g.sectors[l.leftSector].lineCount++
	}
	return g
}

// absorbChildren iteratively merges any sector with exactly one
// neighbor into that neighbor, repeating until no singletons remain
// (spec.md section 4.5.2).
func absorbChildren(g *sectorGraph) {
	absorbed := make([]bool, len(g.sectors))
	for {
		progressed := false
		for _, s := range g.sectors {
			if absorbed[s.id] || s.parent != -1 {
				continue
			}
			if len(s.neighbors) != 1 {
				continue
			}
			var parentID int
			for n := range s.neighbors {
				parentID = n
			}
			parent := g.sectors[parentID]
			if absorbed[parentID] {
				continue
			}

			s.parent = parentID
			parent.children = append(parent.children, s.id)
			parent.descendant += 1 + s.descendant
			shared := s.neighbors[parentID]
			parent.lineCount -= shared
			delete(parent.neighbors, s.id)
			absorbed[s.id] = true
			progressed = true
		}
		if !progressed {
			break
		}
	}
}

// sectorVisitOrder implements the sort from spec.md section 4.5.4:
// descending children count, ascending has-parent, descending active
// line count, ties by original index.
func sectorVisitOrder(g *sectorGraph) []int {
	order := make([]int, len(g.sectors))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := g.sectors[order[a]], g.sectors[order[b]]
		if len(sa.children) != len(sb.children) {
			return len(sa.children) > len(sb.children)
		}
		pa, pb := sa.parent != -1, sb.parent != -1
		if pa != pb {
			return !pa // sectors without a parent sort first
		}
		if sa.lineCount != sb.lineCount {
			return sa.lineCount > sb.lineCount
		}
		return sa.id < sb.id
	})
	return order
}
