package bsp

import "github.com/doomtools/nodebuild/level"

// trySplitUniqueSector implements the unique-sector option (spec.md
// section 4.4.4): a would-be leaf spanning multiple sectors, at least
// one of which is in the keep-unique set, is forced to split instead,
// grouping segs as [keep-unique sector | everything else] rather than
// along a geometric partition line.
func (b *builder) trySplitUniqueSector(segs []seg, pc *partitionContext) (uint16, bool, error) {
	sectors := map[int]bool{}
	keepSector := -1
	for _, s := range segs {
		sectors[s.Sector] = true
		if keepSector == -1 && b.opts.KeepUniqueSect[s.Sector] {
			keepSector = s.Sector
		}
	}
	if len(sectors) < 2 || keepSector == -1 {
		return 0, false, nil
	}

	var group, rest []seg
	for _, s := range segs {
		if s.Sector == keepSector {
			group = append(group, s)
		} else {
			rest = append(rest, s)
		}
	}

	rightChild, err := b.split(group, pc)
	if err != nil {
		return 0, true, err
	}
	leftChild, err := b.split(rest, pc)
	if err != nil {
		return 0, true, err
	}

	node := level.Node{
		X: 0, Y: 0, DX: 0, DY: 0,
		BBox:  [2][4]int16{bboxOf(group), bboxOf(rest)},
		Child: [2]uint16{rightChild, leftChild},
	}
	idx := len(b.nodes)
	b.nodes = append(b.nodes, node)
	return uint16(idx), true, nil
}
