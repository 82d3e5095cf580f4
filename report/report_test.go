package report

import (
	"bytes"
	"testing"

	"github.com/doomtools/nodebuild/level"
)

func TestWalkTreeSingleLeaf(t *testing.T) {
	lvl := &level.Level{}
	lvl.SetSubSectors([]level.SubSector{{First: 0, Num: 4}})
	lines := WalkTree(lvl)
	if len(lines) != 1 || lines[0].Kind != "subsector" {
		t.Fatalf("WalkTree() = %+v, want one subsector line", lines)
	}
}

func TestWalkTreeWithNodes(t *testing.T) {
	lvl := &level.Level{}
	lvl.SetSubSectors([]level.SubSector{{First: 0, Num: 2}, {First: 2, Num: 3}})
	lvl.SetNodes([]level.Node{
		{X: 0, Y: 0, DX: 1, DY: 0, Child: [2]uint16{0 | level.NodeChildLeaf, 1 | level.NodeChildLeaf}},
	})
	lines := WalkTree(lvl)
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3 (1 node + 2 subsectors)", len(lines))
	}
	if lines[0].Kind != "node" {
		t.Errorf("lines[0].Kind = %q, want node", lines[0].Kind)
	}

	var buf bytes.Buffer
	PrintTree(&buf, lines)
	if buf.Len() == 0 {
		t.Error("PrintTree produced no output")
	}
}

func TestSummarizeReject(t *testing.T) {
	// 2 sectors, (0,1) hidden, rest visible.
	data := []byte{0b00000010}
	st := SummarizeReject(data, 2)
	if st.HiddenPairs != 1 {
		t.Errorf("HiddenPairs = %d, want 1", st.HiddenPairs)
	}
	if st.TotalPairs != 4 {
		t.Errorf("TotalPairs = %d, want 4", st.TotalPairs)
	}
}
