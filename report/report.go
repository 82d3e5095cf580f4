// Package report produces human-readable summaries of build output:
// a BSP node-tree dump, a blockmap cell histogram, and a reject-matrix
// density summary. Structurally mirrors the teacher's disasm package
// (a walker producing a flat slice of printable records) applied to a
// node tree instead of a bytecode stream.
package report

import (
	"fmt"
	"io"

	"github.com/doomtools/nodebuild/blockmap"
	"github.com/doomtools/nodebuild/level"
)

// NodeLine is one printable line of a node-tree dump, analogous to
// disasm.Instr: one record per visited tree element, carrying enough
// context to render indented without the caller re-walking the tree.
type NodeLine struct {
	Depth    int
	Kind     string // "node" or "subsector"
	Index    int
	NumSegs  int // only set for Kind == "subsector"
	X, Y     int16
	DX, DY   int16
}

// WalkTree depth-first walks lvl's node tree (root-first, right then
// left child) into a flat slice of NodeLines, mirroring bspinfo.cpp's
// recursive `-t` tree dump.
func WalkTree(lvl *level.Level) []NodeLine {
	var out []NodeLine
	if len(lvl.Nodes) == 0 {
		if len(lvl.SubSecs) == 1 {
			out = append(out, NodeLine{Kind: "subsector", Index: 0, NumSegs: int(lvl.SubSecs[0].Num)})
		}
		return out
	}

	var walk func(ref uint16, depth int)
	walk = func(ref uint16, depth int) {
		if ref&level.NodeChildLeaf != 0 {
			idx := int(ref &^ level.NodeChildLeaf)
			out = append(out, NodeLine{Depth: depth, Kind: "subsector", Index: idx, NumSegs: int(lvl.SubSecs[idx].Num)})
			return
		}
		n := lvl.Nodes[ref]
		out = append(out, NodeLine{Depth: depth, Kind: "node", Index: int(ref), X: n.X, Y: n.Y, DX: n.DX, DY: n.DY})
		walk(n.Child[0], depth+1)
		walk(n.Child[1], depth+1)
	}
	walk(uint16(len(lvl.Nodes)-1), 0)
	return out
}

// PrintTree renders lines in bspInfo -t style: indentation by depth,
// "Node"/"SSector" labels.
func PrintTree(w io.Writer, lines []NodeLine) {
	for _, l := range lines {
		indent := ""
		for i := 0; i < l.Depth; i++ {
			indent += "  "
		}
		if l.Kind == "node" {
			fmt.Fprintf(w, "%sNode %d: (%d,%d) delta (%d,%d)\n", indent, l.Index, l.X, l.Y, l.DX, l.DY)
		} else {
			fmt.Fprintf(w, "%sSSector %d: %d segs\n", indent, l.Index, l.NumSegs)
		}
	}
}

// BlockmapStats summarizes a built blockmap's cell occupancy.
type BlockmapStats struct {
	Columns, Rows int
	TotalCells    int
	EmptyCells    int
	MaxLinesInCell int
	TotalLineRefs int
}

// SummarizeBlockmap computes occupancy statistics for bm.
func SummarizeBlockmap(bm *blockmap.Blockmap) BlockmapStats {
	st := BlockmapStats{Columns: bm.Columns, Rows: bm.Rows, TotalCells: len(bm.Cells)}
	for _, cell := range bm.Cells {
		if len(cell) == 0 {
			st.EmptyCells++
		}
		if len(cell) > st.MaxLinesInCell {
			st.MaxLinesInCell = len(cell)
		}
		st.TotalLineRefs += len(cell)
	}
	return st
}

// PrintBlockmapStats renders a one-paragraph blockmap summary.
func PrintBlockmapStats(w io.Writer, st BlockmapStats) {
	fmt.Fprintf(w, "Blockmap: %dx%d cells (%d total), %d empty, max %d lines/cell, %d line refs\n",
		st.Columns, st.Rows, st.TotalCells, st.EmptyCells, st.MaxLinesInCell, st.TotalLineRefs)
}

// RejectStats summarizes a reject matrix's visibility density.
type RejectStats struct {
	NumSectors    int
	VisiblePairs  int
	HiddenPairs   int
	TotalPairs    int
}

// SummarizeReject scans a packed reject matrix.
func SummarizeReject(data []byte, numSectors int) RejectStats {
	st := RejectStats{NumSectors: numSectors, TotalPairs: numSectors * numSectors}
	for i := 0; i < numSectors; i++ {
		for j := 0; j < numSectors; j++ {
			bit := i*numSectors + j
			idx := bit / 8
			hidden := idx < len(data) && data[idx]&(1<<uint(bit%8)) != 0
			if hidden {
				st.HiddenPairs++
			} else {
				st.VisiblePairs++
			}
		}
	}
	return st
}

// PrintRejectStats renders a one-paragraph reject-matrix summary.
func PrintRejectStats(w io.Writer, st RejectStats) {
	pct := 0.0
	if st.TotalPairs > 0 {
		pct = 100 * float64(st.HiddenPairs) / float64(st.TotalPairs)
	}
	fmt.Fprintf(w, "Reject: %d sectors, %d/%d pairs hidden (%.1f%%)\n",
		st.NumSectors, st.HiddenPairs, st.TotalPairs, pct)
}
