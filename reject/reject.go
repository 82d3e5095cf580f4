// Package reject builds the REJECT sector-visibility matrix (spec.md
// section 4.5): a bit per ordered sector pair, set when no sightline
// between any two points in those sectors is possible, used by the
// renderer to cull invisible sectors before clipping.
package reject

import (
	"io"
	"log"
	"os"

	"github.com/doomtools/nodebuild/blockmap"
	"github.com/doomtools/nodebuild/config"
	"github.com/doomtools/nodebuild/level"
)

// Debug toggles verbose logging across the package, mirroring
// wasm.PrintDebugInfo / wasm.SetDebugMode in the teacher repo.
var Debug = false

var logger *log.Logger

func init() {
	logger = log.New(io.Discard, "reject: ", log.Lshortfile)
}

// SetDebugMode toggles the package logger's output between io.Discard
// and os.Stderr.
func SetDebugMode(on bool) {
	Debug = on
	w := io.Writer(io.Discard)
	if on {
		w = os.Stderr
	}
	logger.SetOutput(w)
}

type visibility int

const (
	unknown visibility = iota
	visible
	hidden
)

// solidLine and seeThruLine are the two families from spec.md section
// 4.5.1.
type solidLine struct {
	start, end int // vertex indices
	linedef    int
}

type seeThruLine struct {
	start, end   int
	linedef      int
	rightSector  int
	leftSector   int
}

// Build computes the reject matrix for lvl. bm must already be built
// (the caller runs the blockmap builder first if the lump is absent,
// per spec.md section 4.5.1).
func Build(lvl *level.Level, bm *blockmap.Blockmap, opts config.RejectOptions) ([]byte, error) {
	numSectors := len(lvl.Sectors)

	if opts.Empty {
		return make([]byte, (numSectors*numSectors+7)/8), nil
	}

	if !opts.Force && hasSpecialEffects(lvl.Reject, numSectors) {
		logger.Printf("existing reject matrix has special effects, skipping rebuild")
		return lvl.Reject, nil
	}

	solids, seeThrus := partitionLines(lvl)

	matrix := emptyMatrix(numSectors)
	for i := 0; i < numSectors; i++ {
		matrix[i][i] = visible
	}
	for _, l := range seeThrus {
		matrix[l.rightSector][l.leftSector] = visible
		matrix[l.leftSector][l.rightSector] = visible
	}

	graph := buildSectorGraph(numSectors, seeThrus)
	if opts.UseChildren {
		absorbChildren(graph)
	}

	hasSeeThru := make([]bool, numSectors)
	for _, l := range seeThrus {
		hasSeeThru[l.rightSector] = true
		hasSeeThru[l.leftSector] = true
	}
	for i := 0; i < numSectors; i++ {
		if !hasSeeThru[i] {
			for j := 0; j < numSectors; j++ {
				if j != i {
					matrix[i][j] = hidden
					matrix[j][i] = hidden
				}
			}
		}
	}

	order := sectorVisitOrder(graph)
	testLinePairs(lvl, bm, seeThrus, solids, matrix, order)

	completeUnknown(matrix, graph, opts.UseGraphs)

	return packMatrix(matrix, numSectors), nil
}

func emptyMatrix(n int) [][]visibility {
	m := make([][]visibility, n)
	for i := range m {
		m[i] = make([]visibility, n)
	}
	return m
}

func partitionLines(lvl *level.Level) (solids []solidLine, seeThrus []seeThruLine) {
	for i, ld := range lvl.Linedefs {
		hasRight := ld.SideRight != level.NoSidedef
		hasLeft := ld.SideLeft != level.NoSidedef

		switch {
		case hasRight && !hasLeft:
			solids = append(solids, solidLine{int(ld.Start), int(ld.End), i})
		case hasLeft && !hasRight:
			solids = append(solids, solidLine{int(ld.Start), int(ld.End), i})
		case hasRight && hasLeft:
			rs := int(lvl.Sidedefs[ld.SideRight].Sector)
			ls := int(lvl.Sidedefs[ld.SideLeft].Sector)
			if rs != ls {
				seeThrus = append(seeThrus, seeThruLine{int(ld.Start), int(ld.End), i, rs, ls})
			}
			// same-sector two-sided lines are discarded per spec.md 4.5.1
		}
		// missing-both-sides linedefs are discarded
	}
	return solids, seeThrus
}

// hasSpecialEffects scans an existing reject matrix for a set diagonal
// bit or an asymmetric pair (spec.md section 4.5.6).
func hasSpecialEffects(data []byte, numSectors int) bool {
	if numSectors == 0 || len(data) == 0 {
		return false
	}
	get := func(i, j int) bool {
		bit := i*numSectors + j
		idx := bit / 8
		if idx >= len(data) {
			return false
		}
		return data[idx]&(1<<uint(bit%8)) != 0
	}
	for i := 0; i < numSectors; i++ {
		if get(i, i) {
			return true
		}
		for j := i + 1; j < numSectors; j++ {
			if get(i, j) != get(j, i) {
				return true
			}
		}
	}
	return false
}

func packMatrix(m [][]visibility, numSectors int) []byte {
	size := (numSectors*numSectors + 7) / 8
	out := make([]byte, size)
	for i := 0; i < numSectors; i++ {
		for j := 0; j < numSectors; j++ {
			if m[i][j] != visible {
				bit := i*numSectors + j
				out[bit/8] |= 1 << uint(bit%8)
			}
		}
	}
	return out
}

// completeUnknown applies the line-completion rule (spec.md section
// 4.5.5): any pair still unknown after every test has run is hidden,
// and that status propagates to the child graph: a sector hidden from
// a parent is hidden from that parent's children, except from those
// children's own descendants.
func completeUnknown(m [][]visibility, graph *sectorGraph, useGraphs bool) {
	n := len(m)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if m[i][j] == unknown {
				m[i][j] = hidden
			}
		}
	}
	if !useGraphs {
		return
	}
	for _, s := range graph.sectors {
		if s.parent == -1 {
			continue
		}
		for j := 0; j < n; j++ {
			inside := false // j is s or one of s's own descendants
			for a := j; a != -1; a = graph.sectors[a].parent {
				if a == s.id {
					inside = true
					break
				}
			}
			if inside {
				continue
			}
			if m[s.parent][j] == hidden {
				m[s.id][j] = hidden
				m[j][s.id] = hidden
			}
		}
	}
}
