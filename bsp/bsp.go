// Package bsp builds the NODES/SSECTORS/SEGS lump group from a level's
// source geometry (spec.md section 4.4). The recursive split carries an
// explicit partitionContext rather than the package-global mutable state
// the original tool used for its convex-alias stack.
package bsp

import (
	"errors"
	"io"
	"log"
	"os"
	"sort"

	"github.com/doomtools/nodebuild/config"
	"github.com/doomtools/nodebuild/geom"
	"github.com/doomtools/nodebuild/level"
)

// Debug toggles verbose logging across the package, mirroring
// wasm.PrintDebugInfo / wasm.SetDebugMode in the teacher repo.
var Debug = false

var logger *log.Logger

func init() {
	logger = log.New(io.Discard, "bsp: ", log.Lshortfile)
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

// ErrSegOverflow is returned when the split process produces more segs
// than the hard capacity allotted at start (spec.md section 4.4.6): the
// chosen partition strategy has pathological splits for this level.
var ErrSegOverflow = errors.New("bsp: seg capacity exceeded")

// builder holds the growable output arrays and the input line table used
// across one Build call.
type builder struct {
	lvl    *level.Level
	opts   config.BSPOptions
	lines  []buildLine // one per linedef, for split-point recomputation
	ignore map[int]bool

	nodes   []level.Node
	subsecs []level.SubSector
	outSegs []level.Seg
	verts   []geom.Point
	segCap  int
}

// buildLine is a linedef's canonical (as-stored) geometry, kept
// separate from the mutable per-seg Start/End so split-point offsets
// are always measured from the original line.
type buildLine struct {
	Start, End geom.Point
}

// Build constructs the BSP tree for lvl and installs the result via
// SetNodes/SetSubSectors/SetSegs/SetVertices.
func Build(lvl *level.Level, opts config.BSPOptions) error {
	b := &builder{
		lvl:    lvl,
		opts:   opts,
		ignore: opts.IgnoreLinedef,
		verts:  append([]geom.Point(nil), lvl.Vertices...),
	}
	b.lines = make([]buildLine, len(lvl.Linedefs))
	for i, ld := range lvl.Linedefs {
		b.lines[i] = buildLine{Start: lvl.Vertices[ld.Start], End: lvl.Vertices[ld.End]}
	}

	segs := b.buildSegs()
	if len(segs) == 0 {
		lvl.SetNodes(nil)
		lvl.SetSubSectors(nil)
		lvl.SetSegs(nil)
		return nil
	}
	assignAliases(segs, b.lines)

	initialSegs := len(segs)
	b.segCap = int(2.0 * float64(initialSegs))
	if b.segCap < initialSegs {
		b.segCap = initialSegs
	}

	nodeCap := int(0.6 * float64(len(lvl.Sidedefs)))
	if nodeCap < 8 {
		nodeCap = 8
	}
	b.nodes = make([]level.Node, 0, nodeCap)
	b.subsecs = make([]level.SubSector, 0, nodeCap)
	b.outSegs = make([]level.Seg, 0, b.segCap)

	pc := &partitionContext{banned: make(map[int]bool)}
	root, err := b.split(segs, pc)
	if err != nil {
		return err
	}
	_ = root

	lvl.SetVertices(b.verts)
	lvl.SetSegs(b.outSegs)
	lvl.SetSubSectors(b.subsecs)
	lvl.SetNodes(b.nodes)

	logger.Printf("built %d nodes, %d subsectors, %d segs", len(b.nodes), len(b.subsecs), len(b.outSegs))
	return nil
}

// partitionContext is the scratch convex-alias stack threaded through
// the recursion (spec.md section 4.4.4): aliases ruled out as boundary
// edges are banned for this subtree and all descendants, and restored
// by the caller on return.
type partitionContext struct {
	banned map[int]bool
}

// ban adds ids to the banned set and returns a function that removes
// exactly the ids this call added (ids already banned by an ancestor
// are left alone).
func (pc *partitionContext) ban(ids []int) func() {
	added := make([]int, 0, len(ids))
	for _, id := range ids {
		if !pc.banned[id] {
			pc.banned[id] = true
			added = append(added, id)
		}
	}
	return func() {
		for _, id := range added {
			delete(pc.banned, id)
		}
	}
}

func sortedAliasKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
