// Package config holds the builder tuning constants and the
// configuration surface described in spec.md section 6. The four
// partition-scoring constants can be overridden from the environment,
// mirroring the original tool's own getenv-based tuning hooks
// (ZEN_X1..ZEN_X4).
package config

import "github.com/xyproto/env/v2"

// Tuning holds the MinSplits scoring constants X1..X4 and the reserved
// depth-strategy constants Y1..Y4 (carried from the original tool but
// unused by any selector documented in spec.md section 4.4.3).
type Tuning struct {
	X1, X2, X3, X4 int
	Y1, Y2, Y3, Y4 int
}

// DefaultTuning returns the compiled-in defaults, each overridable via
// the matching NODEBUILD_ZEN_* environment variable.
func DefaultTuning() Tuning {
	return Tuning{
		X1: env.Int("NODEBUILD_ZEN_X1", 20),
		X2: env.Int("NODEBUILD_ZEN_X2", 10),
		X3: env.Int("NODEBUILD_ZEN_X3", 1),
		X4: env.Int("NODEBUILD_ZEN_X4", 25),
		Y1: env.Int("NODEBUILD_ZEN_Y1", 1),
		Y2: env.Int("NODEBUILD_ZEN_Y2", 7),
		Y3: env.Int("NODEBUILD_ZEN_Y3", 1),
		Y4: env.Int("NODEBUILD_ZEN_Y4", 0),
	}
}

// Strategy selects the BSP partition-selection heuristic (spec.md 4.4.3).
type Strategy int

const (
	MinSplits Strategy = iota
	MinDepth
	MinTime
)

func (s Strategy) String() string {
	switch s {
	case MinSplits:
		return "min-splits"
	case MinDepth:
		return "min-depth"
	case MinTime:
		return "min-time"
	default:
		return "unknown"
	}
}

// BlockmapOptions controls the blockmap builder.
type BlockmapOptions struct {
	Rebuild  bool
	Compress bool
}

// BSPOptions controls the BSP builder.
type BSPOptions struct {
	Rebuild         bool
	Strategy        Strategy
	ShowProgress    bool
	UniqueSubsecs   bool
	ReduceLinedefs  bool
	IgnoreLinedef   map[int]bool
	DontSplit       map[int]bool
	KeepUniqueSect  map[int]bool
	Tuning          Tuning
}

// RejectOptions controls the reject builder.
type RejectOptions struct {
	Rebuild     bool
	Empty       bool
	Force       bool
	UseChildren bool
	UseGraphs   bool
}

// DefaultBlockmapOptions returns the conservative defaults: rebuild with
// compression on, matching common nodebuilder practice.
func DefaultBlockmapOptions() BlockmapOptions {
	return BlockmapOptions{
		Rebuild:  env.Bool("NODEBUILD_REBUILD_BLOCKMAP", true),
		Compress: env.Bool("NODEBUILD_COMPRESS_BLOCKMAP", true),
	}
}

// DefaultBSPOptions returns the MinSplits strategy with reduce-linedefs on.
func DefaultBSPOptions() BSPOptions {
	return BSPOptions{
		Rebuild:        env.Bool("NODEBUILD_REBUILD_NODES", true),
		Strategy:       MinSplits,
		ReduceLinedefs: env.Bool("NODEBUILD_REDUCE_LINEDEFS", true),
		Tuning:         DefaultTuning(),
	}
}

// DefaultRejectOptions returns rebuild-on, force-off defaults.
func DefaultRejectOptions() RejectOptions {
	return RejectOptions{
		Rebuild:     env.Bool("NODEBUILD_REBUILD_REJECT", true),
		UseChildren: true,
		UseGraphs:   true,
	}
}
