// Package main implements the nodebuild command-line driver: it opens
// an archive, runs the blockmap, BSP and reject builders over each of
// its levels in that order, and writes the archive back if anything
// changed.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/doomtools/nodebuild/archive"
	"github.com/doomtools/nodebuild/blockmap"
	"github.com/doomtools/nodebuild/bsp"
	"github.com/doomtools/nodebuild/config"
	"github.com/doomtools/nodebuild/level"
	"github.com/doomtools/nodebuild/reject"
	"github.com/doomtools/nodebuild/report"
	"github.com/doomtools/nodebuild/rules"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: nodebuild [options] file.wad [level ...]

Rebuilds the blockmap, BSP nodes and reject table for every level in
file.wad, or just the named levels if given. A sibling file.zen rules
file is loaded automatically if present.

options:
`,
		)
		flag.PrintDefaults()
		os.Exit(1)
	}
}

var (
	flagVerbose  = flag.Bool("v", false, "enable/disable verbose mode")
	flagDump     = flag.Bool("dump", false, "print a build report instead of rebuilding")
	flagStrategy = flag.String("strategy", "min-splits", "BSP partition strategy: min-splits, min-depth or min-time")
	flagEmptyRej = flag.Bool("empty-reject", false, "write an all-visible reject table instead of computing one")
	flagOut      = flag.String("o", "", "output path (defaults to overwriting the input file)")
)

func main() {
	log.SetPrefix("nodebuild: ")
	log.SetFlags(0)

	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
	}

	level.SetDebugMode(*flagVerbose)
	blockmap.SetDebugMode(*flagVerbose)
	bsp.SetDebugMode(*flagVerbose)
	reject.SetDebugMode(*flagVerbose)

	strategy, err := parseStrategy(*flagStrategy)
	if err != nil {
		log.Fatal(err)
	}

	fname := flag.Arg(0)
	wantLevels := flag.Args()[1:]

	if err := run(fname, wantLevels, strategy); err != nil {
		log.Fatal(err)
	}
}

func parseStrategy(s string) (config.Strategy, error) {
	switch strings.ToLower(s) {
	case "min-splits", "minsplits", "":
		return config.MinSplits, nil
	case "min-depth", "mindepth":
		return config.MinDepth, nil
	case "min-time", "mintime":
		return config.MinTime, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", s)
	}
}

func run(fname string, wantLevels []string, strategy config.Strategy) error {
	a, err := archive.Open(fname)
	if err != nil {
		return fmt.Errorf("could not open %q: %w", fname, err)
	}
	defer a.Close()

	ruleFile := loadRules(fname)

	names := wantLevels
	if len(names) == 0 {
		names = level.Levels(a)
	}
	if len(names) == 0 {
		return fmt.Errorf("%s: no levels found", fname)
	}

	dirty := false
	for _, name := range names {
		lvl, err := level.Load(a, name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		if *flagDump {
			dumpLevel(lvl)
			continue
		}

		if err := buildLevel(lvl, ruleFile, strategy); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if lvl.IsDirty() {
			dirty = true
		}
		if err := lvl.Save(a); err != nil {
			return fmt.Errorf("%s: could not save: %w", name, err)
		}
	}

	if *flagDump || !dirty {
		return nil
	}

	out := *flagOut
	if out == "" {
		out = fname
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = a.WriteTo(f)
	return err
}

// loadRules looks for a sibling .zen rules file next to fname, matching
// spec.md section 6 ("Per-level custom rules file"). A missing or
// unparseable rules file is not fatal: the build proceeds with default
// options, and a warning is logged only for an unparseable one.
func loadRules(fname string) *rules.File {
	zenPath := strings.TrimSuffix(fname, filepathExt(fname)) + ".zen"
	data, err := os.ReadFile(zenPath)
	if err != nil {
		return nil
	}
	f, err := rules.Parse(data)
	if err != nil {
		log.Printf("warning: ignoring %s: %v", zenPath, err)
		return nil
	}
	return f
}

func filepathExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

func buildLevel(lvl *level.Level, ruleFile *rules.File, strategy config.Strategy) error {
	var rs *rules.Ruleset
	if ruleFile != nil {
		rs = ruleFile.Levels[lvl.Name]
	}

	bmOpts := config.DefaultBlockmapOptions()
	bspOpts := config.DefaultBSPOptions()
	bspOpts.Strategy = strategy
	rejOpts := config.DefaultRejectOptions()
	rejOpts.Empty = *flagEmptyRej

	if rs != nil {
		rs.Resolve(lvl)
		ignore, dontSplit, unique := rs.AsBSPMaps(len(lvl.Linedefs), len(lvl.Sectors))
		bspOpts.IgnoreLinedef = ignore
		bspOpts.DontSplit = dontSplit
		bspOpts.KeepUniqueSect = unique
	}

	bm, err := blockmap.Build(lvl, bmOpts)
	if err != nil {
		return fmt.Errorf("blockmap: %w", err)
	}
	lvl.SetBlockmap(blockmap.Encode(bm, bmOpts.Compress))

	if err := bsp.Build(lvl, bspOpts); err != nil {
		return fmt.Errorf("bsp: %w", err)
	}

	rej, err := reject.Build(lvl, bm, rejOpts)
	if err != nil {
		return fmt.Errorf("reject: %w", err)
	}
	lvl.SetReject(rej, false)

	return nil
}

func dumpLevel(lvl *level.Level) {
	fmt.Printf("=== %s (%s) ===\n", lvl.Name, lvl.Variant)
	fmt.Printf("%d things, %d linedefs, %d sidedefs, %d vertices, %d sectors\n",
		len(lvl.Things), len(lvl.Linedefs), len(lvl.Sidedefs), len(lvl.Vertices), len(lvl.Sectors))

	lines := report.WalkTree(lvl)
	report.PrintTree(os.Stdout, lines)

	if len(lvl.Blockmap) > 0 {
		bm, err := blockmap.Decode(lvl.Blockmap)
		if err != nil {
			log.Printf("%s: could not decode blockmap: %v", lvl.Name, err)
		} else {
			report.PrintBlockmapStats(os.Stdout, report.SummarizeBlockmap(bm))
		}
	}
	if len(lvl.Reject) > 0 {
		report.PrintRejectStats(os.Stdout, report.SummarizeReject(lvl.Reject, len(lvl.Sectors)))
	}
	fmt.Println()
}
