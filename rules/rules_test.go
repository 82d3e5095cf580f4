package rules

import (
	"testing"

	"github.com/doomtools/nodebuild/level"
)

func TestParseSimpleDirectives(t *testing.T) {
	src := []byte(`[MAP01]
ignore-linedef: 1, 3-5, 9
dont-split-sector: 2
unique-sector: all
`)
	f, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	rs, ok := f.Levels["MAP01"]
	if !ok {
		t.Fatal("expected MAP01 section")
	}
	for _, idx := range []int{1, 3, 4, 5, 9} {
		if !rs.IgnoreLinedefs.Contains(idx, 20) {
			t.Errorf("expected linedef %d to be ignored", idx)
		}
	}
	if rs.IgnoreLinedefs.Contains(2, 20) {
		t.Error("linedef 2 should not be ignored")
	}
	if !rs.UniqueSectors.Contains(0, 10) || !rs.UniqueSectors.Contains(9, 10) {
		t.Error("'all' selector should match every index")
	}
}

func TestParseNegatedSelector(t *testing.T) {
	src := []byte(`[E1M1]
ignore-linedef: !2, 4
`)
	f, err := Parse(src)
	if err != nil {
		t.Fatal(err)
	}
	sel := f.Levels["E1M1"].IgnoreLinedefs
	if sel.Contains(2, 10) {
		t.Error("negated selector should exclude 2")
	}
	if !sel.Contains(0, 10) {
		t.Error("negated selector should include everything else")
	}
}

func TestParseRejectsUnknownDirective(t *testing.T) {
	src := []byte("[MAP01]\nbogus-directive: 1\n")
	if _, err := Parse(src); err == nil {
		t.Error("expected an error for an unknown directive")
	}
}

func TestParseRejectsBadSectionName(t *testing.T) {
	src := []byte("[NOTALEVEL]\nignore-linedef: 1\n")
	if _, err := Parse(src); err == nil {
		t.Error("expected an error for a non-level-marker section name")
	}
}

func TestResolveExpandsDontSplitSectors(t *testing.T) {
	lvl := &level.Level{}
	lvl.Sidedefs = []level.Sidedef{{Sector: 0}, {Sector: 1}}
	lvl.SetLinedefs([]level.Linedef{
		{SideRight: 0, SideLeft: level.NoSidedef},
		{SideRight: 1, SideLeft: level.NoSidedef},
	})
	lvl.Sectors = []level.Sector{{}, {}}

	rs := &Ruleset{DontSplitSectors: Selector{singles: map[int]bool{1: true}}}
	rs.Resolve(lvl)

	if !rs.DontSplitLinedefs.Contains(1, 2) {
		t.Error("linedef facing don't-split sector 1 should be merged in")
	}
	if rs.DontSplitLinedefs.Contains(0, 2) {
		t.Error("linedef facing sector 0 should not be merged in")
	}
}
