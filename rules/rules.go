// Package rules parses the per-level custom `.zen` rules file: a
// section-keyed set of directives overriding which linedefs the BSP
// builder may split, ignore, or treat as unique-sector boundaries.
package rules

import (
	"fmt"
	"strconv"

	"github.com/doomtools/nodebuild/level"
)

// Selector matches a set of integer indices: linedef, sector, or
// sidedef numbers, expressed as comma-separated singletons and
// `a-b` ranges, the keyword `all`, or a leading `!` negating the whole
// selector against the level's full index range.
type Selector struct {
	all      bool
	negate   bool
	singles  map[int]bool
	ranges   [][2]int
}

// Contains reports whether idx is selected, given bound as the
// exclusive upper limit of the level's index space (for `all`/negation).
func (s Selector) Contains(idx, bound int) bool {
	if idx < 0 || idx >= bound {
		return false
	}
	if s.singles == nil && len(s.ranges) == 0 && !s.all {
		return false
	}
	match := s.all
	if !match && s.singles[idx] {
		match = true
	}
	if !match {
		for _, r := range s.ranges {
			if idx >= r[0] && idx <= r[1] {
				match = true
				break
			}
		}
	}
	if s.negate {
		return !match
	}
	return match
}

// Indices expands the selector into a sorted slice of indices in
// [0,bound).
func (s Selector) Indices(bound int) []int {
	var out []int
	for i := 0; i < bound; i++ {
		if s.Contains(i, bound) {
			out = append(out, i)
		}
	}
	return out
}

// Ruleset holds one level's parsed directives (spec.md section 6, "Per-
// level custom rules file").
type Ruleset struct {
	IgnoreLinedefs    Selector
	DontSplitLinedefs Selector
	DontSplitSectors  Selector
	UniqueSectors     Selector
}

// ParseError describes one parse error encountered in a .zen file, with
// its source line.
type ParseError struct {
	Line int
	Msg  string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("rules: line %d: %s", e.Line, e.Msg)
}

// File is a parsed .zen document: one Ruleset per level marker section.
type File struct {
	Levels map[string]*Ruleset
}

// Parse reads a .zen document from src.
func Parse(src []byte) (*File, error) {
	s := NewScanner(src)
	f := &File{Levels: make(map[string]*Ruleset)}

	var current *Ruleset
	tok := s.Next()
	for tok.Kind != EOF {
		switch tok.Kind {
		case NEWLINE:
			tok = s.Next()
		case LBRACKET:
			name, next, err := parseSectionHeader(s)
			if err != nil {
				return nil, err
			}
			current = &Ruleset{}
			f.Levels[name] = current
			tok = next
		case IDENT:
			if current == nil {
				return nil, ParseError{tok.Line, "directive outside of a [level] section"}
			}
			next, err := parseDirective(s, tok, current)
			if err != nil {
				return nil, err
			}
			tok = next
		default:
			return nil, ParseError{tok.Line, fmt.Sprintf("unexpected token %s", tok)}
		}
	}
	if len(s.Errors) > 0 {
		return nil, s.Errors[0]
	}
	return f, nil
}

func parseSectionHeader(s *Scanner) (string, Token, error) {
	name := s.Next()
	if name.Kind != IDENT {
		return "", Token{}, ParseError{name.Line, "expected level name after '['"}
	}
	close := s.Next()
	if close.Kind != RBRACKET {
		return "", Token{}, ParseError{close.Line, "expected ']' after level name"}
	}
	if !level.IsLevelMarker(name.Text) {
		return "", Token{}, ParseError{name.Line, fmt.Sprintf("%q is not a level marker", name.Text)}
	}
	return name.Text, s.Next(), nil
}

func parseDirective(s *Scanner, key Token, rs *Ruleset) (Token, error) {
	colon := s.Next()
	if colon.Kind != COLON {
		return Token{}, ParseError{colon.Line, "expected ':' after directive name"}
	}

	sel, next, err := parseSelector(s)
	if err != nil {
		return Token{}, err
	}

	switch key.Text {
	case "ignore-linedef", "ignore-linedefs":
		rs.IgnoreLinedefs = sel
	case "dont-split-linedef", "dont-split-linedefs":
		rs.DontSplitLinedefs = sel
	case "dont-split-sector", "dont-split-sectors":
		rs.DontSplitSectors = sel
	case "unique-sector", "unique-sectors":
		rs.UniqueSectors = sel
	default:
		return Token{}, ParseError{key.Line, fmt.Sprintf("unknown directive %q", key.Text)}
	}
	return next, nil
}

// parseSelector consumes a comma-separated list of numbers/ranges, the
// keyword `all`, with an optional leading `!`, until a NEWLINE or EOF.
func parseSelector(s *Scanner) (Selector, Token, error) {
	sel := Selector{singles: map[int]bool{}}

	tok := s.Next()
	if tok.Kind == BANG {
		sel.negate = true
		tok = s.Next()
	}

	for {
		switch tok.Kind {
		case IDENT:
			if tok.Text != "all" {
				return sel, Token{}, ParseError{tok.Line, fmt.Sprintf("expected number, range or 'all', got %q", tok.Text)}
			}
			sel.all = true
			tok = s.Next()
		case NUMBER:
			lo, err := strconv.Atoi(tok.Text)
			if err != nil {
				return sel, Token{}, ParseError{tok.Line, "malformed number"}
			}
			tok = s.Next()
			if tok.Kind == DASH {
				tok = s.Next()
				if tok.Kind != NUMBER {
					return sel, Token{}, ParseError{tok.Line, "expected number after '-'"}
				}
				hi, err := strconv.Atoi(tok.Text)
				if err != nil {
					return sel, Token{}, ParseError{tok.Line, "malformed number"}
				}
				sel.ranges = append(sel.ranges, [2]int{lo, hi})
				tok = s.Next()
			} else {
				sel.singles[lo] = true
			}
		default:
			return sel, Token{}, ParseError{tok.Line, fmt.Sprintf("expected number, range or 'all', got %q", tok.Kind)}
		}

		if tok.Kind == COMMA {
			tok = s.Next()
			continue
		}
		break
	}

	if tok.Kind != NEWLINE && tok.Kind != EOF {
		return sel, Token{}, ParseError{tok.Line, fmt.Sprintf("unexpected token %s after selector", tok)}
	}
	return sel, tok, nil
}

// Resolve expands DontSplitSectors into additional DontSplitLinedefs
// entries (spec.md section 6): every linedef whose sidedef(s) face a
// don't-split sector is merged in. Needs a loaded level for the
// sidedef -> sector lookup, so this cannot happen at parse time.
func (rs *Ruleset) Resolve(lvl *level.Level) {
	if rs.DontSplitSectors.singles == nil && len(rs.DontSplitSectors.ranges) == 0 && !rs.DontSplitSectors.all {
		return
	}
	extra := map[int]bool{}
	for i, ld := range lvl.Linedefs {
		if sidedefFacesSelected(lvl, ld.SideRight, rs.DontSplitSectors, len(lvl.Sectors)) ||
			sidedefFacesSelected(lvl, ld.SideLeft, rs.DontSplitSectors, len(lvl.Sectors)) {
			extra[i] = true
		}
	}
	if rs.DontSplitLinedefs.singles == nil {
		rs.DontSplitLinedefs.singles = map[int]bool{}
	}
	for i := range extra {
		rs.DontSplitLinedefs.singles[i] = true
	}
}

func sidedefFacesSelected(lvl *level.Level, sideIdx uint16, sel Selector, numSectors int) bool {
	if sideIdx == level.NoSidedef {
		return false
	}
	sector := int(lvl.Sidedefs[sideIdx].Sector)
	return sel.Contains(sector, numSectors)
}

// AsBSPMaps converts a resolved ruleset into the map[int]bool forms the
// bsp package's BSPOptions consumes.
func (rs *Ruleset) AsBSPMaps(numLinedefs, numSectors int) (ignore, dontSplit, uniqueSectors map[int]bool) {
	toMap := func(sel Selector, bound int) map[int]bool {
		m := map[int]bool{}
		for _, i := range sel.Indices(bound) {
			m[i] = true
		}
		return m
	}
	return toMap(rs.IgnoreLinedefs, numLinedefs), toMap(rs.DontSplitLinedefs, numLinedefs), toMap(rs.UniqueSectors, numSectors)
}
