package level

import "github.com/doomtools/nodebuild/geom"

// TrimVertices discards vertices not referenced by any linedef (and, if
// segs exist, any seg), compacting the array and rewriting every
// reference. Idempotent: a second call finds nothing to discard.
func (lvl *Level) TrimVertices() {
	used := make([]bool, len(lvl.Vertices))
	for _, ld := range lvl.Linedefs {
		used[ld.Start] = true
		used[ld.End] = true
	}
	for _, sg := range lvl.Segs {
		used[sg.Start] = true
		used[sg.End] = true
	}

	remap := make([]uint16, len(lvl.Vertices))
	out := make([]geom.Point, 0, len(lvl.Vertices))
	for i, v := range lvl.Vertices {
		if !used[i] {
			continue
		}
		remap[i] = uint16(len(out))
		out = append(out, v)
	}

	if len(out) == len(lvl.Vertices) {
		return // nothing to trim
	}

	newLinedefs := make([]Linedef, len(lvl.Linedefs))
	for i, ld := range lvl.Linedefs {
		ld.Start = remap[ld.Start]
		ld.End = remap[ld.End]
		newLinedefs[i] = ld
	}
	lvl.SetLinedefs(newLinedefs)

	if len(lvl.Segs) > 0 {
		newSegs := make([]Seg, len(lvl.Segs))
		for i, sg := range lvl.Segs {
			sg.Start = remap[sg.Start]
			sg.End = remap[sg.End]
			newSegs[i] = sg
		}
		lvl.SetSegs(newSegs)
	}

	lvl.SetVertices(out)
}

// PackVertices merges vertices with identical coordinates, rewriting
// every reference to the surviving (lowest-index) vertex. Idempotent
// after one application: a packed vertex array has no duplicates left
// to merge.
func (lvl *Level) PackVertices() {
	type key struct{ x, y int16 }
	first := make(map[key]int, len(lvl.Vertices))
	remap := make([]uint16, len(lvl.Vertices))
	changed := false

	out := make([]geom.Point, 0, len(lvl.Vertices))
	for i, v := range lvl.Vertices {
		k := key{v.X, v.Y}
		if j, ok := first[k]; ok {
			remap[i] = uint16(j)
			changed = true
			continue
		}
		first[k] = len(out)
		remap[i] = uint16(len(out))
		out = append(out, v)
	}

	if !changed {
		return
	}

	newLinedefs := make([]Linedef, len(lvl.Linedefs))
	for i, ld := range lvl.Linedefs {
		ld.Start = remap[ld.Start]
		ld.End = remap[ld.End]
		newLinedefs[i] = ld
	}
	lvl.SetLinedefs(newLinedefs)

	if len(lvl.Segs) > 0 {
		newSegs := make([]Seg, len(lvl.Segs))
		for i, sg := range lvl.Segs {
			sg.Start = remap[sg.Start]
			sg.End = remap[sg.End]
			newSegs[i] = sg
		}
		lvl.SetSegs(newSegs)
	}

	lvl.SetVertices(out)
}
