// Package level provides a typed view over a level's lump group: it
// decodes the source geometry (things, linedefs, sidedefs, vertices,
// sectors) and the derived geometry the builders produce (segs,
// sub-sectors, nodes, reject, blockmap), tracks which categories have
// been rewritten since load, and re-serializes only those on save.
//
// This mirrors wasm.Module's shape in the teacher repo: a single decode
// pass into typed arrays, fields addressed by index rather than pointer,
// and a raw/decoded duality (here: format Variant) that survives a
// round-trip unmodified.
package level

import (
	"fmt"
	"log"
	"io"
	"os"

	"github.com/doomtools/nodebuild/archive"
	"github.com/doomtools/nodebuild/geom"
)

// Debug toggles verbose logging across the package, mirroring
// wasm.PrintDebugInfo / wasm.SetDebugMode in the teacher repo.
var Debug = false

var logger *log.Logger

func init() {
	logger = log.New(io.Discard, "level: ", log.Lshortfile)
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

// Variant selects between the classic and extended (script-enabled)
// lump layouts (spec.md section 4.1).
type Variant int

const (
	VariantClassic Variant = iota
	VariantExtended
)

func (v Variant) String() string {
	if v == VariantExtended {
		return "extended"
	}
	return "classic"
}

// lumpNames is the fixed ordered window following a level marker
// (spec.md section 6, "Level lump group").
var lumpNames = []string{
	"THINGS", "LINEDEFS", "SIDEDEFS", "VERTEXES", "SEGS",
	"SSECTORS", "NODES", "SECTORS", "REJECT", "BLOCKMAP",
}

const (
	idxThings = iota
	idxLinedefs
	idxSidedefs
	idxVertexes
	idxSegs
	idxSSectors
	idxNodes
	idxSectors
	idxReject
	idxBlockmap
	numLumps
)

// category identifies one of the ten independently-dirty-tracked
// decoded arrays (spec.md section 4.1, "Dirty-bit bookkeeping").
type category int

const (
	catThings category = iota
	catLinedefs
	catSidedefs
	catVertices
	catSectors
	catSegs
	catSubSectors
	catNodes
	catReject
	catBlockmap
	numCategories
)

// Level is a typed, mutable view over one level's ten lumps.
type Level struct {
	Name    string
	Variant Variant

	Things    []Thing
	Linedefs  []Linedef
	Sidedefs  []Sidedef
	Vertices  []geom.Point
	Sectors   []Sector
	Segs      []Seg
	SubSecs   []SubSector
	Nodes     []Node
	Reject    []byte
	Blockmap  []byte

	dirty    [numCategories]bool
	rawLumps [numLumps][]byte // source bytes, kept for byte-identical round trips

	validMemo    *bool
	behaviorLump []byte // present only for the extended variant
}

// NoSidedef is the sentinel value denoting an absent side.
const NoSidedef = 0xFFFF

// MissingLevelError is returned when an archive has no lump group for
// the requested level name.
type MissingLevelError string

func (e MissingLevelError) Error() string {
	return fmt.Sprintf("level: no such level %q", string(e))
}

// UnknownVariantError is returned when neither the classic nor the
// extended layout can parse a level's THINGS/LINEDEFS lumps.
type UnknownVariantError string

func (e UnknownVariantError) Error() string {
	return fmt.Sprintf("level: could not determine lump format for %q", string(e))
}

// markerIndex finds the directory index of the named level marker lump.
func markerIndex(a *archive.Archive, name string) (int, bool) {
	for i := 0; i < a.NumLumps(); i++ {
		if n, ok := a.NameAt(i); ok && n == name {
			return i, true
		}
	}
	return -1, false
}

// Load locates the lump group for the named level marker (ExMy or
// MAPxx) and decodes it, auto-detecting the format variant.
func Load(a *archive.Archive, name string) (*Level, error) {
	marker, ok := markerIndex(a, name)
	if !ok {
		return nil, MissingLevelError(name)
	}

	lvl := &Level{Name: name}

	for i, lname := range lumpNames {
		idx := marker + 1 + i
		gotName, data, ok := a.LumpAt(idx)
		if !ok || gotName != lname {
			// Missing trailing lumps (REJECT/BLOCKMAP not yet built) are
			// tolerated; anything earlier missing is a structural error.
			if i >= idxReject {
				lvl.rawLumps[i] = nil
				continue
			}
			return nil, UnknownVariantError(name)
		}
		lvl.rawLumps[i] = data
	}

	// BEHAVIOR follows BLOCKMAP in the extended variant; harmless to miss.
	if behaviorName, data, ok := a.LumpAt(marker + 1 + numLumps); ok && behaviorName == "BEHAVIOR" {
		lvl.behaviorLump = data
	}

	if err := lvl.decode(); err != nil {
		return nil, err
	}

	return lvl, nil
}

// decode runs the variant-detection heuristic (spec.md section 4.1) and
// populates the typed arrays.
func (lvl *Level) decode() error {
	variant, ok := detectVariant(lvl.rawLumps[idxThings], lvl.rawLumps[idxLinedefs])
	if !ok {
		return UnknownVariantError(lvl.Name)
	}
	lvl.Variant = variant

	var err error
	if lvl.Things, err = decodeThings(lvl.rawLumps[idxThings], variant); err != nil {
		return err
	}
	if lvl.Linedefs, err = decodeLinedefs(lvl.rawLumps[idxLinedefs], variant); err != nil {
		return err
	}
	if lvl.Sidedefs, err = decodeSidedefs(lvl.rawLumps[idxSidedefs]); err != nil {
		return err
	}
	if lvl.Vertices, err = decodeVertices(lvl.rawLumps[idxVertexes]); err != nil {
		return err
	}
	if lvl.Sectors, err = decodeSectors(lvl.rawLumps[idxSectors]); err != nil {
		return err
	}
	if lvl.Segs, err = decodeSegs(lvl.rawLumps[idxSegs]); err != nil {
		return err
	}
	if lvl.SubSecs, err = decodeSubSectors(lvl.rawLumps[idxSSectors]); err != nil {
		return err
	}
	if lvl.Nodes, err = decodeNodes(lvl.rawLumps[idxNodes]); err != nil {
		return err
	}
	lvl.Reject = append([]byte(nil), lvl.rawLumps[idxReject]...)
	lvl.Blockmap = append([]byte(nil), lvl.rawLumps[idxBlockmap]...)

	return nil
}

// Save re-encodes every dirty category into a, clearing dirty bits on
// success.
func (lvl *Level) Save(a *archive.Archive) error {
	set := func(name string, dirty bool, data []byte) error {
		if !dirty {
			return nil
		}
		return a.SetLump(name, data)
	}

	if err := set(lumpNames[idxThings], lvl.dirty[catThings], encodeThings(lvl.Things, lvl.Variant)); err != nil {
		return err
	}
	if err := set(lumpNames[idxLinedefs], lvl.dirty[catLinedefs], encodeLinedefs(lvl.Linedefs, lvl.Variant)); err != nil {
		return err
	}
	if err := set(lumpNames[idxSidedefs], lvl.dirty[catSidedefs], encodeSidedefs(lvl.Sidedefs)); err != nil {
		return err
	}
	if err := set(lumpNames[idxVertexes], lvl.dirty[catVertices], encodeVertices(lvl.Vertices)); err != nil {
		return err
	}
	if err := set(lumpNames[idxSegs], lvl.dirty[catSegs], encodeSegs(lvl.Segs)); err != nil {
		return err
	}
	if err := set(lumpNames[idxSSectors], lvl.dirty[catSubSectors], encodeSubSectors(lvl.SubSecs)); err != nil {
		return err
	}
	if err := set(lumpNames[idxNodes], lvl.dirty[catNodes], encodeNodes(lvl.Nodes)); err != nil {
		return err
	}
	if err := set(lumpNames[idxSectors], lvl.dirty[catSectors], encodeSectors(lvl.Sectors)); err != nil {
		return err
	}
	if err := set(lumpNames[idxReject], lvl.dirty[catReject], lvl.Reject); err != nil {
		return err
	}
	if err := set(lumpNames[idxBlockmap], lvl.dirty[catBlockmap], lvl.Blockmap); err != nil {
		return err
	}

	for i := range lvl.dirty {
		lvl.dirty[i] = false
	}
	lvl.validMemo = nil
	return nil
}

// IsDirty reports whether any category has pending changes.
func (lvl *Level) IsDirty() bool {
	for _, d := range lvl.dirty {
		if d {
			return true
		}
	}
	return false
}

// setBytes compares next against the category's current encoded form
// cur; if they differ, the decoded slice is replaced via apply and the
// dirty bit is set. Equal data leaves everything untouched, per spec.md
// section 4.1.
func setBytes(dirty *bool, cur, next []byte, apply func()) {
	if bytesEqual(cur, next) {
		return
	}
	apply()
	*dirty = true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SetSegs installs a newly-built seg array, marking SEGS dirty only if
// the encoded bytes actually changed.
func (lvl *Level) SetSegs(segs []Seg) {
	setBytes(&lvl.dirty[catSegs], encodeSegs(lvl.Segs), encodeSegs(segs), func() { lvl.Segs = segs })
}

// SetSubSectors installs a newly-built sub-sector array.
func (lvl *Level) SetSubSectors(ss []SubSector) {
	setBytes(&lvl.dirty[catSubSectors], encodeSubSectors(lvl.SubSecs), encodeSubSectors(ss), func() { lvl.SubSecs = ss })
}

// SetNodes installs a newly-built node array.
func (lvl *Level) SetNodes(nodes []Node) {
	setBytes(&lvl.dirty[catNodes], encodeNodes(lvl.Nodes), encodeNodes(nodes), func() { lvl.Nodes = nodes })
}

// SetVertices installs a newly-built vertex array.
func (lvl *Level) SetVertices(v []geom.Point) {
	setBytes(&lvl.dirty[catVertices], encodeVertices(lvl.Vertices), encodeVertices(v), func() { lvl.Vertices = v })
}

// SetLinedefs installs a rewritten linedef array (e.g. after index
// renumbering from TrimVertices/PackVertices).
func (lvl *Level) SetLinedefs(ld []Linedef) {
	setBytes(&lvl.dirty[catLinedefs], encodeLinedefs(lvl.Linedefs, lvl.Variant), encodeLinedefs(ld, lvl.Variant), func() { lvl.Linedefs = ld })
}

// SetBlockmap installs a newly-built blockmap lump.
func (lvl *Level) SetBlockmap(data []byte) {
	setBytes(&lvl.dirty[catBlockmap], lvl.Blockmap, data, func() { lvl.Blockmap = data })
}

// SetReject installs a newly-built reject lump. When preserveTail is
// true and the previous reject buffer is at least as long, the final
// byte's bits beyond the last valid sector pair are copied from the
// previous value, preserving any hand-encoded "special effects" in the
// padding (spec.md section 4.1).
func (lvl *Level) SetReject(data []byte, preserveTail bool) {
	if preserveTail && len(lvl.Reject) == len(data) && len(data) > 0 {
		data = append([]byte(nil), data...)
		data[len(data)-1] = lvl.Reject[len(data)-1]
	}
	// Per spec.md section 9 open question (a): compare against the
	// *current* reject bytes, not the blockmap, deliberately not
	// reproducing the upstream copy-paste bug.
	setBytes(&lvl.dirty[catReject], lvl.Reject, data, func() { lvl.Reject = data })
}
