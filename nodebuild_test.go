// End-to-end scenarios seeding the test suite: each builds a tiny
// archive in memory, loads it, runs blockmap -> bsp -> reject in order,
// and checks the documented outcome for that scenario.
package nodebuild

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/doomtools/nodebuild/archive"
	"github.com/doomtools/nodebuild/blockmap"
	"github.com/doomtools/nodebuild/bsp"
	"github.com/doomtools/nodebuild/config"
	"github.com/doomtools/nodebuild/geom"
	"github.com/doomtools/nodebuild/level"
	"github.com/doomtools/nodebuild/reject"
)

// buildRawArchive serializes a minimal PWAD with one level lump group
// (in lumpNames order) following the named marker.
func buildRawArchive(marker string, lumps map[string][]byte, order []string) []byte {
	buf := new(bytes.Buffer)
	buf.WriteString("PWAD")
	binary.Write(buf, binary.LittleEndian, uint32(len(order)+1))
	dirStartPos := buf.Len()
	binary.Write(buf, binary.LittleEndian, uint32(0))

	type placed struct {
		name string
		off  uint32
		size uint32
	}
	placements := []placed{{marker, uint32(buf.Len()), 0}}
	for _, name := range order {
		off := uint32(buf.Len())
		data := lumps[name]
		buf.Write(data)
		placements = append(placements, placed{name, off, uint32(len(data))})
	}
	dirStart := uint32(buf.Len())
	for _, p := range placements {
		binary.Write(buf, binary.LittleEndian, p.off)
		binary.Write(buf, binary.LittleEndian, p.size)
		var name [8]byte
		copy(name[:], p.name)
		buf.Write(name[:])
	}
	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[dirStartPos:], dirStart)
	return out
}

var lumpOrder = []string{
	"THINGS", "LINEDEFS", "SIDEDEFS", "VERTEXES", "SEGS",
	"SSECTORS", "NODES", "SECTORS", "REJECT", "BLOCKMAP",
}

type rawLinedef struct {
	start, end          uint16
	sideRight, sideLeft uint16
}

func encodeLinedefsRaw(lds []rawLinedef) []byte {
	buf := new(bytes.Buffer)
	for _, ld := range lds {
		binary.Write(buf, binary.LittleEndian, ld.start)
		binary.Write(buf, binary.LittleEndian, ld.end)
		binary.Write(buf, binary.LittleEndian, uint16(1)) // flags: impassible
		binary.Write(buf, binary.LittleEndian, uint16(0)) // type
		binary.Write(buf, binary.LittleEndian, uint16(0)) // trigger
		binary.Write(buf, binary.LittleEndian, ld.sideRight)
		binary.Write(buf, binary.LittleEndian, ld.sideLeft)
	}
	return buf.Bytes()
}

func encodeSidedefsRaw(sectors []uint16) []byte {
	buf := new(bytes.Buffer)
	for _, sec := range sectors {
		binary.Write(buf, binary.LittleEndian, int16(0))
		binary.Write(buf, binary.LittleEndian, int16(0))
		buf.Write(make([]byte, 24))
		binary.Write(buf, binary.LittleEndian, sec)
	}
	return buf.Bytes()
}

func encodeVertexesRaw(pts []geom.Point) []byte {
	buf := new(bytes.Buffer)
	for _, p := range pts {
		binary.Write(buf, binary.LittleEndian, p.X)
		binary.Write(buf, binary.LittleEndian, p.Y)
	}
	return buf.Bytes()
}

func encodeSectorsRaw(n int) []byte {
	buf := new(bytes.Buffer)
	for i := 0; i < n; i++ {
		binary.Write(buf, binary.LittleEndian, int16(0))
		binary.Write(buf, binary.LittleEndian, int16(128))
		buf.Write(make([]byte, 16))
		binary.Write(buf, binary.LittleEndian, int16(160))
		binary.Write(buf, binary.LittleEndian, int16(0))
		binary.Write(buf, binary.LittleEndian, int16(0))
	}
	return buf.Bytes()
}

// loadScenario assembles a classic-variant archive from the given
// geometry and loads its single level.
func loadScenario(t *testing.T, verts []geom.Point, lds []rawLinedef, sideSectors []uint16, numSectors int) *level.Level {
	t.Helper()
	lumps := map[string][]byte{
		"THINGS":   make([]byte, 10),
		"LINEDEFS": encodeLinedefsRaw(lds),
		"SIDEDEFS": encodeSidedefsRaw(sideSectors),
		"VERTEXES": encodeVertexesRaw(verts),
		"SEGS":     {},
		"SSECTORS": {},
		"NODES":    {},
		"SECTORS":  encodeSectorsRaw(numSectors),
		"REJECT":   {},
		"BLOCKMAP": {},
	}
	raw := buildRawArchive("MAP01", lumps, lumpOrder)
	a, err := archive.OpenBytes(raw)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	lvl, err := level.Load(a, "MAP01")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return lvl
}

// runPipeline executes blockmap -> bsp -> reject over lvl, in the
// driver's documented order, and returns the built blockmap.
func runPipeline(t *testing.T, lvl *level.Level, bspOpts config.BSPOptions) *blockmap.Blockmap {
	t.Helper()
	bm, err := blockmap.Build(lvl, config.DefaultBlockmapOptions())
	if err != nil {
		t.Fatalf("blockmap.Build: %v", err)
	}
	if err := bsp.Build(lvl, bspOpts); err != nil {
		t.Fatalf("bsp.Build: %v", err)
	}
	data, err := reject.Build(lvl, bm, config.DefaultRejectOptions())
	if err != nil {
		t.Fatalf("reject.Build: %v", err)
	}
	lvl.SetReject(data, false)
	return bm
}

func rejectBit(data []byte, numSectors, i, j int) bool {
	bit := i*numSectors + j
	return data[bit/8]&(1<<uint(bit%8)) != 0
}

// squarePerimeter returns the four one-sided linedefs walking a
// counter-clockwise square room whose vertices start at baseVert, with
// sidedefs starting at sideBase.
func squarePerimeter(baseVert, sideBase uint16) []rawLinedef {
	lds := make([]rawLinedef, 4)
	for i := range lds {
		lds[i] = rawLinedef{
			start:     baseVert + uint16(i),
			end:       baseVert + uint16((i+1)%4),
			sideRight: sideBase + uint16(i),
			sideLeft:  level.NoSidedef,
		}
	}
	return lds
}

// Scenario 1: single-sector square room.
func TestScenarioSingleRoom(t *testing.T) {
	verts := []geom.Point{{0, 0}, {1024, 0}, {1024, 1024}, {0, 1024}}
	lds := squarePerimeter(0, 0)
	sideSectors := []uint16{0, 0, 0, 0}

	lvl := loadScenario(t, verts, lds, sideSectors, 1)
	bm := runPipeline(t, lvl, config.DefaultBSPOptions())

	if bm.Columns != 9 || bm.Rows != 9 {
		t.Errorf("blockmap grid = %dx%d, want 9x9", bm.Columns, bm.Rows)
	}
	if len(lvl.Nodes) != 0 {
		t.Errorf("len(Nodes) = %d, want 0 for a fully convex room", len(lvl.Nodes))
	}
	if len(lvl.SubSecs) != 1 || lvl.SubSecs[0].Num != 4 {
		t.Fatalf("SubSecs = %+v, want one subsector with 4 segs", lvl.SubSecs)
	}
	if len(lvl.Reject) == 0 {
		t.Fatal("expected a non-empty reject lump")
	}
	if rejectBit(lvl.Reject, 1, 0, 0) {
		t.Error("single sector's diagonal should be visible (0)")
	}
}

// Scenario 2: two rooms joined by a two-sided linedef.
func TestScenarioTwoRoomsJoined(t *testing.T) {
	verts := []geom.Point{
		{0, 0}, {1024, 0}, {1024, 1024}, {0, 1024},
		{2048, 0}, {2048, 1024},
	}
	lds := []rawLinedef{
		{0, 1, 0, level.NoSidedef},
		{2, 3, 1, level.NoSidedef},
		{3, 0, 2, level.NoSidedef},
		{4, 5, 3, level.NoSidedef},
		{5, 2, 4, level.NoSidedef},
		{1, 4, 5, level.NoSidedef},
		{1, 2, 6, 7}, // shared two-sided wall
	}
	sideSectors := []uint16{0, 0, 0, 1, 1, 1, 0, 1}

	lvl := loadScenario(t, verts, lds, sideSectors, 2)
	runPipeline(t, lvl, config.DefaultBSPOptions())

	if rejectBit(lvl.Reject, 2, 0, 1) || rejectBit(lvl.Reject, 2, 1, 0) {
		t.Error("directly-joined sectors should be mutually visible")
	}
	if !lvl.IsValid() {
		t.Error("built level should pass index validation")
	}
}

// Scenario 3: two rooms separated by a solid wall, no connecting line.
func TestScenarioTwoRoomsSeparated(t *testing.T) {
	verts := []geom.Point{
		{0, 0}, {1024, 0}, {1024, 1024}, {0, 1024},
		{2048, 0}, {3072, 0}, {3072, 1024}, {2048, 1024},
	}
	var lds []rawLinedef
	lds = append(lds, squarePerimeter(0, 0)...)
	lds = append(lds, squarePerimeter(4, 4)...)
	sideSectors := []uint16{0, 0, 0, 0, 1, 1, 1, 1}

	lvl := loadScenario(t, verts, lds, sideSectors, 2)
	runPipeline(t, lvl, config.DefaultBSPOptions())

	if !rejectBit(lvl.Reject, 2, 0, 1) || !rejectBit(lvl.Reject, 2, 1, 0) {
		t.Error("unconnected, non-intervisible rooms should be hidden from each other")
	}
}

// Scenario 4: three-room chain A<->B<->C with A and C not directly visible.
func TestScenarioThreeRoomChain(t *testing.T) {
	// A (bottom left) and C (top left) both open onto the tall room B to
	// their right; the solid wall 7->2 between the two openings blocks
	// every straight sightline from A to C.
	verts := []geom.Point{
		{0, 0}, {1024, 0}, {1024, 1024}, {0, 1024}, // A: 0-3
		{2048, 0}, {2048, 3072}, {1024, 3072}, {1024, 2048}, // B extra: 4-7
		{0, 3072}, {0, 2048}, // C extra: 8,9
	}
	lds := []rawLinedef{
		{0, 1, 0, level.NoSidedef},
		{2, 3, 1, level.NoSidedef},
		{3, 0, 2, level.NoSidedef},
		{1, 2, 3, 4}, // A<->B
		{1, 4, 5, level.NoSidedef},
		{4, 5, 6, level.NoSidedef},
		{5, 6, 7, level.NoSidedef},
		{6, 7, 8, 9}, // B<->C
		{7, 2, 10, level.NoSidedef},
		{9, 7, 11, level.NoSidedef},
		{6, 8, 12, level.NoSidedef},
		{8, 9, 13, level.NoSidedef},
	}
	sideSectors := []uint16{0, 0, 0, 0, 1, 1, 1, 1, 1, 2, 1, 2, 2, 2}

	lvl := loadScenario(t, verts, lds, sideSectors, 3)
	runPipeline(t, lvl, config.DefaultBSPOptions())

	if rejectBit(lvl.Reject, 3, 0, 1) || rejectBit(lvl.Reject, 3, 1, 0) {
		t.Error("A and B are directly joined, should be visible")
	}
	if rejectBit(lvl.Reject, 3, 1, 2) || rejectBit(lvl.Reject, 3, 2, 1) {
		t.Error("B and C are directly joined, should be visible")
	}
	if !rejectBit(lvl.Reject, 3, 0, 2) || !rejectBit(lvl.Reject, 3, 2, 0) {
		t.Error("A and C are not mutually visible across the chain, want hidden")
	}
}

// Scenario 5: convex pentagon with a two-sided slit into a triangle.
func TestScenarioPentagonWithSlit(t *testing.T) {
	verts := []geom.Point{
		{0, 0}, {1024, 0}, {1280, 512}, {512, 1024}, {-256, 512}, // pentagon: 0-4
		{1280, 512}, {1792, 256}, {1792, 768}, // triangle extra: 5,6,7 (5 mirrors vert 2)
	}
	lds := []rawLinedef{
		{0, 1, 0, level.NoSidedef},
		{1, 2, 1, 2}, // shared slit into the triangle
		{2, 3, 3, level.NoSidedef},
		{3, 4, 4, level.NoSidedef},
		{4, 0, 5, level.NoSidedef},
		{6, 7, 6, level.NoSidedef},
		{7, 5, 7, level.NoSidedef},
		{5, 6, 8, level.NoSidedef},
	}
	sideSectors := []uint16{0, 0, 1, 0, 0, 0, 1, 1, 1}

	lvl := loadScenario(t, verts, lds, sideSectors, 2)
	opts := config.DefaultBSPOptions()
	opts.Strategy = config.MinSplits
	runPipeline(t, lvl, opts)

	if len(lvl.Nodes) > 2 {
		t.Errorf("len(Nodes) = %d, want <= 2 splits for this shape", len(lvl.Nodes))
	}
	if !lvl.IsValid() {
		t.Error("built level should pass index validation")
	}
}

// Scenario 6: a zero-length linedef plus vertices that coincide after
// packing; BSP should silently drop the degenerate linedef rather than
// emit a seg for it.
func TestScenarioDegenerateLinedefDropped(t *testing.T) {
	verts := []geom.Point{
		{0, 0}, {1024, 0}, {1024, 1024}, {0, 1024},
		{1024, 1024}, // 4: duplicate of vertex 2
	}
	lds := squarePerimeter(0, 0)
	lds = append(lds, rawLinedef{start: 2, end: 4, sideRight: 4, sideLeft: level.NoSidedef}) // zero-length post-pack
	sideSectors := []uint16{0, 0, 0, 0, 0}

	lvl := loadScenario(t, verts, lds, sideSectors, 1)
	lvl.TrimVertices()
	lvl.PackVertices()

	if len(lvl.Vertices) != 4 {
		t.Fatalf("len(Vertices) after trim+pack = %d, want 4", len(lvl.Vertices))
	}

	opts := config.DefaultBSPOptions()
	bm, err := blockmap.Build(lvl, config.DefaultBlockmapOptions())
	if err != nil {
		t.Fatalf("blockmap.Build: %v", err)
	}
	if err := bsp.Build(lvl, opts); err != nil {
		t.Fatalf("bsp.Build: %v", err)
	}
	if _, err := reject.Build(lvl, bm, config.DefaultRejectOptions()); err != nil {
		t.Fatalf("reject.Build: %v", err)
	}

	for _, sg := range lvl.Segs {
		if sg.Linedef == 4 {
			t.Error("degenerate linedef 4 should not produce a seg")
		}
	}
	for _, sg := range lvl.Segs {
		if int(sg.Start) >= len(lvl.Vertices) || int(sg.End) >= len(lvl.Vertices) {
			t.Errorf("seg references out-of-range vertex: %+v", sg)
		}
	}
}
