package blockmap

import (
	"testing"

	"github.com/doomtools/nodebuild/config"
	"github.com/doomtools/nodebuild/geom"
	"github.com/doomtools/nodebuild/level"
)

// squareRoom returns a level with a single 1024x1024 square room, four
// one-sided linedefs walking the perimeter.
func squareRoom() *level.Level {
	lvl := &level.Level{}
	lvl.SetVertices([]geom.Point{{0, 0}, {1024, 0}, {1024, 1024}, {0, 1024}})
	lds := make([]level.Linedef, 4)
	for i := range lds {
		lds[i] = level.Linedef{
			Start:     uint16(i),
			End:       uint16((i + 1) % 4),
			SideRight: uint16(i),
			SideLeft:  level.NoSidedef,
		}
	}
	lvl.SetLinedefs(lds)
	return lvl
}

func TestBuildSquareRoom(t *testing.T) {
	lvl := squareRoom()
	bm, err := Build(lvl, config.DefaultBlockmapOptions())
	if err != nil {
		t.Fatal(err)
	}

	// Room spans x,y in [0,1024]; origin is minX-8=-8, so width is
	// 1024-(-8)=1032, needing floor(1032/128)+1 = 9 columns (and rows).
	if bm.Columns != 9 || bm.Rows != 9 {
		t.Fatalf("grid = %dx%d, want 9x9", bm.Columns, bm.Rows)
	}
	if len(bm.Cells) != 9*9 {
		t.Fatalf("len(Cells) = %d, want 81", len(bm.Cells))
	}
}

func TestRasterizeNoDuplicateCells(t *testing.T) {
	lvl := squareRoom()
	bm, err := Build(lvl, config.DefaultBlockmapOptions())
	if err != nil {
		t.Fatal(err)
	}
	for i, cell := range bm.Cells {
		seen := make(map[int]bool)
		for _, line := range cell {
			if seen[line] {
				t.Errorf("cell %d: line %d listed twice", i, line)
			}
			seen[line] = true
		}
	}
}

func TestRasterizeLineAxisAligned(t *testing.T) {
	var cells []int
	visit := func(c int) { cells = append(cells, c) }

	// Horizontal line from (0,0) to (300,0), origin (0,0), 4 cols.
	RasterizeLine(geom.Point{X: 0, Y: 0}, geom.Point{X: 300, Y: 0}, 0, 0, 4, 4, visit)
	want := []int{0, 1, 2}
	if len(cells) != len(want) {
		t.Fatalf("cells = %v, want %v", cells, want)
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("cells[%d] = %d, want %d", i, cells[i], want[i])
		}
	}
}

func TestEmptyLevelError(t *testing.T) {
	lvl := &level.Level{}
	if _, err := Build(lvl, config.DefaultBlockmapOptions()); err == nil {
		t.Error("expected EmptyLevelError")
	}
}

func TestEncodeDecodeHeader(t *testing.T) {
	lvl := squareRoom()
	bm, err := Build(lvl, config.DefaultBlockmapOptions())
	if err != nil {
		t.Fatal(err)
	}
	data := Encode(bm, false)
	if len(data) < 8 {
		t.Fatalf("encoded blockmap too short: %d bytes", len(data))
	}
	gotCols := int(data[4]) | int(data[5])<<8
	gotRows := int(data[6]) | int(data[7])<<8
	if gotCols != bm.Columns || gotRows != bm.Rows {
		t.Errorf("header cols/rows = %d/%d, want %d/%d", gotCols, gotRows, bm.Columns, bm.Rows)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		lvl := squareRoom()
		bm, err := Build(lvl, config.DefaultBlockmapOptions())
		if err != nil {
			t.Fatal(err)
		}
		data := Encode(bm, compress)

		got, err := Decode(data)
		if err != nil {
			t.Fatalf("compress=%v: Decode() err = %v", compress, err)
		}
		if got.Columns != bm.Columns || got.Rows != bm.Rows {
			t.Fatalf("compress=%v: grid = %dx%d, want %dx%d", compress, got.Columns, got.Rows, bm.Columns, bm.Rows)
		}
		if got.XOrigin != bm.XOrigin || got.YOrigin != bm.YOrigin {
			t.Errorf("compress=%v: origin = (%d,%d), want (%d,%d)", compress, got.XOrigin, got.YOrigin, bm.XOrigin, bm.YOrigin)
		}
		for i := range bm.Cells {
			if !sameCellList(bm.Cells[i], got.Cells[i]) {
				t.Errorf("compress=%v: cell %d = %v, want %v", compress, i, got.Cells[i], bm.Cells[i])
			}
		}
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); err == nil {
		t.Error("expected an error decoding a truncated lump")
	}
}
